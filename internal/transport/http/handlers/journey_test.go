package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"leavedesk/internal/app/server"
	"leavedesk/internal/platform/config"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error any             `json:"error"`
}

func testConfig(dbURL string) config.Config {
	return config.Config{
		DatabaseURL:        dbURL,
		JWTSecret:          "test-secret",
		TokenTTL:           time.Hour,
		TwoFactorTTL:       10 * time.Minute,
		Environment:        "test",
		SeedAdminEmail:     "admin@test.local",
		SeedAdminPassword:  "ChangeMe123!",
		EmailFrom:          "no-reply@test.local",
		RunMigrations:      true,
		MigrationsDir:      "../../../../migrations",
		RunSeed:            true,
		MaxBodyBytes:       1048576,
		RateLimitPerMinute: 1000,
		CarryOverCapDays:   5,
		CORSOrigins:        []string{"http://localhost:5173"},
	}
}

func startApp(t *testing.T) (*server.App, *httptest.Server) {
	t.Helper()
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	app, err := server.New(context.Background(), testConfig(dbURL))
	if err != nil {
		t.Fatalf("failed to start app: %v", err)
	}
	t.Cleanup(app.Close)

	ts := httptest.NewServer(app.Router)
	t.Cleanup(ts.Close)
	return app, ts
}

// nextBusinessWeek returns the Monday through Friday of a full week at least a
// year out, so requests are always in the future and span five weekdays.
func nextBusinessWeek() (string, string) {
	day := time.Now().UTC().AddDate(1, 0, 0)
	for day.Weekday() != time.Monday {
		day = day.AddDate(0, 0, 1)
	}
	return day.Format("2006-01-02"), day.AddDate(0, 0, 4).Format("2006-01-02")
}

func TestLeaveRequestJourney(t *testing.T) {
	app, ts := startApp(t)
	client := ts.Client()

	token := login(t, client, ts.URL, app.Config.SeedAdminEmail, app.Config.SeedAdminPassword)

	employeeEmail := fmt.Sprintf("journey-%d@example.com", time.Now().UnixNano())
	employeeID := createEmployee(t, client, ts.URL, token, employeeEmail, "employee")

	typeCode := fmt.Sprintf("JRN%d", time.Now().UnixNano()%1000000)
	typeID := createLeaveType(t, client, ts.URL, token, typeCode)

	start, end := nextBusinessWeek()
	resp := postJSON(t, client, ts.URL+"/api/v1/leave/requests", token, map[string]any{
		"userId":      employeeID,
		"leaveTypeId": typeID,
		"startDate":   start,
		"endDate":     end,
		"reason":      "Journey test leave",
	})
	var request map[string]any
	if err := json.Unmarshal(resp.Data, &request); err != nil {
		t.Fatalf("failed to decode request response: %v", err)
	}
	requestID, _ := request["id"].(string)
	if requestID == "" {
		t.Fatal("expected request id")
	}
	if request["status"] != "pending" {
		t.Fatalf("expected pending, got %v", request["status"])
	}

	resp = postJSON(t, client, ts.URL+"/api/v1/leave/requests/"+requestID+"/approve", token, map[string]any{})
	if err := json.Unmarshal(resp.Data, &request); err != nil {
		t.Fatalf("failed to decode approve response: %v", err)
	}
	if request["status"] != "approved" {
		t.Fatalf("expected approved, got %v", request["status"])
	}

	balances := listBalances(t, client, ts.URL, token, employeeID)
	if len(balances) == 0 {
		t.Fatal("expected balances after approval")
	}

	resp = postJSON(t, client, ts.URL+"/api/v1/leave/requests/"+requestID+"/cancel", token, map[string]any{})
	if err := json.Unmarshal(resp.Data, &request); err != nil {
		t.Fatalf("failed to decode cancel response: %v", err)
	}
	if request["status"] != "cancelled" {
		t.Fatalf("expected cancelled, got %v", request["status"])
	}
}

func TestOverlappingRequestRejected(t *testing.T) {
	app, ts := startApp(t)
	client := ts.Client()

	token := login(t, client, ts.URL, app.Config.SeedAdminEmail, app.Config.SeedAdminPassword)

	employeeEmail := fmt.Sprintf("overlap-%d@example.com", time.Now().UnixNano())
	employeeID := createEmployee(t, client, ts.URL, token, employeeEmail, "employee")
	typeCode := fmt.Sprintf("OVL%d", time.Now().UnixNano()%1000000)
	typeID := createLeaveType(t, client, ts.URL, token, typeCode)

	start, end := nextBusinessWeek()
	body := map[string]any{
		"userId":      employeeID,
		"leaveTypeId": typeID,
		"startDate":   start,
		"endDate":     end,
		"reason":      "First booking",
	}
	postJSON(t, client, ts.URL+"/api/v1/leave/requests", token, body)

	body["reason"] = "Second booking"
	postJSONStatus(t, client, ts.URL+"/api/v1/leave/requests", token, body, http.StatusConflict)
}

// Two racing first submissions for the same employee, type, and dates must
// not both land: the balance row is materialized and locked up front, so the
// loser waits, sees the winner's pending request, and fails the overlap check.
func TestConcurrentFirstSubmissionsSerialize(t *testing.T) {
	app, ts := startApp(t)
	client := ts.Client()

	token := login(t, client, ts.URL, app.Config.SeedAdminEmail, app.Config.SeedAdminPassword)

	employeeEmail := fmt.Sprintf("race-%d@example.com", time.Now().UnixNano())
	employeeID := createEmployee(t, client, ts.URL, token, employeeEmail, "employee")
	typeCode := fmt.Sprintf("RCE%d", time.Now().UnixNano()%1000000)
	typeID := createLeaveType(t, client, ts.URL, token, typeCode)

	start, end := nextBusinessWeek()
	statuses := make(chan int, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			payload, err := json.Marshal(map[string]any{
				"userId":      employeeID,
				"leaveTypeId": typeID,
				"startDate":   start,
				"endDate":     end,
				"reason":      fmt.Sprintf("racing booking %d", i),
			})
			if err != nil {
				statuses <- 0
				return
			}
			req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/v1/leave/requests", bytes.NewReader(payload))
			if err != nil {
				statuses <- 0
				return
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", "Bearer "+token)
			resp, err := client.Do(req)
			if err != nil {
				statuses <- 0
				return
			}
			resp.Body.Close()
			statuses <- resp.StatusCode
		}(i)
	}
	wg.Wait()
	close(statuses)

	counts := map[int]int{}
	for status := range statuses {
		counts[status]++
	}
	if counts[http.StatusCreated] != 1 || counts[http.StatusConflict] != 1 {
		t.Fatalf("expected exactly one created and one conflict, got %v", counts)
	}

	resp := getJSON(t, client, ts.URL+"/api/v1/leave/requests?userId="+employeeID+"&status=pending", token)
	var listing struct {
		Total int `json:"total"`
	}
	if err := json.Unmarshal(resp.Data, &listing); err != nil {
		t.Fatalf("failed to decode requests response: %v", err)
	}
	if listing.Total != 1 {
		t.Fatalf("expected a single pending request, got %d", listing.Total)
	}
}

func TestManagerCannotViewNonReportBalances(t *testing.T) {
	app, ts := startApp(t)
	client := ts.Client()

	adminToken := login(t, client, ts.URL, app.Config.SeedAdminEmail, app.Config.SeedAdminPassword)

	managerEmail := fmt.Sprintf("mgr-%d@example.com", time.Now().UnixNano())
	createEmployee(t, client, ts.URL, adminToken, managerEmail, "manager")

	otherEmail := fmt.Sprintf("nonreport-%d@example.com", time.Now().UnixNano())
	otherID := createEmployee(t, client, ts.URL, adminToken, otherEmail, "employee")

	managerToken := login(t, client, ts.URL, managerEmail, "Password123!")
	getJSONStatus(t, client, ts.URL+"/api/v1/leave/balances?userId="+otherID, managerToken, http.StatusForbidden)
}

func TestEmployeeCannotViewOthersBalances(t *testing.T) {
	app, ts := startApp(t)
	client := ts.Client()

	adminToken := login(t, client, ts.URL, app.Config.SeedAdminEmail, app.Config.SeedAdminPassword)

	employeeEmail := fmt.Sprintf("peek-%d@example.com", time.Now().UnixNano())
	createEmployee(t, client, ts.URL, adminToken, employeeEmail, "employee")

	otherEmail := fmt.Sprintf("other-%d@example.com", time.Now().UnixNano())
	otherID := createEmployee(t, client, ts.URL, adminToken, otherEmail, "employee")

	employeeToken := login(t, client, ts.URL, employeeEmail, "Password123!")
	getJSONStatus(t, client, ts.URL+"/api/v1/leave/balances?userId="+otherID, employeeToken, http.StatusForbidden)
}

func login(t *testing.T, client *http.Client, baseURL, email, password string) string {
	t.Helper()
	resp := postJSON(t, client, baseURL+"/api/v1/auth/login", "", map[string]any{
		"email":    email,
		"password": password,
	})
	var payload map[string]any
	if err := json.Unmarshal(resp.Data, &payload); err != nil {
		t.Fatalf("failed to decode login response: %v", err)
	}
	token, _ := payload["token"].(string)
	if token == "" {
		t.Fatal("expected token")
	}
	return token
}

func createEmployee(t *testing.T, client *http.Client, baseURL, token, email, role string) string {
	t.Helper()
	resp := postJSON(t, client, baseURL+"/api/v1/employees", token, map[string]any{
		"email":     email,
		"firstName": "Journey",
		"lastName":  "Tester",
		"role":      role,
		"password":  "Password123!",
	})
	var payload map[string]any
	if err := json.Unmarshal(resp.Data, &payload); err != nil {
		t.Fatalf("failed to decode employee response: %v", err)
	}
	id, _ := payload["id"].(string)
	if id == "" {
		t.Fatal("expected employee id")
	}
	return id
}

func createLeaveType(t *testing.T, client *http.Client, baseURL, token, code string) string {
	t.Helper()
	resp := postJSON(t, client, baseURL+"/api/v1/leave/types", token, map[string]any{
		"name":             "Journey Annual",
		"code":             code,
		"daysPerYear":      20,
		"isPaid":           true,
		"requiresApproval": true,
		"isActive":         true,
	})
	var payload map[string]any
	if err := json.Unmarshal(resp.Data, &payload); err != nil {
		t.Fatalf("failed to decode leave type response: %v", err)
	}
	id, _ := payload["id"].(string)
	if id == "" {
		t.Fatal("expected leave type id")
	}
	return id
}

func listBalances(t *testing.T, client *http.Client, baseURL, token, userID string) []map[string]any {
	t.Helper()
	resp := getJSON(t, client, baseURL+"/api/v1/leave/balances?userId="+userID, token)
	var payload []map[string]any
	if err := json.Unmarshal(resp.Data, &payload); err != nil {
		t.Fatalf("failed to decode balances response: %v", err)
	}
	return payload
}

func postJSON(t *testing.T, client *http.Client, url, token string, body any) envelope {
	t.Helper()
	return doJSON(t, client, http.MethodPost, url, token, body, 0)
}

func postJSONStatus(t *testing.T, client *http.Client, url, token string, body any, want int) envelope {
	t.Helper()
	return doJSON(t, client, http.MethodPost, url, token, body, want)
}

func getJSON(t *testing.T, client *http.Client, url, token string) envelope {
	t.Helper()
	return doJSON(t, client, http.MethodGet, url, token, nil, 0)
}

func getJSONStatus(t *testing.T, client *http.Client, url, token string, want int) envelope {
	t.Helper()
	return doJSON(t, client, http.MethodGet, url, token, nil, want)
}

// doJSON sends the request and decodes the response envelope. want 0 means
// any success status; otherwise the exact status is asserted.
func doJSON(t *testing.T, client *http.Client, method, url, token string, body any, want int) envelope {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewBuffer(raw)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response: %v", err)
	}
	if want != 0 {
		if resp.StatusCode != want {
			t.Fatalf("expected status %d, got %d: %s", want, resp.StatusCode, string(raw))
		}
	} else if resp.StatusCode >= 400 {
		t.Fatalf("unexpected status %d: %s", resp.StatusCode, string(raw))
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return env
}
