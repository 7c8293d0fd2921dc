package shared

import (
	"testing"
	"time"
)

func TestValidatorDateFormats(t *testing.T) {
	v := NewValidator()
	parsed, ok := v.Date("startDate", "2025-06-09")
	if !ok {
		t.Fatal("expected YYYY-MM-DD to parse")
	}
	if parsed.Year() != 2025 || parsed.Month() != time.June || parsed.Day() != 9 {
		t.Fatalf("unexpected date %s", parsed)
	}

	if _, ok := v.Date("startDate", "2025-06-09T08:30:00Z"); !ok {
		t.Fatal("expected RFC3339 to parse")
	}
	if v.HasIssues() {
		t.Fatalf("expected no issues yet, got %+v", v.Issues())
	}

	if _, ok := v.Date("startDate", "09/06/2025"); ok {
		t.Fatal("expected unsupported format to be rejected")
	}
	if !v.HasIssues() {
		t.Fatal("expected an issue for the unsupported format")
	}
}

func TestValidatorCollectsIssues(t *testing.T) {
	v := NewValidator()
	v.Required("reason", "  ", "reason is required")
	v.Enum("segment", "evening", []string{"morning", "afternoon"}, "segment must be morning or afternoon")

	start, ok := v.Date("startDate", "2025-06-13")
	if !ok {
		t.Fatal("expected start date to parse")
	}
	end, ok := v.Date("endDate", "2025-06-09")
	if !ok {
		t.Fatal("expected end date to parse")
	}
	v.DateOrder("startDate", start, "endDate", end)

	issues := v.Issues()
	if len(issues) != 3 {
		t.Fatalf("expected 3 issues, got %d: %+v", len(issues), issues)
	}
	// Issues come back sorted by field.
	if issues[0].Field != "endDate" || issues[1].Field != "reason" || issues[2].Field != "segment" {
		t.Fatalf("unexpected issue order: %+v", issues)
	}
}

func TestValidatorCleanPayload(t *testing.T) {
	v := NewValidator()
	v.Required("reason", "family trip", "reason is required")
	v.Enum("segment", "", []string{"morning", "afternoon"}, "segment must be morning or afternoon")
	if v.HasIssues() {
		t.Fatalf("expected no issues, got %+v", v.Issues())
	}
}
