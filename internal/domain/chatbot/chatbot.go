package chatbot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

var (
	ErrRateLimited   = errors.New("too many chatbot requests")
	ErrNotConfigured = errors.New("chatbot is not configured")
)

const systemPrompt = "You are a helpful HR assistant for a leave management system. " +
	"Answer questions about time-off policies, balances, and how to submit or cancel requests. " +
	"Keep answers short. If a question is unrelated to leave or HR, say you can only help with leave topics."

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Service proxies chat messages to an OpenAI-compatible completions endpoint,
// with a sliding-window per-user rate limit.
type Service struct {
	URL    string
	APIKey string
	Model  string
	Client *http.Client

	PerMinute int

	mu      sync.Mutex
	history map[string][]time.Time
	now     func() time.Time
}

func New(url, apiKey, model string, perMinute int) *Service {
	return &Service{
		URL:       url,
		APIKey:    apiKey,
		Model:     model,
		Client:    &http.Client{Timeout: 30 * time.Second},
		PerMinute: perMinute,
		history:   make(map[string][]time.Time),
		now:       time.Now,
	}
}

func (s *Service) Configured() bool {
	return s.URL != "" && s.APIKey != ""
}

// Ask forwards the conversation to the model and returns the reply text.
func (s *Service) Ask(ctx context.Context, userID string, messages []Message) (string, error) {
	if !s.Configured() {
		return "", ErrNotConfigured
	}
	if !s.allow(userID) {
		return "", ErrRateLimited
	}

	payload := map[string]any{
		"model":    s.Model,
		"messages": append([]Message{{Role: "system", Content: systemPrompt}}, messages...),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.APIKey)

	resp, err := s.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("chat provider returned %d: %s", resp.StatusCode, detail)
	}

	var parsed struct {
		Choices []struct {
			Message Message `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("chat provider returned no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

func (s *Service) allow(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	cutoff := now.Add(-time.Minute)
	recent := s.history[userID][:0]
	for _, t := range s.history[userID] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}
	if len(recent) >= s.PerMinute {
		s.history[userID] = recent
		return false
	}
	s.history[userID] = append(recent, now)
	return true
}
