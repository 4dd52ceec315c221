// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package screening

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// newTestServer creates an httptest.Server that responds with the given
// status code and body bytes. The caller must call Close on the returned
// server.
func newTestServer(t *testing.T, statusCode int, body []byte) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		w.Write(body)
	}))
}

func modBody(flagged bool, categories map[string]bool) []byte {
	b, _ := json.Marshal(modResponse{
		Results: []modResult{{Flagged: flagged, Categories: categories}},
	})
	return b
}

func TestNewWithoutKey(t *testing.T) {
	if c := New("", "https://api.example.com"); c != nil {
		t.Error("expected nil screener without an API key")
	}
}

func TestCheckSafe(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, modBody(false, nil))
	defer srv.Close()

	c := New("test-key", srv.URL)
	result, err := c.Check(context.Background(), "The support team was wonderful.")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !result.Safe {
		t.Error("expected safe result")
	}
	if len(result.Categories) != 0 {
		t.Errorf("categories: got %v, want empty", result.Categories)
	}
}

func TestCheckFlagged(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, modBody(true, map[string]bool{
		"harassment":       true,
		"hate/threatening": true,
		"violence":         false,
	}))
	defer srv.Close()

	c := New("test-key", srv.URL)
	result, err := c.Check(context.Background(), "some hostile text")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if result.Safe {
		t.Error("expected unsafe result")
	}
	if len(result.Categories) != 2 {
		t.Errorf("categories: got %v, want 2 entries", result.Categories)
	}
	joined := strings.Join(result.Categories, ";")
	if !strings.Contains(joined, "harassment") {
		t.Errorf("categories should contain harassment, got %v", result.Categories)
	}
	if !strings.Contains(joined, "hate (threatening)") {
		t.Errorf("slash categories should be humanized, got %v", result.Categories)
	}
}

func TestCheckSendsAuthAndBody(t *testing.T) {
	var gotAuth string
	var gotBody modRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		json.Unmarshal(raw, &gotBody)
		w.Write(modBody(false, nil))
	}))
	defer srv.Close()

	c := New("secret-key", srv.URL)
	if _, err := c.Check(context.Background(), "hello"); err != nil {
		t.Fatalf("Check: %v", err)
	}

	if gotAuth != "Bearer secret-key" {
		t.Errorf("auth header: got %q", gotAuth)
	}
	if gotBody.Input != "hello" {
		t.Errorf("input: got %q", gotBody.Input)
	}
	if gotBody.Model == "" {
		t.Error("expected a model in the request body")
	}
}

func TestCheckAPIError(t *testing.T) {
	srv := newTestServer(t, http.StatusTooManyRequests, []byte(`{"error":"rate limited"}`))
	defer srv.Close()

	c := New("test-key", srv.URL)
	if _, err := c.Check(context.Background(), "text"); err == nil {
		t.Error("expected error for non-200 response")
	}
}

func TestCheckEmptyResults(t *testing.T) {
	b, _ := json.Marshal(modResponse{})
	srv := newTestServer(t, http.StatusOK, b)
	defer srv.Close()

	c := New("test-key", srv.URL)
	result, err := c.Check(context.Background(), "text")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !result.Safe {
		t.Error("empty results should be treated as safe")
	}
}
