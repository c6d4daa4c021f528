package testutil

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/crmkit/segmint/internal/rulegen"
	"github.com/crmkit/segmint/internal/rules"
)

func TestNewTestServer(t *testing.T) {
	server, memStore := NewTestServer(t, nil, "test-key")

	if server == nil {
		t.Fatal("Expected non-nil server")
	}
	if memStore == nil {
		t.Fatal("Expected non-nil store")
	}

	ctx := context.Background()
	if err := SeedGenerations(ctx, memStore, rules.DefaultTree(), "first", "second"); err != nil {
		t.Fatalf("Store should be functional: %v", err)
	}
	gens, err := memStore.ListGenerations(ctx, 0)
	if err != nil {
		t.Fatalf("ListGenerations: %v", err)
	}
	if len(gens) != 2 {
		t.Fatalf("Expected 2 generations, got %d", len(gens))
	}
	if gens[0].Prompt != "second" {
		t.Errorf("Expected newest first, got %q", gens[0].Prompt)
	}
}

func TestHTTPRequest_Do(t *testing.T) {
	server, _ := NewTestServer(t, nil, "test-key")
	handler := server.Router()

	req := &HTTPRequest{
		Method: "GET",
		Path:   "/healthz",
	}

	rr := req.Do(t, handler)

	if rr.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rr.Code)
	}
	if rr.Body.String() != "ok" {
		t.Errorf("Expected body 'ok', got '%s'", rr.Body.String())
	}
}

func TestHTTPRequest_DoWithBody(t *testing.T) {
	tree := rules.SelectAll()
	server, memStore := NewTestServer(t, rulegen.NewStaticGenerator(tree), "test-key")
	handler := server.Router()

	req := &HTTPRequest{
		Method: "POST",
		Path:   "/api/ai/segmentrules",
		Body:   `{"prompt":"everyone"}`,
		Headers: map[string]string{
			"Authorization": "Bearer test-key",
		},
	}

	rr := req.Do(t, handler)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var body struct {
		Rules rules.Group `json:"rules"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Rules.Operator != rules.Or || rules.Count(body.Rules) != 1 {
		t.Errorf("unexpected rules: %+v", body.Rules)
	}

	gens, _ := memStore.ListGenerations(context.Background(), 0)
	if len(gens) != 1 || gens[0].Prompt != "everyone" {
		t.Errorf("Expected the generation to be recorded, got %+v", gens)
	}
}

func TestHTTPRequest_DoWithHeaders(t *testing.T) {
	server, _ := NewTestServer(t, nil, "test-key")
	handler := server.Router()

	tests := []struct {
		name       string
		headers    map[string]string
		wantStatus int
	}{
		{"no token", nil, http.StatusUnauthorized},
		{"wrong token", map[string]string{"Authorization": "Bearer nope"}, http.StatusUnauthorized},
		{"valid token", map[string]string{"Authorization": "Bearer test-key"}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &HTTPRequest{
				Method:  "GET",
				Path:    "/api/ai/segmentrules/history",
				Headers: tt.headers,
			}
			rr := req.Do(t, handler)
			if rr.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, rr.Code)
			}
		})
	}
}

func TestStartTestServer(t *testing.T) {
	ts, _ := StartTestServer(t, nil, "test-key")

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	if !strings.HasPrefix(ts.URL, "http://") {
		t.Errorf("unexpected URL %q", ts.URL)
	}
}
