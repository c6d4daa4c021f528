// Package testutil holds helpers shared by the HTTP-level tests.
package testutil

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/crmkit/segmint/internal/api"
	"github.com/crmkit/segmint/internal/rulegen"
	"github.com/crmkit/segmint/internal/rules"
	"github.com/crmkit/segmint/internal/store"
)

// NewTestServer creates an API server backed by an in-memory store. A nil
// gen answers every prompt with rules.DefaultTree.
func NewTestServer(t *testing.T, gen rulegen.Generator, apiKey string) (*api.Server, *store.MemoryStore) {
	t.Helper()
	if gen == nil {
		gen = rulegen.NewStaticGenerator(rules.DefaultTree())
	}
	memStore := store.NewMemoryStore(100)
	server := api.NewServer(api.Options{
		Generator: gen,
		Store:     memStore,
		APIKey:    apiKey,
	})
	return server, memStore
}

// StartTestServer serves NewTestServer over a real listener, for clients
// that need a base URL. The server is closed with the test.
func StartTestServer(t *testing.T, gen rulegen.Generator, apiKey string) (*httptest.Server, *store.MemoryStore) {
	t.Helper()
	server, memStore := NewTestServer(t, gen, apiKey)
	ts := httptest.NewServer(server.Router())
	t.Cleanup(ts.Close)
	return ts, memStore
}

// HTTPRequest is a helper for making test HTTP requests.
type HTTPRequest struct {
	Method  string
	Path    string
	Body    string
	Headers map[string]string
}

// Do executes the HTTP request and returns the response recorder.
func (r *HTTPRequest) Do(t *testing.T, handler http.Handler) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if r.Body != "" {
		body = bytes.NewBufferString(r.Body)
	}
	req := httptest.NewRequest(r.Method, r.Path, body)
	if r.Body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

// SeedGenerations records one successful generation per prompt, oldest first.
func SeedGenerations(ctx context.Context, st store.Store, tree rules.Group, prompts ...string) error {
	for _, p := range prompts {
		_, err := st.RecordGeneration(ctx, store.RecordParams{
			Prompt:   p,
			Provider: rulegen.ProviderStatic,
			Rules:    tree,
			Duration: time.Millisecond,
		})
		if err != nil {
			return err
		}
	}
	return nil
}
