package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/crmkit/segmint/internal/errs"
	"github.com/crmkit/segmint/internal/rules"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "tok", "org-1")
}

func sampleInput() SegmentInput {
	return SegmentInput{Title: "Lapsed", Description: "No purchase in 90 days", Rules: rules.DefaultTree()}
}

func TestCreateSegment(t *testing.T) {
	var body map[string]json.RawMessage
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/segment/createsegment" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("auth header: %q", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"_id":"seg1","title":"Lapsed","rules":{"operator":"AND","conditions":[{"field":"lastpurchase_day","operator":"lessThan","value":90}]}}}`))
	})

	seg, err := c.CreateSegment(context.Background(), sampleInput())
	if err != nil {
		t.Fatal(err)
	}
	if seg.ID != "seg1" || seg.Title != "Lapsed" {
		t.Errorf("segment: %+v", seg)
	}
	if !rules.Equal(seg.Rules, rules.DefaultTree()) {
		t.Errorf("rules: %+v", seg.Rules)
	}

	if string(body["organizationId"]) != `"org-1"` {
		t.Errorf("organizationId: %s", body["organizationId"])
	}
	if string(body["title"]) != `"Lapsed"` {
		t.Errorf("title: %s", body["title"])
	}
	tree, err := rules.ParseJSON(body["rules"])
	if err != nil || !rules.Equal(tree, rules.DefaultTree()) {
		t.Errorf("rules body: %s (%v)", body["rules"], err)
	}
}

func TestPreviewSegment(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/segment/createsegment/preview" {
			t.Errorf("path: %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"data":{"customers":1234}}`))
	})

	n, err := c.PreviewSegment(context.Background(), SegmentInput{Rules: rules.SelectAll()})
	if err != nil {
		t.Fatal(err)
	}
	if n != 1234 {
		t.Errorf("customers: got %d, want 1234", n)
	}
}

func TestListSegments(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/segment/getsegments" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["organizationId"] != "org-1" {
			t.Errorf("organizationId: %q", body["organizationId"])
		}
		_, _ = w.Write([]byte(`{"data":[{"_id":"a","title":"A","rules":{"operator":"OR","conditions":[]}},{"_id":"b","title":"B"}]}`))
	})

	segs, err := c.ListSegments(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(segs) != 2 || segs[0].ID != "a" || segs[1].Title != "B" {
		t.Errorf("segments: %+v", segs)
	}
}

func TestGetAndUpdateSegment(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/segments/seg1" {
			t.Errorf("path: %s", r.URL.Path)
		}
		switch r.Method {
		case http.MethodGet:
			_, _ = w.Write([]byte(`{"segment":{"_id":"seg1","title":"Lapsed"}}`))
		case http.MethodPut:
			var in SegmentInput
			if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
				t.Errorf("decode: %v", err)
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"segment": Segment{ID: "seg1", Title: in.Title, Rules: in.Rules}})
		default:
			t.Errorf("method: %s", r.Method)
		}
	})

	seg, err := c.GetSegment(context.Background(), "seg1")
	if err != nil {
		t.Fatal(err)
	}
	if seg.Title != "Lapsed" {
		t.Errorf("get: %+v", seg)
	}

	in := sampleInput()
	in.Title = "Renamed"
	seg, err = c.UpdateSegment(context.Background(), "seg1", in)
	if err != nil {
		t.Fatal(err)
	}
	if seg.Title != "Renamed" || !rules.Equal(seg.Rules, in.Rules) {
		t.Errorf("update: %+v", seg)
	}
}

func TestDeleteSegment(t *testing.T) {
	var body map[string]string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/segment/deletesegment" {
			t.Errorf("path: %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusNoContent)
	})

	if err := c.DeleteSegment(context.Background(), "seg1"); err != nil {
		t.Fatal(err)
	}
	if body["segmentId"] != "seg1" || body["organizationId"] != "org-1" {
		t.Errorf("body: %v", body)
	}
}

func TestClient_ServiceErrors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
	}{
		{"message from body", http.StatusConflict, `{"message":"Segment title already exists"}`, "Segment title already exists"},
		{"fallback", http.StatusInternalServerError, `oops`, "Failed to create segment"},
		{"empty message", http.StatusBadRequest, `{"message":""}`, "Failed to create segment"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := c.CreateSegment(context.Background(), sampleInput())

			var se *errs.ServiceError
			if !errors.As(err, &se) {
				t.Fatalf("got %v, want ServiceError", err)
			}
			if se.Status != tt.status || se.Message != tt.wantMessage {
				t.Errorf("got status %d message %q", se.Status, se.Message)
			}
		})
	}
}

func TestClient_FailsFastWithoutSession(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	defer srv.Close()

	noOrg := NewClient(srv.URL, "tok", "")
	noToken := NewClient(srv.URL, "", "org-1")
	ctx := context.Background()

	checks := []struct {
		name string
		err  error
	}{
		{"create without org", func() error { _, err := noOrg.CreateSegment(ctx, sampleInput()); return err }()},
		{"preview without org", func() error { _, err := noOrg.PreviewSegment(ctx, sampleInput()); return err }()},
		{"list without token", func() error { _, err := noToken.ListSegments(ctx); return err }()},
		{"get without token", func() error { _, err := noToken.GetSegment(ctx, "seg1"); return err }()},
		{"delete without org", noOrg.DeleteSegment(ctx, "seg1")},
	}
	for _, c := range checks {
		if !errs.IsValidation(c.err) {
			t.Errorf("%s: got %v, want ValidationError", c.name, c.err)
		}
	}
	if called {
		t.Error("request sent without a session")
	}
}

func TestClient_ValidatesInput(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("request sent for invalid input")
	})
	ctx := context.Background()

	in := sampleInput()
	in.Title = " "
	if _, err := c.CreateSegment(ctx, in); !errs.IsValidation(err) {
		t.Errorf("blank title: got %v", err)
	}
	in = sampleInput()
	in.Description = strings.Repeat("x", 501)
	if _, err := c.UpdateSegment(ctx, "seg1", in); !errs.IsValidation(err) {
		t.Errorf("long description: got %v", err)
	}
	if _, err := c.GetSegment(ctx, "../admin"); !errs.IsValidation(err) {
		t.Errorf("bad id: got %v", err)
	}
}
