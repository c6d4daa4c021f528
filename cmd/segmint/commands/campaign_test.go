package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/crmkit/segmint/internal/client"
)

// campaignCRM is an in-memory stand-in for the CRM campaign endpoints.
type campaignCRM struct {
	mu        sync.Mutex
	campaigns map[string]client.Campaign
	nextID    int
	objective string
}

func newCampaignCRM(t *testing.T) (*campaignCRM, string) {
	t.Helper()
	crm := &campaignCRM{campaigns: make(map[string]client.Campaign)}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/campaign/createcampaign", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			client.CampaignInput
			OrganizationID string `json:"organizationId"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.OrganizationID != "7" {
			http.Error(w, `{"message":"bad request"}`, http.StatusBadRequest)
			return
		}
		crm.mu.Lock()
		crm.nextID++
		c := client.Campaign{
			ID:             fmt.Sprintf("cmp%d", crm.nextID),
			Name:           body.Name,
			Content:        body.Content,
			SegmentID:      body.SegmentID,
			OrganizationID: body.OrganizationID,
			Status:         client.CampaignPending,
		}
		crm.campaigns[c.ID] = c
		crm.mu.Unlock()
		writeTestJSON(w, map[string]any{"data": map[string]any{"campaign": c}})
	})
	mux.HandleFunc("POST /api/campaign/getcampaigns", func(w http.ResponseWriter, r *http.Request) {
		crm.mu.Lock()
		defer crm.mu.Unlock()
		list := make([]client.Campaign, 0, len(crm.campaigns))
		for _, c := range crm.campaigns {
			list = append(list, c)
		}
		writeTestJSON(w, map[string]any{"data": list})
	})
	mux.HandleFunc("GET /api/campaign/{id}", func(w http.ResponseWriter, r *http.Request) {
		crm.mu.Lock()
		c, ok := crm.campaigns[r.PathValue("id")]
		crm.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			writeTestJSON(w, map[string]string{"message": "Campaign not found"})
			return
		}
		writeTestJSON(w, map[string]any{"campaign": c})
	})
	mux.HandleFunc("PUT /api/campaigns/{id}", func(w http.ResponseWriter, r *http.Request) {
		var in client.CampaignInput
		_ = json.NewDecoder(r.Body).Decode(&in)
		crm.mu.Lock()
		c := crm.campaigns[r.PathValue("id")]
		c.Name, c.Content, c.SegmentID = in.Name, in.Content, in.SegmentID
		crm.campaigns[c.ID] = c
		crm.mu.Unlock()
		writeTestJSON(w, map[string]any{"campaign": c})
	})
	mux.HandleFunc("POST /api/campaign/deletecampaign", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		crm.mu.Lock()
		delete(crm.campaigns, body["campaignId"])
		crm.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("POST /api/ai/campaignmessage", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		crm.mu.Lock()
		crm.objective = body["objective"]
		crm.mu.Unlock()
		writeTestJSON(w, map[string][]string{"messages": {"Hi ${name}, we miss you", "Your 10% code is waiting"}})
	})

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return crm, ts.URL
}

func writeTestJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func crmArgs(url string, args ...string) []string {
	return append(args, "--base-url", url, "--token", "t", "--org", "7")
}

func TestCampaignLifecycle(t *testing.T) {
	setup(t)
	crm, url := newCampaignCRM(t)

	out, err := run(t, crmArgs(url, "campaign", "create", "--name", "Winback", "--segment", "seg1", "--content", "Hi ${name}")...)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.Contains(out, "cmp1") {
		t.Errorf("unexpected create output %q", out)
	}

	out, err = run(t, crmArgs(url, "campaign", "list")...)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, want := range []string{"cmp1", "Winback", "seg1", "PENDING"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in list output:\n%s", want, out)
		}
	}

	if _, err := run(t, crmArgs(url, "campaign", "update", "cmp1", "--content", "Last chance, ${name}")...); err != nil {
		t.Fatalf("update: %v", err)
	}
	crm.mu.Lock()
	updated := crm.campaigns["cmp1"]
	crm.mu.Unlock()
	if updated.Content != "Last chance, ${name}" || updated.Name != "Winback" || updated.SegmentID != "seg1" {
		t.Errorf("update should only change the given fields, got %+v", updated)
	}

	out, err = run(t, crmArgs(url, "campaign", "get", "cmp1", "--format", "json")...)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var got client.Campaign
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if got.Content != "Last chance, ${name}" {
		t.Errorf("unexpected campaign %+v", got)
	}

	if _, err := run(t, crmArgs(url, "campaign", "delete", "cmp1", "--force")...); err != nil {
		t.Fatalf("delete: %v", err)
	}
	crm.mu.Lock()
	remaining := len(crm.campaigns)
	crm.mu.Unlock()
	if remaining != 0 {
		t.Errorf("expected campaign to be deleted, %d left", remaining)
	}
}

func TestCampaignCreate_ValidationBeforeRequest(t *testing.T) {
	setup(t)
	crm, url := newCampaignCRM(t)

	if _, err := run(t, crmArgs(url, "campaign", "create", "--name", "x", "--segment", "seg1", "--content", "  ")...); err == nil {
		t.Fatal("expected error for blank content")
	}
	crm.mu.Lock()
	defer crm.mu.Unlock()
	if len(crm.campaigns) != 0 {
		t.Error("invalid campaign reached the CRM")
	}
}

func TestCampaignSuggest(t *testing.T) {
	setup(t)
	crm, url := newCampaignCRM(t)

	out, err := run(t, crmArgs(url, "campaign", "suggest", "win", "back", "lapsed", "customers")...)
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}
	if !strings.Contains(out, "1. Hi ${name}, we miss you") || !strings.Contains(out, "2. Your 10% code is waiting") {
		t.Errorf("unexpected output %q", out)
	}
	crm.mu.Lock()
	defer crm.mu.Unlock()
	if crm.objective != "win back lapsed customers" {
		t.Errorf("objective sent: %q", crm.objective)
	}
}

func TestCampaignGet_NotFound(t *testing.T) {
	setup(t)
	_, url := newCampaignCRM(t)

	_, err := run(t, crmArgs(url, "campaign", "get", "nope")...)
	if err == nil || !strings.Contains(err.Error(), "Campaign not found") {
		t.Errorf("got %v, want not-found error", err)
	}
}

func TestCampaignDelete_Cancelled(t *testing.T) {
	setup(t)
	crm, url := newCampaignCRM(t)
	crm.campaigns["cmp9"] = client.Campaign{ID: "cmp9"}

	out, err := run(t, crmArgs(url, "campaign", "delete", "cmp9")...)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !strings.Contains(out, "Deletion cancelled") {
		t.Errorf("unexpected output %q", out)
	}
	if _, ok := crm.campaigns["cmp9"]; !ok {
		t.Error("campaign deleted without confirmation")
	}
}
