package server

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mohammad-safakhou/deepresearch/config"
	"github.com/mohammad-safakhou/deepresearch/internal/gateway"
	"github.com/mohammad-safakhou/deepresearch/internal/research"
	fetchmodels "github.com/mohammad-safakhou/deepresearch/tools/web_fetch/models"
	searchmodels "github.com/mohammad-safakhou/deepresearch/tools/web_search/models"
)

type stubGenerator struct{}

func (stubGenerator) Generate(_ context.Context, prompt string, _ gateway.Options) (string, error) {
	switch {
	case strings.Contains(prompt, "research planner"):
		return "# Market size\nHow big is the market?\n# Outlook\nWhere is it going?\n", nil
	case strings.Contains(prompt, "Generate web search queries"):
		return "ev sales numbers", nil
	case strings.Contains(prompt, "final research report"):
		return "# Report\n\nEV market report body.", nil
	}
	return "generated text", nil
}

type stubSearcher struct{}

func (stubSearcher) Discover(context.Context, string, int) ([]searchmodels.Result, error) {
	return []searchmodels.Result{{
		Title:  "EV Stats",
		URL:    "https://example.org/ev",
		Source: "example.org",
	}}, nil
}

type stubFetcher struct{}

func (stubFetcher) Exec(_ context.Context, url string) (fetchmodels.Result, error) {
	return fetchmodels.Result{
		URL:    url,
		Title:  "EV Stats",
		Text:   "EV sales grew 30% in 2023 according to industry data collected across all major regions.",
		Status: 200,
	}, nil
}

func newTestAPI(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := &config.Config{}
	cfg.Search.MaxResults = 3
	cfg.Research = config.ResearchConfig{
		MaxQueriesPerStep: 1,
		FetchesPerQuery:   1,
		ProcessTTL:        time.Hour,
		SweepCron:         "*/10 * * * *",
	}
	logger := log.New(io.Discard, "", 0)
	pipeline := research.NewPipeline(stubGenerator{}, stubSearcher{}, stubFetcher{}, cfg, logger, nil)
	registry, err := research.NewRegistry(pipeline, cfg.Research, logger)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	srv := httptest.NewServer(New(registry))
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url, body string) (*http.Response, map[string]interface{}) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	var out map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, out
}

func getJSON(t *testing.T, url string) (*http.Response, map[string]interface{}) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	var out map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, out
}

func waitForStatus(t *testing.T, base, id, want string) map[string]interface{} {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, body := getJSON(t, base+"/api/research/status/"+id)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status endpoint returned %d", resp.StatusCode)
		}
		if body["status"] == want {
			return body
		}
		if body["status"] == "error" {
			t.Fatalf("process failed: %v", body["error"])
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for status %s", want)
	return nil
}

func TestStartRequiresTopic(t *testing.T) {
	srv := newTestAPI(t)
	resp, body := postJSON(t, srv.URL+"/api/research/start", `{"requirements":"deep"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if body["error"] == nil {
		t.Fatal("error payload missing")
	}
}

func TestStatusUnknownID(t *testing.T) {
	srv := newTestAPI(t)
	resp, _ := getJSON(t, srv.URL+"/api/research/status/nope")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestFullLifecycleOverHTTP(t *testing.T) {
	srv := newTestAPI(t)

	resp, started := postJSON(t, srv.URL+"/api/research/start", `{"topic":"ev market"}`)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("start status = %d, want 202", resp.StatusCode)
	}
	id, _ := started["process_id"].(string)
	if id == "" {
		t.Fatalf("missing process_id in %v", started)
	}
	if started["status"] != "planning" {
		t.Fatalf("initial status = %v", started["status"])
	}

	waiting := waitForStatus(t, srv.URL, id, "waiting_confirmation")
	if waiting["plan"] == "" || waiting["plan"] == nil {
		t.Fatal("plan missing while waiting for confirmation")
	}

	resp, confirmed := postJSON(t, srv.URL+"/api/research/confirm/"+id, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("confirm status = %d, want 200", resp.StatusCode)
	}
	if confirmed["status"] != "confirmed" {
		t.Fatalf("status after confirm = %v", confirmed["status"])
	}

	done := waitForStatus(t, srv.URL, id, "completed")
	if done["progress"].(float64) != 100 {
		t.Fatalf("final progress = %v", done["progress"])
	}
	if report, _ := done["report"].(string); report == "" {
		t.Fatal("report missing")
	}

	// confirming a finished process is rejected
	resp, _ = postJSON(t, srv.URL+"/api/research/confirm/"+id, "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("confirm on completed = %d, want 400", resp.StatusCode)
	}
}

func TestCancelOverHTTP(t *testing.T) {
	srv := newTestAPI(t)

	_, started := postJSON(t, srv.URL+"/api/research/start", `{"topic":"ev market"}`)
	id := started["process_id"].(string)
	waitForStatus(t, srv.URL, id, "waiting_confirmation")

	resp, cancelled := postJSON(t, srv.URL+"/api/research/cancel/"+id, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("cancel status = %d, want 200", resp.StatusCode)
	}
	if cancelled["status"] != "cancelled" {
		t.Fatalf("status after cancel = %v", cancelled["status"])
	}

	resp, _ = postJSON(t, srv.URL+"/api/research/cancel/"+id, "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("second cancel = %d, want 400", resp.StatusCode)
	}
}

func TestHealthz(t *testing.T) {
	srv := newTestAPI(t)
	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status = %d", resp.StatusCode)
	}
}
