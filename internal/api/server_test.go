package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"lrpsolve/internal/model"
	"lrpsolve/internal/progress"
	"lrpsolve/internal/store"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	s := NewServer(store.NewMemory(), progress.NewBroker(), nil)
	ts := httptest.NewServer(s.Routes())
	t.Cleanup(ts.Close)
	return s, ts
}

func getJSON(t *testing.T, url string, wantStatus int, v any) {
	t.Helper()
	res, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer res.Body.Close()
	if res.StatusCode != wantStatus {
		b, _ := io.ReadAll(res.Body)
		t.Fatalf("GET %s: status %d, want %d: %s", url, res.StatusCode, wantStatus, b)
	}
	if v != nil {
		if err := json.NewDecoder(res.Body).Decode(v); err != nil {
			t.Fatalf("decode: %v", err)
		}
	}
}

func TestHealthAndReady(t *testing.T) {
	_, ts := newTestServer(t)
	var body map[string]string
	getJSON(t, ts.URL+"/healthz", http.StatusOK, &body)
	if body["status"] != "ok" {
		t.Fatalf("healthz = %v", body)
	}
	getJSON(t, ts.URL+"/readyz", http.StatusOK, &body)
	if body["status"] != "ready" {
		t.Fatalf("readyz = %v", body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	_, ts := newTestServer(t)
	getJSON(t, ts.URL+"/healthz", http.StatusOK, nil)
	res, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer res.Body.Close()
	b, _ := io.ReadAll(res.Body)
	if !strings.Contains(string(b), "http_requests_total") {
		t.Fatalf("metrics output missing http_requests_total")
	}
}

func TestDebugInfo(t *testing.T) {
	s, ts := newTestServer(t)
	s.Settings = map[string]any{"stages": []int{100, 10, 3, 1}}
	var body map[string]any
	getJSON(t, ts.URL+"/debug/info", http.StatusOK, &body)
	if _, ok := body["build"]; !ok {
		t.Fatalf("missing build info: %v", body)
	}
	if _, ok := body["settings"].(map[string]any)["stages"]; !ok {
		t.Fatalf("missing settings: %v", body)
	}
}

func TestRunEndpoints(t *testing.T) {
	s, ts := newTestServer(t)
	ctx := context.Background()
	run, err := s.Store.SaveSolution(ctx, model.RunSummary{Objective: 7.5, OpenDepots: []int{1, 2}})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := s.Store.SaveValidation(ctx, model.RunSummary{OpenDepots: []int{1, 2}}); err != nil {
		t.Fatalf("save: %v", err)
	}

	var page struct {
		Items      []model.RunSummary `json:"items"`
		NextCursor string             `json:"nextCursor"`
	}
	getJSON(t, ts.URL+"/v1/runs?mode=solve", http.StatusOK, &page)
	if len(page.Items) != 1 || page.Items[0].ID != run.ID {
		t.Fatalf("unexpected page: %+v", page)
	}
	getJSON(t, ts.URL+"/v1/runs?mode=bogus", http.StatusBadRequest, nil)
	getJSON(t, ts.URL+"/v1/runs?limit=x", http.StatusBadRequest, nil)

	var got model.RunSummary
	getJSON(t, ts.URL+"/v1/runs/"+run.ID, http.StatusOK, &got)
	if got.Objective != 7.5 {
		t.Fatalf("unexpected run %+v", got)
	}
	var sol model.SolutionFile
	getJSON(t, ts.URL+"/v1/runs/"+run.ID+"/solution", http.StatusOK, &sol)
	if sol.NumOpenDepots != 2 {
		t.Fatalf("unexpected solution %+v", sol)
	}
	getJSON(t, ts.URL+"/v1/runs/missing", http.StatusNotFound, nil)
	getJSON(t, ts.URL+"/v1/runs/"+run.ID+"/other", http.StatusNotFound, nil)
}

func TestProgressWebSocketStreamsRun(t *testing.T) {
	s, ts := newTestServer(t)
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/progress/ws?run=r1"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	s.Broker.Publish(progress.Event{Type: progress.TypeStageStarted, RunID: "r1", Data: map[string]any{"cap": 10}})
	s.Broker.Publish(progress.Event{Type: progress.TypeStageStarted, RunID: "other"})
	s.Broker.Publish(progress.Event{Type: progress.TypeRunCompleted, RunID: "r1"})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var first, second progress.Event
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read: %v", err)
	}
	if first.Type != progress.TypeStageStarted || first.Data["cap"].(float64) != 10 {
		t.Fatalf("unexpected first event %+v", first)
	}
	if err := conn.ReadJSON(&second); err != nil {
		t.Fatalf("read: %v", err)
	}
	if second.Type != progress.TypeRunCompleted {
		t.Fatalf("unexpected second event %+v", second)
	}
	_, _, err = conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Fatalf("want normal close after run.completed, got %v", err)
	}
}
