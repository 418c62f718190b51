package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/crimson-sun/timeline/internal/engine/testdata"
	"github.com/crimson-sun/timeline/internal/model"
	"github.com/crimson-sun/timeline/internal/session"
)

func setupTestServer(t *testing.T, load bool) (*Server, *session.Controller) {
	t.Helper()
	ctrl := session.New()
	if load {
		if _, err := ctrl.LoadText(context.Background(), testdata.Session(), "session.jsonl"); err != nil {
			t.Fatalf("load: %v", err)
		}
	}
	return New(ctrl), ctrl
}

func do(s *Server, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decodeTimeline(t *testing.T, w *httptest.ResponseRecorder) model.Timeline {
	t.Helper()
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var tl model.Timeline
	if err := json.Unmarshal(w.Body.Bytes(), &tl); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	return tl
}

func TestEventsRoute(t *testing.T) {
	s, _ := setupTestServer(t, true)

	tl := decodeTimeline(t, do(s, http.MethodGet, "/api/events", ""))
	if tl.Showing != 13 || tl.Total != 13 {
		t.Fatalf("showing %d of %d", tl.Showing, tl.Total)
	}

	tl = decodeTimeline(t, do(s, http.MethodGet, "/api/events?type=user.message&tz=utc", ""))
	if tl.Showing != 2 {
		t.Fatalf("expected 2 user messages, got %d", tl.Showing)
	}
	if got := tl.Entries()[0].Clock; got != "09:00:05.000Z" {
		t.Fatalf("clock = %q", got)
	}

	tl = decodeTimeline(t, do(s, http.MethodGet, "/api/events?hide=1", ""))
	if tl.Showing != 10 {
		t.Fatalf("hide should leave 10 events, got %d", tl.Showing)
	}

	tl = decodeTimeline(t, do(s, http.MethodGet, "/api/events?q=THANKS&type=", ""))
	if tl.Showing != 1 {
		t.Fatalf("query should match 1 event, got %d", tl.Showing)
	}
}

func TestEventsRouteBadParams(t *testing.T) {
	s, _ := setupTestServer(t, true)
	for _, target := range []string{"/api/events?tz=mars", "/api/events?hide=maybe"} {
		if w := do(s, http.MethodGet, target, ""); w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", target, w.Code)
		}
	}
}

func TestEventsRouteDoesNotChangeState(t *testing.T) {
	s, ctrl := setupTestServer(t, true)
	do(s, http.MethodGet, "/api/events?q=bash&tz=utc", "")
	st := ctrl.Snapshot()
	if st.Filters.Query != "" || st.TZ != "local" {
		t.Fatalf("query parameters leaked into stored state: %+v %s", st.Filters, st.TZ)
	}
}

func TestEventExports(t *testing.T) {
	s, ctrl := setupTestServer(t, true)

	w := do(s, http.MethodGet, "/api/events/u1", "")
	want, _ := ctrl.CleanJSON("u1")
	if w.Code != http.StatusOK || w.Body.String() != string(want) {
		t.Fatalf("clean export mismatch: %d %s", w.Code, w.Body.String())
	}

	w = do(s, http.MethodGet, "/api/events/u2/raw", "")
	if !strings.HasPrefix(w.Body.String(), `{"type":"user.message","data":{"content":"Thanks!"}`) {
		t.Fatalf("unexpected raw line %q", w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("raw content type = %q", ct)
	}

	w = do(s, http.MethodGet, "/api/events/t2/detail?truncate=0", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"success": true`) {
		t.Fatalf("detail export: %d %s", w.Code, w.Body.String())
	}
	if w := do(s, http.MethodGet, "/api/events/t2/detail?truncate=maybe", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad truncate, got %d", w.Code)
	}

	for _, target := range []string{"/api/events/nope", "/api/events/nope/raw", "/api/events/nope/detail"} {
		if w := do(s, http.MethodGet, target, ""); w.Code != http.StatusNotFound {
			t.Errorf("%s: expected 404, got %d", target, w.Code)
		}
	}
}

func TestTypesAndPrompts(t *testing.T) {
	s, _ := setupTestServer(t, true)

	var types []string
	json.Unmarshal(do(s, http.MethodGet, "/api/types", "").Body.Bytes(), &types)
	if len(types) != 11 || types[0] != "assistant.message" {
		t.Fatalf("unexpected types %v", types)
	}

	w := do(s, http.MethodGet, "/api/prompts", "")
	if w.Body.String() != "List the files\nin this repo"+session.PromptSeparator+"Thanks!" {
		t.Fatalf("unexpected prompts %q", w.Body.String())
	}
}

func TestEmptyController(t *testing.T) {
	s, _ := setupTestServer(t, false)

	w := do(s, http.MethodGet, "/api/share", "")
	if w.Code != http.StatusConflict {
		t.Fatalf("share: expected 409, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"error":"No events to share"`) {
		t.Fatalf("share: unexpected body %s", w.Body.String())
	}
	w = do(s, http.MethodGet, "/api/prompts", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("prompts: expected 404, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"error":"No user messages found"`) {
		t.Fatalf("prompts: unexpected body %s", w.Body.String())
	}
	tl := decodeTimeline(t, do(s, http.MethodGet, "/api/events", ""))
	if tl.Duration != "-" || len(tl.Days) != 0 {
		t.Fatalf("unexpected empty timeline %+v", tl)
	}
}

func TestLoadPasted(t *testing.T) {
	s, ctrl := setupTestServer(t, false)

	w := do(s, http.MethodPost, "/api/load", testdata.Session())
	var st session.Status
	json.Unmarshal(w.Body.Bytes(), &st)
	if w.Code != http.StatusOK || st.Message != "Loaded 13 events from pasted content" {
		t.Fatalf("load: %d %+v", w.Code, st)
	}
	if len(ctrl.Snapshot().Records) != 13 {
		t.Fatal("records not loaded")
	}

	w = do(s, http.MethodPost, "/api/load?name=notes.txt", "nothing here")
	json.Unmarshal(w.Body.Bytes(), &st)
	if w.Code != http.StatusOK || st.Level != session.LevelWarn {
		t.Fatalf("warn load: %d %+v", w.Code, st)
	}
}

func TestLoadURL(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/session.jsonl" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(testdata.Session()))
	}))
	defer upstream.Close()

	s, ctrl := setupTestServer(t, false)

	w := do(s, http.MethodPost, "/api/load?url="+upstream.URL+"/session.jsonl", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if got := ctrl.Snapshot().Source; got != upstream.URL+"/session.jsonl" {
		t.Fatalf("source label = %q", got)
	}

	if w := do(s, http.MethodPost, "/api/load?url="+upstream.URL+"/missing", ""); w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 for upstream 404, got %d", w.Code)
	}
	if w := do(s, http.MethodPost, "/api/load?url=/etc/passwd", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-http location, got %d", w.Code)
	}
	if len(ctrl.Snapshot().Records) != 13 {
		t.Fatal("failed loads should keep the collection")
	}
}

func TestShareAndRestore(t *testing.T) {
	s, ctrl := setupTestServer(t, true)
	ctrl.SetQuery("bash")

	var share map[string]string
	json.Unmarshal(do(s, http.MethodGet, "/api/share", "").Body.Bytes(), &share)
	if !strings.HasPrefix(share["fragment"], "tz=local&q=bash&content=") {
		t.Fatalf("unexpected fragment %q", share["fragment"])
	}

	other, otherCtrl := setupTestServer(t, false)
	w := do(other, http.MethodPost, "/api/restore", "#"+share["fragment"])
	var resp statusResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if w.Code != http.StatusOK || resp.Events != 13 || resp.Filters.Query != "bash" {
		t.Fatalf("restore: %d %+v", w.Code, resp)
	}
	if resp.Status == nil || resp.Status.Message != "Loaded 13 events from shared URL" {
		t.Fatalf("unexpected status %+v", resp.Status)
	}
	if otherCtrl.Snapshot().Source != session.SharedLabel {
		t.Fatal("restored source label")
	}
}

func TestStateRoute(t *testing.T) {
	s, ctrl := setupTestServer(t, true)

	w := do(s, http.MethodPut, "/api/state", `{"tz":"utc","filters":{"query":"bash","hideToolDetails":true}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	st := ctrl.Snapshot()
	if st.TZ != "utc" || st.Filters.Query != "bash" || st.Filters.Type != model.TypeAll || !st.Filters.HideToolDetails {
		t.Fatalf("state not applied: %+v %s", st.Filters, st.TZ)
	}

	if w := do(s, http.MethodPut, "/api/state", `{"tz":"mars"}`); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad tz, got %d", w.Code)
	}
	if w := do(s, http.MethodPut, "/api/state", `not json`); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad JSON, got %d", w.Code)
	}
}

func TestStatusAndHealth(t *testing.T) {
	s, _ := setupTestServer(t, true)

	var resp statusResponse
	json.Unmarshal(do(s, http.MethodGet, "/api/status", "").Body.Bytes(), &resp)
	if resp.Source != "session.jsonl" || resp.Events != 13 || resp.Malformed != 1 {
		t.Fatalf("unexpected status %+v", resp)
	}
	if w := do(s, http.MethodGet, "/healthz", ""); w.Code != http.StatusOK {
		t.Fatalf("healthz: %d", w.Code)
	}
	if w := do(s, http.MethodDelete, "/api/events", ""); w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", w.Code)
	}
}

func TestLiveReloadNotification(t *testing.T) {
	s, ctrl := setupTestServer(t, false)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/live"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for s.hub.count() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	ctrl.LoadText(context.Background(), testdata.Session(), "session.jsonl")

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg liveMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Type != "reloaded" || msg.Count != 13 || msg.Source != "session.jsonl" {
		t.Fatalf("unexpected message %+v", msg)
	}

	conn.Close()
	deadline = time.Now().Add(2 * time.Second)
	for s.hub.count() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never unregistered")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestListenAndServeShutdown(t *testing.T) {
	s, _ := setupTestServer(t, false)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
