package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

var roomCodeCounter atomic.Int64

func newTestServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("skipping test; listen unavailable: %v", err)
	}
	ts := &httptest.Server{
		Listener: listener,
		Config:   &http.Server{Handler: handler},
	}
	ts.Start()
	return ts
}

func nextRoomCode() string {
	return fmt.Sprintf("ROOM%d", roomCodeCounter.Add(1))
}

func testConfigPayload() map[string]any {
	return map[string]any{
		"categories":      []string{"Animals", "Cities"},
		"total_rounds":    3,
		"round_duration":  60,
		"allowed_letters": "B",
		"match_duration":  300,
	}
}

func createSession(t *testing.T, ts *httptest.Server, cfg map[string]any) string {
	t.Helper()
	resp := doRequest(t, ts, http.MethodPost, "/api/sessions", map[string]any{
		"room_code": nextRoomCode(),
		"host_id":   "host",
		"config":    cfg,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, resp.StatusCode)
	}
	body := decodeBody(t, resp)
	return body["session_id"].(string)
}

func startRound(t *testing.T, ts *httptest.Server, sessionID string) map[string]any {
	t.Helper()
	resp := doRequest(t, ts, http.MethodPost, "/api/sessions/"+sessionID+"/start", map[string]any{
		"player_id": "host",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	return decodeBody(t, resp)
}

func submitAnswerReq(t *testing.T, ts *httptest.Server, sessionID, playerID, category, text string) {
	t.Helper()
	resp := doRequest(t, ts, http.MethodPost, "/api/sessions/"+sessionID+"/answers", map[string]any{
		"player_id": playerID,
		"category":  category,
		"text":      text,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
}

func stopRound(t *testing.T, ts *httptest.Server, sessionID string, roundNumber int) *http.Response {
	t.Helper()
	return doRequest(t, ts, http.MethodPost, "/api/sessions/"+sessionID+"/stop", map[string]any{
		"player_id":    "host",
		"round_number": roundNumber,
	})
}

func finalizeRoundReq(t *testing.T, ts *httptest.Server, sessionID string, roundNumber int) map[string]any {
	t.Helper()
	resp := doRequest(t, ts, http.MethodPost, "/api/sessions/"+sessionID+"/finalize", map[string]any{
		"round_number": roundNumber,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	return decodeBody(t, resp)
}

func fetchSnapshot(t *testing.T, ts *httptest.Server, sessionID string) map[string]any {
	t.Helper()
	resp := doRequest(t, ts, http.MethodGet, "/api/sessions/"+sessionID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	return decodeBody(t, resp)
}

func doRequest(t *testing.T, ts *httptest.Server, method, path string, payload any) *http.Response {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, ts.URL+path, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	t.Cleanup(func() {
		_ = resp.Body.Close()
	})
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}

// waitFor polls until the condition holds. Timer callbacks run on their
// own goroutines, so state assertions after a clock advance need a grace
// window.
func waitFor(t *testing.T, timeout time.Duration, condition func() bool, message string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", message)
}
