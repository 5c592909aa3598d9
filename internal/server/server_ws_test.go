package server

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"stopthebus/internal/config"

	"github.com/gorilla/websocket"
)

func TestWebsocketSendsSnapshotOnConnect(t *testing.T) {
	srv := New(nil, config.Default())
	ts := newTestServer(t, srv.Handler())
	t.Cleanup(ts.Close)

	sessionID := createSession(t, ts, testConfigPayload())
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/sessions/" + sessionID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Skipf("skipping test; websocket dial unavailable: %v", err)
	}
	defer conn.Close()

	message := readWSMessage(t, conn, 5*time.Second)
	if message["type"] != "snapshot" {
		t.Fatalf("expected snapshot first, got %v", message["type"])
	}
	payload := message["payload"].(map[string]any)
	if payload["session_id"] != sessionID {
		t.Fatalf("expected snapshot for %s, got %v", sessionID, payload["session_id"])
	}
	if payload["status"] != statusWaiting {
		t.Fatalf("expected waiting status, got %v", payload["status"])
	}
}

func TestWebsocketBroadcastsRoundEvents(t *testing.T) {
	srv := New(nil, config.Default())
	ts := newTestServer(t, srv.Handler())
	t.Cleanup(ts.Close)

	sessionID := createSession(t, ts, testConfigPayload())
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/sessions/" + sessionID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Skipf("skipping test; websocket dial unavailable: %v", err)
	}
	defer conn.Close()

	if message := readWSMessage(t, conn, 5*time.Second); message["type"] != "snapshot" {
		t.Fatalf("expected snapshot first, got %v", message["type"])
	}

	startRound(t, ts, sessionID)
	message := waitForWSEvent(t, conn, 5*time.Second, eventRoundStarted)
	payload := message["payload"].(map[string]any)
	if payload["round_number"].(float64) != 1 {
		t.Fatalf("expected round 1, got %v", payload["round_number"])
	}
	if payload["letter"] != "B" {
		t.Fatalf("expected the drawn letter, got %v", payload["letter"])
	}

	stopRound(t, ts, sessionID, 1)
	waitForWSEvent(t, conn, 5*time.Second, eventAnswerPhaseEnded)
}

func TestBroadcastSerializesWriters(t *testing.T) {
	srv := New(nil, config.Default())
	ts := newTestServer(t, srv.Handler())
	t.Cleanup(ts.Close)

	sessionID := createSession(t, ts, testConfigPayload())
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/sessions/" + sessionID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Skipf("skipping test; websocket dial unavailable: %v", err)
	}
	defer conn.Close()

	if message := readWSMessage(t, conn, 5*time.Second); message["type"] != "snapshot" {
		t.Fatalf("expected snapshot first, got %v", message["type"])
	}

	// Heartbeat ticks and handler broadcasts hit the same connection from
	// different goroutines in production; every frame must still arrive
	// intact.
	const writers = 16
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			srv.ws.Broadcast(sessionID, wsMessage{
				Type:    eventTimerTick,
				Payload: EventPayload{OverallTimeLeft: 300},
			})
		}()
	}
	wg.Wait()

	for i := 0; i < writers; i++ {
		message := readWSMessage(t, conn, 5*time.Second)
		if message["type"] != eventTimerTick {
			t.Fatalf("expected tick frame %d, got %v", i, message["type"])
		}
	}
}

func TestWebsocketLookupByRoomCode(t *testing.T) {
	srv := New(nil, config.Default())
	ts := newTestServer(t, srv.Handler())
	t.Cleanup(ts.Close)

	code := nextRoomCode()
	resp := doRequest(t, ts, "POST", "/api/sessions", map[string]any{
		"room_code": code,
		"host_id":   "host",
		"config":    testConfigPayload(),
	})
	if resp.StatusCode != 201 {
		t.Fatalf("expected session creation, got %d", resp.StatusCode)
	}
	sessionID := decodeBody(t, resp)["session_id"].(string)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/sessions/" + code
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Skipf("skipping test; websocket dial unavailable: %v", err)
	}
	defer conn.Close()

	message := readWSMessage(t, conn, 5*time.Second)
	payload := message["payload"].(map[string]any)
	if payload["session_id"] != sessionID {
		t.Fatalf("expected room code to resolve %s, got %v", sessionID, payload["session_id"])
	}
}

// waitForWSEvent reads frames until the wanted type arrives. The live
// heartbeat interleaves timer_tick frames with command events.
func waitForWSEvent(t *testing.T, conn *websocket.Conn, timeout time.Duration, eventType string) map[string]any {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		message := readWSMessage(t, conn, time.Until(deadline))
		if message["type"] == eventType {
			return message
		}
	}
	t.Fatalf("timed out waiting for %s event", eventType)
	return nil
}

func readWSMessage(t *testing.T, conn *websocket.Conn, timeout time.Duration) map[string]any {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read websocket message: %v", err)
	}
	var message map[string]any
	if err := json.Unmarshal(payload, &message); err != nil {
		t.Fatalf("decode websocket message: %v", err)
	}
	return message
}
