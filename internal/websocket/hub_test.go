package websocket

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"studio-portal/internal/models"
	"studio-portal/internal/workflow"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	hub := NewHub(quietLogger())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub, cancel
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestPublishReachesOnlySessionWatchers(t *testing.T) {
	hub, _ := startHub(t)

	watcher := &Client{Hub: hub, Send: make(chan []byte, 4), SessionID: "s1"}
	bystander := &Client{Hub: hub, Send: make(chan []byte, 4), SessionID: "s2"}
	if !hub.Join(watcher) || !hub.Join(bystander) {
		t.Fatal("join failed")
	}
	waitFor(t, func() bool { return hub.Watchers("s1") == 1 && hub.Watchers("s2") == 1 })

	hub.Publish(workflow.Event{Type: workflow.EventSelectionSubmitted, SessionID: "s1", Stage: models.StageReviewing, Status: models.StatusSubmitted})

	select {
	case msg := <-watcher.Send:
		var evt workflow.Event
		if err := json.Unmarshal(msg, &evt); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		if evt.Type != workflow.EventSelectionSubmitted || evt.Stage != models.StageReviewing {
			t.Fatalf("unexpected event %+v", evt)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not receive the event")
	}

	select {
	case msg := <-bystander.Send:
		t.Fatalf("bystander received %s", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestLeaveClosesSend(t *testing.T) {
	hub, _ := startHub(t)
	c := &Client{Hub: hub, Send: make(chan []byte, 1), SessionID: "s1"}
	hub.Join(c)
	waitFor(t, func() bool { return hub.Watchers("s1") == 1 })

	hub.Leave(c)
	waitFor(t, func() bool { return hub.Watchers("s1") == 0 })
	if _, ok := <-c.Send; ok {
		t.Fatal("send channel should be closed after leave")
	}
}

func TestStoppedHubRefusesJoin(t *testing.T) {
	hub, cancel := startHub(t)
	c := &Client{Hub: hub, Send: make(chan []byte, 1), SessionID: "s1"}
	hub.Join(c)
	waitFor(t, func() bool { return hub.Watchers("s1") == 1 })

	cancel()
	if _, ok := <-c.Send; ok {
		t.Fatal("clients should be closed on shutdown")
	}
	if hub.Join(&Client{Hub: hub, Send: make(chan []byte, 1), SessionID: "s1"}) {
		t.Fatal("join should fail once the hub stopped")
	}
	hub.Leave(c) // must not block
}

func TestPumpsOverRealConnection(t *testing.T) {
	hub, _ := startHub(t)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		c := &Client{Hub: hub, Conn: conn, Send: make(chan []byte, 8), SessionID: "s1"}
		if !hub.Join(c) {
			conn.Close()
			return
		}
		go c.WritePump()
		go c.ReadPump()
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	waitFor(t, func() bool { return hub.Watchers("s1") == 1 })

	hub.Publish(workflow.Event{Type: workflow.EventRevisionApproved, SessionID: "s1", Filename: "a.jpg"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(msg), `"filename":"a.jpg"`) {
		t.Fatalf("unexpected message %s", msg)
	}

	conn.Close()
	waitFor(t, func() bool { return hub.Watchers("s1") == 0 })
}
