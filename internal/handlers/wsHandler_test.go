package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/akolanti/StreamAPI/internal/api"
	"github.com/akolanti/StreamAPI/internal/domain/streamModel"
	"github.com/akolanti/StreamAPI/internal/stream"
	"github.com/gorilla/websocket"
)

// dials a throwaway server so the test can drive wsClient against a real
// server-side connection
func newTestConn(t *testing.T) *websocket.Conn {
	t.Helper()
	connCh := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Error(err)
			return
		}
		connCh <- conn
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	clientSide, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { clientSide.Close() })

	select {
	case conn := <-connCh:
		t.Cleanup(func() { conn.Close() })
		return conn
	case <-time.After(time.Second):
		t.Fatal("no server-side connection")
		return nil
	}
}

func holdsSubscription(c *wsClient, streamId string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.subs[streamId]
	return ok
}

func TestWsClient_ResubscribeAfterWriteFailure(t *testing.T) {
	setupHandlers(t)
	conn := newTestConn(t)

	c := &wsClient{conn: conn, connId: "conn-ws-1", subs: make(map[string]*stream.Subscription)}
	c.handleMessage(api.ClientMessage{Action: api.ActionSubscribe, StreamId: "s1"})
	if !holdsSubscription(c, "s1") {
		t.Fatal("subscribe did not register")
	}

	//kill the socket so the pump's next write fails
	conn.Close()
	_registry.Fanout("s1", streamModel.TranscriptionEvent{
		Type:     streamModel.EventTranscript,
		StreamId: "s1",
		Data:     streamModel.TranscriptionData{Text: "hello"},
	})

	deadline := time.Now().Add(2 * time.Second)
	for holdsSubscription(c, "s1") && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if holdsSubscription(c, "s1") {
		t.Fatal("dead subscription still pinned to the connection")
	}

	//a fresh subscribe to the same stream must not be rejected as a duplicate
	c.handleMessage(api.ClientMessage{Action: api.ActionSubscribe, StreamId: "s1"})
	if !holdsSubscription(c, "s1") {
		t.Error("resubscribe after write failure was rejected")
	}
}
