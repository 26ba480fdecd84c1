package handlers

import (
	"net/http"
	"sync"
	"time"

	"github.com/akolanti/StreamAPI/internal/adapter/utils"
	"github.com/akolanti/StreamAPI/internal/api"
	"github.com/akolanti/StreamAPI/internal/config"
	"github.com/akolanti/StreamAPI/internal/stream"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	//the webhook producer and browsers hit this from other origins
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsClient is one websocket connection. It may hold subscriptions to several
// streams at once; each subscription gets its own writer pump draining the
// bounded queue onto the socket.
type wsClient struct {
	conn   *websocket.Conn
	connId string

	mu   sync.Mutex //guards writes to the socket and the subs map
	subs map[string]*stream.Subscription
}

// WsTranscriptionHandler godoc
// @Summary      Subscribe to live transcription streams
// @Description  Upgrades to a websocket. Clients send subscribe/unsubscribe messages and receive transcription_event frames until the stream ends.
// @Tags         Streaming
// @Router       /ws/transcription [get]
func WsTranscriptionHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logRH.Error("websocket upgrade failed", "error", err.Error(), "remote", r.RemoteAddr)
		return
	}

	client := &wsClient{
		conn:   conn,
		connId: utils.GetNewUUID(),
		subs:   make(map[string]*stream.Subscription),
	}
	logRH.Info("websocket connected", "connId", client.connId)

	defer func() {
		//no grace period: every subscription this connection held goes away
		_registry.DropConnection(client.connId)
		_ = conn.Close()
		logRH.Info("websocket disconnected", "connId", client.connId)
	}()

	for {
		var msg api.ClientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logRH.Warn("websocket read failed", "connId", client.connId, "error", err.Error())
			}
			return
		}
		client.handleMessage(msg)
	}
}

func (c *wsClient) handleMessage(msg api.ClientMessage) {
	switch msg.Action {
	case api.ActionSubscribe:
		if msg.StreamId == "" {
			c.writeError("streamId is required to subscribe")
			return
		}
		c.mu.Lock()
		if _, exists := c.subs[msg.StreamId]; exists {
			c.mu.Unlock()
			c.writeError("already subscribed to " + msg.StreamId)
			return
		}
		sub := _registry.Subscribe(msg.StreamId, c.connId)
		c.subs[msg.StreamId] = sub
		c.mu.Unlock()
		go c.pump(sub)

	case api.ActionUnsubscribe:
		c.mu.Lock()
		sub, exists := c.subs[msg.StreamId]
		delete(c.subs, msg.StreamId)
		c.mu.Unlock()
		if exists {
			_registry.Unsubscribe(sub)
		}

	default:
		c.writeError("unknown action " + msg.Action)
	}
}

// pump drains one subscription's queue onto the socket. It exits when the
// subscription closes; buffered events (including the end event) are always
// written out first.
func (c *wsClient) pump(sub *stream.Subscription) {
	for event := range sub.Events() {
		if err := c.writeFrame(api.ServerFrame{Type: api.FrameTranscriptionEvent, Payload: event}); err != nil {
			logRH.Warn("websocket write failed", "connId", c.connId, "error", err.Error())
			_registry.Unsubscribe(sub)
			//drop the map entry too, otherwise a later resubscribe to the
			//same stream is rejected as a duplicate
			c.detach(sub)
			return
		}
	}
	c.finish(sub)
}

// detach removes the subscription from the connection's map if it is still
// the one registered for that stream. Returns how many subscriptions remain.
func (c *wsClient) detach(sub *stream.Subscription) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if current, ok := c.subs[sub.StreamId]; ok && current == sub {
		delete(c.subs, sub.StreamId)
	}
	return len(c.subs)
}

func (c *wsClient) finish(sub *stream.Subscription) {
	reason := sub.CloseReason()
	remaining := c.detach(sub)

	switch reason {
	case stream.CloseStreamEnded:
		//end event is already on the wire; close cleanly once nothing is left
		if remaining == 0 {
			deadline := time.Now().Add(config.WebsocketWriteWait)
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "stream ended"), deadline)
			_ = c.conn.Close()
		}
	case stream.CloseOverflow:
		c.writeError("subscription to " + sub.StreamId + " dropped: queue overflow")
	}
}

func (c *wsClient) writeFrame(frame api.ServerFrame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(config.WebsocketWriteWait))
	return c.conn.WriteJSON(frame)
}

func (c *wsClient) writeError(message string) {
	if err := c.writeFrame(api.ServerFrame{Type: api.FrameError, Payload: api.ErrorResponse{Error: message}}); err != nil {
		logRH.Warn("could not write error frame", "connId", c.connId, "error", err.Error())
	}
}
