package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dtroode/pastry-storefront/internal/logger"
	"github.com/dtroode/pastry-storefront/internal/model"
)

const (
	eventsWriteWait  = 10 * time.Second
	eventsPongWait   = 60 * time.Second
	eventsPingEvery  = (eventsPongWait * 9) / 10
	eventsBufferSize = 16
)

var eventsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// SignalSource streams change signals.
type SignalSource interface {
	SubscribeStream(ctx context.Context, buffer int, channels ...model.Channel) <-chan model.Channel
}

// EventMessage is what a UI region receives on the events socket.
type EventMessage struct {
	Type    string        `json:"type"`
	Channel model.Channel `json:"channel,omitempty"`
}

// Events pushes cart-changed and auth-changed signals to UI regions over WebSocket.
// A region re-reads /cart or /session on every signal.
type Events struct {
	signals SignalSource
	logger  *logger.Logger
}

func NewEvents(signals SignalSource, logger *logger.Logger) *Events {
	return &Events{signals: signals, logger: logger}
}

func (h *Events) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := eventsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("Events handler: upgrade failed", "error", err.Error())
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(eventsPongWait)); err != nil {
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(eventsPongWait))
	})

	stream := h.signals.SubscribeStream(ctx, eventsBufferSize)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		defer conn.Close()
		defer cancel()
		ticker := time.NewTicker(eventsPingEvery)
		defer ticker.Stop()

		if !h.write(conn, EventMessage{Type: "subscribed"}) {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case ch, ok := <-stream:
				if !ok {
					return
				}
				if !h.write(conn, EventMessage{Type: "signal", Channel: ch}) {
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(eventsWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	h.logger.Debug("Events handler: client subscribed", "remote", r.RemoteAddr)

	// Inbound messages are ignored; reading drives pong and close handling.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			cancel()
			<-writerDone
			h.logger.Debug("Events handler: client disconnected", "remote", r.RemoteAddr)
			return
		}
	}
}

func (h *Events) write(conn *websocket.Conn, msg EventMessage) bool {
	if err := conn.SetWriteDeadline(time.Now().Add(eventsWriteWait)); err != nil {
		return false
	}
	return conn.WriteJSON(msg) == nil
}
