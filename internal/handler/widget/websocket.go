package widget

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/snakeaid/backend/internal/model/chat"
)

const writeWait = 10 * time.Second

type inboundMessage struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

func snapshotMessage(snap chat.Snapshot) outgoingMessage {
	return outgoingMessage{Type: "snapshot", Data: snap, Timestamp: time.Now().UnixMilli()}
}

func errorMessage(message string) outgoingMessage {
	return outgoingMessage{
		Type:      "error",
		Data:      map[string]string{"error": message},
		Timestamp: time.Now().UnixMilli(),
	}
}

// handleWebSocket pushes a snapshot on connect and after every change, and
// accepts submit/reset events from the client.
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	updates, unsubscribe := h.chatSvc.Subscribe()
	defer unsubscribe()

	if err := writeJSON(conn, snapshotMessage(h.chatSvc.Snapshot())); err != nil {
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	out := make(chan outgoingMessage, 4)
	go h.writeLoop(ctx, conn, updates, out)

	for {
		var in inboundMessage
		if err := conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Msg("websocket closed")
			}
			return
		}
		h.dispatch(ctx, in, out)
	}
}

func (h *Handler) dispatch(ctx context.Context, in inboundMessage, out chan<- outgoingMessage) {
	switch in.Type {
	case "submit":
		go func() {
			if _, err := h.chatSvc.Submit(ctx, in.Text); err != nil {
				send(ctx, out, errorMessage(err.Error()))
			}
		}()
	case "reset":
		go h.chatSvc.Reset(ctx)
	default:
		send(ctx, out, errorMessage("unknown message type: "+in.Type))
	}
}

func (h *Handler) writeLoop(ctx context.Context, conn *websocket.Conn, updates <-chan chat.Snapshot, out <-chan outgoingMessage) {
	for {
		var msg outgoingMessage
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			msg = snapshotMessage(snap)
		case msg = <-out:
		}

		if err := writeJSON(conn, msg); err != nil {
			log.Debug().Err(err).Msg("websocket write failed")
			_ = conn.Close()
			return
		}
	}
}

func send(ctx context.Context, out chan<- outgoingMessage, msg outgoingMessage) {
	select {
	case out <- msg:
	case <-ctx.Done():
	}
}

func writeJSON(conn *websocket.Conn, msg outgoingMessage) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(msg)
}
