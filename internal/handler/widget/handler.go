// Package widget exposes the conversation to the browser widget and other
// presentation clients.
package widget

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/snakeaid/backend/internal/model/chat"
	chatService "github.com/zhouzirui/snakeaid/backend/internal/service/chat"
	"github.com/zhouzirui/snakeaid/backend/pkg/utils"
)

// Handler serves the conversation over HTTP, websocket and SSE.
type Handler struct {
	chatSvc  *chatService.Service
	upgrader websocket.Upgrader
}

// New creates the widget handler.
func New(chatSvc *chatService.Service) *Handler {
	return &Handler{
		chatSvc: chatSvc,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
}

// RegisterRoutes mounts the widget routes on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/transcript", h.handleTranscript)
	r.Post("/messages", h.handleSubmit)
	r.Post("/reset", h.handleReset)
	r.Get("/stream", h.handleStream)
	r.Get("/ws", h.handleWebSocket)
}

type submitRequest struct {
	Text string `json:"text"`
}

type exchangeResponse struct {
	Reply     *chat.Message `json:"reply,omitempty"`
	Fallback  bool          `json:"fallback"`
	Discarded bool          `json:"discarded"`
	Snapshot  chat.Snapshot `json:"snapshot"`
}

type resetResponse struct {
	RemoteAcknowledged bool          `json:"remoteAcknowledged"`
	Snapshot           chat.Snapshot `json:"snapshot"`
}

func (h *Handler) handleTranscript(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.chatSvc.Snapshot())
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var payload submitRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	outcome, err := h.chatSvc.Submit(r.Context(), payload.Text)
	if err != nil {
		utils.RespondError(w, statusFor(err), err.Error())
		return
	}

	resp := exchangeResponse{
		Fallback:  outcome.Fallback,
		Discarded: outcome.Discarded,
		Snapshot:  h.chatSvc.Snapshot(),
	}
	if !outcome.Discarded {
		resp.Reply = &outcome.Reply
	}
	utils.RespondJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	result := h.chatSvc.Reset(r.Context())
	utils.RespondJSON(w, http.StatusOK, resetResponse{
		RemoteAcknowledged: result.Acknowledged,
		Snapshot:           h.chatSvc.Snapshot(),
	})
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	updates, unsubscribe := h.chatSvc.Subscribe()
	defer unsubscribe()

	utils.SetupSSEHeaders(w)
	if err := utils.SendSSEEvent(w, flusher, "snapshot", h.chatSvc.Snapshot()); err != nil {
		return
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			log.Debug().Msg("sse client disconnected")
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			if err := utils.SendSSEEvent(w, flusher, "snapshot", snap); err != nil {
				return
			}
		}
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, chatService.ErrEmptyInput):
		return http.StatusBadRequest
	case errors.Is(err, chatService.ErrExchangeInFlight):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
