// Package responder serves the reference responder: the HTTP endpoint the
// relay posts to, answering in TwiML.
package responder

import (
	"encoding/json"
	"encoding/xml"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	responderService "github.com/zhouzirui/snakeaid/backend/internal/service/responder"
	"github.com/zhouzirui/snakeaid/backend/pkg/utils"
)

// Handler exposes /sms, /reset and /healthz.
type Handler struct {
	svc *responderService.Service
}

func New(svc *responderService.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the responder routes on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/sms", h.handleMessage)
	r.Post("/reset", h.handleReset)
	r.Get("/healthz", h.handleHealth)
}

type inboundPayload struct {
	Body           string `json:"Body"`
	From           string `json:"From"`
	IsFirstMessage bool   `json:"is_first_message"`
}

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Message string   `xml:"Message"`
}

func (h *Handler) handleMessage(w http.ResponseWriter, r *http.Request) {
	payload, err := decodeInbound(r)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	reply, err := h.svc.Handle(r.Context(), responderService.Inbound{
		Sender:         payload.From,
		Body:           payload.Body,
		IsFirstMessage: payload.IsFirstMessage,
	})
	if errors.Is(err, responderService.ErrEmptyBody) {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("responder failed to handle message")
		utils.RespondError(w, http.StatusInternalServerError, "failed to handle message")
		return
	}

	logEvent := log.Info().Str("from", payload.From).Bool("fallback", reply.Fallback)
	if reply.Assessment != nil {
		logEvent = logEvent.Str("subject", string(reply.Assessment.Subject)).Int("urgency", reply.Assessment.Urgency)
	}
	logEvent.Msg("responder replied")

	writeTwiML(w, reply.Text)
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	sender, err := decodeResetSender(r)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.Reset(r.Context(), sender); err != nil {
		log.Error().Err(err).Msg("responder reset failed")
		utils.RespondError(w, http.StatusInternalServerError, "failed to reset sessions")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeTwiML(w http.ResponseWriter, text string) {
	body, err := xml.Marshal(twimlResponse{Message: text})
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to encode reply")
		return
	}

	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(append([]byte(xml.Header), body...)); err != nil {
		log.Debug().Err(err).Msg("failed to write twiml")
	}
}

// decodeInbound accepts the relay's JSON payload and Twilio-style forms.
func decodeInbound(r *http.Request) (inboundPayload, error) {
	var payload inboundPayload
	if isJSON(r) {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			return payload, errors.Wrap(err, "invalid request body")
		}
		return payload, nil
	}

	if err := r.ParseForm(); err != nil {
		return payload, errors.Wrap(err, "invalid form body")
	}
	payload.Body = r.PostForm.Get("Body")
	payload.From = r.PostForm.Get("From")
	if raw := r.PostForm.Get("is_first_message"); raw != "" {
		first, err := strconv.ParseBool(raw)
		if err != nil {
			return payload, errors.Wrap(err, "invalid is_first_message")
		}
		payload.IsFirstMessage = first
	}
	return payload, nil
}

func decodeResetSender(r *http.Request) (string, error) {
	if isJSON(r) {
		var payload inboundPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
			return "", errors.Wrap(err, "invalid request body")
		}
		return payload.From, nil
	}

	if err := r.ParseForm(); err != nil {
		return "", errors.Wrap(err, "invalid form body")
	}
	return r.Form.Get("From"), nil
}

func isJSON(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && strings.EqualFold(mediaType, "application/json")
}
