package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/snakeaid/backend/internal/handler/responder"
	"github.com/zhouzirui/snakeaid/backend/internal/handler/widget"
	middlewarePkg "github.com/zhouzirui/snakeaid/backend/internal/middleware"
	chatService "github.com/zhouzirui/snakeaid/backend/internal/service/chat"
	responderService "github.com/zhouzirui/snakeaid/backend/internal/service/responder"
	"github.com/zhouzirui/snakeaid/backend/pkg/utils"
)

// NewRouter wires the widget routes to the conversation controller.
func NewRouter(chatSvc *chatService.Service) http.Handler {
	r := newBaseRouter()

	widgetHandler := widget.New(chatSvc)
	r.Route("/api", widgetHandler.RegisterRoutes)

	return r
}

// NewResponderRouter wires the reference responder routes.
func NewResponderRouter(responderSvc *responderService.Service) http.Handler {
	r := newBaseRouter()

	responder.New(responderSvc).RegisterRoutes(r)

	return r
}

func newBaseRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utils.RespondError(w, http.StatusNotFound, "route not found")
	})

	return r
}
