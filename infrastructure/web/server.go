package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The endpoint is unauthenticated and the demo client may be served
	// from anywhere, so every origin is accepted.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// NewRouter wires the whole HTTP surface: message creation and listing,
// the websocket subscription endpoint and the status page.
func NewRouter(h *Handlers) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Post("/messages", h.HandleCreateMessage)
	r.Get("/messages", h.HandleListMessages)
	r.Get("/ws", h.HandleSocket)
	r.Get("/status", h.HandleStatus)

	return r
}
