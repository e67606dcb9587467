package twin

import "github.com/go-chi/chi/v5"

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Get("/", h.Root)
	r.Post("/api/train", h.Train)
	r.Post("/api/chat", h.Chat)
	r.Post("/api/send-dm", h.SendDM)
	r.Get("/api/twins/{twinId}", h.GetTwin)
}
