package twin

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Vovarama1992/moodtwin-bridge/internal/ai"
)

const maxRequestBodySize = 1 << 20 // 1MB

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// Root is the liveness probe.
func (h *Handler) Root(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("MoodTwin server is running"))
}

func (h *Handler) Train(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Texts    []string `json:"texts"`
		TwinName *string  `json:"twinName"`
	}
	if !decode(w, r, &payload) {
		return
	}

	profile, err := h.svc.Train(r.Context(), payload.TwinName, payload.Texts)
	if err != nil {
		h.fail(w, "train", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"twinId":  profile.ID,
		"profile": profile,
	})
}

func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		TwinID  string  `json:"twinId"`
		Message string  `json:"message"`
		Mood    *string `json:"mood"`
	}
	if !decode(w, r, &payload) {
		return
	}

	mood := MoodNeutral
	if payload.Mood != nil {
		mood = Mood(*payload.Mood)
	}

	res, err := h.svc.Chat(r.Context(), payload.TwinID, payload.Message, mood)
	if err != nil {
		h.fail(w, "chat", err)
		return
	}

	body := map[string]any{
		"ok":    true,
		"reply": res.Reply,
	}
	if len(res.Raw) > 0 {
		body["raw"] = res.Raw
	}
	writeJSON(w, http.StatusOK, body)
}

func (h *Handler) GetTwin(w http.ResponseWriter, r *http.Request) {
	profile, err := h.svc.Find(r.Context(), chi.URLParam(r, "twinId"))
	if err != nil {
		h.fail(w, "get twin", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"profile": profile,
	})
}

// SendDM accepts any body shape and always acknowledges.
func (h *Handler) SendDM(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		To      json.RawMessage `json:"to"`
		Message json.RawMessage `json:"message"`
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		log.Printf("[http] send-dm body ignored: %v", err)
	}

	status, err := h.svc.SendDM(r.Context(), looseString(payload.To), looseString(payload.Message))
	if err != nil {
		log.Printf("[http] send-dm error: %v", err)
		status = StatusMockSent
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":     true,
		"status": status,
	})
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	var validation *ValidationError
	var upstream *ai.UpstreamError

	switch {
	case errors.As(err, &validation):
		writeError(w, http.StatusBadRequest, validation.Msg)
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, ErrNotFound.Error())
	case errors.As(err, &upstream):
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":   "OpenAI API error",
			"details": upstream.Body,
		})
	default:
		log.Printf("[http] %s: %v", op, err)
		writeError(w, http.StatusInternalServerError, "Server error")
	}
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request entity too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid json")
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"error": msg})
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("[http] encode response: %v", err)
	}
}

func looseString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
