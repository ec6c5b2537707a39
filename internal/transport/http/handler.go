package http

import (
	"encoding/json"
	"log"
	"net/http"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
	"github.com/gorilla/websocket"
)

// Handler exposes the session use cases over HTTP: read-only REST
// projections plus the websocket endpoint for hosts and players.
type Handler struct {
	service  *app.SessionService
	upgrader websocket.Upgrader
}

func NewHandler(service *app.SessionService) *Handler {
	return &Handler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("POST /sessions", h.createSession)
	mux.HandleFunc("GET /sessions/{id}/status", h.status)
	mux.HandleFunc("GET /sessions/{id}/results", h.results)
	mux.HandleFunc("GET /sessions/{id}/export", h.exportRows)
	mux.HandleFunc("GET /sessions/{id}/chat", h.chat)
	mux.HandleFunc("/ws", h.ServeWS)
	return mux
}

type createSessionRequest struct {
	QuizID       string `json:"quizId"`
	AutoStartNum int    `json:"autoStartNum"`
}

func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	sessionID, err := h.service.CreateSession(r.Context(), req.QuizID, req.AutoStartNum)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"sessionId": sessionID})
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.GetStatus(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *Handler) results(w http.ResponseWriter, r *http.Request) {
	results, err := h.service.GetResults(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (h *Handler) exportRows(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.GetCSVRows(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rows": rows})
}

func (h *Handler) chat(w http.ResponseWriter, r *http.Request) {
	messages, err := h.service.ChatMessages(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	if kind, ok := domain.KindOf(err); ok {
		switch kind {
		case domain.KindConflict:
			status = http.StatusConflict
		case domain.KindNotFound:
			status = http.StatusNotFound
		}
	}
	http.Error(w, err.Error(), status)
}
