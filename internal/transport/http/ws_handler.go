package http

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"live-quiz-service/internal/domain"
)

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	Position  int      `json:"position"`
	AnswerIDs []string `json:"answerIds"`
}

type chatPayload struct {
	Message string `json:"message"`
}

type actionPayload struct {
	Action string `json:"action"`
}

type joinedPayload struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets. Players join a lobby
// and submit answers; the host drives the session with actions. Both
// roles receive session updates pushed on every phase change.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	role := r.URL.Query().Get("role")
	if sessionID == "" || (role != "player" && role != "host") {
		http.Error(w, "missing sessionId or role (player|host)", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	var playerID string
	if role == "player" {
		playerID, err = h.service.JoinPlayer(r.Context(), sessionID, r.URL.Query().Get("name"))
		if err != nil {
			_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
			return
		}
	}

	updates, cancel, err := h.service.Subscribe(r.Context(), sessionID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// One writer goroutine owns the connection, one pump forwards
	// session updates into it; the read loop below stays the only
	// reader. Keeps concurrent websocket writes impossible.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "update", Payload: update}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	if role == "player" {
		send <- outboundMessage[any]{Type: "joined", Payload: joinedPayload{PlayerID: playerID}}
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch {
		case inbound.Type == "answer" && role == "player":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}}
				continue
			}
			if err := h.service.SubmitAnswer(r.Context(), playerID, payload.Position, payload.AnswerIDs); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
				continue
			}
			send <- outboundMessage[any]{Type: "answerAck", Payload: map[string]string{"position": strconv.Itoa(payload.Position)}}
		case inbound.Type == "chat" && role == "player":
			var payload chatPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid chat payload"}}
				continue
			}
			msg, err := h.service.PostChatMessage(r.Context(), playerID, payload.Message)
			if err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
				continue
			}
			send <- outboundMessage[any]{Type: "chat", Payload: msg}
		case inbound.Type == "action" && role == "host":
			var payload actionPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid action payload"}}
				continue
			}
			action, err := domain.ParseAction(payload.Action)
			if err == nil {
				err = h.service.ApplyAction(r.Context(), sessionID, action)
			}
			if err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
				continue
			}
		case inbound.Type == "results" && role == "host":
			results, err := h.service.GetResults(r.Context(), sessionID)
			if err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
				continue
			}
			send <- outboundMessage[any]{Type: "results", Payload: results}
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}
