package http

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"marathon-service/internal/app"
	"marathon-service/internal/domain"
)

type WSHandler struct {
	service  *app.MarathonService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.MarathonService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type completePayload struct {
	ReadingID string `json:"readingId"`
	OptionID  string `json:"optionId"`
}

type progressPayload struct {
	EventID string `json:"eventId"`
}

type completionResult struct {
	ReadingID  string `json:"readingId"`
	Correct    bool   `json:"correct"`
	Awarded    int    `json:"awarded"`
	TotalScore int    `json:"totalScore"`
}

type joinedPayload struct {
	User        domain.User        `json:"user"`
	Leaderboard domain.Leaderboard `json:"leaderboard"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets and wires them into the
// marathon use cases. A connection joins (or refreshes) the participant and
// then streams leaderboard updates; completions and progress queries arrive
// as inbound messages.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	marathonID := r.URL.Query().Get("marathonId")
	userID := r.URL.Query().Get("userId")
	name := r.URL.Query().Get("name")
	group := r.URL.Query().Get("group")
	if marathonID == "" || name == "" {
		http.Error(w, "missing marathonId or name", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	user, joined, err := h.service.Join(r.Context(), marathonID, userID, name, group)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}

	updates, cancel, err := h.service.Subscribe(r.Context(), marathonID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// Single writer goroutine; gorilla connections do not allow concurrent writes.
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
				case send <- outboundMessage[any]{Type: "leaderboard", Payload: update}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "joined", Payload: joinedPayload{User: user, Leaderboard: joined}}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "complete":
			var payload completePayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid complete payload"}}
				continue
			}
			result, lb, err := h.service.MarkComplete(r.Context(), marathonID, user.ID, payload.ReadingID, payload.OptionID)
			if err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
				continue
			}
			send <- outboundMessage[any]{Type: "completionResult", Payload: completionResult{
				ReadingID:  payload.ReadingID,
				Correct:    result.Submission.IsCorrect,
				Awarded:    result.Submission.Score,
				TotalScore: result.TotalScore,
			}}
			send <- outboundMessage[any]{Type: "leaderboard", Payload: lb}
		case "progress":
			var payload progressPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid progress payload"}}
				continue
			}
			progress, err := h.service.EventProgress(r.Context(), marathonID, payload.EventID, user.ID)
			if err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
				continue
			}
			send <- outboundMessage[any]{Type: "eventProgress", Payload: progress}
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}
