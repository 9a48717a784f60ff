package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"marathon-service/internal/app"
	"marathon-service/internal/domain"
	"marathon-service/internal/infra/memory"
)

func TestWebSocketCompletionFlow(t *testing.T) {
	service, _ := newTestService()
	wsHandler := NewWSHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	server := httptest.NewServer(mux)
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/ws?marathonId=marathon-1&name=Mina&group=group-a"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Expect joined event first; it carries the minted user id.
	msgType, payload := readNext(conn, t, "joined")
	if msgType != "joined" {
		t.Fatalf("expected joined, got %s", msgType)
	}
	userPayload, ok := payload["user"].(map[string]any)
	if !ok || userPayload["id"] == "" {
		t.Fatalf("expected joined payload with user, got %v", payload)
	}

	complete := map[string]any{
		"type": "complete",
		"payload": map[string]any{
			"readingId": "r1",
			"optionId":  "a",
		},
	}
	if err := conn.WriteJSON(complete); err != nil {
		t.Fatalf("write complete: %v", err)
	}

	// Expect completionResult then leaderboard.
	resultSeen := false
	leaderboardSeen := false
	for i := 0; i < 4; i++ {
		typ, p := readNext(conn, t, "")
		switch typ {
		case "completionResult":
			resultSeen = true
			// On-time reading answered correctly: 10 + 2 bonus.
			if p["awarded"].(float64) != 12 || p["correct"] != true {
				t.Fatalf("unexpected completion result: %v", p)
			}
		case "leaderboard":
			leaderboardSeen = true
		}
		if resultSeen && leaderboardSeen {
			break
		}
	}
	if !resultSeen || !leaderboardSeen {
		t.Fatalf("expected completionResult and leaderboard, got result=%v leaderboard=%v", resultSeen, leaderboardSeen)
	}

	// A repeat completion surfaces as an error frame, not a disconnect.
	if err := conn.WriteJSON(complete); err != nil {
		t.Fatalf("write repeat: %v", err)
	}
	for i := 0; i < 4; i++ {
		typ, p := readNext(conn, t, "")
		if typ == "error" {
			if p["message"] == "" {
				t.Fatalf("error frame without message: %v", p)
			}
			return
		}
	}
	t.Fatalf("expected error frame for duplicate completion")
}

func TestWebSocketEventProgress(t *testing.T) {
	service, _ := newTestService()
	event, err := service.CreateEvent(context.Background(), "marathon-1", domain.Event{
		Title:      "Week one",
		EndDate:    "2999-12-31",
		ReadingIDs: []string{"r1", "r2"},
	})
	if err != nil {
		t.Fatalf("create event: %v", err)
	}

	wsHandler := NewWSHandler(service)
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	server := httptest.NewServer(mux)
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/ws?marathonId=marathon-1&name=Mina&group=group-a"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	readNext(conn, t, "joined")

	if err := conn.WriteJSON(map[string]any{
		"type":    "progress",
		"payload": map[string]any{"eventId": event.ID},
	}); err != nil {
		t.Fatalf("write progress: %v", err)
	}

	for i := 0; i < 4; i++ {
		typ, p := readNext(conn, t, "")
		if typ == "eventProgress" {
			if p["completed"].(float64) != 0 || p["total"].(float64) != 2 {
				t.Fatalf("unexpected progress: %v", p)
			}
			if p["active"] != true {
				t.Fatalf("expected active event, got %v", p)
			}
			return
		}
	}
	t.Fatalf("expected eventProgress frame")
}

func TestWebSocketRejectsMissingParams(t *testing.T) {
	service, _ := newTestService()
	wsHandler := NewWSHandler(service)

	req := httptest.NewRequest(http.MethodGet, "/ws?marathonId=marathon-1", nil)
	rec := httptest.NewRecorder()
	wsHandler.ServeWS(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing name, got %d", rec.Code)
	}
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s", expect, msg.Type)
	}
	return msg.Type, msg.Payload
}

// newTestService wires an in-memory service with a catalog dated today so
// completions earn the on-time score.
func newTestService() (*app.MarathonService, *memory.StaticCatalogStore) {
	store := memory.NewStaticCatalogStore(sampleReadings())
	catalog := memory.NewCatalogRepository(store, time.Minute)
	boards := memory.NewBoardStore()
	boards.GetOrCreate("marathon-1")
	return app.NewMarathonService(boards, catalog), store
}

func sampleReadings() []domain.Reading {
	today := domain.DateOf(time.Now())
	return []domain.Reading{
		{
			ID:       "r1",
			Date:     today,
			Title:    "Genesis 1-3",
			Question: "What was created on the first day?",
			Options: []domain.QuizOption{
				{ID: "a", Text: "Light"},
				{ID: "b", Text: "Animals"},
			},
			CorrectOptionID: "a",
			BonusPoints:     2,
		},
		{ID: "r2", Date: today, Title: "Genesis 4-6"},
	}
}
