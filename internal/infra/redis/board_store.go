package redis

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"marathon-service/internal/app"
	"marathon-service/internal/domain"
)

// BoardStore is a Redis-aware implementation of app.BoardRepository.
// Notes:
//   - Boards still live in a local in-memory map so the in-process broadcast
//     logic keeps working.
//   - Redis holds a JSON snapshot of each board, written after every
//     mutation and restored on GetOrCreate, so the roster and ledger survive
//     restarts.
//   - Snapshot writes are best-effort; the in-memory board stays the source
//     of truth for the running process.
type BoardStore struct {
	client *redis.Client
	ttl    time.Duration
	mu     sync.RWMutex
	boards map[string]*app.Board
}

// NewBoardStore builds a store. ttl <= 0 keeps snapshots forever.
func NewBoardStore(client *redis.Client, ttl time.Duration) *BoardStore {
	return &BoardStore{
		client: client,
		ttl:    ttl,
		boards: make(map[string]*app.Board),
	}
}

func (s *BoardStore) GetOrCreate(marathonID string) *app.Board {
	s.mu.Lock()
	defer s.mu.Unlock()
	if board, ok := s.boards[marathonID]; ok {
		return board
	}

	board := s.restore(marathonID)
	if board == nil {
		board = app.NewBoard(marathonID)
	}
	board.OnChange(s.persist)
	s.boards[marathonID] = board
	return board
}

func (s *BoardStore) Get(marathonID string) (*app.Board, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	board, ok := s.boards[marathonID]
	return board, ok
}

func (s *BoardStore) restore(marathonID string) *app.Board {
	data, err := s.client.Get(context.Background(), s.key(marathonID)).Bytes()
	if err != nil || len(data) == 0 {
		return nil
	}
	var snapshot domain.BoardSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		log.Printf("discarding unreadable board snapshot for %s: %v", marathonID, err)
		return nil
	}
	return app.RestoreBoard(snapshot)
}

func (s *BoardStore) persist(snapshot domain.BoardSnapshot) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return
	}
	var expiry time.Duration
	if s.ttl > 0 {
		expiry = s.ttl
	}
	if err := s.client.Set(context.Background(), s.key(snapshot.MarathonID), data, expiry).Err(); err != nil {
		log.Printf("persist board %s: %v", snapshot.MarathonID, err)
	}
}

func (s *BoardStore) key(marathonID string) string {
	return "marathon:board:" + marathonID
}
