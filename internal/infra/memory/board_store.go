package memory

import (
	"sync"

	"marathon-service/internal/app"
)

// BoardStore is an in-memory implementation of app.BoardRepository. Boards
// live for the length of the process; nothing is persisted.
type BoardStore struct {
	mu     sync.RWMutex
	boards map[string]*app.Board
}

func NewBoardStore() *BoardStore {
	return &BoardStore{
		boards: make(map[string]*app.Board),
	}
}

func (s *BoardStore) GetOrCreate(marathonID string) *app.Board {
	s.mu.Lock()
	defer s.mu.Unlock()
	if board, ok := s.boards[marathonID]; ok {
		return board
	}
	board := app.NewBoard(marathonID)
	s.boards[marathonID] = board
	return board
}

func (s *BoardStore) Get(marathonID string) (*app.Board, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	board, ok := s.boards[marathonID]
	return board, ok
}
