package memory

import "testing"

func TestBoardStoreLifecycle(t *testing.T) {
	store := NewBoardStore()

	if _, ok := store.Get("marathon-1"); ok {
		t.Fatalf("expected no board before creation")
	}

	board := store.GetOrCreate("marathon-1")
	if board == nil {
		t.Fatalf("expected board")
	}
	if again := store.GetOrCreate("marathon-1"); again != board {
		t.Fatalf("expected the same board instance on repeat calls")
	}
	if got, ok := store.Get("marathon-1"); !ok || got != board {
		t.Fatalf("expected board present")
	}
}
