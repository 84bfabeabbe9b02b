package state

import (
	"context"
	"sync"
)

// memoryStore keeps labels in process memory; they are lost on restart.
type memoryStore struct {
	labels sync.Map // int64 -> State
}

// NewMemoryStore returns a Store for tests and single-instance development.
func NewMemoryStore() Store {
	return &memoryStore{}
}

func (m *memoryStore) Get(_ context.Context, userID int64) (State, bool, error) {
	v, ok := m.labels.Load(userID)
	if !ok {
		return "", false, nil
	}
	return v.(State), true, nil
}

func (m *memoryStore) Set(_ context.Context, userID int64, st State) error {
	m.labels.Store(userID, st)
	return nil
}
