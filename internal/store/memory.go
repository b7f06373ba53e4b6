// Package store provides storage backends for valsync.
//
// This file implements an in-memory store used in tests and one-off tooling.
package store

import (
	"sync"

	"github.com/edustack/valsync/internal/models"
)

// Compile-time check that InMemoryStore implements Store.
var _ Store = (*InMemoryStore)(nil)

// InMemoryStore keeps snapshots in memory. It supports injected save
// failures so engine tests can exercise persistence error paths.
type InMemoryStore struct {
	mu      sync.Mutex
	queue   []models.ValidationRequest
	history []models.HistoryRecord

	// FailNextSave makes the next SaveQueue or SaveHistory call return this
	// error, then clears itself.
	FailNextSave error

	saveQueueCalls   int
	saveHistoryCalls int
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) SaveQueue(queue []models.ValidationRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return err
	}
	s.queue = append([]models.ValidationRequest(nil), queue...)
	s.saveQueueCalls++
	return nil
}

func (s *InMemoryStore) LoadQueue() ([]models.ValidationRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ValidationRequest(nil), s.queue...), nil
}

func (s *InMemoryStore) SaveHistory(history []models.HistoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return err
	}
	s.history = append([]models.HistoryRecord(nil), history...)
	s.saveHistoryCalls++
	return nil
}

func (s *InMemoryStore) LoadHistory() ([]models.HistoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.HistoryRecord(nil), s.history...), nil
}

func (s *InMemoryStore) Close() error {
	return nil
}

// SaveQueueCalls reports how many queue snapshots were taken (for tests).
func (s *InMemoryStore) SaveQueueCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveQueueCalls
}

// SaveHistoryCalls reports how many history snapshots were taken (for tests).
func (s *InMemoryStore) SaveHistoryCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveHistoryCalls
}

func (s *InMemoryStore) takeFailure() error {
	if s.FailNextSave != nil {
		err := s.FailNextSave
		s.FailNextSave = nil
		return err
	}
	return nil
}
