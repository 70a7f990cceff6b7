package courses

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore is a map-backed Store used in tests and for local
// development without a database.
type InMemoryStore struct {
	mu      sync.Mutex
	records map[uuid.UUID]Record
}

// NewInMemoryStore creates an empty in-memory course store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		records: make(map[uuid.UUID]Record),
	}
}

// Create implements Store.
func (s *InMemoryStore) Create(_ context.Context, params CreateParams) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	rec := Record{
		ID:           uuid.New(),
		Name:         params.Name,
		SenceCode:    params.SenceCode,
		ContactEmail: params.ContactEmail,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.records[rec.ID] = rec
	return rec, nil
}

// Update implements Store.
func (s *InMemoryStore) Update(_ context.Context, id uuid.UUID, params UpdateParams) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}

	if params.Name != nil {
		rec.Name = *params.Name
	}
	if params.SenceCode != nil {
		rec.SenceCode = params.SenceCode
	}
	if params.ContactEmail != nil {
		rec.ContactEmail = *params.ContactEmail
	}
	rec.UpdatedAt = time.Now()

	s.records[id] = rec
	return rec, nil
}

// GetByID implements Store.
func (s *InMemoryStore) GetByID(_ context.Context, id uuid.UUID) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

// List implements Store.
func (s *InMemoryStore) List(_ context.Context) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]Record, 0, len(s.records))
	for _, rec := range s.records {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})
	return records, nil
}
