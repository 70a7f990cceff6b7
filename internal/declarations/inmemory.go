package declarations

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore is a map-backed Store with the same natural-key semantics
// as the database implementation. Used in tests and for local development
// without a database.
type InMemoryStore struct {
	mu      sync.Mutex
	records map[recordKey]Record

	// FailOn, when set, is consulted before every Upsert so tests can
	// inject per-record failures.
	FailOn func(rec Record) error
}

type recordKey struct {
	senceCode      string
	participantRut string
}

// NewInMemoryStore creates an empty in-memory declaration store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		records: make(map[recordKey]Record),
	}
}

// Upsert implements Store.
func (s *InMemoryStore) Upsert(_ context.Context, rec Record) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailOn != nil {
		if err := s.FailOn(rec); err != nil {
			return Record{}, err
		}
	}

	key := recordKey{senceCode: rec.SenceCode, participantRut: rec.ParticipantRut}
	now := time.Now()

	if existing, ok := s.records[key]; ok {
		existing.ParticipantName = rec.ParticipantName
		existing.SessionsAttended = rec.SessionsAttended
		existing.Status = rec.Status
		existing.UpdatedAt = now
		s.records[key] = existing
		return existing, nil
	}

	rec.ID = uuid.New()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	s.records[key] = rec
	return rec, nil
}

// ListBySenceCode implements Store.
func (s *InMemoryStore) ListBySenceCode(_ context.Context, senceCode string) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var records []Record
	for key, rec := range s.records {
		if key.senceCode == senceCode {
			records = append(records, rec)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].ParticipantRut < records[j].ParticipantRut
	})
	return records, nil
}

// Get implements Store.
func (s *InMemoryStore) Get(_ context.Context, senceCode, participantRut string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[recordKey{senceCode: senceCode, participantRut: participantRut}]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

// Len returns the number of stored records.
func (s *InMemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
