package upload

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// ErrNotFound is returned by Get for unknown ids and for records owned by a
// different user. The two cases are indistinguishable on purpose so lookups
// never leak the existence of another user's upload.
var ErrNotFound = errors.New("upload not found")

// StatusStore is the single source of truth for upload progress.
type StatusStore interface {
	// Create registers a new record. The upload id must be unused.
	Create(ctx context.Context, record *Record) error
	// Merge applies a partial update. Unknown ids are a silent no-op.
	Merge(ctx context.Context, uploadID string, patch Patch) error
	// Get returns the record only when requestingUserID owns it.
	Get(ctx context.Context, uploadID, requestingUserID string) (*Record, error)
	// ListByUser returns the user's records, newest first.
	ListByUser(ctx context.Context, userID string) ([]*Record, error)
}

// MemoryStore keeps upload records in process memory. Records survive for the
// process lifetime and are never deleted.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*Record),
		now:     time.Now,
	}
}

func (s *MemoryStore) Create(_ context.Context, record *Record) error {
	if record == nil || record.UploadID == "" {
		return errors.New("upload id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[record.UploadID]; exists {
		return fmt.Errorf("upload %s already exists", record.UploadID)
	}

	stored := record.clone()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = s.now()
	}
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = stored.CreatedAt
	}
	s.records[record.UploadID] = stored
	return nil
}

func (s *MemoryStore) Merge(_ context.Context, uploadID string, patch Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[uploadID]
	if !ok {
		return nil
	}
	record.apply(patch, s.now())
	return nil
}

func (s *MemoryStore) Get(_ context.Context, uploadID, requestingUserID string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[uploadID]
	if !ok || record.UserID != requestingUserID {
		return nil, ErrNotFound
	}
	return record.clone(), nil
}

func (s *MemoryStore) ListByUser(_ context.Context, userID string) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Record
	for _, record := range s.records {
		if record.UserID == userID {
			out = append(out, record.clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].UploadID > out[j].UploadID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
