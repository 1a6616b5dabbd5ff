package upload

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/streamhive/upload-service/pkg/config"
	"github.com/streamhive/upload-service/pkg/redis"
)

// statusClient is the slice of the Redis client the store consumes.
type statusClient interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	ZAddWithTTL(ctx context.Context, key string, score float64, member string, ttl time.Duration) error
	ZRevRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	StatusKey(uploadID string) string
	UserUploadsKey(userID string) string
}

// RedisStore persists upload records in Redis so status survives process
// restarts. Records live under a per-upload key and a per-user sorted set
// indexes them by creation time.
type RedisStore struct {
	client statusClient
	ttl    time.Duration
	now    func() time.Time

	// merges serializes read-merge-write cycles per upload id within this
	// process so concurrent stage updates cannot clobber each other.
	merges [mergeShards]sync.Mutex
}

const mergeShards = 64

func (s *RedisStore) mergeLock(uploadID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(uploadID))
	return &s.merges[h.Sum32()%mergeShards]
}

func NewRedisStore(client *redis.Client, cfg config.StatusConfig) *RedisStore {
	return &RedisStore{
		client: client,
		ttl:    cfg.TTL,
		now:    time.Now,
	}
}

func (s *RedisStore) Create(ctx context.Context, record *Record) error {
	if record == nil || record.UploadID == "" {
		return errors.New("upload id is required")
	}

	stored := record.clone()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = s.now()
	}
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = stored.CreatedAt
	}

	raw, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("encoding upload record: %w", err)
	}

	key := s.client.StatusKey(stored.UploadID)
	created, err := s.client.SetNX(ctx, key, string(raw), s.ttl)
	if err != nil {
		return fmt.Errorf("writing upload record: %w", err)
	}
	if !created {
		return fmt.Errorf("upload %s already exists", stored.UploadID)
	}

	indexKey := s.client.UserUploadsKey(stored.UserID)
	score := float64(stored.CreatedAt.UnixNano())
	if err := s.client.ZAddWithTTL(ctx, indexKey, score, stored.UploadID, s.ttl); err != nil {
		return fmt.Errorf("indexing upload %s: %w", stored.UploadID, err)
	}
	return nil
}

func (s *RedisStore) Merge(ctx context.Context, uploadID string, patch Patch) error {
	lock := s.mergeLock(uploadID)
	lock.Lock()
	defer lock.Unlock()

	key := s.client.StatusKey(uploadID)
	record, err := s.read(ctx, key)
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return err
	}

	record.apply(patch, s.now())
	return s.write(ctx, key, record)
}

func (s *RedisStore) Get(ctx context.Context, uploadID, requestingUserID string) (*Record, error) {
	record, err := s.read(ctx, s.client.StatusKey(uploadID))
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if record.UserID != requestingUserID {
		return nil, ErrNotFound
	}
	return record, nil
}

func (s *RedisStore) ListByUser(ctx context.Context, userID string) ([]*Record, error) {
	ids, err := s.client.ZRevRange(ctx, s.client.UserUploadsKey(userID), 0, -1)
	if err != nil {
		return nil, fmt.Errorf("listing uploads for user %s: %w", userID, err)
	}

	var out []*Record
	for _, id := range ids {
		record, err := s.read(ctx, s.client.StatusKey(id))
		if errors.Is(err, redis.Nil) {
			// record expired after the index entry; skip
			continue
		}
		if err != nil {
			return nil, err
		}
		if record.UserID == userID {
			out = append(out, record)
		}
	}
	return out, nil
}

func (s *RedisStore) read(ctx context.Context, key string) (*Record, error) {
	raw, err := s.client.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	var record Record
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return nil, fmt.Errorf("decoding upload record: %w", err)
	}
	return &record, nil
}

func (s *RedisStore) write(ctx context.Context, key string, record *Record) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encoding upload record: %w", err)
	}
	if err := s.client.Set(ctx, key, string(raw), s.ttl); err != nil {
		return fmt.Errorf("writing upload record: %w", err)
	}
	return nil
}
