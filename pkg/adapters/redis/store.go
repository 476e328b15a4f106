package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/crosscall/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key the adapters write.
const DefaultPrefix = "crosscall:slots:"

// farFuture is the index score of sets that never expire (2100-01-01).
const farFuture = 4102444800

// Store implements ports.SlotStore using Redis.
// Each set is one JSON document; a sorted set indexes pending ids by expiry.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

// Option configures the Store.
type Option func(*Store)

// WithTTL sets the expiration of outcome sets.
// A continuation that never runs leaves its set behind until then.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a Redis store connected to address.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: DefaultPrefix,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Client exposes the underlying client so a Locker can share it.
func (s *Store) Client() *backend.Client {
	return s.client
}

func (s *Store) key(id string) string {
	return s.prefix + id
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

// Save persists the outcomes to Redis.
func (s *Store) Save(ctx context.Context, id string, outcomes []domain.Outcome) error {
	if outcomes == nil {
		outcomes = []domain.Outcome{}
	}
	data, err := json.Marshal(outcomes)
	if err != nil {
		return fmt.Errorf("failed to marshal outcomes: %w", err)
	}

	score := float64(time.Now().Add(s.ttl).Unix())
	if s.ttl == 0 {
		score = farFuture
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.key(id), data, s.ttl)
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{
		Score:  score,
		Member: id,
	})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

func (s *Store) load(ctx context.Context, id string) ([]domain.Outcome, error) {
	val, err := s.client.Get(ctx, s.key(id)).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, fmt.Errorf("%s: %w", id, domain.ErrSlotsNotFound)
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var outcomes []domain.Outcome
	if err := json.Unmarshal([]byte(val), &outcomes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal outcomes: %w", err)
	}
	return outcomes, nil
}

// Slot reads one outcome of a set.
func (s *Store) Slot(ctx context.Context, id string, i int) (domain.Outcome, error) {
	outcomes, err := s.load(ctx, id)
	if err != nil {
		return domain.Outcome{}, err
	}
	if i < 0 || i >= len(outcomes) {
		return domain.Outcome{}, fmt.Errorf("slot %d of %d: %w", i, len(outcomes), domain.ErrSlotNotFound)
	}
	return outcomes[i], nil
}

// Count returns the number of slots of a set.
func (s *Store) Count(ctx context.Context, id string) (int, error) {
	outcomes, err := s.load(ctx, id)
	if err != nil {
		return 0, err
	}
	return len(outcomes), nil
}

// Delete removes a set.
func (s *Store) Delete(ctx context.Context, id string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.key(id))
	pipe.ZRem(ctx, s.indexKey(), id)

	_, err := pipe.Exec(ctx)
	return err
}

// List returns pending sets, pruning expired ones from the index first.
func (s *Store) List(ctx context.Context) ([]string, error) {
	now := float64(time.Now().Unix())

	err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to prune expired sets: %w", err)
	}

	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sets: %w", err)
	}
	return ids, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
