package slots

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/crosscall/internal/logging"
	"github.com/aretw0/crosscall/pkg/domain"
	"github.com/aretw0/crosscall/pkg/ports"
)

// DefaultLockTTL bounds how long a distributed lock outlives a crashed holder.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager serializes work per key and persists outcome sets.
// It uses reference counting to garbage collect unused locks.
type Manager struct {
	store ports.SlotStore

	mu    sync.Mutex            // guards locks
	locks map[string]*lockEntry // active locks

	locker  ports.DistributedLocker
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the expiry of distributed locks.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = ttl
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a Manager backed by store.
func NewManager(store ports.SlotStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST lock entry.mu, and call release(key) after unlocking.
func (m *Manager) acquire(key string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[key]
	if !exists {
		entry = &lockEntry{}
		m.locks[key] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[key]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, key)
	}
}

// ActiveLocks returns the number of keys currently held or waited on.
func (m *Manager) ActiveLocks() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}

// WithLock executes fn while holding the lock for key.
func (m *Manager) WithLock(ctx context.Context, key string, fn func(context.Context) error) error {
	entry := m.acquire(key)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(key)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, key, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			// The caller's context may already be canceled; the unlock must still go out.
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"key", key,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

// Save persists an outcome set.
func (m *Manager) Save(ctx context.Context, id string, outcomes []domain.Outcome) error {
	return m.WithLock(ctx, id, func(ctx context.Context) error {
		return m.store.Save(ctx, id, outcomes)
	})
}

// Delete removes an outcome set.
func (m *Manager) Delete(ctx context.Context, id string) error {
	return m.WithLock(ctx, id, func(ctx context.Context) error {
		return m.store.Delete(ctx, id)
	})
}

// Reader returns an OutcomeReader over set id. Reads go straight to the store.
func (m *Manager) Reader(ctx context.Context, id string) (ports.OutcomeReader, error) {
	n, err := m.store.Count(ctx, id)
	if err != nil {
		return nil, err
	}
	return &reader{ctx: ctx, store: m.store, id: id, count: n}, nil
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying slot store.
func (m *Manager) Store() ports.SlotStore {
	return m.store
}

type reader struct {
	ctx   context.Context
	store ports.SlotStore
	id    string
	count int
}

func (r *reader) OutcomeCount() int {
	return r.count
}

func (r *reader) Outcome(i int) (domain.Outcome, error) {
	if i < 0 || i >= r.count {
		return domain.Outcome{}, fmt.Errorf("slot %d of %d: %w", i, r.count, domain.ErrSlotNotFound)
	}
	return r.store.Slot(r.ctx, r.id, i)
}

// Empty is an OutcomeReader with no slots, used for invocations that are not continuations.
var Empty ports.OutcomeReader = emptyReader{}

type emptyReader struct{}

func (emptyReader) OutcomeCount() int { return 0 }

func (emptyReader) Outcome(i int) (domain.Outcome, error) {
	return domain.Outcome{}, fmt.Errorf("slot %d of 0: %w", i, domain.ErrSlotNotFound)
}
