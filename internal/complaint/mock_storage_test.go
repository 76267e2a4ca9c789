package complaint_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"incluverse/backend/internal/models"
	"incluverse/backend/internal/storage"

	"github.com/stretchr/testify/mock"
)

var errDiskFull = errors.New("disk full")

// memStore is an in-memory KVStore whose writes can be made to fail.
type memStore struct {
	mu        sync.Mutex
	data      map[string]string
	failWrite bool
	writes    int
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string]string)}
}

func (m *memStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", storage.ErrKeyNotFound
	}
	return v, nil
}

func (m *memStore) CompareAndSwap(_ context.Context, key, old, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite {
		return errDiskFull
	}
	cur, ok := m.data[key]
	if (old == "" && ok) || (old != "" && (!ok || cur != old)) {
		return storage.ErrConflict
	}
	m.writes++
	m.data[key] = value
	return nil
}

// put overwrites key unconditionally, as a foreign writer would.
func (m *memStore) put(key, value string) {
	m.mu.Lock()
	m.data[key] = value
	m.mu.Unlock()
}

func (m *memStore) setFailWrite(v bool) {
	m.mu.Lock()
	m.failWrite = v
	m.mu.Unlock()
}

// MockStorage is a testify mock of storage.KVStore for read-failure cases.
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) Get(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockStorage) CompareAndSwap(ctx context.Context, key, old, value string) error {
	args := m.Called(ctx, key, old, value)
	return args.Error(0)
}

// MockPublisher records published events.
type MockPublisher struct {
	mu     sync.Mutex
	events []models.ComplaintEvent
}

func (p *MockPublisher) Publish(e models.ComplaintEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *MockPublisher) Types() []models.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.EventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

// stepClock returns a fixed time that advances by step on every call.
func stepClock(start time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex
	now := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := now
		now = now.Add(step)
		return t
	}
}

// frozenClock always returns t, so every complaint is created in the same millisecond.
func frozenClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
