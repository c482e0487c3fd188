package syncq

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/groblegark/sentinel/internal/model"
	"github.com/groblegark/sentinel/internal/remote"
	"github.com/groblegark/sentinel/internal/store"
)

// mockStore is a minimal in-memory store for engine tests.
type mockStore struct {
	mu       sync.Mutex
	events   map[string]*model.Event
	settings *model.Settings
	queue    map[string]*model.QueueItem
}

func newMockStore() *mockStore {
	return &mockStore{
		events: make(map[string]*model.Event),
		queue:  make(map[string]*model.QueueItem),
	}
}

func (m *mockStore) SaveEvent(_ context.Context, event *model.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *event
	m.events[event.ID] = &cp
	return nil
}

func (m *mockStore) GetEvent(_ context.Context, id string) (*model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *mockStore) ListEvents(_ context.Context, filter model.EventFilter) ([]*model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*model.Event
	for _, e := range m.events {
		if filter.OnlyUnsynced && e.Synced {
			continue
		}
		if filter.Kind != "" && e.Kind != filter.Kind {
			continue
		}
		if filter.Since != nil && e.Timestamp.Before(*filter.Since) {
			continue
		}
		cp := *e
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Timestamp.After(result[j].Timestamp)
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (m *mockStore) MarkEventSynced(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok {
		return store.ErrNotFound
	}
	e.Synced = true
	return nil
}

func (m *mockStore) RecordSyncAttempt(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok {
		return store.ErrNotFound
	}
	e.SyncAttempts++
	now := time.Now().UTC()
	e.LastSyncAttempt = &now
	return nil
}

func (m *mockStore) DeleteEventsBefore(_ context.Context, days int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	var deleted int
	for id, e := range m.events {
		if e.Synced && e.Timestamp.Before(cutoff) {
			delete(m.events, id)
			deleted++
		}
	}
	return deleted, nil
}

func (m *mockStore) SaveSettings(_ context.Context, settings *model.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *settings
	m.settings = &cp
	return nil
}

func (m *mockStore) GetSettings(_ context.Context) (*model.Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.settings == nil {
		return nil, store.ErrNotFound
	}
	cp := *m.settings
	return &cp, nil
}

func (m *mockStore) EnqueueSyncItem(_ context.Context, item *model.QueueItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *item
	m.queue[item.ID] = &cp
	return nil
}

func (m *mockStore) ListSyncQueue(_ context.Context, limit int) ([]*model.QueueItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*model.QueueItem
	for _, item := range m.queue {
		cp := *item
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Priority != result[j].Priority {
			return result[i].Priority > result[j].Priority
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *mockStore) RemoveSyncQueueItem(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.queue, id)
	return nil
}

func (m *mockStore) Stats(_ context.Context) (*model.StorageStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &model.StorageStats{
		TotalEvents: len(m.events),
		QueueLength: len(m.queue),
	}, nil
}

func (m *mockStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	return fn(m)
}

func (m *mockStore) Close() error { return nil }

// memObjects is an in-memory ObjectStore. Put failures can be injected to
// drive the retry path.
type memObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
	mtimes  map[string]time.Time
	failPut error
	puts    int
}

func newMemObjects() *memObjects {
	return &memObjects{
		objects: make(map[string][]byte),
		mtimes:  make(map[string]time.Time),
	}
}

func (m *memObjects) Put(_ context.Context, key string, data []byte, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts++
	if m.failPut != nil {
		return m.failPut
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	m.objects[key] = cp
	if _, ok := m.mtimes[key]; !ok {
		m.mtimes[key] = time.Now().UTC()
	}
	return nil
}

func (m *memObjects) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, &remote.Error{Kind: remote.KindNotFound, Err: fmt.Errorf("no such key %s", key)}
	}
	return data, nil
}

func (m *memObjects) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	delete(m.mtimes, key)
	return nil
}

func (m *memObjects) List(_ context.Context, prefix string) ([]remote.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var infos []remote.ObjectInfo
	for key, data := range m.objects {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		infos = append(infos, remote.ObjectInfo{Key: key, Size: int64(len(data)), LastModified: m.mtimes[key]})
	}
	return infos, nil
}

func (m *memObjects) setFailPut(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failPut = err
}

func (m *memObjects) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok
}

// capturingPublisher records published topics.
type capturingPublisher struct {
	mu     sync.Mutex
	topics []string
}

func (p *capturingPublisher) Publish(_ context.Context, topic string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	return nil
}

func (p *capturingPublisher) Close() error { return nil }

func (p *capturingPublisher) published(topic string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, t := range p.topics {
		if t == topic {
			return true
		}
	}
	return false
}
