package testsupport

import (
	"context"
	"sync"
	"time"

	"assetcdn/internal/store"
)

// StoredObject is an object held by MemoryStore.
type StoredObject struct {
	Body         []byte
	Headers      store.Headers
	LastModified time.Time
}

// MemoryStore is an in-memory store.Store with failure injection.
type MemoryStore struct {
	mu        sync.Mutex
	objects   map[string]StoredObject
	putCalls  map[string]int
	headCalls map[string]int
	putErrs   map[string][]error
	headErrs  map[string]error
	now       func() time.Time
}

// NewMemoryStore returns an empty store whose uploads are stamped with now.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects:   map[string]StoredObject{},
		putCalls:  map[string]int{},
		headCalls: map[string]int{},
		putErrs:   map[string][]error{},
		headErrs:  map[string]error{},
		now:       time.Now,
	}
}

// SetClock replaces the clock used to stamp uploads.
func (m *MemoryStore) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// Seed stores an object as if it had been uploaded at lastModified.
func (m *MemoryStore) Seed(key string, lastModified time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = StoredObject{LastModified: lastModified}
}

// FailPuts queues errors returned by the next Put calls for key, in order.
func (m *MemoryStore) FailPuts(key string, errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putErrs[key] = append(m.putErrs[key], errs...)
}

// FailHead makes every Head call for key return err.
func (m *MemoryStore) FailHead(key string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.headErrs[key] = err
}

func (m *MemoryStore) Head(ctx context.Context, key string) (store.ObjectMeta, error) {
	if err := ctx.Err(); err != nil {
		return store.ObjectMeta{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.headCalls[key]++
	if err := m.headErrs[key]; err != nil {
		return store.ObjectMeta{}, err
	}
	obj, ok := m.objects[key]
	if !ok {
		return store.ObjectMeta{}, store.ErrNotFound
	}
	return store.ObjectMeta{Key: key, LastModified: obj.LastModified, Size: int64(len(obj.Body))}, nil
}

func (m *MemoryStore) Put(ctx context.Context, key string, body []byte, headers store.Headers) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putCalls[key]++
	if queued := m.putErrs[key]; len(queued) > 0 {
		m.putErrs[key] = queued[1:]
		return queued[0]
	}
	m.objects[key] = StoredObject{
		Body:         append([]byte(nil), body...),
		Headers:      headers,
		LastModified: m.now(),
	}
	return nil
}

// Object returns the stored object for key.
func (m *MemoryStore) Object(key string) (StoredObject, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[key]
	return obj, ok
}

// PutCalls returns how many times Put was called for key.
func (m *MemoryStore) PutCalls(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.putCalls[key]
}

// TotalPuts returns the number of Put calls across all keys.
func (m *MemoryStore) TotalPuts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.putCalls {
		total += n
	}
	return total
}

// HeadCalls returns how many times Head was called for key.
func (m *MemoryStore) HeadCalls(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.headCalls[key]
}
