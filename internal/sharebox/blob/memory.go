package blob

import (
	"bytes"
	"context"
	"errors"
	"io"
	"maps"
	"slices"
	"sync"
)

// ErrInjected is returned by Memory when a failure has been scheduled.
var ErrInjected = errors.New("blob: injected failure")

// Memory keeps objects in a map. Failures can be injected per key for tests.
type Memory struct {
	mu         sync.Mutex
	objects    map[string][]byte
	failDelete map[string]bool
	failAllDel bool
	failPut    bool
}

func NewMemory() *Memory {
	return &Memory{
		objects:    make(map[string][]byte),
		failDelete: make(map[string]bool),
	}
}

func (m *Memory) Put(ctx context.Context, key string, r io.Reader, _ int64, _ string) error {
	if err := validKey(key); err != nil {
		return err
	}
	data, err := io.ReadAll(ctxReader{ctx: ctx, r: r})
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failPut {
		return ErrInjected
	}
	m.objects[key] = data
	return nil
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAllDel || m.failDelete[key] {
		return ErrInjected
	}
	delete(m.objects, key)
	return nil
}

func (m *Memory) Ping(ctx context.Context) error { return ctx.Err() }

// Get returns a copy of the object under key.
func (m *Memory) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, ErrNotFound
	}
	return bytes.Clone(data), nil
}

func (m *Memory) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok
}

// Keys returns the stored keys in sorted order.
func (m *Memory) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Sorted(maps.Keys(m.objects))
}

// FailDelete makes Delete fail for key until cleared with ok=false.
func (m *Memory) FailDelete(key string, fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if fail {
		m.failDelete[key] = true
	} else {
		delete(m.failDelete, key)
	}
}

// FailAllDeletes makes every Delete fail while set.
func (m *Memory) FailAllDeletes(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAllDel = fail
}

// FailPuts makes every Put fail while set.
func (m *Memory) FailPuts(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failPut = fail
}
