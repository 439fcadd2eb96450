package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockDistributedLock keeps named locks in memory with expiry. The Fn
// hooks replace the in-memory behaviour when set.
type MockDistributedLock struct {
	mu       sync.Mutex
	expiries map[string]time.Time
	acquires int

	AcquireFn func(name string, ttl time.Duration) (bool, error)
	ReleaseFn func(name string) error
	ExtendFn  func(name string, ttl time.Duration) error
	PingFn    func() error
}

func NewMockDistributedLock() *MockDistributedLock {
	return &MockDistributedLock{expiries: make(map[string]time.Time)}
}

func (m *MockDistributedLock) Acquire(_ context.Context, name string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	m.acquires++
	m.mu.Unlock()

	if m.AcquireFn != nil {
		return m.AcquireFn(name, ttl)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.heldLocked(name) {
		return false, nil
	}
	m.expiries[name] = time.Now().Add(ttl)
	return true, nil
}

func (m *MockDistributedLock) Release(_ context.Context, name string) error {
	if m.ReleaseFn != nil {
		return m.ReleaseFn(name)
	}
	m.mu.Lock()
	delete(m.expiries, name)
	m.mu.Unlock()
	return nil
}

func (m *MockDistributedLock) Extend(_ context.Context, name string, ttl time.Duration) error {
	if m.ExtendFn != nil {
		return m.ExtendFn(name, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.heldLocked(name) {
		return fmt.Errorf("lock %q not held", name)
	}
	m.expiries[name] = time.Now().Add(ttl)
	return nil
}

func (m *MockDistributedLock) Ping(context.Context) error {
	if m.PingFn != nil {
		return m.PingFn()
	}
	return nil
}

// IsHeld reports whether name is locked and unexpired
func (m *MockDistributedLock) IsHeld(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.heldLocked(name)
}

// SetLockHeld simulates another instance holding name for ttl.
func (m *MockDistributedLock) SetLockHeld(name string, ttl time.Duration) {
	m.mu.Lock()
	m.expiries[name] = time.Now().Add(ttl)
	m.mu.Unlock()
}

// Acquisitions counts Acquire calls, including hooked ones
func (m *MockDistributedLock) Acquisitions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.acquires
}

func (m *MockDistributedLock) heldLocked(name string) bool {
	exp, ok := m.expiries[name]
	return ok && time.Now().Before(exp)
}
