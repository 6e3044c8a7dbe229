package lock

import (
	"context"
	"errors"
	"sort"
	"sync"
)

var (
	// ErrBusy is returned when a key could not be acquired before ctx ended.
	ErrBusy = errors.New("resource is busy")
	// ErrLost is returned on unlock when the key no longer belongs to the holder.
	ErrLost = errors.New("lock was lost before release")
)

// Unlock releases a held key.
type Unlock func() error

// Locker grants exclusive access to a key until the returned Unlock is called.
type Locker interface {
	Lock(ctx context.Context, key string) (Unlock, error)
}

// Acquire locks every distinct key in sorted order, so callers locking
// overlapping sets cannot deadlock. Keys already held are released when a
// later key fails.
func Acquire(ctx context.Context, l Locker, keys ...string) (Unlock, error) {
	sorted := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	held := make([]Unlock, 0, len(sorted))
	release := func() error {
		var errs []error
		for i := len(held) - 1; i >= 0; i-- {
			if err := held[i](); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
	for _, k := range sorted {
		unlock, err := l.Lock(ctx, k)
		if err != nil {
			_ = release()
			return nil, err
		}
		held = append(held, unlock)
	}
	return release, nil
}

// KeyedMutex serializes holders of the same key within one process.
type KeyedMutex struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

// NewKeyedMutex builds an in-process locker.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{slots: make(map[string]chan struct{})}
}

func (m *KeyedMutex) slot(key string) chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.slots[key]
	if !ok {
		ch = make(chan struct{}, 1)
		m.slots[key] = ch
	}
	return ch
}

// Lock blocks until the key is free or ctx is done.
func (m *KeyedMutex) Lock(ctx context.Context, key string) (Unlock, error) {
	ch := m.slot(key)
	select {
	case ch <- struct{}{}:
		var once sync.Once
		return func() error {
			once.Do(func() { <-ch })
			return nil
		}, nil
	case <-ctx.Done():
		return nil, ErrBusy
	}
}
