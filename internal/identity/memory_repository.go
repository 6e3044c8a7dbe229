package identity

import (
	"context"
	"sync"
)

type memoryRepository struct {
	mu    sync.RWMutex
	users map[string]User
}

// NewMemoryRepository builds an in-memory user store for testing.
func NewMemoryRepository() Repository {
	return &memoryRepository{users: make(map[string]User)}
}

func (r *memoryRepository) Create(_ context.Context, user User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.users[user.Phone]; exists {
		return ErrUserExists
	}
	r.users[user.Phone] = user
	return nil
}

func (r *memoryRepository) FindByPhone(_ context.Context, phone string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[phone]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return user, nil
}

func (r *memoryRepository) FindByID(_ context.Context, id string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, user := range r.users {
		if user.ID == id {
			return user, nil
		}
	}
	return User{}, ErrUserNotFound
}

func (r *memoryRepository) UpdateDevice(_ context.Context, id, deviceID string) error {
	return r.update(id, func(u *User) { u.DeviceID = deviceID })
}

func (r *memoryRepository) UpdateTokenVersion(_ context.Context, id string, version int) error {
	return r.update(id, func(u *User) { u.TokenVersion = version })
}

func (r *memoryRepository) update(id string, fn func(*User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for phone, user := range r.users {
		if user.ID == id {
			fn(&user)
			r.users[phone] = user
			return nil
		}
	}
	return ErrUserNotFound
}
