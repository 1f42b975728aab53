// Package repofake provides in-memory implementations of the repository
// interfaces for tests and local development.
package repofake

import (
	"context"
	"sync"
	"time"

	"github.com/miorah/storefront/internal/domain"
	"github.com/miorah/storefront/internal/repository"
)

type CartRepo struct {
	mu    sync.RWMutex
	carts map[string]*domain.Cart

	// Err, when set, is returned by every method. Lets tests simulate a
	// storage outage.
	Err error
}

func NewCartRepo() *CartRepo {
	return &CartRepo{carts: make(map[string]*domain.Cart)}
}

func (f *CartRepo) GetCart(_ context.Context, userID string) (*domain.Cart, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.Err != nil {
		return nil, f.Err
	}
	cart, ok := f.carts[userID]
	if !ok {
		return nil, repository.ErrCartNotFound
	}
	return copyCart(cart), nil
}

func (f *CartRepo) CreateCart(_ context.Context, userID string, items []domain.LineItem) (*domain.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	if _, ok := f.carts[userID]; ok {
		return nil, repository.ErrCartExists
	}
	now := time.Now()
	cart := &domain.Cart{
		ID:        "cart-" + userID,
		UserID:    userID,
		Items:     append([]domain.LineItem(nil), items...),
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.carts[userID] = cart
	return copyCart(cart), nil
}

func (f *CartRepo) ReplaceCart(_ context.Context, userID string, items []domain.LineItem) (*domain.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	cart, ok := f.carts[userID]
	if !ok {
		now := time.Now()
		cart = &domain.Cart{ID: "cart-" + userID, UserID: userID, CreatedAt: now}
		f.carts[userID] = cart
	}
	cart.Items = append([]domain.LineItem(nil), items...)
	cart.UpdatedAt = time.Now()
	return copyCart(cart), nil
}

func (f *CartRepo) DeleteCart(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	if _, ok := f.carts[userID]; !ok {
		return repository.ErrCartNotFound
	}
	delete(f.carts, userID)
	return nil
}

func copyCart(c *domain.Cart) *domain.Cart {
	out := *c
	out.Items = append([]domain.LineItem(nil), c.Items...)
	return &out
}

type UserRepo struct {
	mu    sync.RWMutex
	users map[string]*repository.User
}

func NewUserRepo() *UserRepo {
	return &UserRepo{users: make(map[string]*repository.User)}
}

func (f *UserRepo) GetByEmail(_ context.Context, email string) (*repository.User, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, u := range f.users {
		if u.Email == email {
			out := *u
			return &out, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (f *UserRepo) GetByID(_ context.Context, id string) (*repository.User, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	u, ok := f.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	out := *u
	return &out, nil
}

func (f *UserRepo) Create(_ context.Context, user *repository.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == user.Email {
			return repository.ErrEmailTaken
		}
	}
	cp := *user
	f.users[user.ID] = &cp
	return nil
}
