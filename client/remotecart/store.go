// Package remotecart is the client-side view of the server-persisted
// cart. Once a user is authenticated this store is authoritative; the
// guest cart only feeds it through the merge.
package remotecart

import (
	"context"
	"errors"
	"net/http"

	"github.com/miorah/storefront/client"
	"github.com/miorah/storefront/internal/domain"
)

type Store struct {
	api           *client.Client
	onAuthFailure func()
}

type Option func(*Store)

// WithAuthFailureHandler registers the hook invoked when the server
// rejects the bearer token on any cart request. The session manager's
// forced-logout path is the usual handler; it runs at most once per
// session, so a burst of 401s cannot loop.
func WithAuthFailureHandler(fn func()) Option {
	return func(s *Store) {
		s.onAuthFailure = fn
	}
}

func New(api *client.Client, options ...Option) *Store {
	s := &Store{api: api}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// checkAuth fires the auth-failure hook for a rejected token before
// handing the error back.
func (s *Store) checkAuth(err error) error {
	if err != nil && s.onAuthFailure != nil && errors.Is(err, client.ErrAuthentication) {
		s.onAuthFailure()
	}
	return err
}

// Fetch returns the user's cart, or (nil, nil) when none exists yet.
// "No cart" is an expected state, not a failure; only transport and
// auth problems surface as errors.
func (s *Store) Fetch(ctx context.Context, userID string) (*domain.Cart, error) {
	var cart domain.Cart
	err := s.api.Do(ctx, http.MethodGet, "/cart/"+userID, nil, &cart)
	if err != nil {
		if errors.Is(err, client.ErrNotFound) {
			return nil, nil
		}
		return nil, s.checkAuth(err)
	}
	return &cart, nil
}

type createRequest struct {
	UserID   string            `json:"userId"`
	Products []domain.LineItem `json:"products"`
}

type replaceRequest struct {
	Products []domain.LineItem `json:"products"`
}

// Create makes a brand-new cart seeded with items. The server rejects a
// second cart per user with a conflict; callers fetch first and create
// only on the no-cart state.
func (s *Store) Create(ctx context.Context, userID string, items []domain.LineItem) (*domain.Cart, error) {
	var cart domain.Cart
	err := s.api.Do(ctx, http.MethodPost, "/cart", createRequest{UserID: userID, Products: items}, &cart)
	if err != nil {
		return nil, s.checkAuth(err)
	}
	return &cart, nil
}

// Replace swaps the full product list. There is no patch semantics:
// callers read, compute the complete new array, then replace.
func (s *Store) Replace(ctx context.Context, userID string, items []domain.LineItem) (*domain.Cart, error) {
	var cart domain.Cart
	err := s.api.Do(ctx, http.MethodPut, "/cart/"+userID, replaceRequest{Products: items}, &cart)
	if err != nil {
		return nil, s.checkAuth(err)
	}
	return &cart, nil
}

// AddItem is a read-modify-write: fetch the current items, merge the
// product in (same rule as the guest cart, match on product id and add
// quantities), replace.
func (s *Store) AddItem(ctx context.Context, userID string, p domain.Product, quantity int) (*domain.Cart, error) {
	current, err := s.Fetch(ctx, userID)
	if err != nil {
		return nil, err
	}

	incoming := []domain.LineItem{{
		ProductID: p.ID,
		Product:   p,
		Quantity:  quantity,
	}}

	if current == nil {
		return s.Create(ctx, userID, domain.Normalize(incoming))
	}
	return s.Replace(ctx, userID, domain.MergeItems(current.Items, incoming))
}

// DecrementItem lowers a line's quantity by one, removing the line when
// it would reach zero.
func (s *Store) DecrementItem(ctx context.Context, userID, productID string) (*domain.Cart, error) {
	current, err := s.Fetch(ctx, userID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, nil
	}

	items := make([]domain.LineItem, 0, len(current.Items))
	for _, it := range current.Items {
		if it.ProductID == productID {
			it.Quantity--
			if it.Quantity <= 0 {
				continue
			}
		}
		items = append(items, it)
	}
	return s.Replace(ctx, userID, items)
}

// DeleteItem removes a line entirely, regardless of its quantity.
func (s *Store) DeleteItem(ctx context.Context, userID, productID string) (*domain.Cart, error) {
	current, err := s.Fetch(ctx, userID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, nil
	}

	items := make([]domain.LineItem, 0, len(current.Items))
	for _, it := range current.Items {
		if it.ProductID == productID {
			continue
		}
		items = append(items, it)
	}
	return s.Replace(ctx, userID, items)
}

// Clear replaces the cart with an empty list.
func (s *Store) Clear(ctx context.Context, userID string) (*domain.Cart, error) {
	return s.Replace(ctx, userID, nil)
}
