// Package storefront bundles the cart and session pieces into the
// client the UI talks to. It decides which cart is authoritative:
// the server cart once a user is logged in, the guest cart otherwise.
package storefront

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/miorah/storefront/client"
	"github.com/miorah/storefront/client/localcart"
	"github.com/miorah/storefront/client/merge"
	"github.com/miorah/storefront/client/remotecart"
	"github.com/miorah/storefront/client/session"
	"github.com/miorah/storefront/client/state"
	"github.com/miorah/storefront/internal/domain"
)

type Storefront struct {
	API     *client.Client
	Session *session.Manager
	Local   *localcart.Store
	Remote  *remotecart.Store

	merger *merge.Coordinator
	logger zerolog.Logger
}

func New(baseURL string, store state.Store, logger zerolog.Logger, sessionOpts ...session.Option) *Storefront {
	api := client.New(baseURL)
	local := localcart.New()
	sess := session.NewManager(api, store, local, logger, sessionOpts...)
	// A 401 on any cart request means the token was invalidated
	// elsewhere; the session's forced-logout path handles it once.
	remote := remotecart.New(api, remotecart.WithAuthFailureHandler(sess.HandleAuthFailure))

	return &Storefront{
		API:     api,
		Session: sess,
		Local:   local,
		Remote:  remote,
		merger:  merge.NewCoordinator(sess, remote, local, logger),
		logger:  logger.With().Str("component", "storefront").Logger(),
	}
}

// Login authenticates and fires the one-shot guest-cart merge. A merge
// failure does not fail the login; the user keeps shopping against
// whichever store is reachable and the guard stops retry storms.
func (s *Storefront) Login(ctx context.Context, email, password string) error {
	if err := s.Session.Login(ctx, email, password); err != nil {
		return err
	}

	if err := s.merger.Run(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("post-login cart merge failed")
	}
	return nil
}

// Logout clears the session and both carts' client-side state.
func (s *Storefront) Logout(ctx context.Context) {
	s.Session.Logout(ctx)
}

func (s *Storefront) authenticatedUserID() string {
	if u := s.Session.User(); u != nil && s.Session.Token() != "" {
		return u.ID
	}
	return ""
}

// ActiveItems returns the authoritative line-item list: the server cart
// for an authenticated user, the guest cart otherwise. A missing server
// cart reads as empty.
func (s *Storefront) ActiveItems(ctx context.Context) ([]domain.LineItem, error) {
	userID := s.authenticatedUserID()
	if userID == "" {
		return s.Local.Items(), nil
	}

	cart, err := s.Remote.Fetch(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, nil
	}
	return cart.Items, nil
}

// ActiveTotals derives the display totals from the authoritative list.
func (s *Storefront) ActiveTotals(ctx context.Context) (count int, amount int64, err error) {
	items, err := s.ActiveItems(ctx)
	if err != nil {
		return 0, 0, err
	}
	count, amount = domain.Totals(items)
	return count, amount, nil
}

// AddToCart routes an add to the authoritative store and persists the
// guest cart when anonymous.
func (s *Storefront) AddToCart(ctx context.Context, p domain.Product, quantity int) error {
	userID := s.authenticatedUserID()
	if userID == "" {
		s.Local.AddItem(p, quantity)
		s.Session.Persist()
		return nil
	}

	_, err := s.Remote.AddItem(ctx, userID, p, quantity)
	return err
}

// RemoveFromCart deletes a line entirely, whatever its quantity.
func (s *Storefront) RemoveFromCart(ctx context.Context, productID string) error {
	userID := s.authenticatedUserID()
	if userID == "" {
		s.Local.RemoveItem(productID)
		s.Session.Persist()
		return nil
	}

	_, err := s.Remote.DeleteItem(ctx, userID, productID)
	return err
}

// DecrementFromCart lowers a line by one, removing it at zero.
func (s *Storefront) DecrementFromCart(ctx context.Context, productID string) error {
	userID := s.authenticatedUserID()
	if userID == "" {
		s.Local.Adjust(productID, -1)
		s.Session.Persist()
		return nil
	}

	_, err := s.Remote.DecrementItem(ctx, userID, productID)
	return err
}

// ClearCart empties the authoritative cart.
func (s *Storefront) ClearCart(ctx context.Context) error {
	userID := s.authenticatedUserID()
	if userID == "" {
		s.Local.Clear()
		s.Session.Persist()
		return nil
	}

	_, err := s.Remote.Clear(ctx, userID)
	return err
}
