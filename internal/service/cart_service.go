package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/miorah/storefront/internal/cache"
	"github.com/miorah/storefront/internal/domain"
	"github.com/miorah/storefront/internal/repository"
)

// CartService fronts the cart repository with a read-through cache.
// "No cart yet" surfaces as repository.ErrCartNotFound; the HTTP layer
// translates it, callers here must not treat it as an outage.
type CartService struct {
	repo   repository.CartRepository
	cache  cache.CartCache
	logger zerolog.Logger
	sfg    singleflight.Group // collapses concurrent cache misses per user
}

func NewCartService(repo repository.CartRepository, cc cache.CartCache, logger zerolog.Logger) *CartService {
	return &CartService{
		repo:   repo,
		cache:  cc,
		logger: logger.With().Str("component", "cart_service").Logger(),
	}
}

func (s *CartService) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	v, err, _ := s.sfg.Do(userID, func() (interface{}, error) {
		cart, err := s.cache.Get(ctx, userID)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			// Cache trouble is not fatal, fall through to the repository.
			s.logger.Warn().Err(err).Str("user_id", userID).Msg("cart cache get failed")
		}

		cart, err = s.repo.GetCart(ctx, userID)
		if err != nil {
			return nil, err
		}

		// Fill synchronously: an async fill can land after a later
		// invalidation and pin a deleted cart in the cache.
		if err := s.cache.Set(ctx, userID, cart); err != nil {
			s.logger.Warn().Err(err).Str("user_id", userID).Msg("cart cache set failed")
		}

		return cart, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Cart), nil
}

// CreateCart makes the user's cart with an initial item list. The
// one-cart-per-user invariant comes back as repository.ErrCartExists.
func (s *CartService) CreateCart(ctx context.Context, userID string, items []domain.LineItem) (*domain.Cart, error) {
	cart, err := s.repo.CreateCart(ctx, userID, domain.Normalize(items))
	if err != nil {
		return nil, err
	}

	s.invalidate(userID)
	return cart, nil
}

// ReplaceCart swaps the full item list, creating the cart when absent.
// Writes are last-write-wins; two tabs replacing concurrently race and
// the later write sticks.
func (s *CartService) ReplaceCart(ctx context.Context, userID string, items []domain.LineItem) (*domain.Cart, error) {
	cart, err := s.repo.ReplaceCart(ctx, userID, domain.Normalize(items))
	if err != nil {
		return nil, err
	}

	s.invalidate(userID)
	return cart, nil
}

// ClearCart drops the cart document. Clearing an absent cart is a
// no-op, not an error.
func (s *CartService) ClearCart(ctx context.Context, userID string) error {
	err := s.repo.DeleteCart(ctx, userID)
	if err != nil && !errors.Is(err, repository.ErrCartNotFound) {
		return err
	}

	s.invalidate(userID)
	return nil
}

func (s *CartService) invalidate(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, userID); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("cart cache invalidate failed")
	}
}
