// Package merge reconciles the guest cart into the user's server cart
// once per login session.
package merge

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/miorah/storefront/client/localcart"
	"github.com/miorah/storefront/client/remotecart"
	"github.com/miorah/storefront/client/session"
	"github.com/miorah/storefront/internal/domain"
)

type Coordinator struct {
	session *session.Manager
	remote  *remotecart.Store
	local   *localcart.Store
	logger  zerolog.Logger
}

func NewCoordinator(sess *session.Manager, remote *remotecart.Store, local *localcart.Store, logger zerolog.Logger) *Coordinator {
	return &Coordinator{
		session: sess,
		remote:  remote,
		local:   local,
		logger:  logger.With().Str("component", "cart_merge").Logger(),
	}
}

// Run performs the merge if the session guard admits it. The guard is
// marked done regardless of outcome so a persistent failure cannot
// cause a retry storm; a failed merge is reported, not fatal, and the
// guest items stay in the local store.
//
// The merge itself is idempotent: line items are keyed by product id,
// an id already on the server gains the guest quantity, a new id is
// inserted, and the result replaces the server list wholesale. Running
// it again with the guest items already absorbed changes nothing.
func (c *Coordinator) Run(ctx context.Context) error {
	userID, generation, ok := c.session.BeginMerge()
	if !ok {
		return nil
	}

	// Guest items are captured before any server call so a concurrent
	// local mutation cannot smear across the merge.
	guestItems := c.local.Items()

	err := c.merge(ctx, userID, guestItems)

	// One shot per session, success or not.
	c.session.FinishMerge(generation)

	if err != nil {
		c.logger.Warn().Err(err).Str("user_id", userID).Msg("cart merge failed, guest cart retained")
		return fmt.Errorf("cart merge: %w", err)
	}

	c.logger.Info().Str("user_id", userID).Int("guest_items", len(guestItems)).Msg("cart merged")
	return nil
}

func (c *Coordinator) merge(ctx context.Context, userID string, guestItems []domain.LineItem) error {
	serverCart, err := c.remote.Fetch(ctx, userID)
	if err != nil {
		return err
	}

	if serverCart == nil {
		if _, err := c.remote.Create(ctx, userID, domain.Normalize(guestItems)); err != nil {
			return err
		}
		return nil
	}

	if len(guestItems) == 0 {
		// Nothing to fold in; the server cart stands as-is.
		return nil
	}

	merged := domain.MergeItems(serverCart.Items, guestItems)
	if _, err := c.remote.Replace(ctx, userID, merged); err != nil {
		return err
	}
	return nil
}
