// Package poller consumes order events and empties the buyer's cart.
// The order pipeline publishes an event when checkout completes; the
// cart is cleared here rather than inline in the order flow so a slow
// cart write never delays order placement.
package poller

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/miorah/storefront/internal/service"
)

const Topic = "order-completed"

// messageReader is the slice of kafka.Reader the poller needs. Tests
// substitute a fake.
type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type orderCompletedEvent struct {
	OrderID string `json:"order_id"`
	UserID  string `json:"user_id"`
}

type Poller struct {
	carts  *service.CartService
	reader messageReader
	logger zerolog.Logger
}

func New(carts *service.CartService, logger zerolog.Logger, brokers ...string) *Poller {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    Topic,
		GroupID:  "storefront-cart-consumer",
		MaxBytes: 10e6, // 10MB
	})
	return newWithReader(carts, reader, logger)
}

func newWithReader(carts *service.CartService, reader messageReader, logger zerolog.Logger) *Poller {
	return &Poller{
		carts:  carts,
		reader: reader,
		logger: logger.With().Str("component", "order_poller").Logger(),
	}
}

// Run blocks until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		p.consumeOne(ctx)
	}
}

func (p *Poller) Close() {
	if err := p.reader.Close(); err != nil {
		p.logger.Warn().Err(err).Msg("failed to close kafka reader")
	}
}

func (p *Poller) consumeOne(ctx context.Context) {
	m, err := p.reader.ReadMessage(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			p.logger.Warn().Err(err).Msg("failed to read order event")
		}
		return
	}

	var event orderCompletedEvent
	if err := json.Unmarshal(m.Value, &event); err != nil {
		p.logger.Warn().Err(err).Msg("malformed order event")
		return
	}
	if event.UserID == "" {
		p.logger.Warn().Msg("order event missing user_id")
		return
	}

	if err := p.carts.ClearCart(ctx, event.UserID); err != nil {
		p.logger.Error().Err(err).Str("user_id", event.UserID).Str("order_id", event.OrderID).Msg("failed to clear cart after order")
		return
	}

	p.logger.Info().Str("user_id", event.UserID).Str("order_id", event.OrderID).Msg("cart cleared after order")
}
