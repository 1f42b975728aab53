// Package state is the serialize/deserialize boundary for everything
// the storefront client persists between runs: bearer token, issue
// timestamp, cached profile and the guest cart. Storage loss is always
// survivable, a missing or corrupt snapshot degrades to an anonymous
// session with an empty guest cart.
package state

import (
	"time"

	"github.com/miorah/storefront/client"
	"github.com/miorah/storefront/internal/domain"
)

// State is the persisted snapshot. The JSON keys keep the storage names
// the web client used.
type State struct {
	Token          string            `json:"token,omitempty"`
	TokenTimestamp time.Time         `json:"tokenTimestamp"`
	UserInfo       *client.User      `json:"userInfo,omitempty"`
	CartItems      []domain.LineItem `json:"cartItems,omitempty"`
}

// Store loads and saves a State. Load must never fail on absent or
// unreadable storage; it returns the zero State instead.
type Store interface {
	Load() (State, error)
	Save(State) error
}
