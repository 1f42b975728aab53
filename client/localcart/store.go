// Package localcart holds the guest cart: the line items a visitor
// accumulates before logging in. Mutations are pure in-memory list
// operations and never fail; persistence happens through the state
// boundary, not here.
package localcart

import (
	"sync"

	"github.com/miorah/storefront/internal/domain"
)

type Store struct {
	mu      sync.Mutex
	items   []domain.LineItem
	visible bool
}

func New() *Store {
	return &Store{}
}

// AddItem merges a product into the cart: an existing line gains
// quantity (capped at the per-line limit), a new product appends. An
// add also marks the cart drawer visible, matching the storefront UX.
// A non-positive quantity removes any existing line for the product.
func (s *Store) AddItem(p domain.Product, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	quantity = domain.ClampQuantity(quantity)
	if quantity == 0 {
		s.removeLocked(p.ID)
		return
	}

	s.visible = true
	for i := range s.items {
		if s.items[i].ProductID == p.ID {
			q := domain.ClampQuantity(s.items[i].Quantity + quantity)
			s.items[i].Quantity = q
			// Totals always use the current snapshot's undiscounted price.
			s.items[i].Product = p
			s.items[i].ItemTotal = p.Price * int64(q)
			return
		}
	}

	s.items = append(s.items, domain.LineItem{
		ProductID: p.ID,
		Product:   p,
		Quantity:  quantity,
		ItemTotal: p.Price * int64(quantity),
	})
}

// RemoveItem drops the line for productID, if present.
func (s *Store) RemoveItem(productID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(productID)
}

// SetQuantity pins a line to an explicit quantity, clamped into
// [0, cap]. Zero removes the line: the cart never holds zero-quantity
// entries (a transient 0 in an edit field is UI state, not cart state).
func (s *Store) SetQuantity(productID string, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	quantity = domain.ClampQuantity(quantity)
	if quantity == 0 {
		s.removeLocked(productID)
		return
	}

	for i := range s.items {
		if s.items[i].ProductID == productID {
			s.items[i].Quantity = quantity
			s.items[i].ItemTotal = s.items[i].Product.Price * int64(quantity)
			return
		}
	}
}

// Adjust shifts a line's quantity by delta (use +1/-1 for the stepper
// buttons). Dropping to zero removes the line.
func (s *Store) Adjust(productID string, delta int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].ProductID == productID {
			q := domain.ClampQuantity(s.items[i].Quantity + delta)
			if q == 0 {
				s.removeLocked(productID)
				return
			}
			s.items[i].Quantity = q
			s.items[i].ItemTotal = s.items[i].Product.Price * int64(q)
			return
		}
	}
}

// Clear empties the cart.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	s.visible = false
}

// Items returns a copy of the current line items.
func (s *Store) Items() []domain.LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.LineItem(nil), s.items...)
}

// Totals recomputes count and amount from the current items. Always
// derived, never patched incrementally.
func (s *Store) Totals() (count int, amount int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.Totals(s.items)
}

// Restore replaces the items wholesale, used when loading persisted
// guest state. Items are normalized on the way in.
func (s *Store) Restore(items []domain.LineItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = domain.Normalize(items)
}

// Visible reports whether the cart drawer should be shown.
func (s *Store) Visible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visible
}

func (s *Store) SetVisible(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visible = v
}

func (s *Store) removeLocked(productID string) {
	for i, it := range s.items {
		if it.ProductID == productID {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return
		}
	}
}
