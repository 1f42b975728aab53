package domain

import "time"

// MaxQuantity is the per-line quantity cap. It is enforced on every
// write path, client and server alike.
const MaxQuantity = 100

// Product is a snapshot of catalog data taken at the time an item is
// added to a cart. Price is the undiscounted unit price in cents; line
// totals are always computed from it, never from a discounted price.
type Product struct {
	ID    string `json:"id" bson:"product_id"`
	Name  string `json:"name" bson:"name"`
	Price int64  `json:"price" bson:"price"`
	Image string `json:"image,omitempty" bson:"image,omitempty"`
}

// LineItem is one entry in a cart. ItemTotal is derived from
// Product.Price and Quantity and is recomputed on every mutation.
type LineItem struct {
	ProductID string  `json:"id" bson:"product_id"`
	Product   Product `json:"product" bson:"product"`
	Quantity  int     `json:"quantity" bson:"quantity"`
	ItemTotal int64   `json:"itemTotal" bson:"item_total"`
}

// Cart is the server-side cart document. One document per user,
// enforced by a unique index on user_id.
type Cart struct {
	ID        string     `json:"_id,omitempty" bson:"_id,omitempty"`
	UserID    string     `json:"userId" bson:"user_id"`
	Items     []LineItem `json:"products" bson:"items"`
	CreatedAt time.Time  `json:"createdAt,omitempty" bson:"created_at"`
	UpdatedAt time.Time  `json:"updatedAt,omitempty" bson:"updated_at"`
}

// ClampQuantity bounds q into [0, MaxQuantity].
func ClampQuantity(q int) int {
	if q < 0 {
		return 0
	}
	if q > MaxQuantity {
		return MaxQuantity
	}
	return q
}

// Normalize clamps every quantity into [1, MaxQuantity] and recomputes
// item totals. Lines whose quantity clamps to zero are dropped, a cart
// never holds zero-quantity entries.
func Normalize(items []LineItem) []LineItem {
	out := make([]LineItem, 0, len(items))
	for _, it := range items {
		q := ClampQuantity(it.Quantity)
		if q == 0 {
			continue
		}
		it.Quantity = q
		it.ItemTotal = it.Product.Price * int64(q)
		out = append(out, it)
	}
	return out
}

// MergeItems folds incoming line items into base. Items are matched by
// product id: a match adds quantities (clamped to MaxQuantity), a miss
// appends the incoming item. Base ordering is preserved and incoming
// items keep their relative order. The result is normalized, so merging
// is idempotent once the incoming set has been absorbed.
func MergeItems(base, incoming []LineItem) []LineItem {
	merged := make([]LineItem, len(base))
	copy(merged, base)

	index := make(map[string]int, len(merged))
	for i, it := range merged {
		index[it.ProductID] = i
	}

	for _, in := range incoming {
		if i, ok := index[in.ProductID]; ok {
			merged[i].Quantity = ClampQuantity(merged[i].Quantity + in.Quantity)
		} else {
			index[in.ProductID] = len(merged)
			merged = append(merged, in)
		}
	}

	return Normalize(merged)
}
