package domain

// Totals derives the display totals from a line-item list: count is the
// sum of quantities, amount the sum of item totals in cents. It is a
// pure function of the current list and is never cached.
func Totals(items []LineItem) (count int, amount int64) {
	for _, it := range items {
		count += it.Quantity
		amount += it.Product.Price * int64(it.Quantity)
	}
	return count, amount
}
