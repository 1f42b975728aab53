package localcart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miorah/storefront/internal/domain"
)

func product(id string, price int64) domain.Product {
	return domain.Product{ID: id, Name: "product " + id, Price: price}
}

func TestAddItem_NewProduct(t *testing.T) {
	s := New()
	s.AddItem(product("a", 1200), 2)

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, int64(2400), items[0].ItemTotal)
	assert.True(t, s.Visible())
}

func TestAddItem_SameProductMergesIntoOneLine(t *testing.T) {
	s := New()
	s.AddItem(product("a", 1200), 2)
	s.AddItem(product("a", 1200), 3)

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 5, items[0].Quantity)
	assert.Equal(t, int64(6000), items[0].ItemTotal)
}

func TestAddItem_CapsAtMaxQuantity(t *testing.T) {
	s := New()
	s.AddItem(product("a", 100), 80)
	s.AddItem(product("a", 100), 40)

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, domain.MaxQuantity, items[0].Quantity)
	assert.Equal(t, int64(100*domain.MaxQuantity), items[0].ItemTotal)
}

func TestAddItem_RecomputesTotalFromCurrentPrice(t *testing.T) {
	s := New()
	s.AddItem(product("a", 1000), 1)
	// Catalog price moved between adds; the stored snapshot and total
	// follow the latest undiscounted price.
	s.AddItem(product("a", 1200), 1)

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, int64(1200), items[0].Product.Price)
	assert.Equal(t, int64(2400), items[0].ItemTotal)
}

func TestRemoveItem(t *testing.T) {
	s := New()
	s.AddItem(product("a", 100), 1)
	s.AddItem(product("b", 200), 1)

	s.RemoveItem("a")

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "b", items[0].ProductID)

	// Removing an absent item is a no-op.
	s.RemoveItem("nope")
	assert.Len(t, s.Items(), 1)
}

func TestSetQuantity_Clamps(t *testing.T) {
	s := New()
	s.AddItem(product("a", 100), 1)

	s.SetQuantity("a", 150)
	assert.Equal(t, 100, s.Items()[0].Quantity)

	s.SetQuantity("a", -5)
	assert.Empty(t, s.Items(), "clamping to zero removes the line")
}

func TestAdjust_StepsAndRemovesAtZero(t *testing.T) {
	s := New()
	s.AddItem(product("a", 100), 2)

	s.Adjust("a", 1)
	assert.Equal(t, 3, s.Items()[0].Quantity)

	s.Adjust("a", -1)
	s.Adjust("a", -1)
	assert.Equal(t, 1, s.Items()[0].Quantity)

	s.Adjust("a", -1)
	assert.Empty(t, s.Items())
}

func TestTotals_AlwaysSumOfPriceTimesQuantity(t *testing.T) {
	s := New()
	s.AddItem(product("a", 1200), 2)
	s.AddItem(product("b", 500), 3)
	s.Adjust("b", -1)
	s.SetQuantity("a", 4)
	s.RemoveItem("b")
	s.AddItem(product("c", 50), 10)

	count, amount := s.Totals()
	items := s.Items()

	var wantCount int
	var wantAmount int64
	for _, it := range items {
		wantCount += it.Quantity
		wantAmount += it.Product.Price * int64(it.Quantity)
	}
	assert.Equal(t, wantCount, count)
	assert.Equal(t, wantAmount, amount)
	assert.Equal(t, int64(1200*4+50*10), amount)
}

func TestClear(t *testing.T) {
	s := New()
	s.AddItem(product("a", 100), 1)

	s.Clear()

	assert.Empty(t, s.Items())
	count, amount := s.Totals()
	assert.Zero(t, count)
	assert.Zero(t, amount)
	assert.False(t, s.Visible())
}

func TestRestore_Normalizes(t *testing.T) {
	s := New()
	s.Restore([]domain.LineItem{
		{ProductID: "a", Product: product("a", 100), Quantity: 150},
		{ProductID: "b", Product: product("b", 200), Quantity: 0},
	})

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 100, items[0].Quantity)
	assert.Equal(t, int64(10000), items[0].ItemTotal)
}
