package remotecart

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miorah/storefront/client"
	"github.com/miorah/storefront/internal/domain"
)

// fakeCartServer holds one cart per user behind the wire contract the
// real gateway speaks.
type fakeCartServer struct {
	mu    sync.Mutex
	carts map[string][]domain.LineItem
}

func newFakeCartServer() *fakeCartServer {
	return &fakeCartServer{carts: map[string][]domain.LineItem{}}
}

func (f *fakeCartServer) start(t *testing.T) *Store {
	t.Helper()

	writeJSON := func(w http.ResponseWriter, status int, v interface{}) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /cart/", func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimPrefix(r.URL.Path, "/cart/")
		f.mu.Lock()
		items, ok := f.carts[userID]
		f.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "cart not found", "code": "cart_not_found"})
			return
		}
		writeJSON(w, http.StatusOK, domain.Cart{ID: "c1", UserID: userID, Items: items})
	})
	mux.HandleFunc("POST /cart", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			UserID   string            `json:"userId"`
			Products []domain.LineItem `json:"products"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		f.mu.Lock()
		_, exists := f.carts[req.UserID]
		if !exists {
			f.carts[req.UserID] = req.Products
		}
		f.mu.Unlock()
		if exists {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "cart already exists", "code": "cart_exists"})
			return
		}
		writeJSON(w, http.StatusCreated, domain.Cart{ID: "c1", UserID: req.UserID, Items: req.Products})
	})
	mux.HandleFunc("PUT /cart/", func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimPrefix(r.URL.Path, "/cart/")
		var req struct {
			Products []domain.LineItem `json:"products"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		f.mu.Lock()
		f.carts[userID] = req.Products
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, domain.Cart{ID: "c1", UserID: userID, Items: req.Products})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return New(client.New(srv.URL))
}

func ring() domain.Product {
	return domain.Product{ID: "r1", Name: "Silver Ring", Price: 2500}
}

func bracelet() domain.Product {
	return domain.Product{ID: "b1", Name: "Charm Bracelet", Price: 3100}
}

func line(p domain.Product, qty int) domain.LineItem {
	return domain.LineItem{ProductID: p.ID, Product: p, Quantity: qty, ItemTotal: p.Price * int64(qty)}
}

func TestFetch_NoCartIsNilNotError(t *testing.T) {
	f := newFakeCartServer()
	store := f.start(t)

	cart, err := store.Fetch(context.Background(), "u1")
	require.NoError(t, err)
	assert.Nil(t, cart)
}

func TestRejectedTokenFiresAuthFailureHandler(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "token is no longer valid", "code": "token_revoked"})
	}))
	t.Cleanup(srv.Close)

	var fired int
	store := New(client.New(srv.URL), WithAuthFailureHandler(func() { fired++ }))

	_, err := store.Fetch(context.Background(), "u1")
	require.Error(t, err)
	assert.ErrorIs(t, err, client.ErrAuthentication)
	assert.Equal(t, 1, fired)

	_, err = store.Replace(context.Background(), "u1", []domain.LineItem{line(ring(), 1)})
	require.Error(t, err)
	assert.ErrorIs(t, err, client.ErrAuthentication)
	assert.Equal(t, 2, fired)
}

func TestNotFoundDoesNotFireAuthFailureHandler(t *testing.T) {
	var fired int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "cart not found", "code": "cart_not_found"})
	}))
	t.Cleanup(srv.Close)

	store := New(client.New(srv.URL), WithAuthFailureHandler(func() { fired++ }))

	cart, err := store.Fetch(context.Background(), "u1")
	require.NoError(t, err)
	assert.Nil(t, cart)
	assert.Zero(t, fired)
}

func TestFetch_NetworkFailureIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	store := New(client.New(srv.URL))

	_, err := store.Fetch(context.Background(), "u1")
	require.Error(t, err)
	assert.ErrorIs(t, err, client.ErrNetwork)
}

func TestCreate_ThenFetch(t *testing.T) {
	f := newFakeCartServer()
	store := f.start(t)

	created, err := store.Create(context.Background(), "u1", []domain.LineItem{line(ring(), 2)})
	require.NoError(t, err)
	require.Len(t, created.Items, 1)

	cart, err := store.Fetch(context.Background(), "u1")
	require.NoError(t, err)
	require.NotNil(t, cart)
	assert.Equal(t, 2, cart.Items[0].Quantity)
}

func TestCreate_DuplicateIsConflict(t *testing.T) {
	f := newFakeCartServer()
	store := f.start(t)

	_, err := store.Create(context.Background(), "u1", []domain.LineItem{line(ring(), 1)})
	require.NoError(t, err)

	_, err = store.Create(context.Background(), "u1", []domain.LineItem{line(ring(), 1)})
	require.Error(t, err)
	assert.ErrorIs(t, err, client.ErrConflict)
}

func TestAddItem_CreatesWhenNoCart(t *testing.T) {
	f := newFakeCartServer()
	store := f.start(t)

	cart, err := store.AddItem(context.Background(), "u1", ring(), 2)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, int64(5000), cart.Items[0].ItemTotal)
}

func TestAddItem_MergesIntoExistingLine(t *testing.T) {
	f := newFakeCartServer()
	store := f.start(t)
	f.carts["u1"] = []domain.LineItem{line(ring(), 1), line(bracelet(), 1)}

	cart, err := store.AddItem(context.Background(), "u1", ring(), 2)
	require.NoError(t, err)
	require.Len(t, cart.Items, 2)
	assert.Equal(t, 3, cart.Items[0].Quantity)
	assert.Equal(t, int64(7500), cart.Items[0].ItemTotal)
	assert.Equal(t, 1, cart.Items[1].Quantity)
}

func TestDecrementItem_RemovesLineAtZero(t *testing.T) {
	f := newFakeCartServer()
	store := f.start(t)
	f.carts["u1"] = []domain.LineItem{line(ring(), 1), line(bracelet(), 2)}

	cart, err := store.DecrementItem(context.Background(), "u1", "r1")
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "b1", cart.Items[0].ProductID)

	cart, err = store.DecrementItem(context.Background(), "u1", "b1")
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 1, cart.Items[0].Quantity)
}

func TestDeleteItem_DropsLineRegardlessOfQuantity(t *testing.T) {
	f := newFakeCartServer()
	store := f.start(t)
	f.carts["u1"] = []domain.LineItem{line(ring(), 7), line(bracelet(), 2)}

	cart, err := store.DeleteItem(context.Background(), "u1", "r1")
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "b1", cart.Items[0].ProductID)
}

func TestClear_LeavesEmptyCart(t *testing.T) {
	f := newFakeCartServer()
	store := f.start(t)
	f.carts["u1"] = []domain.LineItem{line(ring(), 7)}

	cart, err := store.Clear(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}
