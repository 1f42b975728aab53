package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/miorah/storefront/internal/domain"
	"github.com/miorah/storefront/internal/repository"
	"github.com/miorah/storefront/internal/service"
)

type CartHandler struct {
	carts *service.CartService
}

func NewCartHandler(carts *service.CartService) *CartHandler {
	return &CartHandler{carts: carts}
}

type createCartRequestDTO struct {
	UserID   string            `json:"userId"`
	Products []domain.LineItem `json:"products"`
}

type replaceCartRequestDTO struct {
	Products []domain.LineItem `json:"products"`
}

// cartOwnerOnly rejects requests whose path user differs from the
// authenticated subject. Carts are strictly per-user.
func cartOwnerOnly(w http.ResponseWriter, r *http.Request, pathUserID string) bool {
	if pathUserID == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "user id is required")
		return false
	}
	if pathUserID != userIDFromContext(r.Context()) {
		respondError(w, http.StatusForbidden, "forbidden", "cannot access another user's cart")
		return false
	}
	return true
}

// Get handles GET /cart/{userID}. A missing cart is 404; clients treat
// that as the expected "no cart yet" state.
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if !cartOwnerOnly(w, r, userID) {
		return
	}

	cart, err := h.carts.GetCart(r.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrCartNotFound) {
			respondError(w, http.StatusNotFound, "cart_not_found", "no cart found for user")
			return
		}
		respondError(w, http.StatusInternalServerError, "server_error", "could not load cart")
		return
	}

	respondJSON(w, http.StatusOK, cart)
}

// Create handles POST /cart. A second create for the same user fails
// with 400, matching the legacy API; callers are expected to fetch
// first and create only on the no-cart state.
func (h *CartHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createCartRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if !cartOwnerOnly(w, r, req.UserID) {
		return
	}

	cart, err := h.carts.CreateCart(r.Context(), req.UserID, req.Products)
	if err != nil {
		if errors.Is(err, repository.ErrCartExists) {
			respondError(w, http.StatusBadRequest, "cart_exists", "cart already exists for user")
			return
		}
		respondError(w, http.StatusInternalServerError, "server_error", "could not create cart")
		return
	}

	respondJSON(w, http.StatusCreated, cart)
}

// Replace handles PUT /cart/{userID}: full replacement of the product
// list, creating the cart when absent. There is no patch semantics and
// no version check, the later of two concurrent writes wins.
func (h *CartHandler) Replace(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if !cartOwnerOnly(w, r, userID) {
		return
	}

	var req replaceCartRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	cart, err := h.carts.ReplaceCart(r.Context(), userID, req.Products)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "server_error", "could not update cart")
		return
	}

	respondJSON(w, http.StatusOK, cart)
}

// Delete handles DELETE /cart/{userID}.
func (h *CartHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if !cartOwnerOnly(w, r, userID) {
		return
	}

	if err := h.carts.ClearCart(r.Context(), userID); err != nil {
		respondError(w, http.StatusInternalServerError, "server_error", "could not clear cart")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"msg": "cart cleared"})
}
