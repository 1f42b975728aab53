package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func statusServer(t *testing.T, status int, payload interface{}) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if payload != nil {
			_ = json.NewEncoder(w).Encode(payload)
		}
	}))
	t.Cleanup(srv.Close)
	return New(srv.URL)
}

func TestDo_SendsTokenHeader(t *testing.T) {
	var gotToken string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get(AuthHeader)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"ok": "yes"})
	}))
	defer srv.Close()

	c := New(srv.URL, WithTokenSource(func() string { return "tok-123" }))
	require.NoError(t, c.Do(context.Background(), http.MethodGet, "/auth", nil, nil))
	assert.Equal(t, "tok-123", gotToken)
}

func TestDo_AnonymousOmitsTokenHeader(t *testing.T) {
	var hasHeader bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasHeader = r.Header[http.CanonicalHeaderKey(AuthHeader)]
		_ = json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer srv.Close()

	c := New(srv.URL, WithTokenSource(func() string { return "" }))
	require.NoError(t, c.Do(context.Background(), http.MethodGet, "/health", nil, nil))
	assert.False(t, hasHeader)
}

func TestDo_DecodesBody(t *testing.T) {
	c := statusServer(t, http.StatusOK, map[string]string{"_id": "u1", "email": "a@b.c"})

	var user User
	require.NoError(t, c.Do(context.Background(), http.MethodGet, "/auth", nil, &user))
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, "a@b.c", user.Email)
}

func TestDo_ErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		code     string
		sentinel error
	}{
		{"unauthorized", http.StatusUnauthorized, "token_expired", ErrAuthentication},
		{"forbidden", http.StatusForbidden, "", ErrAuthorization},
		{"not found", http.StatusNotFound, "cart_not_found", ErrNotFound},
		{"legacy conflict as 400", http.StatusBadRequest, "cart_exists", ErrConflict},
		{"plain bad request", http.StatusBadRequest, "", ErrInvalid},
		{"conflict", http.StatusConflict, "", ErrConflict},
		{"server error", http.StatusInternalServerError, "", ErrServer},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := statusServer(t, tc.status, map[string]string{"error": "boom", "code": tc.code})

			err := c.Do(context.Background(), http.MethodGet, "/x", nil, nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.sentinel)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tc.status, apiErr.Status)
			assert.Equal(t, tc.code, apiErr.Code)
			assert.Equal(t, "boom", apiErr.Message)
		})
	}
}

func TestDo_ErrorWithoutBodyStillClassifies(t *testing.T) {
	c := statusServer(t, http.StatusBadGateway, nil)

	err := c.Do(context.Background(), http.MethodGet, "/x", nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrServer)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusText(http.StatusBadGateway), apiErr.Message)
}

func TestDo_ConnectionRefusedIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c := New(srv.URL)

	err := c.Do(context.Background(), http.MethodGet, "/x", nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNetwork)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Zero(t, apiErr.Status)
	assert.NotNil(t, apiErr.Unwrap())
}
