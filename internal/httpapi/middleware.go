package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/miorah/storefront/internal/token"
)

// AuthHeader is the bearer credential header the storefront clients
// send. Kept as the legacy x-auth-token name the web client uses.
const AuthHeader = "x-auth-token"

type contextKey string

const (
	userIDKey   contextKey = "user_id"
	rawTokenKey contextKey = "raw_token"
)

// AuthMiddleware verifies the x-auth-token header and rejects revoked
// or expired tokens. The subject user id and the raw token are placed
// on the request context.
func AuthMiddleware(tokens *token.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(AuthHeader)
			if raw == "" {
				respondError(w, http.StatusUnauthorized, "no_token", "no token, authorization denied")
				return
			}

			userID, err := tokens.Verify(r.Context(), raw)
			if err != nil {
				switch {
				case errors.Is(err, token.ErrExpiredToken):
					respondError(w, http.StatusUnauthorized, "token_expired", "token has expired")
				case errors.Is(err, token.ErrRevokedToken):
					respondError(w, http.StatusUnauthorized, "token_revoked", "token is no longer valid")
				case errors.Is(err, token.ErrInvalidToken):
					respondError(w, http.StatusUnauthorized, "invalid_token", "token is not valid")
				default:
					// Verification could not run, typically a blacklist
					// outage. That is not a verdict on the token.
					respondError(w, http.StatusInternalServerError, "server_error", "could not verify token")
				}
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			ctx = context.WithValue(ctx, rawTokenKey, raw)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func userIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

func rawTokenFromContext(ctx context.Context) string {
	raw, _ := ctx.Value(rawTokenKey).(string)
	return raw
}

// RequestLogger emits one structured line per request.
func RequestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("request_id", middleware.GetReqID(r.Context())).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Msg("request")
		})
	}
}
