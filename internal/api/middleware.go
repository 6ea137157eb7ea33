package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/erazemk/izposoja/internal/auth"
	"github.com/erazemk/izposoja/internal/inventory"
	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/store"
)

type contextKey string

const (
	claimsKey contextKey = "claims"
	actorKey  contextKey = "actor"
)

// AuthMiddleware validates the bearer token, rejects revoked tokens and
// removed users, and puts the caller's current identity in the context.
func AuthMiddleware(engine *inventory.Engine, secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				jsonError(w, http.StatusUnauthorized, "missing or invalid authorization header")
				return
			}

			claims, err := auth.ValidateToken(secret, strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				jsonError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			revoked, err := store.IsTokenRevoked(r.Context(), engine.DB(), claims.ID)
			if err != nil {
				engineError(w, r, err)
				return
			}
			if revoked {
				jsonError(w, http.StatusUnauthorized, "token has been revoked")
				return
			}

			// Roles can change and users can be removed while a token lives.
			user, err := engine.GetUser(r.Context(), claims.UserID)
			if err != nil {
				if inventory.IsKind(err, inventory.KindNotFound) {
					jsonError(w, http.StatusUnauthorized, "user no longer exists")
					return
				}
				engineError(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			ctx = context.WithValue(ctx, actorKey, user.Actor())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole returns middleware that admits only the given roles.
func RequireRole(roles ...model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := GetActor(r.Context())
			if !ok {
				jsonError(w, http.StatusUnauthorized, "not authenticated")
				return
			}
			if !actor.HasRole(roles...) {
				jsonError(w, http.StatusForbidden, "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetClaims retrieves the token claims from the context.
func GetClaims(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey).(*auth.Claims)
	return claims
}

// GetActor retrieves the authenticated caller from the context.
func GetActor(ctx context.Context) (model.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(model.Actor)
	return actor, ok
}

// statusRecorder wraps http.ResponseWriter to capture the status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying writer, which
// the event stream needs for flushing.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// LoggingMiddleware logs HTTP requests with method, path, status, and duration.
func LoggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.RequestURI()),
				zap.Int("status", rec.status),
				zap.Duration("duration", time.Since(start).Round(time.Millisecond)),
			}
			if rec.status >= http.StatusInternalServerError {
				logger.Warn("request", fields...)
				return
			}
			logger.Info("request", fields...)
		})
	}
}
