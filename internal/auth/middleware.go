package auth

import (
	"context"
	"net/http"

	"ms-travel-sales/internal/logger"
	"ms-travel-sales/internal/models"
)

type contextKey string

const claimsKey contextKey = "claims"

// Middleware verifies the bearer token and stores its claims in the request
// context.
func Middleware(issuer *Issuer, revoked *RevocationList, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := ExtractTokenFromRequest(r)
			if err != nil {
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}

			claims, err := issuer.Parse(raw)
			if err != nil {
				log.LogSecurity("AUTH", "invalid token: "+err.Error())
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			isRevoked, err := revoked.IsRevoked(r.Context(), claims.ID)
			if err != nil {
				log.Error("AUTH", err.Error())
				http.Error(w, "token check unavailable", http.StatusServiceUnavailable)
				return
			}
			if isRevoked {
				http.Error(w, "token revoked", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// RequireRole rejects callers whose role is not listed. It must run after
// Middleware.
func RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := Actor(r.Context())
			for _, role := range roles {
				if actor.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			http.Error(w, "forbidden", http.StatusForbidden)
		})
	}
}

func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

func ClaimsFrom(ctx context.Context) *Claims {
	if c, ok := ctx.Value(claimsKey).(*Claims); ok {
		return c
	}
	return nil
}

// Actor returns the authenticated caller, or the zero Actor.
func Actor(ctx context.Context) models.Actor {
	c := ClaimsFrom(ctx)
	if c == nil {
		return models.Actor{}
	}
	return models.Actor{UserID: c.Subject, Role: c.Role}
}

// Helper to extract user ID in handlers
func UserID(ctx context.Context) string {
	return Actor(ctx).UserID
}
