package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"studio-portal/internal/models"
)

type principalKey struct{}

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p models.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the caller stored by Middleware. The zero Principal
// is unauthenticated.
func PrincipalFrom(ctx context.Context) models.Principal {
	p, _ := ctx.Value(principalKey{}).(models.Principal)
	return p
}

// Middleware resolves the token from the "token" cookie or an
// Authorization Bearer header. Missing or invalid tokens leave the request
// anonymous; use RequireAuth to enforce.
func (i *Issuer) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var tokenStr string
		if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
			tokenStr = c.Value
		}
		if tokenStr == "" {
			if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
				tokenStr = strings.TrimPrefix(h, "Bearer ")
			}
		}
		if tokenStr == "" {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := i.Parse(tokenStr)
		if err != nil {
			ClearTokenCookie(w)
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), claims.Principal())))
	})
}

// RequireAuth rejects anonymous requests with 401.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !PrincipalFrom(r.Context()).Authenticated() {
			deny(w, http.StatusUnauthorized, "not authenticated", "NOT_AUTHENTICATED")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects anyone but studio staff.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := PrincipalFrom(r.Context())
		if !p.Authenticated() {
			deny(w, http.StatusUnauthorized, "not authenticated", "NOT_AUTHENTICATED")
			return
		}
		if !p.IsAdmin() {
			deny(w, http.StatusForbidden, "studio access required", "FORBIDDEN")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func deny(w http.ResponseWriter, status int, msg, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"success": false, "error": msg, "code": code})
}
