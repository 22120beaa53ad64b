package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/pawdesk/pawdesk/libs/auth"
	"github.com/pawdesk/pawdesk/libs/httpx"
)

type ctxKey int

const (
	ctxKeyUserID ctxKey = iota
	ctxKeyRole
)

const (
	RoleClient = "client"
	RoleDoctor = "doctor"
	RoleAdmin  = "admin"
)

// RequireAuth verifies the Bearer token and stashes the caller's user id and
// role in the request context. Invalid or absent tokens end the request with
// a 401 envelope.
func RequireAuth(secret string, logger *slog.Logger) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				respondError(w, http.StatusUnauthorized, "Unauthenticated")
				return
			}
			claims, err := auth.ParseAndVerifyHS256(token, secret)
			if err != nil {
				respondError(w, http.StatusUnauthorized, "Unauthenticated")
				return
			}
			userID, err := strconv.ParseInt(claims.Sub, 10, 64)
			if err != nil || userID <= 0 {
				logger.Warn("token with malformed subject", "sub", claims.Sub)
				respondError(w, http.StatusUnauthorized, "Unauthenticated")
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyUserID, userID)
			ctx = context.WithValue(ctx, ctxKeyRole, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole allows only the listed roles past. Must run inside RequireAuth.
func RequireRole(roles ...string) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := Role(r)
			for _, allowed := range roles {
				if role == allowed {
					next.ServeHTTP(w, r)
					return
				}
			}
			respondError(w, http.StatusForbidden, "Forbidden")
		})
	}
}

// UserID returns the authenticated user's id, or 0 outside RequireAuth.
func UserID(r *http.Request) int64 {
	id, _ := r.Context().Value(ctxKeyUserID).(int64)
	return id
}

func Role(r *http.Request) string {
	role, _ := r.Context().Value(ctxKeyRole).(string)
	return role
}
