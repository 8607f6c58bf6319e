package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/inkwell/internal/auth"
	"github.com/dukerupert/inkwell/internal/store"
)

// SessionToken returns the bearer token from the Authorization header, falling
// back to the session cookie.
func SessionToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := r.Cookie(auth.SessionCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// OptionalAuth resolves the session, if any, and populates AuthContext.
// Requests without valid credentials continue anonymously. A store failure
// answers 500 rather than demoting the caller to anonymous.
func OptionalAuth(sessionStore *store.SessionStore, userStore *store.UserStore, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := SessionToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			sess, err := sessionStore.GetByToken(r.Context(), token)
			if err != nil {
				logger.Error("resolve session", "error", err, "request_id", RequestIDFrom(r.Context()))
				writeJSONError(w, http.StatusInternalServerError, "internal error")
				return
			}
			if sess == nil {
				next.ServeHTTP(w, r)
				return
			}

			user, err := userStore.GetByID(r.Context(), sess.UserID)
			if err != nil {
				logger.Error("resolve session user", "error", err, "user_id", sess.UserID, "request_id", RequestIDFrom(r.Context()))
				writeJSONError(w, http.StatusInternalServerError, "internal error")
				return
			}
			if user == nil {
				next.ServeHTTP(w, r)
				return
			}

			ac := auth.AuthContext{
				UserID:    user.ID,
				Role:      user.Role,
				SessionID: sess.ID,
				Token:     sess.Token,
			}
			if user.CompanyID != nil {
				ac.CompanyID = *user.CompanyID
			}

			ctx := auth.WithAuth(r.Context(), ac)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth rejects anonymous requests with 401.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.FromContext(r.Context()); !ok {
			writeJSONError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireOwner checks that the authenticated user has the owner role.
func RequireOwner(next http.Handler) http.Handler {
	return RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auth.IsOwner(r.Context()) {
			writeJSONError(w, http.StatusForbidden, "owner role required")
			return
		}
		next.ServeHTTP(w, r)
	}))
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
