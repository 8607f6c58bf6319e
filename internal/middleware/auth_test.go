package middleware

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dukerupert/inkwell/internal/auth"
	"github.com/dukerupert/inkwell/internal/database"
	"github.com/dukerupert/inkwell/internal/model"
	"github.com/dukerupert/inkwell/internal/store"
)

func setupAuthMiddlewareDB(t *testing.T) (*store.SessionStore, *store.UserStore, *store.CompanyStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return store.NewSessionStore(db), store.NewUserStore(db), store.NewCompanyStore(db)
}

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// captureAuth returns a handler recording the AuthContext it sees.
func captureAuth(got *auth.AuthContext, seen *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*got, *seen = auth.FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestOptionalAuthAnonymous(t *testing.T) {
	ss, us, _ := setupAuthMiddlewareDB(t)

	var ac auth.AuthContext
	var seen bool
	handler := OptionalAuth(ss, us, discardLogger)(captureAuth(&ac, &seen))

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if seen {
		t.Error("anonymous request should carry no AuthContext")
	}
}

func TestOptionalAuthInvalidToken(t *testing.T) {
	ss, us, _ := setupAuthMiddlewareDB(t)

	var ac auth.AuthContext
	var seen bool
	handler := OptionalAuth(ss, us, discardLogger)(captureAuth(&ac, &seen))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer invalid-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if seen {
		t.Error("invalid token should fall back to anonymous")
	}
}

func TestOptionalAuthBearerToken(t *testing.T) {
	ss, us, cs := setupAuthMiddlewareDB(t)
	ctx := context.Background()

	c, _ := cs.Create(ctx, "Acme", "")
	u, _ := us.Create(ctx, "alice@example.com", "Alice", "", &c.ID, model.RoleOwner)
	sess, err := ss.Create(ctx, u.ID, time.Hour)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	var ac auth.AuthContext
	var seen bool
	handler := OptionalAuth(ss, us, discardLogger)(captureAuth(&ac, &seen))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+sess.Token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if !seen {
		t.Fatal("expected AuthContext in request context")
	}
	if ac.UserID != u.ID {
		t.Errorf("UserID = %d, want %d", ac.UserID, u.ID)
	}
	if ac.CompanyID != c.ID {
		t.Errorf("CompanyID = %d, want %d", ac.CompanyID, c.ID)
	}
	if ac.Role != model.RoleOwner {
		t.Errorf("Role = %q, want %q", ac.Role, model.RoleOwner)
	}
	if ac.SessionID != sess.ID {
		t.Errorf("SessionID = %d, want %d", ac.SessionID, sess.ID)
	}
	if ac.Token != sess.Token {
		t.Errorf("Token = %q, want session token", ac.Token)
	}
}

func TestOptionalAuthCookie(t *testing.T) {
	ss, us, _ := setupAuthMiddlewareDB(t)
	ctx := context.Background()

	u, _ := us.Create(ctx, "loner@example.com", "Loner", "", nil, model.RoleMember)
	sess, _ := ss.Create(ctx, u.ID, time.Hour)

	var ac auth.AuthContext
	var seen bool
	handler := OptionalAuth(ss, us, discardLogger)(captureAuth(&ac, &seen))

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: sess.Token})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if !seen {
		t.Fatal("expected AuthContext from cookie")
	}
	if ac.CompanyID != 0 {
		t.Errorf("CompanyID = %d, want 0 for a user without a company", ac.CompanyID)
	}
}

func TestOptionalAuthStoreFailure(t *testing.T) {
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	ss, us := store.NewSessionStore(db), store.NewUserStore(db)
	db.Close()

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	var ac auth.AuthContext
	var seen bool
	handler := OptionalAuth(ss, us, logger)(captureAuth(&ac, &seen))

	req := httptest.NewRequest("GET", "/api/notes/mine", nil)
	req.Header.Set("Authorization", "Bearer some-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
	if seen {
		t.Error("handler should not run when the session cannot be resolved")
	}
	if !strings.Contains(logs.String(), "level=ERROR") || !strings.Contains(logs.String(), "resolve session") {
		t.Errorf("expected an error log, got %q", logs.String())
	}
}

func TestRequireAuth(t *testing.T) {
	handler := RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest("POST", "/api/notes", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous: status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}

	req = httptest.NewRequest("POST", "/api/notes", nil)
	req = req.WithContext(auth.WithAuth(req.Context(), auth.AuthContext{UserID: 1, Role: model.RoleMember}))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("authenticated: status = %d, want %d", rec.Code, http.StatusNoContent)
	}
}

func TestRequireOwner(t *testing.T) {
	handler := RequireOwner(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name string
		ac   *auth.AuthContext
		want int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"member", &auth.AuthContext{UserID: 1, CompanyID: 1, Role: model.RoleMember}, http.StatusForbidden},
		{"owner", &auth.AuthContext{UserID: 1, CompanyID: 1, Role: model.RoleOwner}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/workspaces", nil)
			if tt.ac != nil {
				req = req.WithContext(auth.WithAuth(req.Context(), *tt.ac))
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}
