package handler

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/inkwell/internal/auth"
	"github.com/dukerupert/inkwell/internal/model"
	"github.com/dukerupert/inkwell/internal/store"
)

type AccountHandler struct {
	db           *sql.DB
	userStore    *store.UserStore
	companyStore *store.CompanyStore
	sessionStore *store.SessionStore
	sessionTTL   time.Duration
	logger       *slog.Logger
}

func NewAccountHandler(db *sql.DB, sessionTTL time.Duration, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		db:           db,
		userStore:    store.NewUserStore(db),
		companyStore: store.NewCompanyStore(db),
		sessionStore: store.NewSessionStore(db),
		sessionTTL:   sessionTTL,
		logger:       logger,
	}
}

type registerRequest struct {
	CompanyName string `json:"company_name"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	Password    string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type memberRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type sessionResponse struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
	User      *model.User    `json:"user"`
	Company   *model.Company `json:"company,omitempty"`
}

type meResponse struct {
	User    *model.User    `json:"user"`
	Company *model.Company `json:"company,omitempty"`
	Role    string         `json:"role"`
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func (h *AccountHandler) setSessionCookie(w http.ResponseWriter, r *http.Request, sess *model.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

// Register creates a company, its first owner and a session in one
// transaction.
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.CompanyName = strings.TrimSpace(req.CompanyName)
	req.Email = normalizeEmail(req.Email)
	req.Name = strings.TrimSpace(req.Name)

	if req.CompanyName == "" || req.Email == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("company_name and email are required"))
		return
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error(), "field": "password"})
		return
	}

	var (
		company *model.Company
		user    *model.User
		sess    *model.Session
	)
	var conflict map[string]string
	err = store.RunInTx(r.Context(), h.db, func(tx *sql.Tx) error {
		users := store.NewUserStore(tx)
		existing, err := users.GetByEmail(r.Context(), req.Email)
		if err != nil {
			return err
		}
		if existing != nil {
			conflict = map[string]string{"error": "email is already registered", "field": "email"}
			return nil
		}

		company, err = store.NewCompanyStore(tx).Create(r.Context(), req.CompanyName, "")
		if store.IsUniqueViolation(err) {
			conflict = map[string]string{"error": "company name is already taken", "field": "company_name"}
			return nil
		}
		if err != nil {
			return err
		}
		if user, err = users.Create(r.Context(), req.Email, req.Name, hash, &company.ID, model.RoleOwner); err != nil {
			return err
		}
		sess, err = store.NewSessionStore(tx).Create(r.Context(), user.ID, h.sessionTTL)
		return err
	})
	if conflict != nil {
		writeJSON(w, http.StatusConflict, conflict)
		return
	}
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	h.logger.Info("company registered", "company_id", company.ID, "user_id", user.ID)
	h.setSessionCookie(w, r, sess)
	writeJSON(w, http.StatusCreated, sessionResponse{Token: sess.Token, ExpiresAt: sess.ExpiresAt, User: user, Company: company})
}

func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.userStore.GetByEmail(r.Context(), normalizeEmail(req.Email))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	// Same answer for unknown email and wrong password.
	if user == nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		writeJSON(w, http.StatusUnauthorized, errorBody("invalid email or password"))
		return
	}

	sess, err := h.sessionStore.Create(r.Context(), user.ID, h.sessionTTL)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	var company *model.Company
	if user.CompanyID != nil {
		if company, err = h.companyStore.GetByID(r.Context(), *user.CompanyID); err != nil {
			writeError(w, h.logger, r, err)
			return
		}
	}

	h.setSessionCookie(w, r, sess)
	writeJSON(w, http.StatusOK, sessionResponse{Token: sess.Token, ExpiresAt: sess.ExpiresAt, User: user, Company: company})
}

func (h *AccountHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if ac, ok := auth.FromContext(r.Context()); ok && ac.Token != "" {
		if err := h.sessionStore.DeleteByToken(r.Context(), ac.Token); err != nil {
			writeError(w, h.logger, r, err)
			return
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	user, err := h.userStore.GetByID(r.Context(), ac.UserID)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, errorBody("authentication required"))
		return
	}

	resp := meResponse{User: user, Role: user.Role}
	if user.CompanyID != nil {
		if resp.Company, err = h.companyStore.GetByID(r.Context(), *user.CompanyID); err != nil {
			writeError(w, h.logger, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// AddMember creates a user in the caller's company. Only owners reach it.
func (h *AccountHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	companyID := auth.CompanyID(r.Context())
	if companyID == 0 {
		writeJSON(w, http.StatusForbidden, errorBody("user does not belong to a company"))
		return
	}

	var req memberRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Email = normalizeEmail(req.Email)
	if req.Email == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "email is required", "field": "email"})
		return
	}
	if req.Role == "" {
		req.Role = model.RoleMember
	}
	if req.Role != model.RoleMember && req.Role != model.RoleOwner {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "role must be owner or member", "field": "role"})
		return
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error(), "field": "password"})
		return
	}

	user, err := h.userStore.Create(r.Context(), req.Email, strings.TrimSpace(req.Name), hash, &companyID, req.Role)
	if store.IsUniqueViolation(err) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "email is already registered", "field": "email"})
		return
	}
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}
