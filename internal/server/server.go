package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/inkwell/internal/database"
	"github.com/dukerupert/inkwell/internal/handler"
	"github.com/dukerupert/inkwell/internal/middleware"
	"github.com/dukerupert/inkwell/internal/notes"
	"github.com/dukerupert/inkwell/internal/store"
	ws "github.com/dukerupert/inkwell/internal/websocket"
)

var (
	registerRule = middleware.Rule{Name: "register", Limit: 10, Window: time.Minute, Key: middleware.ByIP}
	loginRule    = middleware.Rule{Name: "login", Limit: 10, Window: time.Minute, Key: middleware.ByLoginEmail}
	voteRule     = middleware.Rule{Name: "vote", Limit: 30, Window: time.Minute, Key: middleware.ByVoter}
)

type Config struct {
	SessionTTL     time.Duration
	OriginPatterns []string
}

type Server struct {
	db           *sql.DB
	hub          *ws.Hub
	engine       *notes.Engine
	noteH        *handler.NoteHandler
	accountH     *handler.AccountHandler
	workspaceH   *handler.WorkspaceHandler
	tagH         *handler.TagHandler
	sessionStore *store.SessionStore
	userStore    *store.UserStore
	rateLimiter  *middleware.RateLimiter
	cfg          Config
	logger       *slog.Logger
}

func New(db *sql.DB, cfg Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	engine := notes.NewEngine(db)
	ledger := notes.NewLedger(db)
	noteStore := store.NewNoteStore(db)

	return &Server{
		db:           db,
		hub:          hub,
		engine:       engine,
		noteH:        handler.NewNoteHandler(engine, ledger, noteStore, hub, logger.With("component", "note")),
		accountH:     handler.NewAccountHandler(db, cfg.SessionTTL, logger.With("component", "account")),
		workspaceH:   handler.NewWorkspaceHandler(store.NewWorkspaceStore(db), noteStore, logger.With("component", "workspace")),
		tagH:         handler.NewTagHandler(store.NewTagStore(db), logger.With("component", "tag")),
		sessionStore: store.NewSessionStore(db),
		userStore:    store.NewUserStore(db),
		rateLimiter:  middleware.NewRateLimiter(),
		cfg:          cfg,
		logger:       logger,
	}
}

// Engine returns the note engine for the retention scheduler.
func (s *Server) Engine() *notes.Engine {
	return s.engine
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// Hub returns the live event hub.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)

	// Accounts
	mux.Handle("POST /api/register", s.limited(registerRule, s.accountH.Register))
	mux.Handle("POST /api/login", s.limited(loginRule, s.accountH.Login))
	mux.Handle("POST /api/logout", middleware.RequireAuth(http.HandlerFunc(s.accountH.Logout)))
	mux.Handle("GET /api/me", middleware.RequireAuth(http.HandlerFunc(s.accountH.Me)))
	mux.Handle("POST /api/companies/members", middleware.RequireOwner(http.HandlerFunc(s.accountH.AddMember)))

	// Workspaces
	mux.Handle("POST /api/workspaces", middleware.RequireOwner(http.HandlerFunc(s.workspaceH.Create)))
	mux.Handle("GET /api/workspaces", middleware.RequireAuth(http.HandlerFunc(s.workspaceH.List)))
	mux.Handle("GET /api/workspaces/{id}/notes", middleware.RequireAuth(http.HandlerFunc(s.workspaceH.Notes)))

	// Tags
	mux.HandleFunc("GET /api/tags", s.tagH.List)

	// Notes
	mux.HandleFunc("GET /api/notes/public", s.noteH.ListPublic)
	mux.Handle("GET /api/notes/mine", middleware.RequireAuth(http.HandlerFunc(s.noteH.ListMine)))
	mux.Handle("POST /api/notes", middleware.RequireAuth(http.HandlerFunc(s.noteH.Create)))
	mux.HandleFunc("GET /api/notes/{id}", s.noteH.Get)
	mux.Handle("PATCH /api/notes/{id}", middleware.RequireAuth(http.HandlerFunc(s.noteH.Update)))
	mux.HandleFunc("GET /api/notes/{id}/history", s.noteH.History)
	mux.Handle("POST /api/notes/{id}/restore", middleware.RequireAuth(http.HandlerFunc(s.noteH.Restore)))
	mux.Handle("POST /api/notes/{id}/vote", middleware.RequireAuth(s.limited(voteRule, s.noteH.Vote)))
	mux.HandleFunc("GET /api/notes/{id}/tally", s.noteH.Tally)

	// Live events
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.logger.With("component", "websocket"), s.cfg.OriginPatterns...))

	var h http.Handler = mux
	h = middleware.RequestLogger(s.logger.With("component", "http"))(h)
	h = middleware.OptionalAuth(s.sessionStore, s.userStore, s.logger.With("component", "auth"))(h)
	h = middleware.RequestID(h)
	return h
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	version, err := database.Version(s.db)
	if err != nil {
		s.logger.Error("health check", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"status": "unavailable"})
		return
	}
	json.NewEncoder(w).Encode(map[string]any{"status": "ok", "schema_version": version})
}

func (s *Server) limited(rule middleware.Rule, h http.HandlerFunc) http.Handler {
	return middleware.Limit(s.rateLimiter, rule)(h)
}
