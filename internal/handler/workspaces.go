package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/inkwell/internal/auth"
	"github.com/dukerupert/inkwell/internal/model"
	"github.com/dukerupert/inkwell/internal/policy"
	"github.com/dukerupert/inkwell/internal/store"
)

type WorkspaceHandler struct {
	workspaceStore *store.WorkspaceStore
	noteStore      *store.NoteStore
	logger         *slog.Logger
}

func NewWorkspaceHandler(ws *store.WorkspaceStore, ns *store.NoteStore, logger *slog.Logger) *WorkspaceHandler {
	return &WorkspaceHandler{workspaceStore: ws, noteStore: ns, logger: logger}
}

type workspaceRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *WorkspaceHandler) Create(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	if ac.CompanyID == 0 {
		writeJSON(w, http.StatusForbidden, errorBody("user does not belong to a company"))
		return
	}

	var req workspaceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required", "field": "name"})
		return
	}

	userID := ac.UserID
	ws, err := h.workspaceStore.Create(r.Context(), ac.CompanyID, req.Name, strings.TrimSpace(req.Description), &userID)
	if store.IsUniqueViolation(err) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "a workspace with this name already exists", "field": "name"})
		return
	}
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ws)
}

func (h *WorkspaceHandler) List(w http.ResponseWriter, r *http.Request) {
	companyID := auth.CompanyID(r.Context())
	var list []model.Workspace
	if companyID != 0 {
		var err error
		if list, err = h.workspaceStore.ListByCompany(r.Context(), companyID); err != nil {
			writeError(w, h.logger, r, err)
			return
		}
	}
	if list == nil {
		list = []model.Workspace{}
	}
	writeJSON(w, http.StatusOK, list)
}

// Notes lists the published notes of one of the caller's workspaces.
// Workspaces of other companies are reported as not found.
func (h *WorkspaceHandler) Notes(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid id"))
		return
	}

	ws, err := h.workspaceStore.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	if ws == nil || !policy.FromContext(r.Context()).MemberOf(ws.CompanyID) {
		writeJSON(w, http.StatusNotFound, errorBody("workspace not found"))
		return
	}

	list, err := h.noteStore.ListPublishedByWorkspace(r.Context(), ws.ID)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	if list == nil {
		list = []model.NoteSummary{}
	}
	writeJSON(w, http.StatusOK, list)
}
