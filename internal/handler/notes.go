package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/inkwell/internal/auth"
	"github.com/dukerupert/inkwell/internal/model"
	"github.com/dukerupert/inkwell/internal/notes"
	"github.com/dukerupert/inkwell/internal/policy"
	"github.com/dukerupert/inkwell/internal/store"
	"github.com/dukerupert/inkwell/internal/websocket"
)

type NoteHandler struct {
	engine    *notes.Engine
	ledger    *notes.Ledger
	noteStore *store.NoteStore
	hub       *websocket.Hub
	logger    *slog.Logger
}

func NewNoteHandler(engine *notes.Engine, ledger *notes.Ledger, ns *store.NoteStore, hub *websocket.Hub, logger *slog.Logger) *NoteHandler {
	return &NoteHandler{engine: engine, ledger: ledger, noteStore: ns, hub: hub, logger: logger}
}

func (h *NoteHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

type createNoteRequest struct {
	Title       string   `json:"title"`
	Content     string   `json:"content"`
	NoteType    string   `json:"note_type"`
	IsDraft     bool     `json:"is_draft"`
	TagNames    []string `json:"tag_names"`
	WorkspaceID int64    `json:"workspace_id"`
}

// updateNoteRequest distinguishes absent fields (nil) from zero values.
type updateNoteRequest struct {
	Title    *string   `json:"title"`
	Content  *string   `json:"content"`
	NoteType *string   `json:"note_type"`
	IsDraft  *bool     `json:"is_draft"`
	TagNames *[]string `json:"tag_names"`
}

func (req updateNoteRequest) patch() notes.Patch {
	p := notes.Patch{
		Title:    req.Title,
		Content:  req.Content,
		Draft:    req.IsDraft,
		TagNames: req.TagNames,
	}
	if req.NoteType != nil {
		t := model.NoteType(*req.NoteType)
		p.Type = &t
	}
	return p
}

type restoreRequest struct {
	HistoryID int64 `json:"history_id"`
}

type voteRequest struct {
	VoteType  string `json:"vote_type"`
	AsCompany bool   `json:"as_company"`
}

type voteResponse struct {
	Vote  *model.Vote `json:"vote"`
	Tally model.Tally `json:"tally"`
}

type listResponse struct {
	Results []model.NoteSummary `json:"results"`
	Limit   int                 `json:"limit"`
	Offset  int                 `json:"offset"`
}

func (h *NoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createNoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.NoteType == "" {
		req.NoteType = string(model.NoteTypePrivate)
	}
	if req.WorkspaceID == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "workspace_id is required", "field": "workspace"})
		return
	}

	n, err := h.engine.Create(r.Context(), notes.CreateInput{
		Title:       req.Title,
		Content:     req.Content,
		Type:        model.NoteType(req.NoteType),
		Draft:       req.IsDraft,
		TagNames:    req.TagNames,
		WorkspaceID: req.WorkspaceID,
	}, policy.FromContext(r.Context()))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	h.broadcast(websocket.NewNoteMessage("created", n, nil))
	writeJSON(w, http.StatusCreated, model.NoteSummary{Note: *n})
}

func (h *NoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid id"))
		return
	}

	n, err := h.engine.Get(r.Context(), id, policy.FromContext(r.Context()))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	tally, err := h.ledger.Tally(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, model.NoteSummary{Note: *n, Tally: tally})
}

func (h *NoteHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid id"))
		return
	}

	var req updateNoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	n, err := h.engine.Update(r.Context(), id, req.patch(), policy.FromContext(r.Context()))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	h.broadcast(websocket.NewNoteMessage("updated", n, nil))
	writeJSON(w, http.StatusOK, model.NoteSummary{Note: *n})
}

func (h *NoteHandler) History(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid id"))
		return
	}

	entries, err := h.engine.ListHistory(r.Context(), id, policy.FromContext(r.Context()))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *NoteHandler) Restore(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid id"))
		return
	}

	var req restoreRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.HistoryID == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "history_id is required", "field": "history_id"})
		return
	}

	n, err := h.engine.Restore(r.Context(), id, req.HistoryID, policy.FromContext(r.Context()))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	h.broadcast(websocket.NewNoteMessage("restored", n, map[string]any{"history_id": req.HistoryID}))
	writeJSON(w, http.StatusOK, model.NoteSummary{Note: *n})
}

func (h *NoteHandler) Vote(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid id"))
		return
	}

	var req voteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	kind, ok := model.ParseVoteKind(strings.ToLower(strings.TrimSpace(req.VoteType)))
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "vote_type must be upvote or downvote", "field": "vote_type"})
		return
	}

	voter, err := notes.VoterFor(policy.FromContext(r.Context()), req.AsCompany)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	vote, tally, err := h.ledger.CastVote(r.Context(), id, voter, kind)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	// Votes are only accepted on published notes, so the event is public.
	msg := websocket.NewMessage("note", "voted", id, map[string]any{
		"upvotes":    tally.Up,
		"downvotes":  tally.Down,
		"vote_count": tally.Net,
	})
	msg.Public = true
	h.broadcast(msg)

	writeJSON(w, http.StatusCreated, voteResponse{Vote: vote, Tally: tally})
}

func (h *NoteHandler) Tally(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid id"))
		return
	}

	if _, err := h.engine.Get(r.Context(), id, policy.FromContext(r.Context())); err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	tally, err := h.ledger.Tally(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tally)
}

func (h *NoteHandler) ListPublic(w http.ResponseWriter, r *http.Request) {
	page := pageFromQuery(r)
	order := store.ParsePublicOrder(r.URL.Query().Get("ordering"))

	list, err := h.noteStore.ListPublic(r.Context(), order, page)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newListResponse(list, page))
}

func (h *NoteHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	companyID := auth.CompanyID(r.Context())
	page := pageFromQuery(r)
	if companyID == 0 {
		writeJSON(w, http.StatusOK, newListResponse(nil, page))
		return
	}

	search := strings.TrimSpace(r.URL.Query().Get("search"))
	list, err := h.noteStore.ListByCompany(r.Context(), companyID, search, page)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newListResponse(list, page))
}

func newListResponse(list []model.NoteSummary, page store.Page) listResponse {
	if list == nil {
		list = []model.NoteSummary{}
	}
	page = page.Normalize()
	return listResponse{Results: list, Limit: page.Limit, Offset: page.Offset}
}
