package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/inkwell/internal/model"
	"github.com/dukerupert/inkwell/internal/store"
)

type TagHandler struct {
	tagStore *store.TagStore
	logger   *slog.Logger
}

func NewTagHandler(ts *store.TagStore, logger *slog.Logger) *TagHandler {
	return &TagHandler{tagStore: ts, logger: logger}
}

func (h *TagHandler) List(w http.ResponseWriter, r *http.Request) {
	search := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("search")))
	tags, err := h.tagStore.List(r.Context(), search)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	if tags == nil {
		tags = []model.Tag{}
	}
	writeJSON(w, http.StatusOK, tags)
}
