// Package notes implements the note lifecycle: creation, partial updates
// with automatic history snapshots, restore from history, voting and the
// history retention sweep. Every write runs in a single store transaction.
package notes

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dukerupert/inkwell/internal/model"
	"github.com/dukerupert/inkwell/internal/policy"
	"github.com/dukerupert/inkwell/internal/store"
)

const maxTitleLength = 500

type Engine struct {
	db *sql.DB
}

func NewEngine(db *sql.DB) *Engine {
	return &Engine{db: db}
}

type CreateInput struct {
	Title       string
	Content     string
	Type        model.NoteType
	Draft       bool
	TagNames    []string
	WorkspaceID int64
}

// Patch is a partial update. Nil fields are left untouched; a non-nil
// TagNames replaces the whole tag set.
type Patch struct {
	Title    *string
	Content  *string
	Type     *model.NoteType
	Draft    *bool
	TagNames *[]string
}

// apply returns a copy of n with the patch fields set.
func (p Patch) apply(n model.Note) model.Note {
	if p.Title != nil {
		n.Title = strings.TrimSpace(*p.Title)
	}
	if p.Content != nil {
		n.Content = *p.Content
	}
	if p.Type != nil {
		n.Type = *p.Type
	}
	if p.Draft != nil {
		n.Draft = *p.Draft
	}
	return n
}

func validateNote(title, content string, t model.NoteType, draft bool) error {
	if strings.TrimSpace(title) == "" {
		return validationError("title", "title cannot be empty")
	}
	if len([]rune(title)) > maxTitleLength {
		return validationError("title", fmt.Sprintf("title is longer than %d characters", maxTitleLength))
	}
	if !t.Valid() {
		return validationError("note_type", "note type must be 'public' or 'private'")
	}
	if !draft && strings.TrimSpace(content) == "" {
		return validationError("content", "content cannot be empty for published notes")
	}
	return nil
}

func editorID(r policy.Requester) *int64 {
	if !r.Authenticated || r.UserID == 0 {
		return nil
	}
	id := r.UserID
	return &id
}

// Create inserts a note into a workspace of the author's company. Creation
// records no history.
func (e *Engine) Create(ctx context.Context, in CreateInput, author policy.Requester) (*model.Note, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := validateNote(in.Title, in.Content, in.Type, in.Draft); err != nil {
		return nil, err
	}
	tags, err := NormalizeTags(in.TagNames)
	if err != nil {
		return nil, err
	}
	if !author.Authenticated || author.CompanyID == 0 {
		return nil, authorizationError("user must belong to a company")
	}

	var created *model.Note
	err = store.RunInTx(ctx, e.db, func(tx *sql.Tx) error {
		ws, err := store.NewWorkspaceStore(tx).GetByID(ctx, in.WorkspaceID)
		if err != nil {
			return err
		}
		if ws == nil {
			return validationError("workspace", "workspace does not exist")
		}
		if ws.CompanyID != author.CompanyID {
			return authorizationError("workspace does not belong to your company")
		}

		noteStore := store.NewNoteStore(tx)
		n, err := noteStore.Create(ctx, store.NewNote{
			WorkspaceID: ws.ID,
			Title:       in.Title,
			Content:     in.Content,
			Type:        in.Type,
			Draft:       in.Draft,
			CreatedBy:   editorID(author),
		})
		if err != nil {
			return err
		}
		if len(tags) > 0 {
			if err := store.NewTagStore(tx).SetNoteTags(ctx, n.ID, tags); err != nil {
				return err
			}
		}
		created, err = noteStore.GetByID(ctx, n.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Get returns the note if the requester may read it. Unreadable notes are
// reported as not found so their existence does not leak.
func (e *Engine) Get(ctx context.Context, noteID int64, requester policy.Requester) (*model.Note, error) {
	n, err := store.NewNoteStore(e.db).GetByID(ctx, noteID)
	if err != nil {
		return nil, err
	}
	if n == nil || !policy.CanRead(n, requester) {
		return nil, notFoundError("note not found")
	}
	return n, nil
}

// loadForWrite reads the note inside tx and checks CanWrite. A requester who
// cannot even read the note gets not-found rather than a denial.
func loadForWrite(ctx context.Context, tx *sql.Tx, noteID int64, editor policy.Requester) (*model.Note, error) {
	n, err := store.NewNoteStore(tx).GetByID(ctx, noteID)
	if err != nil {
		return nil, err
	}
	if n == nil || !policy.CanRead(n, editor) {
		return nil, notFoundError("note not found")
	}
	if !policy.CanWrite(n, editor) {
		return nil, authorizationError("only owners of the note's company can change it")
	}
	return n, nil
}

// Update applies a partial patch. When the title or content changes, the
// values they had before the update are appended to the note's history in
// the same transaction.
func (e *Engine) Update(ctx context.Context, noteID int64, p Patch, editor policy.Requester) (*model.Note, error) {
	var tags []string
	if p.TagNames != nil {
		var err error
		if tags, err = NormalizeTags(*p.TagNames); err != nil {
			return nil, err
		}
	}

	var updated *model.Note
	err := store.RunInTx(ctx, e.db, func(tx *sql.Tx) error {
		current, err := loadForWrite(ctx, tx, noteID, editor)
		if err != nil {
			return err
		}

		next := p.apply(*current)
		if err := validateNote(next.Title, next.Content, next.Type, next.Draft); err != nil {
			return err
		}

		noteStore := store.NewNoteStore(tx)
		if _, err := noteStore.Update(ctx, &next, editorID(editor)); err != nil {
			return err
		}

		if next.Title != current.Title || next.Content != current.Content {
			if _, err := store.NewHistoryStore(tx).Append(ctx, current.ID, current.Title, current.Content, editorID(editor)); err != nil {
				return err
			}
		}

		if p.TagNames != nil {
			if err := store.NewTagStore(tx).SetNoteTags(ctx, current.ID, tags); err != nil {
				return err
			}
		}

		updated, err = noteStore.GetByID(ctx, current.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Restore snapshots the note's current title and content into history, then
// overwrites them from the given history entry. Restoring the entry created
// by a restore therefore undoes it.
func (e *Engine) Restore(ctx context.Context, noteID, historyID int64, editor policy.Requester) (*model.Note, error) {
	var restored *model.Note
	err := store.RunInTx(ctx, e.db, func(tx *sql.Tx) error {
		current, err := loadForWrite(ctx, tx, noteID, editor)
		if err != nil {
			return err
		}

		history := store.NewHistoryStore(tx)
		entry, err := history.GetByID(ctx, historyID)
		if err != nil {
			return err
		}
		if entry == nil || entry.NoteID != current.ID {
			return notFoundError("history entry not found")
		}

		next := *current
		next.Title = entry.Title
		next.Content = entry.Content
		if err := validateNote(next.Title, next.Content, next.Type, next.Draft); err != nil {
			return err
		}

		if _, err := history.Append(ctx, current.ID, current.Title, current.Content, editorID(editor)); err != nil {
			return err
		}

		noteStore := store.NewNoteStore(tx)
		if _, err := noteStore.Update(ctx, &next, editorID(editor)); err != nil {
			return err
		}
		restored, err = noteStore.GetByID(ctx, current.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return restored, nil
}

// ListHistory returns the note's history newest first.
func (e *Engine) ListHistory(ctx context.Context, noteID int64, requester policy.Requester) ([]model.HistoryEntry, error) {
	if _, err := e.Get(ctx, noteID, requester); err != nil {
		return nil, err
	}
	entries, err := store.NewHistoryStore(e.db).ListByNote(ctx, noteID)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []model.HistoryEntry{}
	}
	return entries, nil
}

// SweepHistory deletes history entries older than maxAgeDays and returns how
// many were removed. Running it again deletes nothing new.
func (e *Engine) SweepHistory(ctx context.Context, maxAgeDays int) (int64, error) {
	if maxAgeDays <= 0 {
		return 0, validationError("max_age_days", "retention window must be at least one day")
	}
	return store.NewHistoryStore(e.db).DeleteOlderThan(ctx, maxAgeDays)
}
