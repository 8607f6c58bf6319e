package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/inkwell/internal/model"
)

type NoteStore struct {
	db DBTX
}

func NewNoteStore(db DBTX) *NoteStore {
	return &NoteStore{db: db}
}

// NewNote holds the columns written on insert.
type NewNote struct {
	WorkspaceID int64
	Title       string
	Content     string
	Type        model.NoteType
	Draft       bool
	CreatedBy   *int64
}

// PublicOrder selects the sort of the public note listing.
type PublicOrder string

const (
	OrderNewest    PublicOrder = "new"
	OrderOldest    PublicOrder = "old"
	OrderUpvotes   PublicOrder = "upvotes"
	OrderDownvotes PublicOrder = "downvotes"
)

var publicOrderBy = map[PublicOrder]string{
	OrderNewest:    `n.created_at DESC, n.id DESC`,
	OrderOldest:    `n.created_at ASC, n.id ASC`,
	OrderUpvotes:   `upvotes DESC, n.created_at DESC, n.id DESC`,
	OrderDownvotes: `downvotes DESC, n.created_at DESC, n.id DESC`,
}

// ParsePublicOrder maps a query value to a PublicOrder, defaulting to newest.
func ParsePublicOrder(s string) PublicOrder {
	if _, ok := publicOrderBy[PublicOrder(s)]; ok {
		return PublicOrder(s)
	}
	return OrderNewest
}

func scanNote(scanner interface{ Scan(...any) error }, extra ...any) (*model.Note, error) {
	var n model.Note
	var createdBy, updatedBy sql.NullInt64
	var draft int

	dest := []any{
		&n.ID, &n.WorkspaceID, &n.CompanyID, &n.Title, &n.Content, &n.Type, &draft,
		&createdBy, &updatedBy, &n.CreatedAt, &n.UpdatedAt,
	}
	if err := scanner.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	n.Draft = draft != 0
	n.CreatedBy = int64Ptr(createdBy)
	n.UpdatedBy = int64Ptr(updatedBy)
	n.Tags = []string{}
	return &n, nil
}

const noteSelect = `SELECT n.id, n.workspace_id, w.company_id, n.title, n.content, n.note_type, n.is_draft,
	n.created_by, n.updated_by, n.created_at, n.updated_at`

const noteFrom = ` FROM notes n JOIN workspaces w ON w.id = n.workspace_id`

const tallyCols = `,
	(SELECT COUNT(*) FROM votes v WHERE v.note_id = n.id AND v.vote_type = 'up') AS upvotes,
	(SELECT COUNT(*) FROM votes v WHERE v.note_id = n.id AND v.vote_type = 'down') AS downvotes`

func (s *NoteStore) Create(ctx context.Context, nn NewNote) (*model.Note, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO notes (workspace_id, title, content, note_type, is_draft, created_by) VALUES (?, ?, ?, ?, ?, ?)`,
		nn.WorkspaceID, nn.Title, nn.Content, string(nn.Type), boolInt(nn.Draft), nullInt64(nn.CreatedBy),
	)
	if err != nil {
		return nil, fmt.Errorf("insert note: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID returns the note with its tags, or nil if it does not exist.
func (s *NoteStore) GetByID(ctx context.Context, id int64) (*model.Note, error) {
	row := s.db.QueryRowContext(ctx, noteSelect+noteFrom+` WHERE n.id = ?`, id)
	n, err := scanNote(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get note: %w", err)
	}

	tags, err := tagsForNotes(ctx, s.db, []int64{n.ID})
	if err != nil {
		return nil, err
	}
	if t, ok := tags[n.ID]; ok {
		n.Tags = t
	}
	return n, nil
}

// Update writes the mutable columns of n and stamps updated_by/updated_at.
// The workspace is never rewritten.
func (s *NoteStore) Update(ctx context.Context, n *model.Note, editorID *int64) (*model.Note, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE notes SET title = ?, content = ?, note_type = ?, is_draft = ?, updated_by = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		n.Title, n.Content, string(n.Type), boolInt(n.Draft), nullInt64(editorID), n.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update note: %w", err)
	}
	return s.GetByID(ctx, n.ID)
}

// ListPublic returns public, published notes with their vote counts.
func (s *NoteStore) ListPublic(ctx context.Context, order PublicOrder, page Page) ([]model.NoteSummary, error) {
	page = page.Normalize()
	orderBy, ok := publicOrderBy[order]
	if !ok {
		orderBy = publicOrderBy[OrderNewest]
	}
	return s.listSummaries(ctx,
		noteSelect+tallyCols+noteFrom+
			` WHERE n.note_type = 'public' AND n.is_draft = 0 ORDER BY `+orderBy+` LIMIT ? OFFSET ?`,
		page.Limit, page.Offset,
	)
}

// ListByCompany returns every note of the company, drafts included, newest
// first. A non-empty search filters titles case-insensitively.
func (s *NoteStore) ListByCompany(ctx context.Context, companyID int64, search string, page Page) ([]model.NoteSummary, error) {
	page = page.Normalize()
	query := noteSelect + tallyCols + noteFrom + ` WHERE w.company_id = ?`
	args := []any{companyID}
	if search != "" {
		query += ` AND n.title LIKE ? ESCAPE '\'`
		args = append(args, likePattern(search))
	}
	query += ` ORDER BY n.created_at DESC, n.id DESC LIMIT ? OFFSET ?`
	args = append(args, page.Limit, page.Offset)
	return s.listSummaries(ctx, query, args...)
}

// ListPublishedByWorkspace returns the non-draft notes of a workspace.
func (s *NoteStore) ListPublishedByWorkspace(ctx context.Context, workspaceID int64) ([]model.NoteSummary, error) {
	return s.listSummaries(ctx,
		noteSelect+tallyCols+noteFrom+
			` WHERE n.workspace_id = ? AND n.is_draft = 0 ORDER BY n.created_at DESC, n.id DESC`,
		workspaceID,
	)
}

func (s *NoteStore) listSummaries(ctx context.Context, query string, args ...any) ([]model.NoteSummary, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	var notes []model.NoteSummary
	var ids []int64
	for rows.Next() {
		var up, down int64
		n, err := scanNote(rows, &up, &down)
		if err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		notes = append(notes, model.NoteSummary{
			Note:  *n,
			Tally: model.Tally{Up: up, Down: down, Net: up - down},
		})
		ids = append(ids, n.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	tags, err := tagsForNotes(ctx, s.db, ids)
	if err != nil {
		return nil, err
	}
	for i := range notes {
		if t, ok := tags[notes[i].ID]; ok {
			notes[i].Tags = t
		}
	}
	return notes, nil
}
