package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/inkwell/internal/model"
)

// HistoryStore is the append-only log of note snapshots. Rows are never
// updated; they are removed only by DeleteOlderThan or the note cascade.
type HistoryStore struct {
	db DBTX
}

func NewHistoryStore(db DBTX) *HistoryStore {
	return &HistoryStore{db: db}
}

func scanHistoryEntry(scanner interface{ Scan(...any) error }) (*model.HistoryEntry, error) {
	var h model.HistoryEntry
	var changedBy sql.NullInt64
	if err := scanner.Scan(&h.ID, &h.NoteID, &h.Title, &h.Content, &changedBy, &h.ChangedAt); err != nil {
		return nil, err
	}
	h.ChangedBy = int64Ptr(changedBy)
	return &h, nil
}

const historyCols = `id, note_id, title, content, changed_by, changed_at`

func (s *HistoryStore) Append(ctx context.Context, noteID int64, title, content string, editorID *int64) (*model.HistoryEntry, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO note_history (note_id, title, content, changed_by) VALUES (?, ?, ?, ?)`,
		noteID, title, content, nullInt64(editorID),
	)
	if err != nil {
		return nil, fmt.Errorf("insert history: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *HistoryStore) GetByID(ctx context.Context, id int64) (*model.HistoryEntry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+historyCols+` FROM note_history WHERE id = ?`, id)
	h, err := scanHistoryEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get history: %w", err)
	}
	return h, nil
}

// ListByNote returns the note's entries newest first. Entries recorded in the
// same second are ordered by id.
func (s *HistoryStore) ListByNote(ctx context.Context, noteID int64) ([]model.HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+historyCols+` FROM note_history WHERE note_id = ? ORDER BY changed_at DESC, id DESC`,
		noteID,
	)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var entries []model.HistoryEntry
	for rows.Next() {
		h, err := scanHistoryEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		entries = append(entries, *h)
	}
	return entries, rows.Err()
}

// DeleteOlderThan removes entries recorded more than maxAgeDays ago and
// returns the number deleted.
func (s *HistoryStore) DeleteOlderThan(ctx context.Context, maxAgeDays int) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM note_history WHERE changed_at < datetime('now', ?)`,
		fmt.Sprintf("-%d days", maxAgeDays),
	)
	if err != nil {
		return 0, fmt.Errorf("delete old history: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}
