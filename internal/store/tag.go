package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dukerupert/inkwell/internal/model"
)

type TagStore struct {
	db DBTX
}

func NewTagStore(db DBTX) *TagStore {
	return &TagStore{db: db}
}

func scanTag(scanner interface{ Scan(...any) error }) (*model.Tag, error) {
	var t model.Tag
	if err := scanner.Scan(&t.ID, &t.Name, &t.CreatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

const tagCols = `id, name, created_at`

func (s *TagStore) GetByName(ctx context.Context, name string) (*model.Tag, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+tagCols+` FROM tags WHERE name = ?`, name)
	t, err := scanTag(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get tag: %w", err)
	}
	return t, nil
}

// Upsert returns the tag named name, creating it if needed. Names must
// already be normalized. A concurrent first use of the same name loses on the
// unique index and re-reads the winner's row.
func (s *TagStore) Upsert(ctx context.Context, name string) (*model.Tag, error) {
	t, err := s.GetByName(ctx, name)
	if err != nil || t != nil {
		return t, err
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO tags (name) VALUES (?)`, name)
	if err != nil && !IsUniqueViolation(err) {
		return nil, fmt.Errorf("insert tag: %w", err)
	}

	t, err = s.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("tag %q vanished after upsert", name)
	}
	return t, nil
}

// SetNoteTags replaces the tag set of a note with names, creating tags on
// first use.
func (s *TagStore) SetNoteTags(ctx context.Context, noteID int64, names []string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM note_tags WHERE note_id = ?`, noteID); err != nil {
		return fmt.Errorf("clear note tags: %w", err)
	}
	for _, name := range names {
		t, err := s.Upsert(ctx, name)
		if err != nil {
			return err
		}
		if _, err := s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO note_tags (note_id, tag_id) VALUES (?, ?)`,
			noteID, t.ID,
		); err != nil {
			return fmt.Errorf("attach tag %q: %w", name, err)
		}
	}
	return nil
}

// List returns all tags ordered by name, optionally filtered by a substring.
func (s *TagStore) List(ctx context.Context, search string) ([]model.Tag, error) {
	query := `SELECT ` + tagCols + ` FROM tags`
	var args []any
	if search != "" {
		query += ` WHERE name LIKE ? ESCAPE '\'`
		args = append(args, likePattern(strings.ToLower(search)))
	}
	query += ` ORDER BY name ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	var tags []model.Tag
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, *t)
	}
	return tags, rows.Err()
}

// tagsForNotes loads tag names for each note id, sorted by name.
func tagsForNotes(ctx context.Context, db DBTX, noteIDs []int64) (map[int64][]string, error) {
	out := make(map[int64][]string, len(noteIDs))
	if len(noteIDs) == 0 {
		return out, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(noteIDs)), ",")
	args := make([]any, len(noteIDs))
	for i, id := range noteIDs {
		args[i] = id
	}

	rows, err := db.QueryContext(ctx,
		`SELECT nt.note_id, t.name FROM note_tags nt JOIN tags t ON t.id = nt.tag_id
		 WHERE nt.note_id IN (`+placeholders+`) ORDER BY t.name ASC`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("load note tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var noteID int64
		var name string
		if err := rows.Scan(&noteID, &name); err != nil {
			return nil, fmt.Errorf("scan note tag: %w", err)
		}
		out[noteID] = append(out[noteID], name)
	}
	return out, rows.Err()
}
