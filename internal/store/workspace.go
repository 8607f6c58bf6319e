package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/inkwell/internal/model"
)

type WorkspaceStore struct {
	db DBTX
}

func NewWorkspaceStore(db DBTX) *WorkspaceStore {
	return &WorkspaceStore{db: db}
}

func scanWorkspace(scanner interface{ Scan(...any) error }) (*model.Workspace, error) {
	var w model.Workspace
	var createdBy sql.NullInt64
	err := scanner.Scan(&w.ID, &w.CompanyID, &w.Name, &w.Slug, &w.Description, &createdBy, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	w.CreatedBy = int64Ptr(createdBy)
	return &w, nil
}

const workspaceCols = `id, company_id, name, slug, description, created_by, created_at, updated_at`

// Create inserts a workspace. The slug must be unique within the company;
// a clash surfaces as a unique violation (see IsUniqueViolation).
func (s *WorkspaceStore) Create(ctx context.Context, companyID int64, name, description string, createdBy *int64) (*model.Workspace, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO workspaces (company_id, name, slug, description, created_by) VALUES (?, ?, ?, ?, ?)`,
		companyID, name, Slugify(name), description, nullInt64(createdBy),
	)
	if err != nil {
		return nil, fmt.Errorf("insert workspace: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *WorkspaceStore) GetByID(ctx context.Context, id int64) (*model.Workspace, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+workspaceCols+` FROM workspaces WHERE id = ?`, id)
	w, err := scanWorkspace(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get workspace: %w", err)
	}
	return w, nil
}

// ListByCompany returns the company's workspaces, newest first.
func (s *WorkspaceStore) ListByCompany(ctx context.Context, companyID int64) ([]model.Workspace, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+workspaceCols+` FROM workspaces WHERE company_id = ? ORDER BY created_at DESC, id DESC`,
		companyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list workspaces: %w", err)
	}
	defer rows.Close()

	var workspaces []model.Workspace
	for rows.Next() {
		w, err := scanWorkspace(rows)
		if err != nil {
			return nil, fmt.Errorf("scan workspace: %w", err)
		}
		workspaces = append(workspaces, *w)
	}
	return workspaces, rows.Err()
}
