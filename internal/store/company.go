package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/inkwell/internal/model"
)

type CompanyStore struct {
	db DBTX
}

func NewCompanyStore(db DBTX) *CompanyStore {
	return &CompanyStore{db: db}
}

func scanCompany(scanner interface{ Scan(...any) error }) (*model.Company, error) {
	var c model.Company
	err := scanner.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

const companyCols = `id, name, slug, description, created_at, updated_at`

// Create inserts a company with a slug derived from its name, suffixed with
// -1, -2, ... until it is unique.
func (s *CompanyStore) Create(ctx context.Context, name, description string) (*model.Company, error) {
	base := Slugify(name)
	slug := base
	for i := 1; ; i++ {
		var exists bool
		err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM companies WHERE slug = ?)`, slug).Scan(&exists)
		if err != nil {
			return nil, fmt.Errorf("check company slug: %w", err)
		}
		if !exists {
			break
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO companies (name, slug, description) VALUES (?, ?, ?)`,
		name, slug, description,
	)
	if err != nil {
		return nil, fmt.Errorf("insert company: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *CompanyStore) GetByID(ctx context.Context, id int64) (*model.Company, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+companyCols+` FROM companies WHERE id = ?`, id)
	c, err := scanCompany(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get company: %w", err)
	}
	return c, nil
}
