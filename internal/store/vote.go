package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/inkwell/internal/model"
)

type VoteStore struct {
	db DBTX
}

func NewVoteStore(db DBTX) *VoteStore {
	return &VoteStore{db: db}
}

func scanVote(scanner interface{ Scan(...any) error }) (*model.Vote, error) {
	var v model.Vote
	var userID, companyID sql.NullInt64
	if err := scanner.Scan(&v.ID, &v.NoteID, &userID, &companyID, &v.Kind, &v.CreatedAt); err != nil {
		return nil, err
	}
	v.Voter = model.VoterIdentity{UserID: int64Ptr(userID), CompanyID: int64Ptr(companyID)}
	return &v, nil
}

const voteCols = `id, note_id, user_id, company_id, vote_type, created_at`

// DeleteByVoter removes the voter's vote on the note, if any.
func (s *VoteStore) DeleteByVoter(ctx context.Context, noteID int64, voter model.VoterIdentity) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM votes WHERE note_id = ? AND voter_key = ?`,
		noteID, voter.Key(),
	)
	if err != nil {
		return 0, fmt.Errorf("delete vote: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}

// Insert adds a vote. A second live vote for the same (note, voter) pair is a
// unique violation.
func (s *VoteStore) Insert(ctx context.Context, noteID int64, voter model.VoterIdentity, kind model.VoteKind) (*model.Vote, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO votes (note_id, user_id, company_id, voter_key, vote_type) VALUES (?, ?, ?, ?, ?)`,
		noteID, nullInt64(voter.UserID), nullInt64(voter.CompanyID), voter.Key(), string(kind),
	)
	if err != nil {
		return nil, fmt.Errorf("insert vote: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+voteCols+` FROM votes WHERE id = ?`, id)
	return scanVote(row)
}

// GetByVoter returns the voter's current vote on the note, or nil.
func (s *VoteStore) GetByVoter(ctx context.Context, noteID int64, voter model.VoterIdentity) (*model.Vote, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+voteCols+` FROM votes WHERE note_id = ? AND voter_key = ?`,
		noteID, voter.Key(),
	)
	v, err := scanVote(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get vote: %w", err)
	}
	return v, nil
}

// CountByVoter returns how many vote rows exist for the (note, voter) pair.
func (s *VoteStore) CountByVoter(ctx context.Context, noteID int64, voter model.VoterIdentity) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM votes WHERE note_id = ? AND voter_key = ?`,
		noteID, voter.Key(),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count votes: %w", err)
	}
	return n, nil
}

// Tally counts the note's current votes by kind.
func (s *VoteStore) Tally(ctx context.Context, noteID int64) (model.Tally, error) {
	var t model.Tally
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(vote_type = 'up'), 0), COALESCE(SUM(vote_type = 'down'), 0)
		 FROM votes WHERE note_id = ?`,
		noteID,
	).Scan(&t.Up, &t.Down)
	if err != nil {
		return model.Tally{}, fmt.Errorf("tally votes: %w", err)
	}
	t.Net = t.Up - t.Down
	return t, nil
}
