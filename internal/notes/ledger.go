package notes

import (
	"context"
	"database/sql"

	"github.com/dukerupert/inkwell/internal/model"
	"github.com/dukerupert/inkwell/internal/policy"
	"github.com/dukerupert/inkwell/internal/store"
)

// castAttempts bounds the optimistic retry after losing a uniqueness race
// against a concurrent vote from the same voter.
const castAttempts = 2

// Ledger keeps at most one vote per (note, voter identity) and derives
// tallies by counting rows; no counter is stored.
type Ledger struct {
	db *sql.DB
}

func NewLedger(db *sql.DB) *Ledger {
	return &Ledger{db: db}
}

// VoterFor resolves the identity a requester votes as: themselves, or their
// company when asCompany is set.
func VoterFor(r policy.Requester, asCompany bool) (model.VoterIdentity, error) {
	if !r.Authenticated {
		return model.VoterIdentity{}, authorizationError("voting requires an authenticated user")
	}
	if asCompany {
		if r.CompanyID == 0 {
			return model.VoterIdentity{}, validationError("as_company", "user does not belong to a company")
		}
		return model.CompanyVoter(r.CompanyID), nil
	}
	return model.UserVoter(r.UserID), nil
}

// CastVote replaces any earlier vote by voter on the note with a vote of the
// given kind and returns it with the note's new tally.
func (l *Ledger) CastVote(ctx context.Context, noteID int64, voter model.VoterIdentity, kind model.VoteKind) (*model.Vote, model.Tally, error) {
	if kind != model.VoteUp && kind != model.VoteDown {
		return nil, model.Tally{}, validationError("vote_type", "vote_type must be upvote or downvote")
	}
	if !voter.Valid() {
		return nil, model.Tally{}, validationError("voter", "a vote needs exactly one of user or company")
	}

	var (
		vote  *model.Vote
		tally model.Tally
		err   error
	)
	for attempt := 1; attempt <= castAttempts; attempt++ {
		vote, tally, err = l.castOnce(ctx, noteID, voter, kind)
		if err == nil || !store.IsUniqueViolation(err) {
			break
		}
	}
	if err != nil {
		return nil, model.Tally{}, err
	}
	return vote, tally, nil
}

func (l *Ledger) castOnce(ctx context.Context, noteID int64, voter model.VoterIdentity, kind model.VoteKind) (*model.Vote, model.Tally, error) {
	var (
		vote  *model.Vote
		tally model.Tally
	)
	err := store.RunInTx(ctx, l.db, func(tx *sql.Tx) error {
		n, err := store.NewNoteStore(tx).GetByID(ctx, noteID)
		if err != nil {
			return err
		}
		if n == nil {
			return notFoundError("note not found")
		}
		if !n.Published() {
			return conflictError("can only vote on public published notes")
		}

		votes := store.NewVoteStore(tx)
		if _, err := votes.DeleteByVoter(ctx, n.ID, voter); err != nil {
			return err
		}
		if vote, err = votes.Insert(ctx, n.ID, voter, kind); err != nil {
			return err
		}
		tally, err = votes.Tally(ctx, n.ID)
		return err
	})
	return vote, tally, err
}

// Tally counts the note's current votes.
func (l *Ledger) Tally(ctx context.Context, noteID int64) (model.Tally, error) {
	n, err := store.NewNoteStore(l.db).GetByID(ctx, noteID)
	if err != nil {
		return model.Tally{}, err
	}
	if n == nil {
		return model.Tally{}, notFoundError("note not found")
	}
	return store.NewVoteStore(l.db).Tally(ctx, noteID)
}
