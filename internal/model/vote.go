package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// VoteKind is stored as "up" or "down" and travels on the wire as
// "upvote" or "downvote".
type VoteKind string

const (
	VoteUp   VoteKind = "up"
	VoteDown VoteKind = "down"
)

var voteKindWire = map[VoteKind]string{
	VoteUp:   "upvote",
	VoteDown: "downvote",
}

// ParseVoteKind accepts both the short form and the upvote/downvote spelling.
func ParseVoteKind(s string) (VoteKind, bool) {
	switch s {
	case "up", "upvote":
		return VoteUp, true
	case "down", "downvote":
		return VoteDown, true
	default:
		return "", false
	}
}

// Wire returns the API spelling of k.
func (k VoteKind) Wire() string {
	if w, ok := voteKindWire[k]; ok {
		return w
	}
	return string(k)
}

func (k VoteKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.Wire())
}

func (k *VoteKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, ok := ParseVoteKind(s)
	if !ok {
		return fmt.Errorf("unknown vote type %q", s)
	}
	*k = parsed
	return nil
}

// VoterIdentity is the uniqueness key of a vote: exactly one of UserID or
// CompanyID is set.
type VoterIdentity struct {
	UserID    *int64 `json:"user_id,omitempty"`
	CompanyID *int64 `json:"company_id,omitempty"`
}

func UserVoter(userID int64) VoterIdentity {
	return VoterIdentity{UserID: &userID}
}

func CompanyVoter(companyID int64) VoterIdentity {
	return VoterIdentity{CompanyID: &companyID}
}

func (v VoterIdentity) Valid() bool {
	return (v.UserID == nil) != (v.CompanyID == nil)
}

// Key returns the stored uniqueness key, e.g. "user:12" or "company:3".
func (v VoterIdentity) Key() string {
	if v.UserID != nil {
		return fmt.Sprintf("user:%d", *v.UserID)
	}
	if v.CompanyID != nil {
		return fmt.Sprintf("company:%d", *v.CompanyID)
	}
	return ""
}

type Vote struct {
	ID        int64         `json:"id"`
	NoteID    int64         `json:"note_id"`
	Voter     VoterIdentity `json:"voter"`
	Kind      VoteKind      `json:"vote_type"`
	CreatedAt time.Time     `json:"created_at"`
}

type Tally struct {
	Up   int64 `json:"upvotes"`
	Down int64 `json:"downvotes"`
	Net  int64 `json:"vote_count"`
}
