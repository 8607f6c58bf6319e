package model

import "time"

type NoteType string

const (
	NoteTypePublic  NoteType = "public"
	NoteTypePrivate NoteType = "private"
)

func (t NoteType) Valid() bool {
	return t == NoteTypePublic || t == NoteTypePrivate
}

type Note struct {
	ID          int64     `json:"id"`
	WorkspaceID int64     `json:"workspace_id"`
	CompanyID   int64     `json:"company_id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Type        NoteType  `json:"note_type"`
	Draft       bool      `json:"is_draft"`
	Tags        []string  `json:"tags"`
	CreatedBy   *int64    `json:"created_by"`
	UpdatedBy   *int64    `json:"updated_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Published reports whether the note is public and not a draft, the only
// state in which it is world-readable and open to votes.
func (n *Note) Published() bool {
	return n.Type == NoteTypePublic && !n.Draft
}

// HistoryEntry is an immutable snapshot of a note's title and content as
// they were immediately before a change.
type HistoryEntry struct {
	ID        int64     `json:"id"`
	NoteID    int64     `json:"note_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	ChangedBy *int64    `json:"changed_by"`
	ChangedAt time.Time `json:"changed_at"`
}

type Tag struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// NoteSummary is a list row: the note plus its derived vote counts.
type NoteSummary struct {
	Note
	Tally
}
