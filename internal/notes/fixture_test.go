package notes

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dukerupert/inkwell/internal/database"
	"github.com/dukerupert/inkwell/internal/model"
	"github.com/dukerupert/inkwell/internal/policy"
	"github.com/dukerupert/inkwell/internal/store"
)

// fixture is two companies: acme (an owner, a member and one workspace) and
// globex (an owner and one workspace).
type fixture struct {
	db     *sql.DB
	engine *Engine
	ledger *Ledger

	acmeID      int64
	acmeWS      int64
	acmeOwner   policy.Requester
	acmeMember  policy.Requester
	globexID    int64
	globexWS    int64
	globexOwner policy.Requester
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	f := &fixture{db: db, engine: NewEngine(db), ledger: NewLedger(db)}

	f.acmeID, f.acmeWS, f.acmeOwner = seedCompany(t, db, "Acme", "owner@acme.test")
	member, err := store.NewUserStore(db).Create(ctx, "member@acme.test", "Member", "", &f.acmeID, model.RoleMember)
	require.NoError(t, err)
	f.acmeMember = policy.Requester{Authenticated: true, UserID: member.ID, CompanyID: f.acmeID, Role: model.RoleMember}

	f.globexID, f.globexWS, f.globexOwner = seedCompany(t, db, "Globex", "owner@globex.test")
	return f
}

func seedCompany(t *testing.T, db *sql.DB, name, ownerEmail string) (int64, int64, policy.Requester) {
	t.Helper()
	ctx := context.Background()

	c, err := store.NewCompanyStore(db).Create(ctx, name, "")
	require.NoError(t, err)
	u, err := store.NewUserStore(db).Create(ctx, ownerEmail, "Owner", "", &c.ID, model.RoleOwner)
	require.NoError(t, err)
	ws, err := store.NewWorkspaceStore(db).Create(ctx, c.ID, "General", "", &u.ID)
	require.NoError(t, err)

	return c.ID, ws.ID, policy.Requester{Authenticated: true, UserID: u.ID, CompanyID: c.ID, Role: model.RoleOwner}
}

// createNote creates a note in acme's workspace as acme's owner.
func (f *fixture) createNote(t *testing.T, title, content string, noteType model.NoteType, draft bool) *model.Note {
	t.Helper()
	n, err := f.engine.Create(context.Background(), CreateInput{
		Title:       title,
		Content:     content,
		Type:        noteType,
		Draft:       draft,
		WorkspaceID: f.acmeWS,
	}, f.acmeOwner)
	require.NoError(t, err)
	return n
}

func (f *fixture) history(t *testing.T, noteID int64) []model.HistoryEntry {
	t.Helper()
	entries, err := store.NewHistoryStore(f.db).ListByNote(context.Background(), noteID)
	require.NoError(t, err)
	return entries
}

func requireKind(t *testing.T, err error, want Kind) {
	t.Helper()
	require.Error(t, err)
	got, ok := KindOf(err)
	require.Truef(t, ok, "expected a domain error, got %v", err)
	require.Equal(t, want, got, "error: %v", err)
}

func ptr[T any](v T) *T {
	return &v
}
