// Package policy decides who may read or change a note. It holds no state;
// every decision is a pure function of the note's visibility and the
// requester.
package policy

import (
	"context"

	"github.com/dukerupert/inkwell/internal/auth"
	"github.com/dukerupert/inkwell/internal/model"
)

// Requester is the identity a decision is made for. The zero value is an
// anonymous requester.
type Requester struct {
	Authenticated bool
	UserID        int64
	CompanyID     int64
	Role          string
}

func Anonymous() Requester {
	return Requester{}
}

// FromContext builds a Requester from the request's AuthContext, falling back
// to anonymous.
func FromContext(ctx context.Context) Requester {
	ac, ok := auth.FromContext(ctx)
	if !ok || ac.UserID == 0 {
		return Anonymous()
	}
	return Requester{
		Authenticated: true,
		UserID:        ac.UserID,
		CompanyID:     ac.CompanyID,
		Role:          ac.Role,
	}
}

// MemberOf reports whether r is authenticated into companyID.
func (r Requester) MemberOf(companyID int64) bool {
	return r.Authenticated && r.CompanyID != 0 && r.CompanyID == companyID
}

func (r Requester) IsOwner() bool {
	return r.Authenticated && r.Role == model.RoleOwner
}

// CanRead: published public notes are readable by anyone; everything else
// only by members of the note's company.
func CanRead(n *model.Note, r Requester) bool {
	if n.Published() {
		return true
	}
	return r.MemberOf(n.CompanyID)
}

// CanWrite requires an owner of the note's company.
func CanWrite(n *model.Note, r Requester) bool {
	return r.MemberOf(n.CompanyID) && r.IsOwner()
}
