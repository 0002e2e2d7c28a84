package ctxutil

import (
	"context"

	"github.com/google/uuid"
)

type actorKey struct{}

type orgScopeKey struct{}

// Actor is the authenticated caller attached by the auth middleware.
type Actor struct {
	UserID  uuid.UUID
	TokenID string
}

// OrgScope is the resolved org membership attached by the org middleware.
// Permissions holds the codes granted by the member's role; Owner short-circuits
// permission checks.
type OrgScope struct {
	OrgID       uuid.UUID
	MemberID    uuid.UUID
	RoleID      uuid.UUID
	RoleName    string
	Owner       bool
	Permissions map[string]struct{}
}

func WithActor(ctx context.Context, a *Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

func GetActor(ctx context.Context) *Actor {
	val := ctx.Value(actorKey{})
	if a, ok := val.(*Actor); ok {
		return a
	}
	return nil
}

func WithOrgScope(ctx context.Context, s *OrgScope) context.Context {
	return context.WithValue(ctx, orgScopeKey{}, s)
}

func GetOrgScope(ctx context.Context) *OrgScope {
	val := ctx.Value(orgScopeKey{})
	if s, ok := val.(*OrgScope); ok {
		return s
	}
	return nil
}

func (s *OrgScope) Has(code string) bool {
	if s == nil {
		return false
	}
	if s.Owner {
		return true
	}
	_, ok := s.Permissions[code]
	return ok
}
