package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/veldtops/fieldsuite-backend/internal/platform/ctxutil"
	"github.com/veldtops/fieldsuite-backend/internal/platform/dbctx"
)

// actorID returns the authenticated user id; the auth middleware guarantees
// it is set on protected routes.
func actorID(c *gin.Context) uuid.UUID {
	if a := ctxutil.GetActor(c.Request.Context()); a != nil {
		return a.UserID
	}
	return uuid.Nil
}

// scopedOrgID returns the org id resolved by the org middleware.
func scopedOrgID(c *gin.Context) uuid.UUID {
	if s := ctxutil.GetOrgScope(c.Request.Context()); s != nil {
		return s.OrgID
	}
	return uuid.Nil
}

// scopedMemberID returns the acting user's membership id within the
// resolved org.
func scopedMemberID(c *gin.Context) uuid.UUID {
	if s := ctxutil.GetOrgScope(c.Request.Context()); s != nil {
		return s.MemberID
	}
	return uuid.Nil
}

func reqDBC(c *gin.Context) dbctx.Context {
	return dbctx.Context{Ctx: c.Request.Context()}
}

// pathUUID parses a uuid route param, or uuid.Nil when malformed.
func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
