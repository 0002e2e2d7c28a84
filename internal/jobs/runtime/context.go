package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/veldtops/fieldsuite-backend/internal/data/repos"
	"github.com/veldtops/fieldsuite-backend/internal/domain/jobs"
	"github.com/veldtops/fieldsuite-backend/internal/platform/dbctx"
)

// Context is the execution handle for a single claimed job run. Handlers
// never touch the job_run row directly; Succeed, Fail and Heartbeat are the
// only sanctioned ways to report state.
type Context struct {
	Ctx     context.Context
	DB      *gorm.DB
	Job     *jobs.JobRun
	Repo    repos.JobRunRepo
	payload map[string]any
}

// NewContext eagerly decodes the payload JSON so handlers can read inputs
// through Payload/PayloadUUID. A malformed payload decodes to an empty map;
// handlers validate their own required fields.
func NewContext(ctx context.Context, db *gorm.DB, job *jobs.JobRun, repo repos.JobRunRepo) *Context {
	c := &Context{
		Ctx:  ctx,
		DB:   db,
		Job:  job,
		Repo: repo,
	}
	c.decodePayload()
	return c
}

func (c *Context) decodePayload() {
	c.payload = map[string]any{}
	if c.Job == nil || len(c.Job.Payload) == 0 {
		return
	}
	var m map[string]any
	if err := json.Unmarshal(c.Job.Payload, &m); err == nil {
		c.payload = m
	}
}

// Payload never returns nil.
func (c *Context) Payload() map[string]any {
	if c.payload == nil {
		c.payload = map[string]any{}
	}
	return c.payload
}

func (c *Context) PayloadUUID(key string) (uuid.UUID, bool) {
	v, ok := c.Payload()[key]
	if !ok || v == nil {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(fmt.Sprint(v))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// EntityID returns the entity the job was enqueued for.
func (c *Context) EntityID() (uuid.UUID, bool) {
	if c.Job == nil || c.Job.EntityID == nil || *c.Job.EntityID == uuid.Nil {
		return uuid.Nil, false
	}
	return *c.Job.EntityID, true
}

// Heartbeat keeps a long-running claim from being treated as stale.
func (c *Context) Heartbeat() {
	if c.Job == nil || c.Job.ID == uuid.Nil || c.Repo == nil {
		return
	}
	_ = c.Repo.Heartbeat(dbctx.Context{Ctx: c.ctx()}, c.Job.ID)
}

// Fail records a terminal failure for this attempt. The claim query retries
// failed rows until attempts reach max_attempts.
func (c *Context) Fail(err error) {
	if c == nil || c.Job == nil || c.Job.ID == uuid.Nil || c.Repo == nil {
		return
	}
	now := time.Now()
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	_, _ = c.Repo.UpdateFieldsUnlessStatus(dbctx.Context{Ctx: c.ctx()}, c.Job.ID,
		[]string{jobs.StatusSucceeded}, map[string]any{
			"status":        jobs.StatusFailed,
			"error":         msg,
			"last_error_at": now,
			"locked_at":     nil,
			"finished_at":   now,
		})
	c.Job.Status = jobs.StatusFailed
	c.Job.Error = msg
	c.Job.LastErrorAt = &now
	c.Job.LockedAt = nil
	c.Job.FinishedAt = &now
}

// Succeed marks the run done and stores the result payload.
func (c *Context) Succeed(result any) {
	if c == nil || c.Job == nil || c.Job.ID == uuid.Nil || c.Repo == nil {
		return
	}
	now := time.Now()
	var res datatypes.JSON
	if result != nil {
		if b, err := json.Marshal(result); err == nil {
			res = datatypes.JSON(b)
		}
	}
	_, _ = c.Repo.UpdateFieldsUnlessStatus(dbctx.Context{Ctx: c.ctx()}, c.Job.ID,
		[]string{jobs.StatusSucceeded}, map[string]any{
			"status":      jobs.StatusSucceeded,
			"error":       "",
			"result":      res,
			"locked_at":   nil,
			"finished_at": now,
		})
	c.Job.Status = jobs.StatusSucceeded
	c.Job.Error = ""
	c.Job.Result = res
	c.Job.LockedAt = nil
	c.Job.FinishedAt = &now
}

func (c *Context) ctx() context.Context {
	if c.Ctx != nil {
		return c.Ctx
	}
	return context.Background()
}
