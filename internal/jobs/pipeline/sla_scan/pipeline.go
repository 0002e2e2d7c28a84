package sla_scan

import (
	"time"

	jobrt "github.com/veldtops/fieldsuite-backend/internal/jobs/runtime"
	"github.com/veldtops/fieldsuite-backend/internal/platform/dbctx"
	"github.com/veldtops/fieldsuite-backend/internal/services"
)

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}

	out, err := p.sla.Scan(jc.Ctx, p.batch)
	if err != nil {
		jc.Fail(err)
		p.reschedule(jc)
		return nil
	}

	jc.Succeed(out)
	p.reschedule(jc)
	return nil
}

// reschedule queues the next sweep. It runs after the current row reached a
// terminal status, otherwise the uniqueness check would see this run and skip.
func (p *Pipeline) reschedule(jc *jobrt.Context) {
	runAfter := time.Now().Add(p.interval)
	_, _, err := p.jobs.EnqueueUnique(dbctx.Context{Ctx: jc.Ctx}, services.EnqueueRequest{
		JobType:  p.Type(),
		RunAfter: &runAfter,
	})
	if err != nil {
		p.log.Warn("failed to reschedule sweep", "error", err)
	}
}
