package mailbox_refresh

import (
	"time"

	jobrt "github.com/veldtops/fieldsuite-backend/internal/jobs/runtime"
	"github.com/veldtops/fieldsuite-backend/internal/observability"
	"github.com/veldtops/fieldsuite-backend/internal/platform/dbctx"
	"github.com/veldtops/fieldsuite-backend/internal/services"
)

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}

	refreshed, err := p.mail.RefreshExpiring(jc.Ctx, p.window, p.limit)
	if err != nil {
		jc.Fail(err)
		p.reschedule(jc)
		return nil
	}

	observability.Current().AddMailRefreshed(refreshed)
	jc.Succeed(map[string]any{"refreshed": refreshed})
	p.reschedule(jc)
	return nil
}

// reschedule runs after the current row is terminal so the uniqueness check
// does not see this run and skip.
func (p *Pipeline) reschedule(jc *jobrt.Context) {
	runAfter := time.Now().Add(p.interval)
	_, _, err := p.jobs.EnqueueUnique(dbctx.Context{Ctx: jc.Ctx}, services.EnqueueRequest{
		JobType:  p.Type(),
		RunAfter: &runAfter,
	})
	if err != nil {
		p.log.Warn("failed to reschedule refresh", "error", err)
	}
}
