package mailbox_refresh

import (
	"time"

	"github.com/veldtops/fieldsuite-backend/internal/domain/jobs"
	"github.com/veldtops/fieldsuite-backend/internal/platform/envutil"
	"github.com/veldtops/fieldsuite-backend/internal/platform/logger"
	"github.com/veldtops/fieldsuite-backend/internal/services"
)

// Pipeline proactively rotates mailbox OAuth tokens before they expire and
// re-queues itself for the next round.
type Pipeline struct {
	log      *logger.Logger
	mail     services.MailService
	jobs     services.JobService
	interval time.Duration
	window   time.Duration
	limit    int
}

func New(baseLog *logger.Logger, mail services.MailService, jobsSvc services.JobService) *Pipeline {
	return &Pipeline{
		log:      baseLog.With("pipeline", jobs.TypeMailboxRefresh),
		mail:     mail,
		jobs:     jobsSvc,
		interval: envutil.Duration("MAILBOX_REFRESH_INTERVAL", 5*time.Minute),
		window:   envutil.Duration("MAILBOX_REFRESH_WINDOW", 10*time.Minute),
		limit:    envutil.Int("MAILBOX_REFRESH_LIMIT", 50),
	}
}

func (p *Pipeline) Type() string { return jobs.TypeMailboxRefresh }
