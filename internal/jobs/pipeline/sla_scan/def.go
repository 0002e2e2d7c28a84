package sla_scan

import (
	"time"

	"github.com/veldtops/fieldsuite-backend/internal/domain/jobs"
	"github.com/veldtops/fieldsuite-backend/internal/platform/envutil"
	"github.com/veldtops/fieldsuite-backend/internal/platform/logger"
	"github.com/veldtops/fieldsuite-backend/internal/services"
)

// Pipeline sweeps SLA trackings for crossed deadlines and due escalations,
// then re-queues itself so the sweep keeps running.
type Pipeline struct {
	log      *logger.Logger
	sla      services.SLAService
	jobs     services.JobService
	interval time.Duration
	batch    int
}

func New(baseLog *logger.Logger, sla services.SLAService, jobsSvc services.JobService) *Pipeline {
	return &Pipeline{
		log:      baseLog.With("pipeline", jobs.TypeSLAScan),
		sla:      sla,
		jobs:     jobsSvc,
		interval: envutil.Duration("SLA_SCAN_INTERVAL", time.Minute),
		batch:    envutil.Int("SLA_SCAN_BATCH", 200),
	}
}

func (p *Pipeline) Type() string { return jobs.TypeSLAScan }
