package app

import (
	"gorm.io/gorm"

	"github.com/veldtops/fieldsuite-backend/internal/jobs/pipeline/document_extract"
	"github.com/veldtops/fieldsuite-backend/internal/jobs/pipeline/mailbox_refresh"
	"github.com/veldtops/fieldsuite-backend/internal/jobs/pipeline/sla_scan"
	"github.com/veldtops/fieldsuite-backend/internal/jobs/runtime"
	"github.com/veldtops/fieldsuite-backend/internal/jobs/worker"
	"github.com/veldtops/fieldsuite-backend/internal/platform/logger"
)

func wireWorker(db *gorm.DB, log *logger.Logger, r Repos, s Services) (*worker.Worker, error) {
	registry := runtime.NewRegistry()

	handlers := []runtime.Handler{
		sla_scan.New(log, s.SLA, s.Job),
		document_extract.New(log, s.Document),
		mailbox_refresh.New(log, s.Mail, s.Job),
	}
	for _, h := range handlers {
		if err := registry.Register(h); err != nil {
			return nil, err
		}
	}

	return worker.NewWorker(db, log, r.JobRun, registry), nil
}
