package document_extract

import (
	"github.com/veldtops/fieldsuite-backend/internal/domain/jobs"
	"github.com/veldtops/fieldsuite-backend/internal/platform/logger"
	"github.com/veldtops/fieldsuite-backend/internal/services"
)

// Pipeline runs the extraction for one uploaded document.
type Pipeline struct {
	log       *logger.Logger
	documents services.DocumentService
}

func New(baseLog *logger.Logger, documents services.DocumentService) *Pipeline {
	return &Pipeline{
		log:       baseLog.With("pipeline", jobs.TypeDocumentExtract),
		documents: documents,
	}
}

func (p *Pipeline) Type() string { return jobs.TypeDocumentExtract }
