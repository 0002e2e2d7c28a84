package document_extract

import (
	"errors"

	jobrt "github.com/veldtops/fieldsuite-backend/internal/jobs/runtime"
)

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}

	documentID, ok := jc.EntityID()
	if !ok {
		jc.Fail(errors.New("job carries no document id"))
		return nil
	}

	if err := p.documents.Extract(jc.Ctx, documentID); err != nil {
		jc.Fail(err)
		return nil
	}

	jc.Succeed(map[string]any{"document_id": documentID})
	return nil
}
