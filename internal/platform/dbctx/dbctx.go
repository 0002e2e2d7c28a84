package dbctx

import (
	"context"

	"gorm.io/gorm"
)

// Context carries the request context plus the transaction the caller wants
// the repo call to run in. A nil Tx means "use the repo's own handle".
type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}
