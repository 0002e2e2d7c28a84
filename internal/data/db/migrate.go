package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/veldtops/fieldsuite-backend/internal/domain/auth"
	"github.com/veldtops/fieldsuite-backend/internal/domain/document"
	"github.com/veldtops/fieldsuite-backend/internal/domain/expense"
	"github.com/veldtops/fieldsuite-backend/internal/domain/feedback"
	"github.com/veldtops/fieldsuite-backend/internal/domain/fieldjob"
	"github.com/veldtops/fieldsuite-backend/internal/domain/jobs"
	"github.com/veldtops/fieldsuite-backend/internal/domain/mail"
	"github.com/veldtops/fieldsuite-backend/internal/domain/org"
	"github.com/veldtops/fieldsuite-backend/internal/domain/rbac"
	"github.com/veldtops/fieldsuite-backend/internal/domain/sla"
	"github.com/veldtops/fieldsuite-backend/internal/domain/ticket"
	"github.com/veldtops/fieldsuite-backend/internal/domain/user"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.SetupJoinTable(&rbac.Role{}, "Permissions", &rbac.RolePermission{}); err != nil {
		return fmt.Errorf("setup role_permission join table: %w", err)
	}

	return db.AutoMigrate(

		// =========================
		// Core identity + auth
		// =========================
		&user.User{},
		&auth.UserToken{},

		// =========================
		// Tenancy + RBAC
		// =========================
		&org.Organization{},
		&org.Member{},
		&rbac.Permission{},
		&rbac.Role{},

		// =========================
		// Expense tracking
		// =========================
		&expense.Account{},
		&expense.Entry{},

		// =========================
		// Service desk
		// =========================
		&ticket.Ticket{},
		&ticket.Comment{},
		&sla.Policy{},
		&sla.Tracking{},
		&feedback.CustomerFeedback{},

		// =========================
		// Mailbox integration
		// =========================
		&mail.Account{},
		&mail.OAuthState{},

		// =========================
		// Documents (uploads + extraction)
		// =========================
		&document.Document{},

		// =========================
		// Field operations + numbering
		// =========================
		&fieldjob.FieldJob{},
		&fieldjob.Sequence{},

		// =========================
		// Jobs / worker
		// =========================
		&jobs.JobRun{},
	)
}

func EnsureAuthIndexes(db *gorm.DB) error {
	// uuid-ossp is already enabled in NewPostgresService, but safe to re-run
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		return fmt.Errorf("enable uuid-ossp: %w", err)
	}
	// user_token
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_user_token_user_id ON user_token(user_id);`).Error; err != nil {
		return fmt.Errorf("create idx_user_token_user_id: %w", err)
	}
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_user_token_expires_at ON user_token(expires_at);`).Error; err != nil {
		return fmt.Errorf("create idx_user_token_expires_at: %w", err)
	}
	// oauth_state
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_oauth_state_expires_at ON oauth_state(expires_at);`).Error; err != nil {
		return fmt.Errorf("create idx_oauth_state_expires_at: %w", err)
	}
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_oauth_state_provider_consumed ON oauth_state(provider, consumed_at);`).Error; err != nil {
		return fmt.Errorf("create idx_oauth_state_provider_consumed: %w", err)
	}
	return nil
}

func EnsureTicketIndexes(db *gorm.DB) error {
	// Fast ticket listing per org.
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_ticket_org_status_created
		ON ticket (org_id, status, created_at DESC)
		WHERE deleted_at IS NULL;
	`).Error; err != nil {
		return fmt.Errorf("create idx_ticket_org_status_created: %w", err)
	}

	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_ticket_org_assignee
		ON ticket (org_id, assignee_id)
		WHERE deleted_at IS NULL AND assignee_id IS NOT NULL;
	`).Error; err != nil {
		return fmt.Errorf("create idx_ticket_org_assignee: %w", err)
	}

	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_ticket_comment_ticket_created
		ON ticket_comment (ticket_id, created_at);
	`).Error; err != nil {
		return fmt.Errorf("create idx_ticket_comment_ticket_created: %w", err)
	}

	// The deadline scan walks only unsettled rows.
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_sla_tracking_response_pending
		ON sla_tracking (response_deadline)
		WHERE deleted_at IS NULL AND response_status = 'pending';
	`).Error; err != nil {
		return fmt.Errorf("create idx_sla_tracking_response_pending: %w", err)
	}

	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_sla_tracking_resolution_pending
		ON sla_tracking (resolution_deadline)
		WHERE deleted_at IS NULL AND resolution_status = 'pending';
	`).Error; err != nil {
		return fmt.Errorf("create idx_sla_tracking_resolution_pending: %w", err)
	}

	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_customer_feedback_org_status
		ON customer_feedback (org_id, status, created_at DESC)
		WHERE deleted_at IS NULL;
	`).Error; err != nil {
		return fmt.Errorf("create idx_customer_feedback_org_status: %w", err)
	}

	return nil
}

func EnsureOpsIndexes(db *gorm.DB) error {
	// Claim query: queued-or-retryable rows ordered by run_after.
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_job_run_claim
		ON job_run (status, run_after)
		WHERE deleted_at IS NULL;
	`).Error; err != nil {
		return fmt.Errorf("create idx_job_run_claim: %w", err)
	}

	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_job_run_entity
		ON job_run (entity_type, entity_id)
		WHERE deleted_at IS NULL;
	`).Error; err != nil {
		return fmt.Errorf("create idx_job_run_entity: %w", err)
	}

	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_field_job_org_status_scheduled
		ON field_job (org_id, status, scheduled_for)
		WHERE deleted_at IS NULL;
	`).Error; err != nil {
		return fmt.Errorf("create idx_field_job_org_status_scheduled: %w", err)
	}

	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_expense_entry_org_account_date
		ON expense_entry (org_id, account_id, incurred_on DESC)
		WHERE deleted_at IS NULL;
	`).Error; err != nil {
		return fmt.Errorf("create idx_expense_entry_org_account_date: %w", err)
	}

	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_document_org_status_created
		ON document (org_id, status, created_at DESC)
		WHERE deleted_at IS NULL;
	`).Error; err != nil {
		return fmt.Errorf("create idx_document_org_status_created: %w", err)
	}

	return nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	if err := AutoMigrateAll(s.db); err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	if err := EnsureAuthIndexes(s.db); err != nil {
		s.log.Error("Auth index migration failed", "error", err)
		return err
	}
	if err := EnsureTicketIndexes(s.db); err != nil {
		s.log.Error("Ticket index migration failed", "error", err)
		return err
	}
	if err := EnsureOpsIndexes(s.db); err != nil {
		s.log.Error("Ops index migration failed", "error", err)
		return err
	}

	return nil
}
