package repos

import (
	"gorm.io/gorm"

	"github.com/veldtops/fieldsuite-backend/internal/data/repos/auth"
	"github.com/veldtops/fieldsuite-backend/internal/data/repos/document"
	"github.com/veldtops/fieldsuite-backend/internal/data/repos/expense"
	"github.com/veldtops/fieldsuite-backend/internal/data/repos/feedback"
	"github.com/veldtops/fieldsuite-backend/internal/data/repos/fieldjob"
	"github.com/veldtops/fieldsuite-backend/internal/data/repos/jobs"
	"github.com/veldtops/fieldsuite-backend/internal/data/repos/mail"
	"github.com/veldtops/fieldsuite-backend/internal/data/repos/org"
	"github.com/veldtops/fieldsuite-backend/internal/data/repos/rbac"
	"github.com/veldtops/fieldsuite-backend/internal/data/repos/sla"
	"github.com/veldtops/fieldsuite-backend/internal/data/repos/ticket"
	"github.com/veldtops/fieldsuite-backend/internal/data/repos/user"
	"github.com/veldtops/fieldsuite-backend/internal/platform/logger"
)

type UserRepo = user.UserRepo
type UserTokenRepo = auth.UserTokenRepo

type OrganizationRepo = org.OrganizationRepo
type MemberRepo = org.MemberRepo
type PermissionRepo = rbac.PermissionRepo
type RoleRepo = rbac.RoleRepo

type ExpenseAccountRepo = expense.AccountRepo
type ExpenseEntryRepo = expense.EntryRepo
type FeedbackRepo = feedback.FeedbackRepo

type TicketRepo = ticket.TicketRepo
type TicketCommentRepo = ticket.CommentRepo
type SLAPolicyRepo = sla.PolicyRepo
type SLATrackingRepo = sla.TrackingRepo

type MailAccountRepo = mail.AccountRepo
type OAuthStateRepo = mail.OAuthStateRepo
type DocumentRepo = document.DocumentRepo

type FieldJobRepo = fieldjob.FieldJobRepo
type SequenceRepo = fieldjob.SequenceRepo

type JobRunRepo = jobs.JobRunRepo

type TicketFilter = ticket.Filter
type ExpenseEntryFilter = expense.EntryFilter
type FeedbackFilter = feedback.Filter
type FeedbackSummary = feedback.Summary
type SLASummary = sla.Summary
type DocumentFilter = document.Filter
type FieldJobFilter = fieldjob.Filter

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo { return user.NewUserRepo(db, baseLog) }
func NewUserTokenRepo(db *gorm.DB, baseLog *logger.Logger) UserTokenRepo {
	return auth.NewUserTokenRepo(db, baseLog)
}

func NewOrganizationRepo(db *gorm.DB, baseLog *logger.Logger) OrganizationRepo {
	return org.NewOrganizationRepo(db, baseLog)
}
func NewMemberRepo(db *gorm.DB, baseLog *logger.Logger) MemberRepo {
	return org.NewMemberRepo(db, baseLog)
}
func NewPermissionRepo(db *gorm.DB, baseLog *logger.Logger) PermissionRepo {
	return rbac.NewPermissionRepo(db, baseLog)
}
func NewRoleRepo(db *gorm.DB, baseLog *logger.Logger) RoleRepo {
	return rbac.NewRoleRepo(db, baseLog)
}

func NewExpenseAccountRepo(db *gorm.DB, baseLog *logger.Logger) ExpenseAccountRepo {
	return expense.NewAccountRepo(db, baseLog)
}
func NewExpenseEntryRepo(db *gorm.DB, baseLog *logger.Logger) ExpenseEntryRepo {
	return expense.NewEntryRepo(db, baseLog)
}
func NewFeedbackRepo(db *gorm.DB, baseLog *logger.Logger) FeedbackRepo {
	return feedback.NewFeedbackRepo(db, baseLog)
}

func NewTicketRepo(db *gorm.DB, baseLog *logger.Logger) TicketRepo {
	return ticket.NewTicketRepo(db, baseLog)
}
func NewTicketCommentRepo(db *gorm.DB, baseLog *logger.Logger) TicketCommentRepo {
	return ticket.NewCommentRepo(db, baseLog)
}
func NewSLAPolicyRepo(db *gorm.DB, baseLog *logger.Logger) SLAPolicyRepo {
	return sla.NewPolicyRepo(db, baseLog)
}
func NewSLATrackingRepo(db *gorm.DB, baseLog *logger.Logger) SLATrackingRepo {
	return sla.NewTrackingRepo(db, baseLog)
}

func NewMailAccountRepo(db *gorm.DB, baseLog *logger.Logger) MailAccountRepo {
	return mail.NewAccountRepo(db, baseLog)
}
func NewOAuthStateRepo(db *gorm.DB, baseLog *logger.Logger) OAuthStateRepo {
	return mail.NewOAuthStateRepo(db, baseLog)
}
func NewDocumentRepo(db *gorm.DB, baseLog *logger.Logger) DocumentRepo {
	return document.NewDocumentRepo(db, baseLog)
}

func NewFieldJobRepo(db *gorm.DB, baseLog *logger.Logger) FieldJobRepo {
	return fieldjob.NewFieldJobRepo(db, baseLog)
}
func NewSequenceRepo(db *gorm.DB, baseLog *logger.Logger) SequenceRepo {
	return fieldjob.NewSequenceRepo(db, baseLog)
}

func NewJobRunRepo(db *gorm.DB, baseLog *logger.Logger) JobRunRepo {
	return jobs.NewJobRunRepo(db, baseLog)
}
