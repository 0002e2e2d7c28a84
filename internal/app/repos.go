package app

import (
	"gorm.io/gorm"

	"github.com/veldtops/fieldsuite-backend/internal/data/repos"
	"github.com/veldtops/fieldsuite-backend/internal/platform/logger"
)

type Repos struct {
	User      repos.UserRepo
	UserToken repos.UserTokenRepo

	Organization repos.OrganizationRepo
	Member       repos.MemberRepo
	Permission   repos.PermissionRepo
	Role         repos.RoleRepo

	ExpenseAccount repos.ExpenseAccountRepo
	ExpenseEntry   repos.ExpenseEntryRepo
	Feedback       repos.FeedbackRepo

	Ticket        repos.TicketRepo
	TicketComment repos.TicketCommentRepo
	SLAPolicy     repos.SLAPolicyRepo
	SLATracking   repos.SLATrackingRepo

	MailAccount repos.MailAccountRepo
	OAuthState  repos.OAuthStateRepo
	Document    repos.DocumentRepo

	FieldJob repos.FieldJobRepo
	Sequence repos.SequenceRepo

	JobRun repos.JobRunRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	return Repos{
		User:      repos.NewUserRepo(db, log),
		UserToken: repos.NewUserTokenRepo(db, log),

		Organization: repos.NewOrganizationRepo(db, log),
		Member:       repos.NewMemberRepo(db, log),
		Permission:   repos.NewPermissionRepo(db, log),
		Role:         repos.NewRoleRepo(db, log),

		ExpenseAccount: repos.NewExpenseAccountRepo(db, log),
		ExpenseEntry:   repos.NewExpenseEntryRepo(db, log),
		Feedback:       repos.NewFeedbackRepo(db, log),

		Ticket:        repos.NewTicketRepo(db, log),
		TicketComment: repos.NewTicketCommentRepo(db, log),
		SLAPolicy:     repos.NewSLAPolicyRepo(db, log),
		SLATracking:   repos.NewSLATrackingRepo(db, log),

		MailAccount: repos.NewMailAccountRepo(db, log),
		OAuthState:  repos.NewOAuthStateRepo(db, log),
		Document:    repos.NewDocumentRepo(db, log),

		FieldJob: repos.NewFieldJobRepo(db, log),
		Sequence: repos.NewSequenceRepo(db, log),

		JobRun: repos.NewJobRunRepo(db, log),
	}
}
