package app

import (
	"gorm.io/gorm"

	"github.com/veldtops/fieldsuite-backend/internal/platform/logger"
	"github.com/veldtops/fieldsuite-backend/internal/realtime"
	"github.com/veldtops/fieldsuite-backend/internal/realtime/bus"
	"github.com/veldtops/fieldsuite-backend/internal/services"
)

type Services struct {
	Events   services.EventPublisher
	Auth     services.AuthService
	RBAC     services.RBACService
	GST      services.GSTService
	Org      services.OrgService
	Avatar   services.AvatarService
	User     services.UserService
	Expense  services.ExpenseService
	Feedback services.FeedbackService
	SLA      services.SLAService
	Ticket   services.TicketService
	FieldJob services.FieldJobService
	Job      services.JobService
	Mail     services.MailService
	Document services.DocumentService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r Repos, c Clients, hub *realtime.SSEHub, eventBus bus.Bus) (Services, error) {
	var s Services

	s.Events = services.NewEventPublisher(log, hub, eventBus)
	s.Auth = services.NewAuthService(db, log, cfg.Auth, r.User, r.UserToken)
	s.RBAC = services.NewRBACService(db, log, r.Permission, r.Role, r.Member)
	s.GST = services.NewGSTService(log, c.GST, c.Cache)
	s.Org = services.NewOrgService(db, log, r.Organization, r.Member, r.Role, r.User, r.Sequence, r.SLAPolicy, s.RBAC, s.GST)

	avatar, err := services.NewAvatarService(db, log, r.User, c.Bucket)
	if err != nil {
		return Services{}, err
	}
	s.Avatar = avatar
	s.User = services.NewUserService(db, log, r.User, r.Organization, s.Avatar)

	s.Expense = services.NewExpenseService(db, log, r.ExpenseAccount, r.ExpenseEntry)
	s.SLA = services.NewSLAService(db, log, r.SLAPolicy, r.SLATracking, s.Events)
	s.Ticket = services.NewTicketService(db, log, r.Ticket, r.TicketComment, r.Sequence, s.SLA, s.Events)
	s.Feedback = services.NewFeedbackService(db, log, r.Feedback, r.Ticket, s.Events)
	s.FieldJob = services.NewFieldJobService(db, log, r.FieldJob, r.Sequence, r.Ticket)
	s.Job = services.NewJobService(db, log, r.JobRun)
	s.Mail = services.NewMailService(db, log, cfg.Mail, r.MailAccount, r.OAuthState, c.Sealer, c.Graph)
	s.Document = services.NewDocumentService(db, log, r.Document, c.Bucket, c.DocAI, c.Vision, c.OpenRouter, c.Mindee, s.Expense, s.Job, s.Events)

	return s, nil
}
