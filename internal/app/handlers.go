package app

import (
	httpH "github.com/veldtops/fieldsuite-backend/internal/http/handlers"
	"github.com/veldtops/fieldsuite-backend/internal/platform/logger"
	"github.com/veldtops/fieldsuite-backend/internal/realtime"
)

type Handlers struct {
	Health   *httpH.HealthHandler
	Auth     *httpH.AuthHandler
	User     *httpH.UserHandler
	Org      *httpH.OrgHandler
	Role     *httpH.RoleHandler
	Expense  *httpH.ExpenseHandler
	Feedback *httpH.FeedbackHandler
	Ticket   *httpH.TicketHandler
	SLA      *httpH.SLAHandler
	Mail     *httpH.MailHandler
	Document *httpH.DocumentHandler
	GST      *httpH.GSTHandler
	FieldJob *httpH.FieldJobHandler
	Events   *httpH.EventsHandler
	Job      *httpH.JobHandler
}

func wireHandlers(log *logger.Logger, s Services, hub *realtime.SSEHub) Handlers {
	return Handlers{
		Health:   httpH.NewHealthHandler(),
		Auth:     httpH.NewAuthHandler(s.Auth),
		User:     httpH.NewUserHandler(s.User),
		Org:      httpH.NewOrgHandler(s.Org),
		Role:     httpH.NewRoleHandler(s.RBAC),
		Expense:  httpH.NewExpenseHandler(s.Expense),
		Feedback: httpH.NewFeedbackHandler(s.Feedback),
		Ticket:   httpH.NewTicketHandler(s.Ticket),
		SLA:      httpH.NewSLAHandler(s.SLA),
		Mail:     httpH.NewMailHandler(s.Mail),
		Document: httpH.NewDocumentHandler(s.Document),
		GST:      httpH.NewGSTHandler(s.GST),
		FieldJob: httpH.NewFieldJobHandler(s.FieldJob),
		Events:   httpH.NewEventsHandler(log, hub, s.Org),
		Job:      httpH.NewJobHandler(s.Job),
	}
}
