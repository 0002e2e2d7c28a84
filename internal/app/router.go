package app

import (
	httpx "github.com/veldtops/fieldsuite-backend/internal/http"
	httpMW "github.com/veldtops/fieldsuite-backend/internal/http/middleware"
	"github.com/veldtops/fieldsuite-backend/internal/observability"
	"github.com/veldtops/fieldsuite-backend/internal/platform/logger"
)

func wireServer(log *logger.Logger, s Services, h Handlers, metrics *observability.Metrics) *httpx.Server {
	cfg := httpx.RouterConfig{
		Log: log,

		AuthMiddleware: httpMW.NewAuthMiddleware(log, s.Auth),
		OrgMiddleware:  httpMW.NewOrgMiddleware(log, s.Org, s.RBAC),

		Metrics: metrics,

		HealthHandler:   h.Health,
		AuthHandler:     h.Auth,
		UserHandler:     h.User,
		OrgHandler:      h.Org,
		RoleHandler:     h.Role,
		ExpenseHandler:  h.Expense,
		FeedbackHandler: h.Feedback,
		TicketHandler:   h.Ticket,
		SLAHandler:      h.SLA,
		MailHandler:     h.Mail,
		DocumentHandler: h.Document,
		GSTHandler:      h.GST,
		FieldJobHandler: h.FieldJob,
		EventsHandler:   h.Events,
		JobHandler:      h.Job,
	}
	if metrics != nil {
		cfg.MetricsHandler = metrics
	}
	return httpx.NewServer(cfg)
}
