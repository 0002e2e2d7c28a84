package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/veldtops/fieldsuite-backend/internal/http/handlers"
	httpMW "github.com/veldtops/fieldsuite-backend/internal/http/middleware"
	"github.com/veldtops/fieldsuite-backend/internal/observability"
	"github.com/veldtops/fieldsuite-backend/internal/platform/envutil"
	"github.com/veldtops/fieldsuite-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log *logger.Logger

	AuthMiddleware *httpMW.AuthMiddleware
	OrgMiddleware  *httpMW.OrgMiddleware

	Metrics        *observability.Metrics
	MetricsHandler http.Handler

	HealthHandler   *httpH.HealthHandler
	AuthHandler     *httpH.AuthHandler
	UserHandler     *httpH.UserHandler
	OrgHandler      *httpH.OrgHandler
	RoleHandler     *httpH.RoleHandler
	ExpenseHandler  *httpH.ExpenseHandler
	FeedbackHandler *httpH.FeedbackHandler
	TicketHandler   *httpH.TicketHandler
	SLAHandler      *httpH.SLAHandler
	MailHandler     *httpH.MailHandler
	DocumentHandler *httpH.DocumentHandler
	GSTHandler      *httpH.GSTHandler
	FieldJobHandler *httpH.FieldJobHandler
	EventsHandler   *httpH.EventsHandler
	JobHandler      *httpH.JobHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	// Runs before AttachRequestContext so trace ids from incoming headers
	// land in the request context.
	r.Use(otelgin.Middleware(envutil.String("OTEL_SERVICE_NAME", "fieldsuite-backend")))
	r.Use(httpMW.AttachRequestContext())
	r.Use(httpMW.CORS())
	if cfg.Log != nil {
		r.Use(httpMW.RequestLogger(cfg.Log))
	}
	if cfg.Metrics != nil {
		r.Use(httpMW.Metrics(cfg.Metrics))
	}

	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.MetricsHandler != nil {
		r.GET("/metrics", gin.WrapH(cfg.MetricsHandler))
	}

	api := r.Group("/api")

	// Public
	if cfg.AuthHandler != nil {
		api.POST("/auth/register", cfg.AuthHandler.Register)
		api.POST("/auth/login", cfg.AuthHandler.Login)
		api.POST("/auth/refresh", cfg.AuthHandler.Refresh)
	}
	if cfg.MailHandler != nil {
		// OAuth providers redirect the browser here without a bearer token.
		api.GET("/mail/callback/:provider", cfg.MailHandler.Callback)
	}

	// Authenticated (no org scope yet)
	authed := api.Group("/")
	if cfg.AuthMiddleware != nil {
		authed.Use(cfg.AuthMiddleware.RequireAuth())
	}
	if cfg.AuthHandler != nil {
		authed.POST("/auth/logout", cfg.AuthHandler.Logout)
	}
	if cfg.UserHandler != nil {
		authed.GET("/me", cfg.UserHandler.GetMe)
		authed.PATCH("/me/name", cfg.UserHandler.UpdateName)
		authed.POST("/me/avatar", cfg.UserHandler.UploadAvatar)
		authed.POST("/me/avatar/generate", cfg.UserHandler.GenerateAvatar)
	}
	if cfg.OrgHandler != nil {
		authed.POST("/orgs", cfg.OrgHandler.Create)
		authed.GET("/orgs", cfg.OrgHandler.ListMine)
	}
	if cfg.EventsHandler != nil {
		authed.GET("/events", cfg.EventsHandler.Stream)
	}

	// Org scoped; every route below also passes a permission gate.
	if cfg.OrgMiddleware == nil {
		return r
	}
	org := authed.Group("/orgs/:orgID")
	org.Use(cfg.OrgMiddleware.ResolveOrg())
	perm := cfg.OrgMiddleware.RequirePermission

	if cfg.OrgHandler != nil {
		org.GET("", cfg.OrgHandler.Get)
		org.PATCH("", perm("org.manage"), cfg.OrgHandler.Update)
		org.POST("/deactivate", perm("org.manage"), cfg.OrgHandler.Deactivate)
		org.GET("/members", cfg.OrgHandler.ListMembers)
		org.POST("/members", perm("members.manage"), cfg.OrgHandler.AddMember)
		org.PATCH("/members/:memberID/role", perm("members.manage"), cfg.OrgHandler.ChangeMemberRole)
		org.DELETE("/members/:memberID", perm("members.manage"), cfg.OrgHandler.RemoveMember)
	}

	if cfg.RoleHandler != nil {
		org.GET("/permissions", cfg.RoleHandler.ListPermissions)
		org.GET("/roles", cfg.RoleHandler.ListRoles)
		org.POST("/roles", perm("roles.manage"), cfg.RoleHandler.CreateRole)
		org.PATCH("/roles/:roleID", perm("roles.manage"), cfg.RoleHandler.UpdateRole)
		org.DELETE("/roles/:roleID", perm("roles.manage"), cfg.RoleHandler.DeleteRole)
		org.PUT("/roles/:roleID/permissions", perm("roles.manage"), cfg.RoleHandler.ReplacePermissions)
	}

	if cfg.ExpenseHandler != nil {
		org.POST("/expense-accounts", perm("expenses.manage"), cfg.ExpenseHandler.CreateAccount)
		org.GET("/expense-accounts", perm("expenses.read"), cfg.ExpenseHandler.ListAccounts)
		org.GET("/expense-accounts/summary", perm("expenses.read"), cfg.ExpenseHandler.Summary)
		org.GET("/expense-accounts/:accountID", perm("expenses.read"), cfg.ExpenseHandler.GetAccount)
		org.PATCH("/expense-accounts/:accountID", perm("expenses.manage"), cfg.ExpenseHandler.UpdateAccount)
		org.POST("/expense-accounts/:accountID/deactivate", perm("expenses.manage"), cfg.ExpenseHandler.DeactivateAccount)
		org.DELETE("/expense-accounts/:accountID", perm("expenses.manage"), cfg.ExpenseHandler.DeleteAccount)

		org.POST("/expenses", perm("expenses.manage"), cfg.ExpenseHandler.CreateEntry)
		org.GET("/expenses", perm("expenses.read"), cfg.ExpenseHandler.ListEntries)
		org.GET("/expenses/:entryID", perm("expenses.read"), cfg.ExpenseHandler.GetEntry)
		org.PATCH("/expenses/:entryID", perm("expenses.manage"), cfg.ExpenseHandler.UpdateEntry)
		org.DELETE("/expenses/:entryID", perm("expenses.manage"), cfg.ExpenseHandler.DeleteEntry)
	}

	if cfg.FeedbackHandler != nil {
		org.POST("/feedback", perm("feedback.manage"), cfg.FeedbackHandler.Create)
		org.GET("/feedback", perm("feedback.read"), cfg.FeedbackHandler.List)
		org.GET("/feedback/summary", perm("feedback.read"), cfg.FeedbackHandler.Summary)
		org.GET("/feedback/:feedbackID", perm("feedback.read"), cfg.FeedbackHandler.Get)
		org.POST("/feedback/:feedbackID/review", perm("feedback.manage"), cfg.FeedbackHandler.Review)
		org.POST("/feedback/:feedbackID/archive", perm("feedback.manage"), cfg.FeedbackHandler.Archive)
		org.DELETE("/feedback/:feedbackID", perm("feedback.manage"), cfg.FeedbackHandler.Delete)
	}

	if cfg.TicketHandler != nil {
		org.POST("/tickets", perm("tickets.manage"), cfg.TicketHandler.Create)
		org.GET("/tickets", perm("tickets.read"), cfg.TicketHandler.List)
		org.GET("/tickets/status-counts", perm("tickets.read"), cfg.TicketHandler.StatusCounts)
		org.GET("/tickets/by-number/:number", perm("tickets.read"), cfg.TicketHandler.GetByNumber)
		org.GET("/tickets/:ticketID", perm("tickets.read"), cfg.TicketHandler.Get)
		org.PATCH("/tickets/:ticketID", perm("tickets.manage"), cfg.TicketHandler.Update)
		org.POST("/tickets/:ticketID/assign", perm("tickets.manage"), cfg.TicketHandler.Assign)
		org.POST("/tickets/:ticketID/comments", perm("tickets.manage"), cfg.TicketHandler.AddComment)
		org.GET("/tickets/:ticketID/comments", perm("tickets.read"), cfg.TicketHandler.ListComments)

		org.POST("/tickets/:ticketID/start", perm("tickets.manage"), cfg.TicketHandler.Start)
		org.POST("/tickets/:ticketID/wait", perm("tickets.manage"), cfg.TicketHandler.WaitOnCustomer)
		org.POST("/tickets/:ticketID/resume", perm("tickets.manage"), cfg.TicketHandler.Resume)
		org.POST("/tickets/:ticketID/resolve", perm("tickets.manage"), cfg.TicketHandler.Resolve)
		org.POST("/tickets/:ticketID/request-closure", perm("tickets.manage"), cfg.TicketHandler.RequestClosure)
		org.POST("/tickets/:ticketID/approve-closure", perm("tickets.approve_closure"), cfg.TicketHandler.ApproveClosure)
		org.POST("/tickets/:ticketID/reject-closure", perm("tickets.approve_closure"), cfg.TicketHandler.RejectClosure)
		org.POST("/tickets/:ticketID/cancel", perm("tickets.manage"), cfg.TicketHandler.Cancel)
		org.POST("/tickets/:ticketID/reopen", perm("tickets.manage"), cfg.TicketHandler.Reopen)
	}

	if cfg.SLAHandler != nil {
		org.POST("/sla/policies", perm("sla.manage"), cfg.SLAHandler.CreatePolicy)
		org.GET("/sla/policies", perm("sla.read"), cfg.SLAHandler.ListPolicies)
		org.GET("/sla/policies/:policyID", perm("sla.read"), cfg.SLAHandler.GetPolicy)
		org.PATCH("/sla/policies/:policyID", perm("sla.manage"), cfg.SLAHandler.UpdatePolicy)
		org.POST("/sla/policies/:policyID/default", perm("sla.manage"), cfg.SLAHandler.SetDefaultPolicy)
		org.DELETE("/sla/policies/:policyID", perm("sla.manage"), cfg.SLAHandler.DeletePolicy)
		org.GET("/sla/escalations", perm("sla.read"), cfg.SLAHandler.Escalations)
		org.GET("/sla/summary", perm("sla.read"), cfg.SLAHandler.Summary)
		if cfg.TicketHandler != nil {
			org.GET("/tickets/:ticketID/sla", perm("sla.read"), cfg.SLAHandler.TrackingForTicket)
		}
	}

	if cfg.MailHandler != nil {
		org.GET("/mail/accounts", perm("mail.manage"), cfg.MailHandler.ListAccounts)
		org.POST("/mail/connect/:provider", perm("mail.manage"), cfg.MailHandler.Connect)
		org.POST("/mail/accounts/:accountID/send", perm("mail.send"), cfg.MailHandler.Send)
		org.DELETE("/mail/accounts/:accountID", perm("mail.manage"), cfg.MailHandler.Disconnect)
	}

	if cfg.DocumentHandler != nil {
		org.POST("/documents", perm("documents.manage"), cfg.DocumentHandler.Upload)
		org.GET("/documents", perm("documents.read"), cfg.DocumentHandler.List)
		org.GET("/documents/:documentID", perm("documents.read"), cfg.DocumentHandler.Get)
		org.POST("/documents/:documentID/extract", perm("documents.manage"), cfg.DocumentHandler.RerunExtraction)
		org.GET("/documents/:documentID/download", perm("documents.read"), cfg.DocumentHandler.Download)
		org.POST("/documents/:documentID/expense", perm("expenses.manage"), cfg.DocumentHandler.CreateExpenseEntry)
		org.DELETE("/documents/:documentID", perm("documents.manage"), cfg.DocumentHandler.Delete)
	}

	if cfg.GSTHandler != nil {
		org.GET("/gst/:gstin", perm("gst.lookup"), cfg.GSTHandler.Lookup)
	}

	if cfg.FieldJobHandler != nil {
		org.POST("/field-jobs", perm("jobs.manage"), cfg.FieldJobHandler.Create)
		org.GET("/field-jobs", perm("jobs.read"), cfg.FieldJobHandler.List)
		org.GET("/field-jobs/by-number/:number", perm("jobs.read"), cfg.FieldJobHandler.GetByNumber)
		org.GET("/field-jobs/:jobID", perm("jobs.read"), cfg.FieldJobHandler.Get)
		org.PATCH("/field-jobs/:jobID", perm("jobs.manage"), cfg.FieldJobHandler.Update)
		org.POST("/field-jobs/:jobID/assign", perm("jobs.manage"), cfg.FieldJobHandler.Assign)
		org.POST("/field-jobs/:jobID/status", perm("jobs.manage"), cfg.FieldJobHandler.SetStatus)
		org.DELETE("/field-jobs/:jobID", perm("jobs.manage"), cfg.FieldJobHandler.Delete)
	}

	if cfg.JobHandler != nil {
		// Background run status is operator territory, not field work.
		org.GET("/jobs/:jobRunID", perm("org.manage"), cfg.JobHandler.Get)
	}

	return r
}
