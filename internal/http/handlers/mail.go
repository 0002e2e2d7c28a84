package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/veldtops/fieldsuite-backend/internal/domain/mail"
	"github.com/veldtops/fieldsuite-backend/internal/http/response"
	"github.com/veldtops/fieldsuite-backend/internal/services"
)

type MailHandler struct {
	mail services.MailService
}

func NewMailHandler(mailSvc services.MailService) *MailHandler {
	return &MailHandler{mail: mailSvc}
}

func mailProvider(c *gin.Context) (mail.Provider, bool) {
	p := mail.Provider(c.Param("provider"))
	if !p.Valid() {
		return "", false
	}
	return p, true
}

// GET /api/orgs/:orgID/mail/accounts
func (h *MailHandler) ListAccounts(c *gin.Context) {
	accounts, err := h.mail.ListAccounts(reqDBC(c), scopedOrgID(c))
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"accounts": accounts})
}

// POST /api/orgs/:orgID/mail/connect/:provider
func (h *MailHandler) Connect(c *gin.Context) {
	provider, ok := mailProvider(c)
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_provider", errors.New("unknown mail provider"))
		return
	}
	url, err := h.mail.Connect(c.Request.Context(), scopedOrgID(c), actorID(c), provider)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"auth_url": url})
}

// GET /api/mail/callback/:provider
//
// The provider redirects the browser here; the route is public because no
// bearer token survives the redirect. The state token carries identity.
func (h *MailHandler) Callback(c *gin.Context) {
	provider, ok := mailProvider(c)
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_provider", errors.New("unknown mail provider"))
		return
	}
	state := c.Query("state")
	code := c.Query("code")
	if state == "" || code == "" {
		response.RespondError(c, http.StatusBadRequest, "invalid_callback", errors.New("state and code are required"))
		return
	}
	account, err := h.mail.HandleCallback(c.Request.Context(), provider, state, code)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"account": account})
}

// POST /api/orgs/:orgID/mail/accounts/:accountID/send
func (h *MailHandler) Send(c *gin.Context) {
	accountID, ok := pathUUID(c, "accountID")
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_account_id", errors.New("invalid account id"))
		return
	}
	var req struct {
		To       []string `json:"to"`
		CC       []string `json:"cc"`
		Subject  string   `json:"subject"`
		BodyHTML string   `json:"body_html"`
		BodyText string   `json:"body_text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	err := h.mail.Send(c.Request.Context(), scopedOrgID(c), accountID, services.SendMailInput{
		To:       req.To,
		CC:       req.CC,
		Subject:  req.Subject,
		BodyHTML: req.BodyHTML,
		BodyText: req.BodyText,
	})
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

// DELETE /api/orgs/:orgID/mail/accounts/:accountID
func (h *MailHandler) Disconnect(c *gin.Context) {
	accountID, ok := pathUUID(c, "accountID")
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_account_id", errors.New("invalid account id"))
		return
	}
	if err := h.mail.Disconnect(c.Request.Context(), scopedOrgID(c), accountID); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}
