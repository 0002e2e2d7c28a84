package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/veldtops/fieldsuite-backend/internal/data/repos"
	"github.com/veldtops/fieldsuite-backend/internal/domain/expense"
	"github.com/veldtops/fieldsuite-backend/internal/http/response"
	"github.com/veldtops/fieldsuite-backend/internal/services"
)

const dateLayout = "2006-01-02"

type ExpenseHandler struct {
	expenses services.ExpenseService
}

func NewExpenseHandler(expenses services.ExpenseService) *ExpenseHandler {
	return &ExpenseHandler{expenses: expenses}
}

// POST /api/orgs/:orgID/expense-accounts
func (h *ExpenseHandler) CreateAccount(c *gin.Context) {
	var req struct {
		Code        string     `json:"code"`
		Name        string     `json:"name"`
		AccountType string     `json:"account_type"`
		ParentID    *uuid.UUID `json:"parent_id"`
		Description string     `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	account, err := h.expenses.CreateAccount(c.Request.Context(), scopedOrgID(c), services.CreateAccountInput{
		Code:        req.Code,
		Name:        req.Name,
		AccountType: expense.AccountType(req.AccountType),
		ParentID:    req.ParentID,
		Description: req.Description,
	})
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"account": account})
}

// GET /api/orgs/:orgID/expense-accounts
func (h *ExpenseHandler) ListAccounts(c *gin.Context) {
	if c.Query("tree") == "true" {
		tree, err := h.expenses.AccountTree(reqDBC(c), scopedOrgID(c))
		if err != nil {
			response.RespondServiceError(c, err)
			return
		}
		response.RespondOK(c, gin.H{"accounts": tree})
		return
	}
	accounts, err := h.expenses.ListAccounts(reqDBC(c), scopedOrgID(c), c.Query("active") == "true")
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"accounts": accounts})
}

// GET /api/orgs/:orgID/expense-accounts/:accountID
func (h *ExpenseHandler) GetAccount(c *gin.Context) {
	accountID, ok := pathUUID(c, "accountID")
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_account_id", errors.New("invalid account id"))
		return
	}
	account, err := h.expenses.GetAccount(reqDBC(c), scopedOrgID(c), accountID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"account": account})
}

// PATCH /api/orgs/:orgID/expense-accounts/:accountID
func (h *ExpenseHandler) UpdateAccount(c *gin.Context) {
	accountID, ok := pathUUID(c, "accountID")
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_account_id", errors.New("invalid account id"))
		return
	}
	var req struct {
		Name        *string    `json:"name"`
		Description *string    `json:"description"`
		ParentID    *uuid.UUID `json:"parent_id"`
		ClearParent bool       `json:"clear_parent"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	account, err := h.expenses.UpdateAccount(c.Request.Context(), scopedOrgID(c), accountID, services.UpdateAccountInput{
		Name:        req.Name,
		Description: req.Description,
		ParentID:    req.ParentID,
		ClearParent: req.ClearParent,
	})
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"account": account})
}

// POST /api/orgs/:orgID/expense-accounts/:accountID/deactivate
func (h *ExpenseHandler) DeactivateAccount(c *gin.Context) {
	accountID, ok := pathUUID(c, "accountID")
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_account_id", errors.New("invalid account id"))
		return
	}
	if err := h.expenses.DeactivateAccount(c.Request.Context(), scopedOrgID(c), accountID); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

// DELETE /api/orgs/:orgID/expense-accounts/:accountID
func (h *ExpenseHandler) DeleteAccount(c *gin.Context) {
	accountID, ok := pathUUID(c, "accountID")
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_account_id", errors.New("invalid account id"))
		return
	}
	if err := h.expenses.DeleteAccount(c.Request.Context(), scopedOrgID(c), accountID); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

// GET /api/orgs/:orgID/expense-accounts/summary
func (h *ExpenseHandler) Summary(c *gin.Context) {
	from := queryDate(c, "from")
	to := queryDate(c, "to")
	summary, err := h.expenses.Summary(reqDBC(c), scopedOrgID(c), from, to)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"summary": summary})
}

// POST /api/orgs/:orgID/expenses
func (h *ExpenseHandler) CreateEntry(c *gin.Context) {
	var req struct {
		AccountID   uuid.UUID       `json:"account_id"`
		DocumentID  *uuid.UUID      `json:"document_id"`
		Amount      decimal.Decimal `json:"amount"`
		Currency    string          `json:"currency"`
		IncurredOn  string          `json:"incurred_on"`
		VendorName  string          `json:"vendor_name"`
		VendorGSTIN string          `json:"vendor_gstin"`
		Reference   string          `json:"reference"`
		Notes       string          `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	incurredOn, err := time.Parse(dateLayout, req.IncurredOn)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", errors.New("incurred_on must be YYYY-MM-DD"))
		return
	}
	entry, err := h.expenses.CreateEntry(c.Request.Context(), scopedOrgID(c), actorID(c), services.CreateEntryInput{
		AccountID:   req.AccountID,
		DocumentID:  req.DocumentID,
		Amount:      req.Amount,
		Currency:    req.Currency,
		IncurredOn:  incurredOn,
		VendorName:  req.VendorName,
		VendorGSTIN: req.VendorGSTIN,
		Reference:   req.Reference,
		Notes:       req.Notes,
	})
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"entry": entry})
}

// GET /api/orgs/:orgID/expenses
func (h *ExpenseHandler) ListEntries(c *gin.Context) {
	filter := repos.ExpenseEntryFilter{
		From:   queryDate(c, "from"),
		To:     queryDate(c, "to"),
		Limit:  queryInt(c, "limit", 50),
		Offset: queryInt(c, "offset", 0),
	}
	if raw := c.Query("account"); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			filter.AccountIDs = []uuid.UUID{id}
		}
	}
	page, err := h.expenses.ListEntries(reqDBC(c), scopedOrgID(c), filter)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, page)
}

// GET /api/orgs/:orgID/expenses/:entryID
func (h *ExpenseHandler) GetEntry(c *gin.Context) {
	entryID, ok := pathUUID(c, "entryID")
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_entry_id", errors.New("invalid entry id"))
		return
	}
	entry, err := h.expenses.GetEntry(reqDBC(c), scopedOrgID(c), entryID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"entry": entry})
}

// PATCH /api/orgs/:orgID/expenses/:entryID
func (h *ExpenseHandler) UpdateEntry(c *gin.Context) {
	entryID, ok := pathUUID(c, "entryID")
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_entry_id", errors.New("invalid entry id"))
		return
	}
	var req struct {
		AccountID   *uuid.UUID       `json:"account_id"`
		Amount      *decimal.Decimal `json:"amount"`
		IncurredOn  *string          `json:"incurred_on"`
		VendorName  *string          `json:"vendor_name"`
		VendorGSTIN *string          `json:"vendor_gstin"`
		Reference   *string          `json:"reference"`
		Notes       *string          `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	in := services.UpdateEntryInput{
		AccountID:   req.AccountID,
		Amount:      req.Amount,
		VendorName:  req.VendorName,
		VendorGSTIN: req.VendorGSTIN,
		Reference:   req.Reference,
		Notes:       req.Notes,
	}
	if req.IncurredOn != nil {
		parsed, err := time.Parse(dateLayout, *req.IncurredOn)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_request", errors.New("incurred_on must be YYYY-MM-DD"))
			return
		}
		in.IncurredOn = &parsed
	}
	entry, err := h.expenses.UpdateEntry(c.Request.Context(), scopedOrgID(c), entryID, in)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"entry": entry})
}

// DELETE /api/orgs/:orgID/expenses/:entryID
func (h *ExpenseHandler) DeleteEntry(c *gin.Context) {
	entryID, ok := pathUUID(c, "entryID")
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_entry_id", errors.New("invalid entry id"))
		return
	}
	if err := h.expenses.DeleteEntry(c.Request.Context(), scopedOrgID(c), entryID); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

// --- shared query helpers ---

func queryDate(c *gin.Context, name string) *time.Time {
	raw := c.Query(name)
	if raw == "" {
		return nil
	}
	d, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil
	}
	return &d
}

func queryInt(c *gin.Context, name string, def int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func queryUUID(c *gin.Context, name string) *uuid.UUID {
	raw := c.Query(name)
	if raw == "" {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil
	}
	return &id
}
