package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/veldtops/fieldsuite-backend/internal/data/repos"
	"github.com/veldtops/fieldsuite-backend/internal/domain/document"
	"github.com/veldtops/fieldsuite-backend/internal/http/response"
	"github.com/veldtops/fieldsuite-backend/internal/services"
)

const maxUploadBytes = 20 << 20

type DocumentHandler struct {
	documents services.DocumentService
}

func NewDocumentHandler(documents services.DocumentService) *DocumentHandler {
	return &DocumentHandler{documents: documents}
}

// POST /api/orgs/:orgID/documents (multipart, field "file")
func (h *DocumentHandler) Upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", errors.New("multipart field 'file' is required"))
		return
	}
	defer file.Close()
	if header.Size > maxUploadBytes {
		response.RespondError(c, http.StatusBadRequest, "file_too_large", fmt.Errorf("file exceeds %d bytes", maxUploadBytes))
		return
	}
	doc, err := h.documents.Upload(c.Request.Context(), scopedOrgID(c), actorID(c), services.UploadDocumentInput{
		Kind:      document.Kind(c.PostForm("kind")),
		FileName:  header.Filename,
		MimeType:  header.Header.Get("Content-Type"),
		SizeBytes: header.Size,
		Content:   file,
	})
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"document": doc})
}

// GET /api/orgs/:orgID/documents
func (h *DocumentHandler) List(c *gin.Context) {
	filter := repos.DocumentFilter{
		Limit:  queryInt(c, "limit", 50),
		Offset: queryInt(c, "offset", 0),
	}
	for _, raw := range c.QueryArray("kind") {
		filter.Kinds = append(filter.Kinds, document.Kind(raw))
	}
	for _, raw := range c.QueryArray("status") {
		filter.Statuses = append(filter.Statuses, document.Status(raw))
	}
	page, err := h.documents.List(reqDBC(c), scopedOrgID(c), filter)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, page)
}

// GET /api/orgs/:orgID/documents/:documentID
func (h *DocumentHandler) Get(c *gin.Context) {
	documentID, ok := pathUUID(c, "documentID")
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_document_id", errors.New("invalid document id"))
		return
	}
	doc, err := h.documents.Get(reqDBC(c), scopedOrgID(c), documentID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"document": doc})
}

// POST /api/orgs/:orgID/documents/:documentID/extract
func (h *DocumentHandler) RerunExtraction(c *gin.Context) {
	documentID, ok := pathUUID(c, "documentID")
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_document_id", errors.New("invalid document id"))
		return
	}
	doc, err := h.documents.RerunExtraction(c.Request.Context(), scopedOrgID(c), documentID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"document": doc})
}

// GET /api/orgs/:orgID/documents/:documentID/download
func (h *DocumentHandler) Download(c *gin.Context) {
	documentID, ok := pathUUID(c, "documentID")
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_document_id", errors.New("invalid document id"))
		return
	}
	doc, rc, err := h.documents.Download(c.Request.Context(), scopedOrgID(c), documentID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	defer rc.Close()
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.FileName))
	c.DataFromReader(http.StatusOK, doc.SizeBytes, doc.MimeType, rc, nil)
}

// POST /api/orgs/:orgID/documents/:documentID/expense
func (h *DocumentHandler) CreateExpenseEntry(c *gin.Context) {
	documentID, ok := pathUUID(c, "documentID")
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_document_id", errors.New("invalid document id"))
		return
	}
	var req struct {
		AccountID uuid.UUID `json:"account_id"`
		Notes     string    `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	entry, err := h.documents.CreateExpenseEntry(c.Request.Context(), scopedOrgID(c), actorID(c), documentID, services.CreateExpenseFromDocumentInput{
		AccountID: req.AccountID,
		Notes:     req.Notes,
	})
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"entry": entry})
}

// DELETE /api/orgs/:orgID/documents/:documentID
func (h *DocumentHandler) Delete(c *gin.Context) {
	documentID, ok := pathUUID(c, "documentID")
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_document_id", errors.New("invalid document id"))
		return
	}
	if err := h.documents.Delete(c.Request.Context(), scopedOrgID(c), documentID); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}
