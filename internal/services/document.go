package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/veldtops/fieldsuite-backend/internal/clients/mindee"
	"github.com/veldtops/fieldsuite-backend/internal/clients/openrouter"
	"github.com/veldtops/fieldsuite-backend/internal/data/db"
	"github.com/veldtops/fieldsuite-backend/internal/data/repos"
	"github.com/veldtops/fieldsuite-backend/internal/domain/document"
	"github.com/veldtops/fieldsuite-backend/internal/domain/expense"
	domjobs "github.com/veldtops/fieldsuite-backend/internal/domain/jobs"
	"github.com/veldtops/fieldsuite-backend/internal/observability"
	"github.com/veldtops/fieldsuite-backend/internal/platform/dbctx"
	"github.com/veldtops/fieldsuite-backend/internal/platform/envutil"
	"github.com/veldtops/fieldsuite-backend/internal/platform/gcp"
	"github.com/veldtops/fieldsuite-backend/internal/platform/logger"
	"github.com/veldtops/fieldsuite-backend/internal/realtime"
)

const maxDocumentBytes = 20 << 20

var allowedDocumentMimes = map[string]bool{
	"application/pdf": true,
	"image/png":       true,
	"image/jpeg":      true,
}

type UploadDocumentInput struct {
	Kind      document.Kind
	FileName  string
	MimeType  string
	SizeBytes int64
	Content   io.Reader
}

type DocumentPage struct {
	Documents []*document.Document `json:"documents"`
	Total     int64                `json:"total"`
}

type CreateExpenseFromDocumentInput struct {
	AccountID uuid.UUID
	Notes     string
}

type DocumentService interface {
	Upload(ctx context.Context, orgID, uploadedBy uuid.UUID, in UploadDocumentInput) (*document.Document, error)
	Get(dbc dbctx.Context, orgID, documentID uuid.UUID) (*document.Document, error)
	List(dbc dbctx.Context, orgID uuid.UUID, filter repos.DocumentFilter) (*DocumentPage, error)
	// RerunExtraction resets a finished document back to uploaded and queues
	// a fresh extraction job.
	RerunExtraction(ctx context.Context, orgID, documentID uuid.UUID) (*document.Document, error)
	Download(ctx context.Context, orgID, documentID uuid.UUID) (*document.Document, io.ReadCloser, error)
	// CreateExpenseEntry books an expense entry prefilled from the extracted
	// invoice fields. The caller picks the account.
	CreateExpenseEntry(ctx context.Context, orgID, createdBy, documentID uuid.UUID, in CreateExpenseFromDocumentInput) (*expense.Entry, error)
	Delete(ctx context.Context, orgID, documentID uuid.UUID) error

	// Extract runs the full pipeline for one document. The background worker
	// is the only caller; org scoping happened at upload time.
	Extract(ctx context.Context, documentID uuid.UUID) error
}

type documentService struct {
	db         *gorm.DB
	log        *logger.Logger
	docRepo    repos.DocumentRepo
	bucket     gcp.BucketService
	docAI      gcp.DocumentAI
	vision     gcp.Vision
	openrouter openrouter.Client
	mindee     mindee.Client
	expenses   ExpenseService
	jobs       JobService
	events     EventPublisher
	aiProvider string
}

// NewDocumentService wires the extraction pipeline. docAI, vision, router and
// mindeeClient are all optional; a nil client just disables that pass.
func NewDocumentService(
	gdb *gorm.DB,
	baseLog *logger.Logger,
	docRepo repos.DocumentRepo,
	bucket gcp.BucketService,
	docAI gcp.DocumentAI,
	vision gcp.Vision,
	router openrouter.Client,
	mindeeClient mindee.Client,
	expenses ExpenseService,
	jobsSvc JobService,
	events EventPublisher,
) DocumentService {
	return &documentService{
		db:         gdb,
		log:        baseLog.With("service", "DocumentService"),
		docRepo:    docRepo,
		bucket:     bucket,
		docAI:      docAI,
		vision:     vision,
		openrouter: router,
		mindee:     mindeeClient,
		expenses:   expenses,
		jobs:       jobsSvc,
		events:     events,
		aiProvider: strings.ToLower(envutil.String("DOC_EXTRACT_PROVIDER", "")),
	}
}

func (s *documentService) Upload(ctx context.Context, orgID, uploadedBy uuid.UUID, in UploadDocumentInput) (*document.Document, error) {
	const op = "DocumentService.Upload"
	if in.Kind == "" {
		in.Kind = document.KindInvoice
	}
	if !in.Kind.Valid() {
		return nil, db.ValidationError("invalid document kind")
	}
	if !allowedDocumentMimes[in.MimeType] {
		return nil, db.ValidationError("only pdf, png and jpeg documents are accepted")
	}
	if in.SizeBytes <= 0 || in.SizeBytes > maxDocumentBytes {
		return nil, db.ValidationError("document must be between 1 byte and 20 MB")
	}
	if in.Content == nil {
		return nil, db.ValidationError("document content is required")
	}
	fileName := sanitizeFileName(in.FileName)
	if fileName == "" {
		return nil, db.ValidationError("file name is required")
	}

	var doc *document.Document
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		row := &document.Document{
			OrgID:      orgID,
			UploadedBy: uploadedBy,
			Kind:       in.Kind,
			FileName:   fileName,
			MimeType:   in.MimeType,
			SizeBytes:  in.SizeBytes,
			Status:     document.StatusUploaded,
		}
		created, err := s.docRepo.Create(dbc, row)
		if err != nil {
			return err
		}
		key := fmt.Sprintf("org_documents/%s/%s/%s", orgID, created.ID, fileName)
		// The declared size is client input; the limit guards the bucket.
		limited := io.LimitReader(in.Content, maxDocumentBytes+1)
		if err := s.bucket.UploadFile(dbc, gcp.BucketCategoryDocument, key, limited); err != nil {
			return err
		}
		if err := s.docRepo.UpdateFields(dbc, created.ID, map[string]any{"storage_key": key}); err != nil {
			return err
		}
		created.StorageKey = key
		if err := s.enqueueExtraction(dbc, created); err != nil {
			return err
		}
		doc = created
		return nil
	})
	if err != nil {
		return nil, db.MapError(op, err)
	}
	s.log.Info("document uploaded", "document_id", doc.ID, "org_id", orgID, "mime", doc.MimeType, "size", doc.SizeBytes)
	return doc, nil
}

func (s *documentService) enqueueExtraction(dbc dbctx.Context, doc *document.Document) error {
	_, _, err := s.jobs.EnqueueUnique(dbc, EnqueueRequest{
		JobType:    domjobs.TypeDocumentExtract,
		OrgID:      &doc.OrgID,
		EntityType: "document",
		EntityID:   &doc.ID,
	})
	return err
}

func (s *documentService) Get(dbc dbctx.Context, orgID, documentID uuid.UUID) (*document.Document, error) {
	return s.orgDocument(dbc, orgID, documentID, "DocumentService.Get")
}

func (s *documentService) List(dbc dbctx.Context, orgID uuid.UUID, filter repos.DocumentFilter) (*DocumentPage, error) {
	const op = "DocumentService.List"
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	rows, err := s.docRepo.ListByOrg(dbc, orgID, filter)
	if err != nil {
		return nil, db.MapError(op, err)
	}
	total, err := s.docRepo.CountByOrg(dbc, orgID, filter)
	if err != nil {
		return nil, db.MapError(op, err)
	}
	return &DocumentPage{Documents: rows, Total: total}, nil
}

func (s *documentService) RerunExtraction(ctx context.Context, orgID, documentID uuid.UUID) (*document.Document, error) {
	const op = "DocumentService.RerunExtraction"
	var doc *document.Document
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		d, err := s.orgDocument(dbc, orgID, documentID, op)
		if err != nil {
			return err
		}
		if d.Status == document.StatusProcessing {
			return db.ConflictError("document is already being processed")
		}
		if err := s.docRepo.UpdateFields(dbc, d.ID, map[string]any{
			"status": document.StatusUploaded,
			"error":  "",
		}); err != nil {
			return err
		}
		d.Status = document.StatusUploaded
		d.Error = ""
		if err := s.enqueueExtraction(dbc, d); err != nil {
			return err
		}
		doc = d
		return nil
	})
	if err != nil {
		return nil, db.MapError(op, err)
	}
	return doc, nil
}

func (s *documentService) Download(ctx context.Context, orgID, documentID uuid.UUID) (*document.Document, io.ReadCloser, error) {
	const op = "DocumentService.Download"
	doc, err := s.orgDocument(dbctx.Context{Ctx: ctx}, orgID, documentID, op)
	if err != nil {
		return nil, nil, err
	}
	if doc.StorageKey == "" {
		return nil, nil, db.NotFoundError("document has no stored file")
	}
	rc, err := s.bucket.DownloadFile(ctx, gcp.BucketCategoryDocument, doc.StorageKey)
	if err != nil {
		return nil, nil, db.MapError(op, err)
	}
	return doc, rc, nil
}

func (s *documentService) CreateExpenseEntry(ctx context.Context, orgID, createdBy, documentID uuid.UUID, in CreateExpenseFromDocumentInput) (*expense.Entry, error) {
	const op = "DocumentService.CreateExpenseEntry"
	doc, err := s.orgDocument(dbctx.Context{Ctx: ctx}, orgID, documentID, op)
	if err != nil {
		return nil, err
	}
	if doc.Status != document.StatusExtracted {
		return nil, db.ConflictError("document has not been extracted yet")
	}
	if doc.TotalAmount == nil || doc.TotalAmount.LessThanOrEqual(decimal.Zero) {
		return nil, db.ValidationError("document has no usable total amount")
	}
	incurredOn := time.Now().UTC()
	if doc.InvoiceDate != nil {
		incurredOn = *doc.InvoiceDate
	}
	return s.expenses.CreateEntry(ctx, orgID, createdBy, CreateEntryInput{
		AccountID:   in.AccountID,
		DocumentID:  &doc.ID,
		Amount:      *doc.TotalAmount,
		Currency:    doc.Currency,
		IncurredOn:  incurredOn,
		VendorName:  doc.VendorName,
		VendorGSTIN: doc.VendorGSTIN,
		Reference:   doc.InvoiceNumber,
		Notes:       in.Notes,
	})
}

func (s *documentService) Delete(ctx context.Context, orgID, documentID uuid.UUID) error {
	const op = "DocumentService.Delete"
	dbc := dbctx.Context{Ctx: ctx}
	doc, err := s.orgDocument(dbc, orgID, documentID, op)
	if err != nil {
		return err
	}
	if doc.Status == document.StatusProcessing {
		return db.ConflictError("document is being processed")
	}
	if err := s.docRepo.SoftDeleteByID(dbc, doc.ID); err != nil {
		return db.MapError(op, err)
	}
	if doc.StorageKey != "" {
		if err := s.bucket.DeleteFile(dbc, gcp.BucketCategoryDocument, doc.StorageKey); err != nil {
			s.log.Warn("stored file cleanup failed", "document_id", doc.ID, "error", err)
		}
	}
	return nil
}

func (s *documentService) orgDocument(dbc dbctx.Context, orgID, documentID uuid.UUID, op string) (*document.Document, error) {
	doc, err := s.docRepo.GetByID(dbc, documentID)
	if err != nil {
		return nil, db.MapError(op, err)
	}
	if doc == nil || doc.OrgID != orgID {
		return nil, db.NotFoundError("document not found")
	}
	return doc, nil
}

// --- extraction pipeline ---

// extraction is the working set one pipeline run accumulates before persisting.
type extraction struct {
	InvoiceNumber string
	InvoiceDate   *time.Time
	VendorName    string
	VendorGSTIN   string
	TaxableAmount *decimal.Decimal
	TaxAmount     *decimal.Decimal
	TotalAmount   *decimal.Decimal
	Currency      string
	Provider      document.Provider
	Fields        map[string]string
	Warnings      []string
}

func (s *documentService) Extract(ctx context.Context, documentID uuid.UUID) error {
	const op = "DocumentService.Extract"
	dbc := dbctx.Context{Ctx: ctx}

	doc, err := s.docRepo.GetByID(dbc, documentID)
	if err != nil {
		return db.MapError(op, err)
	}
	if doc == nil {
		return db.NotFoundError("document not found")
	}
	claimed, err := s.docRepo.MarkProcessing(dbc, doc.ID)
	if err != nil {
		return db.MapError(op, err)
	}
	if !claimed {
		s.log.Info("extraction skipped, document not claimable", "document_id", doc.ID, "status", doc.Status)
		return nil
	}

	started := time.Now()
	result, err := s.runPipeline(ctx, doc)
	if err != nil {
		if uerr := s.docRepo.UpdateFields(dbc, doc.ID, map[string]any{
			"status": document.StatusFailed,
			"error":  truncate(err.Error(), 500),
		}); uerr != nil {
			s.log.Error("failed to record extraction failure", "document_id", doc.ID, "error", uerr)
		}
		observability.Current().ObserveExtraction("", string(document.StatusFailed), time.Since(started))
		s.publishExtracted(ctx, doc, document.StatusFailed, "")
		return db.MapError(op, err)
	}
	observability.Current().ObserveExtraction(string(result.Provider), string(document.StatusExtracted), time.Since(started))

	updates := map[string]any{
		"status":         document.StatusExtracted,
		"provider":       result.Provider,
		"invoice_number": result.InvoiceNumber,
		"vendor_name":    result.VendorName,
		"vendor_gstin":   result.VendorGSTIN,
		"invoice_date":   result.InvoiceDate,
		"taxable_amount": result.TaxableAmount,
		"tax_amount":     result.TaxAmount,
		"total_amount":   result.TotalAmount,
		"raw_text":       truncate(result.rawText, 64<<10),
		"error":          "",
	}
	if result.Currency != "" {
		updates["currency"] = result.Currency
	}
	if len(result.Fields) > 0 {
		if raw, err := json.Marshal(result.Fields); err == nil {
			updates["fields"] = datatypes.JSON(raw)
		}
	}
	if len(result.Warnings) > 0 {
		if raw, err := json.Marshal(result.Warnings); err == nil {
			updates["warnings"] = datatypes.JSON(raw)
		}
	}
	if err := s.docRepo.UpdateFields(dbc, doc.ID, updates); err != nil {
		return db.MapError(op, err)
	}

	s.log.Info("document extracted",
		"document_id", doc.ID,
		"provider", result.Provider,
		"warnings", len(result.Warnings))
	s.publishExtracted(ctx, doc, document.StatusExtracted, result.Provider)
	return nil
}

func (s *documentService) publishExtracted(ctx context.Context, doc *document.Document, status document.Status, provider document.Provider) {
	data := map[string]any{
		"document_id": doc.ID,
		"status":      status,
	}
	if provider != "" {
		data["provider"] = provider
	}
	s.events.Publish(ctx, doc.OrgID, realtime.SSEEventDocumentExtracted, data)
}

// pipelineResult carries the merged extraction plus the text it was read from.
type pipelineResult struct {
	extraction
	rawText string
}

func (s *documentService) runPipeline(ctx context.Context, doc *document.Document) (*pipelineResult, error) {
	data, err := s.downloadBytes(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("download original: %w", err)
	}

	text, ocrExtraction, warnings := s.acquireText(ctx, doc, data)

	rx := ExtractFromText(text)

	var provider *extraction
	switch s.aiProvider {
	case "openrouter":
		if s.openrouter == nil {
			warnings = append(warnings, "openrouter configured as provider but client is unavailable")
		} else if strings.TrimSpace(text) == "" {
			warnings = append(warnings, "no text available for ai extraction")
		} else if p, err := s.extractWithOpenRouter(ctx, text); err != nil {
			warnings = append(warnings, "openrouter extraction failed: "+err.Error())
		} else {
			provider = p
		}
	case "mindee":
		if s.mindee == nil {
			warnings = append(warnings, "mindee configured as provider but client is unavailable")
		} else if p, err := s.extractWithMindee(ctx, doc.FileName, data); err != nil {
			warnings = append(warnings, "mindee extraction failed: "+err.Error())
		} else {
			provider = p
		}
	}
	if provider == nil {
		provider = ocrExtraction
	}

	merged := mergeExtractions(provider, rx)
	merged.Warnings = append(warnings, merged.Warnings...)

	return &pipelineResult{extraction: *merged, rawText: text}, nil
}

func (s *documentService) downloadBytes(ctx context.Context, doc *document.Document) ([]byte, error) {
	if doc.StorageKey == "" {
		return nil, errors.New("document has no stored file")
	}
	rc, err := s.bucket.DownloadFile(ctx, gcp.BucketCategoryDocument, doc.StorageKey)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(io.LimitReader(rc, maxDocumentBytes+1))
}

// acquireText turns the original file into plain text. PDFs go through the
// Document AI processor when one is configured, images through Vision OCR.
// A Document AI run doubles as a structured extraction fallback.
func (s *documentService) acquireText(ctx context.Context, doc *document.Document, data []byte) (string, *extraction, []string) {
	var warnings []string

	if doc.MimeType == "application/pdf" {
		if s.docAI == nil {
			return "", nil, append(warnings, "no pdf text source configured")
		}
		res, err := s.docAI.ProcessBytes(ctx, data, doc.MimeType)
		if err != nil {
			return "", nil, append(warnings, "document ai failed: "+err.Error())
		}
		warnings = append(warnings, res.Warnings...)
		return res.Text, extractionFromDocAI(res), warnings
	}

	if s.vision == nil {
		return "", nil, append(warnings, "no image ocr configured")
	}
	res, err := s.vision.OCRImageBytes(ctx, data, doc.MimeType)
	if err != nil {
		return "", nil, append(warnings, "vision ocr failed: "+err.Error())
	}
	warnings = append(warnings, res.Warnings...)
	return res.Text, nil, warnings
}

// extractionFromDocAI maps invoice-processor entity keys onto our fields.
func extractionFromDocAI(res *gcp.DocAIResult) *extraction {
	if res == nil || len(res.Fields) == 0 {
		return nil
	}
	out := &extraction{
		Provider: document.ProviderDocumentAI,
		Fields:   res.Fields,
	}
	out.InvoiceNumber = firstField(res.Fields, "invoice_id", "invoice_number")
	out.VendorName = firstField(res.Fields, "supplier_name", "remit_to_name")
	if gst := firstField(res.Fields, "supplier_tax_id", "supplier_registration"); ValidGSTIN(gst) {
		out.VendorGSTIN = NormalizeGSTIN(gst)
	}
	out.Currency = strings.ToUpper(firstField(res.Fields, "currency"))
	if raw := firstField(res.Fields, "invoice_date"); raw != "" {
		out.InvoiceDate = parseInvoiceDate(raw)
	}
	out.TaxableAmount = decimalField(res.Fields, "net_amount")
	out.TaxAmount = decimalField(res.Fields, "total_tax_amount", "vat_tax_amount")
	out.TotalAmount = decimalField(res.Fields, "total_amount")
	return out
}

func firstField(fields map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(fields[k]); v != "" {
			return v
		}
	}
	return ""
}

func decimalField(fields map[string]string, keys ...string) *decimal.Decimal {
	raw := firstField(fields, keys...)
	if raw == "" {
		return nil
	}
	cleaned := strings.NewReplacer(",", "", "₹", "", "$", "", " ", "").Replace(raw)
	d, err := decimal.NewFromString(cleaned)
	if err != nil || d.LessThanOrEqual(decimal.Zero) {
		return nil
	}
	return &d
}

const openRouterExtractPrompt = `You extract structured fields from Indian invoices and receipts.
Respond with a single JSON object using exactly these keys:
invoice_number (string), invoice_date (string, YYYY-MM-DD), vendor_name (string),
vendor_gstin (string), taxable_amount (number), tax_amount (number),
total_amount (number), currency (string, ISO 4217).
Use null for anything you cannot find. Do not invent values.`

type aiInvoiceFields struct {
	InvoiceNumber string      `json:"invoice_number"`
	InvoiceDate   string      `json:"invoice_date"`
	VendorName    string      `json:"vendor_name"`
	VendorGSTIN   string      `json:"vendor_gstin"`
	TaxableAmount json.Number `json:"taxable_amount"`
	TaxAmount     json.Number `json:"tax_amount"`
	TotalAmount   json.Number `json:"total_amount"`
	Currency      string      `json:"currency"`
}

func (s *documentService) extractWithOpenRouter(ctx context.Context, text string) (*extraction, error) {
	// Long documents blow the context window without improving the fields.
	if len(text) > 24<<10 {
		text = text[:24<<10]
	}
	res, err := s.openrouter.Complete(ctx, openrouter.ChatRequest{
		JSONMode:  true,
		MaxTokens: 512,
		Messages: []openrouter.ChatMessage{
			{Role: "system", Content: openRouterExtractPrompt},
			{Role: "user", Content: text},
		},
	})
	if err != nil {
		return nil, err
	}
	parsed, err := parseAIInvoiceJSON(res.Content)
	if err != nil {
		return nil, err
	}
	out := &extraction{
		Provider:      document.ProviderOpenRouter,
		InvoiceNumber: strings.TrimSpace(parsed.InvoiceNumber),
		VendorName:    strings.TrimSpace(parsed.VendorName),
		Currency:      strings.ToUpper(strings.TrimSpace(parsed.Currency)),
	}
	if ValidGSTIN(parsed.VendorGSTIN) {
		out.VendorGSTIN = NormalizeGSTIN(parsed.VendorGSTIN)
	}
	if parsed.InvoiceDate != "" {
		out.InvoiceDate = parseInvoiceDate(parsed.InvoiceDate)
	}
	out.TaxableAmount = decimalFromNumber(parsed.TaxableAmount)
	out.TaxAmount = decimalFromNumber(parsed.TaxAmount)
	out.TotalAmount = decimalFromNumber(parsed.TotalAmount)
	out.Fields = map[string]string{"model": res.Model}
	return out, nil
}

// parseAIInvoiceJSON tolerates models that wrap the object in a code fence.
func parseAIInvoiceJSON(content string) (*aiInvoiceFields, error) {
	content = strings.TrimSpace(content)
	if i := strings.IndexByte(content, '{'); i > 0 {
		content = content[i:]
	}
	if i := strings.LastIndexByte(content, '}'); i >= 0 {
		content = content[:i+1]
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(content)))
	dec.UseNumber()
	var parsed aiInvoiceFields
	if err := dec.Decode(&parsed); err != nil {
		return nil, fmt.Errorf("model returned non-JSON content: %w", err)
	}
	return &parsed, nil
}

func decimalFromNumber(n json.Number) *decimal.Decimal {
	if n == "" {
		return nil
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil || d.LessThanOrEqual(decimal.Zero) {
		return nil
	}
	return &d
}

func (s *documentService) extractWithMindee(ctx context.Context, fileName string, data []byte) (*extraction, error) {
	pred, err := s.mindee.PredictInvoice(ctx, fileName, data)
	if err != nil {
		return nil, err
	}
	out := &extraction{
		Provider:      document.ProviderMindee,
		InvoiceNumber: strings.TrimSpace(pred.InvoiceNumber),
		VendorName:    strings.TrimSpace(pred.SupplierName),
		Currency:      strings.ToUpper(strings.TrimSpace(pred.Currency)),
		Fields:        pred.Fields,
	}
	for _, reg := range pred.Registrations {
		if ValidGSTIN(reg.Value) {
			out.VendorGSTIN = NormalizeGSTIN(reg.Value)
			break
		}
	}
	if pred.InvoiceDate != "" {
		out.InvoiceDate = parseInvoiceDate(pred.InvoiceDate)
	}
	out.TaxableAmount = decimalFromFloat(pred.TotalNet)
	out.TaxAmount = decimalFromFloat(pred.TotalTax)
	out.TotalAmount = decimalFromFloat(pred.TotalAmount)
	return out, nil
}

func decimalFromFloat(f *float64) *decimal.Decimal {
	if f == nil || *f <= 0 {
		return nil
	}
	d := decimal.NewFromFloat(*f)
	return &d
}

// mergeExtractions combines a provider pass with the deterministic text scan.
// Provider fields win, the scan fills gaps, and disagreements go to warnings.
func mergeExtractions(provider *extraction, rx *RegexExtraction) *extraction {
	out := &extraction{Provider: document.ProviderRegex}
	if provider != nil {
		*out = *provider
	}
	if rx == nil {
		return out
	}

	warn := func(field, providerVal, scanVal string) {
		out.Warnings = append(out.Warnings,
			fmt.Sprintf("%s: provider %q disagrees with text scan %q", field, providerVal, scanVal))
	}

	if out.InvoiceNumber == "" {
		out.InvoiceNumber = rx.InvoiceNumber
	} else if rx.InvoiceNumber != "" && !strings.EqualFold(out.InvoiceNumber, rx.InvoiceNumber) {
		warn("invoice_number", out.InvoiceNumber, rx.InvoiceNumber)
	}

	if out.VendorGSTIN == "" {
		out.VendorGSTIN = rx.VendorGSTIN
	} else if rx.VendorGSTIN != "" && out.VendorGSTIN != rx.VendorGSTIN {
		warn("vendor_gstin", out.VendorGSTIN, rx.VendorGSTIN)
	}

	if out.InvoiceDate == nil {
		out.InvoiceDate = rx.InvoiceDate
	} else if rx.InvoiceDate != nil && !out.InvoiceDate.Equal(*rx.InvoiceDate) {
		warn("invoice_date", out.InvoiceDate.Format("2006-01-02"), rx.InvoiceDate.Format("2006-01-02"))
	}

	mergeAmount := func(field string, dst **decimal.Decimal, scan *decimal.Decimal) {
		if *dst == nil {
			*dst = scan
			return
		}
		if scan != nil && !(*dst).Equal(*scan) {
			warn(field, (*dst).String(), scan.String())
		}
	}
	mergeAmount("taxable_amount", &out.TaxableAmount, rx.TaxableAmount)
	mergeAmount("tax_amount", &out.TaxAmount, rx.TaxAmount)
	mergeAmount("total_amount", &out.TotalAmount, rx.TotalAmount)

	return out
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}

func sanitizeFileName(name string) string {
	name = path.Base(strings.TrimSpace(strings.ReplaceAll(name, "\\", "/")))
	if name == "." || name == "/" {
		return ""
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '-' || r == '_':
			return r
		default:
			return '-'
		}
	}, name)
}
