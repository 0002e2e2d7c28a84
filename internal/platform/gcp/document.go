package gcp

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"google.golang.org/api/option"
	"google.golang.org/protobuf/types/known/fieldmaskpb"

	"github.com/veldtops/fieldsuite-backend/internal/platform/logger"
)

// DocumentAI wraps a Document AI invoice/receipt processor. Both entry
// points return the full document text plus whatever structured fields the
// processor recognized; callers decide what to do with partial results.
type DocumentAI interface {
	ProcessBytes(ctx context.Context, data []byte, mimeType string) (*DocAIResult, error)
	ProcessGCSObject(ctx context.Context, gcsURI, mimeType string) (*DocAIResult, error)
	Close() error
}

type DocAIResult struct {
	Provider  string            `json:"provider"`
	Processor string            `json:"processor"`
	MimeType  string            `json:"mime_type,omitempty"`
	Text      string            `json:"text"`
	Fields    map[string]string `json:"fields,omitempty"`
	Warnings  []string          `json:"warnings,omitempty"`
}

type documentService struct {
	log           *logger.Logger
	client        *documentai.DocumentProcessorClient
	processorName string
}

func NewDocumentAI(baseLog *logger.Logger) (DocumentAI, error) {
	if baseLog == nil {
		return nil, fmt.Errorf("logger required")
	}
	slog := baseLog.With("service", "gcp.DocumentAI")

	projectID := strings.TrimSpace(os.Getenv("GCP_PROJECT_ID"))
	if projectID == "" {
		return nil, fmt.Errorf("GCP_PROJECT_ID is not set")
	}
	location := strings.TrimSpace(os.Getenv("GCP_LOCATION"))
	if location == "" {
		location = "us"
	}
	processorID := strings.TrimSpace(os.Getenv("DOCAI_PROCESSOR_ID"))
	if processorID == "" {
		return nil, fmt.Errorf("DOCAI_PROCESSOR_ID is not set")
	}
	versionID := strings.TrimSpace(os.Getenv("DOCAI_PROCESSOR_VERSION_ID"))

	name := fmt.Sprintf("projects/%s/locations/%s/processors/%s", projectID, location, processorID)
	if versionID != "" {
		name = fmt.Sprintf("%s/processorVersions/%s", name, versionID)
	}

	opts := append(ClientOptionsFromEnv(),
		option.WithEndpoint(fmt.Sprintf("%s-documentai.googleapis.com:443", location)))
	client, err := documentai.NewDocumentProcessorClient(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("documentai client: %w", err)
	}

	slog.Info("document ai configured", "location", location, "processor_id", processorID)

	return &documentService{
		log:           slog,
		client:        client,
		processorName: name,
	}, nil
}

func (s *documentService) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *documentService) ProcessBytes(ctx context.Context, data []byte, mimeType string) (*DocAIResult, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty document payload")
	}
	req := s.newProcessRequest()
	req.Source = &documentaipb.ProcessRequest_RawDocument{
		RawDocument: &documentaipb.RawDocument{
			Content:  data,
			MimeType: normalizeMimeType(mimeType),
		},
	}
	return s.process(ctx, req, mimeType)
}

func (s *documentService) ProcessGCSObject(ctx context.Context, gcsURI, mimeType string) (*DocAIResult, error) {
	if !strings.HasPrefix(gcsURI, "gs://") {
		return nil, fmt.Errorf("gcsURI must be gs://... got %q", gcsURI)
	}
	req := s.newProcessRequest()
	req.Source = &documentaipb.ProcessRequest_GcsDocument{
		GcsDocument: &documentaipb.GcsDocument{
			GcsUri:   gcsURI,
			MimeType: normalizeMimeType(mimeType),
		},
	}
	return s.process(ctx, req, mimeType)
}

// newProcessRequest carries everything but the source oneof, which the
// callers set; the oneof interface itself is unexported by the proto package.
func (s *documentService) newProcessRequest() *documentaipb.ProcessRequest {
	return &documentaipb.ProcessRequest{
		Name:            s.processorName,
		SkipHumanReview: true,
		// The processor response can be enormous; only the parts the
		// extraction pipeline reads are requested.
		FieldMask: &fieldmaskpb.FieldMask{Paths: []string{"text", "entities", "pages.form_fields"}},
	}
}

func (s *documentService) process(ctx context.Context, req *documentaipb.ProcessRequest, mimeType string) (*DocAIResult, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	var resp *documentaipb.ProcessResponse
	err := withRPCRetry(ctx, 3, time.Second, func() error {
		var callErr error
		resp, callErr = s.client.ProcessDocument(ctx, req)
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("documentai ProcessDocument: %w", err)
	}
	if resp == nil || resp.Document == nil {
		return nil, fmt.Errorf("documentai returned no document")
	}
	return buildDocAIResult(resp.Document, s.processorName, mimeType), nil
}

func buildDocAIResult(doc *documentaipb.Document, processor, mimeType string) *DocAIResult {
	out := &DocAIResult{
		Provider:  "gcp_docai",
		Processor: processor,
		MimeType:  mimeType,
		Text:      collapseWhitespace(doc.GetText()),
		Fields:    map[string]string{},
	}
	if out.Text == "" {
		out.Warnings = append(out.Warnings, "processor returned no text")
	}

	// Entities carry the processor's structured reading (invoice_id,
	// supplier_name, total_amount, ...). Nested properties flatten one
	// level so line items stay addressable.
	for _, ent := range doc.GetEntities() {
		addEntityField(out.Fields, "", ent)
	}

	// Form fields are the generic key/value fallback; they never shadow
	// an entity with the same key.
	for _, page := range doc.GetPages() {
		for _, ff := range page.GetFormFields() {
			key := normalizeFieldKey(layoutText(doc, ff.GetFieldName()))
			val := collapseWhitespace(layoutText(doc, ff.GetFieldValue()))
			if key == "" || val == "" {
				continue
			}
			if _, exists := out.Fields[key]; !exists {
				out.Fields[key] = val
			}
		}
	}

	if len(out.Fields) == 0 {
		out.Warnings = append(out.Warnings, "processor returned no structured fields")
	}
	return out
}

func addEntityField(fields map[string]string, prefix string, ent *documentaipb.Document_Entity) {
	if ent == nil {
		return
	}
	key := normalizeFieldKey(ent.GetType())
	if key == "" {
		return
	}
	// Nested entity types usually carry the full path already
	// ("line_item/description"); only prefix when they do not.
	if prefix != "" && !strings.HasPrefix(key, prefix+"/") {
		key = prefix + "/" + key
	}

	val := strings.TrimSpace(ent.GetNormalizedValue().GetText())
	if val == "" {
		val = collapseWhitespace(ent.GetMentionText())
	}
	if val != "" {
		if _, exists := fields[key]; !exists {
			fields[key] = val
		}
	}
	for _, prop := range ent.GetProperties() {
		addEntityField(fields, key, prop)
	}
}

func layoutText(doc *documentaipb.Document, layout *documentaipb.Document_Page_Layout) string {
	if layout == nil {
		return ""
	}
	return textAnchorString(doc, layout.GetTextAnchor())
}

// textAnchorString resolves a text anchor against the document text. Some
// responses inline the content directly; otherwise the anchor is a list of
// byte ranges into Document.Text.
func textAnchorString(doc *documentaipb.Document, anchor *documentaipb.Document_TextAnchor) string {
	if anchor == nil {
		return ""
	}
	if c := anchor.GetContent(); c != "" {
		return c
	}
	text := doc.GetText()
	var b strings.Builder
	for _, seg := range anchor.GetTextSegments() {
		start := int(seg.GetStartIndex())
		end := int(seg.GetEndIndex())
		if start < 0 || end > len(text) || start >= end {
			continue
		}
		b.WriteString(text[start:end])
	}
	return b.String()
}

func normalizeFieldKey(key string) string {
	key = strings.ToLower(collapseWhitespace(key))
	key = strings.TrimSuffix(key, ":")
	return strings.TrimSpace(key)
}

func normalizeMimeType(mimeType string) string {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if mimeType == "" {
		return "application/pdf"
	}
	return mimeType
}
