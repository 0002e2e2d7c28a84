package gcp

import (
	"testing"

	"cloud.google.com/go/documentai/apiv1/documentaipb"
)

func TestBuildDocAIResultEntitiesAndFormFields(t *testing.T) {
	text := "Invoice No: INV-42/2024 Supplier: Acme Traders Total: 11800.00"
	doc := &documentaipb.Document{
		Text: text,
		Entities: []*documentaipb.Document_Entity{
			{
				Type:        "invoice_id",
				MentionText: "INV-42/2024",
			},
			{
				Type:        "total_amount",
				MentionText: "11,800.00",
				NormalizedValue: &documentaipb.Document_Entity_NormalizedValue{
					Text: "11800.00",
				},
			},
			{
				Type:        "line_item",
				MentionText: "Widget x2",
				Properties: []*documentaipb.Document_Entity{
					{Type: "line_item/description", MentionText: "Widget"},
				},
			},
		},
		Pages: []*documentaipb.Document_Page{
			{
				FormFields: []*documentaipb.Document_Page_FormField{
					{
						FieldName: &documentaipb.Document_Page_Layout{
							TextAnchor: &documentaipb.Document_TextAnchor{Content: "Supplier:"},
						},
						FieldValue: &documentaipb.Document_Page_Layout{
							TextAnchor: &documentaipb.Document_TextAnchor{Content: "Acme Traders"},
						},
					},
					{
						// Same key as an entity; the entity value must win.
						FieldName: &documentaipb.Document_Page_Layout{
							TextAnchor: &documentaipb.Document_TextAnchor{Content: "invoice_id"},
						},
						FieldValue: &documentaipb.Document_Page_Layout{
							TextAnchor: &documentaipb.Document_TextAnchor{Content: "WRONG"},
						},
					},
				},
			},
		},
	}

	out := buildDocAIResult(doc, "projects/p/locations/us/processors/x", "application/pdf")
	if out.Provider != "gcp_docai" {
		t.Fatalf("Provider: got %q", out.Provider)
	}
	if out.Text != text {
		t.Fatalf("Text: got %q", out.Text)
	}
	if got := out.Fields["invoice_id"]; got != "INV-42/2024" {
		t.Fatalf("invoice_id: want=%q got=%q", "INV-42/2024", got)
	}
	if got := out.Fields["total_amount"]; got != "11800.00" {
		t.Fatalf("total_amount: normalized value should win, got=%q", got)
	}
	if got := out.Fields["supplier:"]; got != "" {
		t.Fatalf("form field keys should drop the trailing colon, got supplier:=%q", got)
	}
	if got := out.Fields["supplier"]; got != "Acme Traders" {
		t.Fatalf("supplier: want=%q got=%q", "Acme Traders", got)
	}
	if got := out.Fields["line_item/description"]; got != "Widget" {
		t.Fatalf("nested property: want=%q got=%q", "Widget", got)
	}
	if len(out.Warnings) != 0 {
		t.Fatalf("Warnings: want none, got %v", out.Warnings)
	}
}

func TestBuildDocAIResultEmptyDocument(t *testing.T) {
	out := buildDocAIResult(&documentaipb.Document{}, "proc", "application/pdf")
	if out.Text != "" {
		t.Fatalf("Text: want empty, got %q", out.Text)
	}
	if len(out.Warnings) != 2 {
		t.Fatalf("Warnings: want 2 (no text, no fields), got %v", out.Warnings)
	}
}

func TestTextAnchorStringSegments(t *testing.T) {
	doc := &documentaipb.Document{Text: "GSTIN 29ABCDE1234F1Z5 Total"}
	anchor := &documentaipb.Document_TextAnchor{
		TextSegments: []*documentaipb.Document_TextAnchor_TextSegment{
			{StartIndex: 6, EndIndex: 21},
		},
	}
	if got := textAnchorString(doc, anchor); got != "29ABCDE1234F1Z5" {
		t.Fatalf("textAnchorString: got %q", got)
	}

	// Out-of-range segments are skipped rather than panicking.
	anchor = &documentaipb.Document_TextAnchor{
		TextSegments: []*documentaipb.Document_TextAnchor_TextSegment{
			{StartIndex: 10, EndIndex: 9999},
		},
	}
	if got := textAnchorString(doc, anchor); got != "" {
		t.Fatalf("textAnchorString: want empty for bad range, got %q", got)
	}
}

func TestProcessRequestSources(t *testing.T) {
	s := &documentService{processorName: "projects/p/locations/us/processors/x"}

	req := s.newProcessRequest()
	req.Source = &documentaipb.ProcessRequest_RawDocument{
		RawDocument: &documentaipb.RawDocument{Content: []byte("%PDF-1.4"), MimeType: "application/pdf"},
	}
	if req.GetRawDocument() == nil || req.GetRawDocument().GetMimeType() != "application/pdf" {
		t.Fatalf("raw document source not set: %+v", req)
	}
	if req.GetName() != s.processorName || !req.GetSkipHumanReview() || req.GetFieldMask() == nil {
		t.Fatalf("base request fields missing: %+v", req)
	}

	req = s.newProcessRequest()
	req.Source = &documentaipb.ProcessRequest_GcsDocument{
		GcsDocument: &documentaipb.GcsDocument{GcsUri: "gs://bucket/inv.pdf", MimeType: "application/pdf"},
	}
	if req.GetGcsDocument() == nil || req.GetGcsDocument().GetGcsUri() != "gs://bucket/inv.pdf" {
		t.Fatalf("gcs document source not set: %+v", req)
	}
}
