package services

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/veldtops/fieldsuite-backend/internal/domain/document"
)

func dec(s string) *decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return &d
}

func TestMergeExtractions_ProviderWinsScanFillsGaps(t *testing.T) {
	date := time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)
	provider := &extraction{
		Provider:      document.ProviderMindee,
		InvoiceNumber: "INV-42",
		TotalAmount:   dec("11800"),
	}
	rx := &RegexExtraction{
		InvoiceNumber: "INV-42",
		InvoiceDate:   &date,
		VendorGSTIN:   "27AAPFU0939F1ZV",
		TaxAmount:     dec("1800"),
		TotalAmount:   dec("11800"),
	}

	got := mergeExtractions(provider, rx)

	if got.Provider != document.ProviderMindee {
		t.Fatalf("provider = %s", got.Provider)
	}
	if got.InvoiceNumber != "INV-42" {
		t.Fatalf("invoice number = %q", got.InvoiceNumber)
	}
	if got.VendorGSTIN != "27AAPFU0939F1ZV" {
		t.Fatal("scan gstin should fill the gap")
	}
	if got.InvoiceDate == nil || !got.InvoiceDate.Equal(date) {
		t.Fatal("scan date should fill the gap")
	}
	if got.TaxAmount == nil || !got.TaxAmount.Equal(*dec("1800")) {
		t.Fatal("scan tax should fill the gap")
	}
	if len(got.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", got.Warnings)
	}
}

func TestMergeExtractions_DisagreementWarns(t *testing.T) {
	provider := &extraction{
		Provider:      document.ProviderOpenRouter,
		InvoiceNumber: "A-1",
		TotalAmount:   dec("100"),
	}
	rx := &RegexExtraction{
		InvoiceNumber: "B-2",
		TotalAmount:   dec("250"),
	}

	got := mergeExtractions(provider, rx)

	if got.InvoiceNumber != "A-1" {
		t.Fatalf("provider value must win, got %q", got.InvoiceNumber)
	}
	if got.TotalAmount == nil || !got.TotalAmount.Equal(*dec("100")) {
		t.Fatalf("provider total must win, got %v", got.TotalAmount)
	}
	if len(got.Warnings) != 2 {
		t.Fatalf("expected 2 warnings, got %v", got.Warnings)
	}
	for _, w := range got.Warnings {
		if !strings.Contains(w, "disagrees") {
			t.Fatalf("warning missing disagreement note: %q", w)
		}
	}
}

func TestMergeExtractions_NoProvider(t *testing.T) {
	rx := &RegexExtraction{InvoiceNumber: "X-9", TotalAmount: dec("10")}
	got := mergeExtractions(nil, rx)
	if got.Provider != document.ProviderRegex {
		t.Fatalf("provider = %s", got.Provider)
	}
	if got.InvoiceNumber != "X-9" || got.TotalAmount == nil {
		t.Fatalf("scan values not carried: %+v", got)
	}
}

func TestSanitizeFileName(t *testing.T) {
	cases := map[string]string{
		"invoice march.pdf":     "invoice-march.pdf",
		"../../etc/passwd":      "passwd",
		"C:\\docs\\scan 01.png": "scan-01.png",
		"рахунок.pdf":           "-------.pdf",
		"  ":                    "",
	}
	for in, want := range cases {
		if got := sanitizeFileName(in); got != want {
			t.Fatalf("sanitizeFileName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseAIInvoiceJSON_CodeFence(t *testing.T) {
	content := "```json\n{\"invoice_number\": \"INV-7\", \"total_amount\": 99.5}\n```"
	got, err := parseAIInvoiceJSON(content)
	if err != nil {
		t.Fatal(err)
	}
	if got.InvoiceNumber != "INV-7" {
		t.Fatalf("invoice number = %q", got.InvoiceNumber)
	}
	if d := decimalFromNumber(got.TotalAmount); d == nil || !d.Equal(*dec("99.5")) {
		t.Fatalf("total = %v", got.TotalAmount)
	}
}
