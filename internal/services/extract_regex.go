package services

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RegexExtraction holds what the deterministic pass pulled out of a
// document's text. Nil/empty fields were simply not found.
type RegexExtraction struct {
	InvoiceNumber string
	InvoiceDate   *time.Time
	VendorGSTIN   string
	TaxableAmount *decimal.Decimal
	TaxAmount     *decimal.Decimal
	TotalAmount   *decimal.Decimal
}

var (
	gstinInTextPattern = regexp.MustCompile(`\b[0-9]{2}[A-Z]{5}[0-9]{4}[A-Z][1-9A-Z]Z[0-9A-Z]\b`)

	// Capture stays case-sensitive so prose after the label ("Invoice
	// enclosed...") is not mistaken for a number.
	// Word boundaries keep the short "inv" form from matching inside
	// "INVOICE" and capturing its tail.
	invoiceNumberPattern = regexp.MustCompile(`(?i)\b(?:invoice|bill|inv)\b\s*(?:no|number|num|#)?\.?\s*[:\-]?\s*((?-i)[A-Z0-9][A-Z0-9\-/]{2,24})`)

	invoiceDatePattern = regexp.MustCompile(`(?i)(?:invoice\s+date|bill\s+date|dated?)\s*[:\-]?\s*([0-9]{1,4}[-/.][0-9]{1,2}[-/.][0-9]{1,4}|[0-9]{1,2}\s+[A-Za-z]{3,9}\s+[0-9]{4})`)

	// One labeled amount per line: the label group decides which bucket the
	// number lands in.
	labeledAmountPattern = regexp.MustCompile(`(?i)(grand\s*total|total\s*amount|amount\s*payable|net\s*payable|taxable\s*(?:value|amount)|(?:total\s*)?(?:gst|igst|cgst|sgst|tax)(?:\s*amount)?|total)\s*[:\-]?\s*(?:₹|rs\.?|inr)?\s*([0-9][0-9,]*(?:\.[0-9]{1,2})?)`)
)

var invoiceDateLayouts = []string{
	"02-01-2006", "02/01/2006", "02.01.2006",
	"2006-01-02", "2006/01/02",
	"02-01-06", "02/01/06",
	"2 January 2006", "2 Jan 2006",
}

// ExtractFromText runs the deterministic field patterns over OCR or PDF text.
func ExtractFromText(text string) *RegexExtraction {
	out := &RegexExtraction{}
	if strings.TrimSpace(text) == "" {
		return out
	}

	for _, candidate := range gstinInTextPattern.FindAllString(text, -1) {
		if ValidGSTIN(candidate) {
			out.VendorGSTIN = candidate
			break
		}
	}

	if m := invoiceNumberPattern.FindStringSubmatch(text); len(m) == 2 {
		number := strings.TrimRight(m[1], "-/")
		// A bare GSTIN or date is never an invoice number.
		if !ValidGSTIN(number) && !looksLikeDate(number) {
			out.InvoiceNumber = number
		}
	}

	if m := invoiceDatePattern.FindStringSubmatch(text); len(m) == 2 {
		if d := parseInvoiceDate(m[1]); d != nil {
			out.InvoiceDate = d
		}
	}

	extractAmounts(text, out)
	return out
}

func parseInvoiceDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	for _, layout := range invoiceDateLayouts {
		if d, err := time.Parse(layout, raw); err == nil {
			if d.Year() > 1990 && d.Year() < 2100 {
				d = d.UTC()
				return &d
			}
		}
	}
	return nil
}

func looksLikeDate(s string) bool {
	return parseInvoiceDate(s) != nil
}

func extractAmounts(text string, out *RegexExtraction) {
	var grandTotal, largestTotal, taxable, tax *decimal.Decimal

	for _, m := range labeledAmountPattern.FindAllStringSubmatch(text, -1) {
		label := strings.ToLower(strings.Join(strings.Fields(m[1]), " "))
		value, err := decimal.NewFromString(strings.ReplaceAll(m[2], ",", ""))
		if err != nil || value.LessThanOrEqual(decimal.Zero) {
			continue
		}
		v := value
		switch {
		case strings.Contains(label, "grand total"),
			strings.Contains(label, "amount payable"),
			strings.Contains(label, "net payable"):
			if grandTotal == nil || v.GreaterThan(*grandTotal) {
				grandTotal = &v
			}
		case strings.Contains(label, "taxable"):
			if taxable == nil || v.GreaterThan(*taxable) {
				taxable = &v
			}
		case strings.Contains(label, "gst"), strings.Contains(label, "tax"):
			if tax == nil || v.GreaterThan(*tax) {
				tax = &v
			}
		default: // plain "total" / "total amount"
			if largestTotal == nil || v.GreaterThan(*largestTotal) {
				largestTotal = &v
			}
		}
	}

	// An explicit grand-total label wins; otherwise the largest labeled total.
	if grandTotal != nil {
		out.TotalAmount = grandTotal
	} else {
		out.TotalAmount = largestTotal
	}
	out.TaxableAmount = taxable
	out.TaxAmount = tax
}
