package services

import (
	"testing"
	"time"
)

func TestExtractFromText_Invoice(t *testing.T) {
	text := `TAX INVOICE
Acme Industrial Supplies Pvt Ltd
GSTIN: 27AAPFU0939F1ZV
Invoice No: INV-2024/0042
Invoice Date: 14-03-2024

Taxable Value: 10,000.00
CGST: 900.00
SGST: 900.00
Grand Total: 11,800.00`

	got := ExtractFromText(text)

	if got.VendorGSTIN != "27AAPFU0939F1ZV" {
		t.Fatalf("gstin = %q", got.VendorGSTIN)
	}
	if got.InvoiceNumber != "INV-2024/0042" {
		t.Fatalf("invoice number = %q", got.InvoiceNumber)
	}
	if got.InvoiceDate == nil {
		t.Fatal("expected invoice date")
	}
	want := time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)
	if !got.InvoiceDate.Equal(want) {
		t.Fatalf("invoice date = %s", got.InvoiceDate)
	}
	if got.TaxableAmount == nil || got.TaxableAmount.String() != "10000" {
		t.Fatalf("taxable = %v", got.TaxableAmount)
	}
	if got.TaxAmount == nil || got.TaxAmount.String() != "900" {
		t.Fatalf("tax = %v", got.TaxAmount)
	}
	if got.TotalAmount == nil || got.TotalAmount.String() != "11800" {
		t.Fatalf("total = %v", got.TotalAmount)
	}
}

func TestExtractFromText_LargestTotalWinsWithoutGrandTotal(t *testing.T) {
	text := `Invoice #A-100
Total: 500.00
Total: 1,250.50`

	got := ExtractFromText(text)
	if got.TotalAmount == nil || got.TotalAmount.String() != "1250.5" {
		t.Fatalf("total = %v", got.TotalAmount)
	}
}

func TestExtractFromText_ISODateAndBadGSTIN(t *testing.T) {
	text := `Invoice Number: 77A-3
Dated: 2024-07-01
GSTIN 29ABCDE1234F1Z9 noted above
Total Amount: 42.00`

	got := ExtractFromText(text)
	if got.VendorGSTIN != "" {
		t.Fatalf("checksum-invalid gstin accepted: %q", got.VendorGSTIN)
	}
	if got.InvoiceDate == nil || got.InvoiceDate.Month() != time.July {
		t.Fatalf("date = %v", got.InvoiceDate)
	}
	if got.TotalAmount == nil || got.TotalAmount.String() != "42" {
		t.Fatalf("total = %v", got.TotalAmount)
	}
}

func TestExtractFromText_HeaderWordIsNotANumber(t *testing.T) {
	// "INVOICE" alone must not feed its own tail to the number capture.
	text := `TAX INVOICE
Acme Industrial Supplies Pvt Ltd
Grand Total: 118.00`

	got := ExtractFromText(text)
	if got.InvoiceNumber != "" {
		t.Fatalf("invoice number = %q, want empty", got.InvoiceNumber)
	}
}

func TestExtractFromText_Empty(t *testing.T) {
	got := ExtractFromText("   \n")
	if got.InvoiceNumber != "" || got.VendorGSTIN != "" || got.TotalAmount != nil {
		t.Fatalf("expected empty extraction, got %+v", got)
	}
}
