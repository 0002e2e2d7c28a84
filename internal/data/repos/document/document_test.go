package document

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/veldtops/fieldsuite-backend/internal/data/repos/testutil"
	"github.com/veldtops/fieldsuite-backend/internal/domain/document"
	"github.com/veldtops/fieldsuite-backend/internal/platform/dbctx"
)

func TestDocumentRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewDocumentRepo(db, testutil.Logger(t))

	o := testutil.SeedOrg(t, ctx, tx, "Document Repo Org")
	u := testutil.SeedUser(t, ctx, tx, "docrepo@example.com")

	inv, err := repo.Create(dbc, &document.Document{
		OrgID:      o.ID,
		UploadedBy: u.ID,
		Kind:       document.KindInvoice,
		FileName:   "vendor-invoice.pdf",
		MimeType:   "application/pdf",
		SizeBytes:  52_431,
		StorageKey: "orgs/" + o.ID.String() + "/documents/vendor-invoice.pdf",
		Status:     document.StatusUploaded,
		Currency:   "INR",
	})
	if err != nil || inv == nil {
		t.Fatalf("Create: %v", err)
	}
	rcpt, err := repo.Create(dbc, &document.Document{
		OrgID:      o.ID,
		UploadedBy: u.ID,
		Kind:       document.KindReceipt,
		FileName:   "fuel-receipt.jpg",
		MimeType:   "image/jpeg",
		SizeBytes:  8_902,
		StorageKey: "orgs/" + o.ID.String() + "/documents/fuel-receipt.jpg",
		Status:     document.StatusUploaded,
		Currency:   "INR",
	})
	if err != nil || rcpt == nil {
		t.Fatalf("Create receipt: %v", err)
	}

	all, err := repo.ListByOrg(dbc, o.ID, Filter{})
	if err != nil || len(all) != 2 {
		t.Fatalf("ListByOrg: n=%d err=%v", len(all), err)
	}
	invoices, err := repo.ListByOrg(dbc, o.ID, Filter{Kinds: []document.Kind{document.KindInvoice}})
	if err != nil || len(invoices) != 1 || invoices[0].ID != inv.ID {
		t.Fatalf("kind filter: n=%d err=%v", len(invoices), err)
	}

	// Only one worker may claim the extraction.
	won, err := repo.MarkProcessing(dbc, inv.ID)
	if err != nil || !won {
		t.Fatalf("MarkProcessing first claim: won=%v err=%v", won, err)
	}
	won, err = repo.MarkProcessing(dbc, inv.ID)
	if err != nil || won {
		t.Fatalf("MarkProcessing second claim must lose: won=%v err=%v", won, err)
	}

	total := decimal.RequireFromString("11800.00")
	provider := document.ProviderMindee
	if err := repo.UpdateFields(dbc, inv.ID, map[string]any{
		"status":         document.StatusExtracted,
		"provider":       provider,
		"invoice_number": "INV-42/2024",
		"vendor_name":    "Sharma Tools Pvt Ltd",
		"vendor_gstin":   "29ABCDE1234F1Z5",
		"total_amount":   total,
	}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	got, err := repo.GetByID(dbc, inv.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != document.StatusExtracted || got.InvoiceNumber != "INV-42/2024" {
		t.Fatalf("unexpected extracted row: %+v", got)
	}
	if got.Provider == nil || *got.Provider != document.ProviderMindee {
		t.Fatalf("expected provider recorded, got %+v", got.Provider)
	}
	if got.TotalAmount == nil || !got.TotalAmount.Equal(total) {
		t.Fatalf("unexpected total: %+v", got.TotalAmount)
	}

	// A failed document can be re-claimed for another pass.
	if err := repo.UpdateFields(dbc, rcpt.ID, map[string]any{
		"status": document.StatusFailed,
		"error":  "no text layers found",
	}); err != nil {
		t.Fatalf("UpdateFields failed doc: %v", err)
	}
	won, err = repo.MarkProcessing(dbc, rcpt.ID)
	if err != nil || !won {
		t.Fatalf("expected failed doc re-claimable: won=%v err=%v", won, err)
	}

	n, err := repo.CountByOrg(dbc, o.ID, Filter{Statuses: []document.Status{document.StatusExtracted}})
	if err != nil || n != 1 {
		t.Fatalf("CountByOrg extracted: n=%d err=%v", n, err)
	}

	if err := repo.SoftDeleteByID(dbc, rcpt.ID); err != nil {
		t.Fatalf("SoftDeleteByID: %v", err)
	}
	all, err = repo.ListByOrg(dbc, o.ID, Filter{})
	if err != nil || len(all) != 1 {
		t.Fatalf("expected deleted doc hidden, n=%d err=%v", len(all), err)
	}
}
