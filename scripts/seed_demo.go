// Seeds a demo organization with members, expense accounts, tickets, field
// jobs, and customer feedback so a fresh environment has data to click
// through. Safe to run against an empty database only; it does not check for
// existing demo rows.
//
// Usage: go run ./scripts/seed_demo.go (with the same env as the server).
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/veldtops/fieldsuite-backend/internal/app"
	"github.com/veldtops/fieldsuite-backend/internal/domain/expense"
	"github.com/veldtops/fieldsuite-backend/internal/domain/feedback"
	"github.com/veldtops/fieldsuite-backend/internal/domain/fieldjob"
	domrbac "github.com/veldtops/fieldsuite-backend/internal/domain/rbac"
	"github.com/veldtops/fieldsuite-backend/internal/domain/ticket"
	"github.com/veldtops/fieldsuite-backend/internal/platform/dbctx"
	"github.com/veldtops/fieldsuite-backend/internal/services"
)

func main() {
	a, err := app.New()
	if err != nil {
		fmt.Printf("failed to initialize app: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	ctx := context.Background()
	if err := seed(ctx, a); err != nil {
		a.Log.Error("seeding failed", "error", err)
		os.Exit(1)
	}
	fmt.Println("demo data seeded")
}

func seed(ctx context.Context, a *app.App) error {
	owner, _, err := a.Services.Auth.Register(ctx, "owner@demo.fieldsuite.in", "demo-password-1", "Asha", "Raman")
	if err != nil {
		return fmt.Errorf("register owner: %w", err)
	}
	tech, _, err := a.Services.Auth.Register(ctx, "tech@demo.fieldsuite.in", "demo-password-2", "Vikram", "Shetty")
	if err != nil {
		return fmt.Errorf("register technician: %w", err)
	}

	org, err := a.Services.Org.Create(ctx, owner.ID, services.CreateOrgInput{
		Name:         "Deccan Field Services",
		GSTIN:        "27AAPFU0939F1ZV",
		AddressLine1: "14 MG Road",
		City:         "Pune",
		State:        "Maharashtra",
		PostalCode:   "411001",
		Country:      "IN",
	})
	if err != nil {
		return fmt.Errorf("create org: %w", err)
	}

	// Org creation seeds the system roles; put the technician on Agent.
	roles, err := a.Services.RBAC.ListRoles(dbctx.Context{Ctx: ctx}, org.ID)
	if err != nil {
		return fmt.Errorf("list roles: %w", err)
	}
	var agentRoleID uuid.UUID
	for _, r := range roles {
		if r.Role.Name == domrbac.RoleAgent {
			agentRoleID = r.Role.ID
		}
	}
	if agentRoleID == uuid.Nil {
		return fmt.Errorf("agent role missing for org %s", org.ID)
	}
	techMember, err := a.Services.Org.AddMemberByEmail(ctx, org.ID, tech.Email, agentRoleID)
	if err != nil {
		return fmt.Errorf("add technician: %w", err)
	}

	ops, err := a.Services.Expense.CreateAccount(ctx, org.ID, services.CreateAccountInput{
		Code:        "OPS",
		Name:        "Operations",
		AccountType: expense.AccountTypeOperational,
	})
	if err != nil {
		return fmt.Errorf("create ops account: %w", err)
	}
	fuel, err := a.Services.Expense.CreateAccount(ctx, org.ID, services.CreateAccountInput{
		Code:        "OPS-FUEL",
		Name:        "Vehicle Fuel",
		AccountType: expense.AccountTypeTravel,
		ParentID:    &ops.ID,
	})
	if err != nil {
		return fmt.Errorf("create fuel account: %w", err)
	}
	if _, err := a.Services.Expense.CreateEntry(ctx, org.ID, owner.ID, services.CreateEntryInput{
		AccountID:  fuel.ID,
		Amount:     decimal.NewFromFloat(2350.00),
		Currency:   "INR",
		IncurredOn: time.Now().UTC().AddDate(0, 0, -3),
		VendorName: "Bharat Petroleum",
		Reference:  "FUEL-0934",
	}); err != nil {
		return fmt.Errorf("create expense entry: %w", err)
	}

	t, err := a.Services.Ticket.Create(ctx, org.ID, owner.ID, services.CreateTicketInput{
		Subject:       "AC compressor not starting",
		Description:   "Rooftop unit trips the breaker on startup.",
		TicketType:    ticket.TypeService,
		Priority:      ticket.PriorityHigh,
		CustomerTier:  ticket.TierPremium,
		CustomerName:  "Hotel Blue Orchid",
		CustomerEmail: "facilities@blueorchid.example",
		SiteAddress:   "Airport Rd, Pune",
	})
	if err != nil {
		return fmt.Errorf("create ticket: %w", err)
	}
	if _, err := a.Services.Ticket.Assign(ctx, org.ID, t.ID, &techMember.Member.ID); err != nil {
		return fmt.Errorf("assign ticket: %w", err)
	}
	if _, err := a.Services.Ticket.Start(ctx, org.ID, t.ID); err != nil {
		return fmt.Errorf("start ticket: %w", err)
	}

	scheduled := time.Now().UTC().Add(24 * time.Hour)
	if _, err := a.Services.FieldJob.Create(ctx, org.ID, owner.ID, services.CreateFieldJobInput{
		Kind:         fieldjob.KindDispatch,
		TicketID:     &t.ID,
		ScheduledFor: &scheduled,
		AssigneeID:   &techMember.Member.ID,
		SiteAddress:  "Airport Rd, Pune",
		ContactName:  "Front Desk",
		ContactPhone: "+91-9800000000",
	}); err != nil {
		return fmt.Errorf("create field job: %w", err)
	}

	if _, err := a.Services.Feedback.Create(ctx, org.ID, services.CreateFeedbackInput{
		TicketID:      &t.ID,
		CustomerName:  "Hotel Blue Orchid",
		CustomerEmail: "facilities@blueorchid.example",
		Rating:        4,
		Comment:       "Technician arrived on time, issue diagnosed quickly.",
		Channel:       feedback.ChannelEmail,
	}); err != nil {
		return fmt.Errorf("create feedback: %w", err)
	}

	fmt.Printf("org=%s ticket=%s\n", org.ID, t.Number)
	return nil
}
