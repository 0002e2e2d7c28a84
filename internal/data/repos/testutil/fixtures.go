package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/veldtops/fieldsuite-backend/internal/domain/expense"
	"github.com/veldtops/fieldsuite-backend/internal/domain/org"
	"github.com/veldtops/fieldsuite-backend/internal/domain/rbac"
	"github.com/veldtops/fieldsuite-backend/internal/domain/sla"
	"github.com/veldtops/fieldsuite-backend/internal/domain/ticket"
	"github.com/veldtops/fieldsuite-backend/internal/domain/user"
)

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, email string) *user.User {
	tb.Helper()
	u := &user.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: "pw",
		FirstName:    "A",
		LastName:     "B",
		IsActive:     true,
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedOrg(tb testing.TB, ctx context.Context, tx *gorm.DB, name string) *org.Organization {
	tb.Helper()
	o := &org.Organization{
		ID:       uuid.New(),
		Name:     name,
		Slug:     org.Slugify(name),
		Country:  "IN",
		IsActive: true,
	}
	if err := tx.WithContext(ctx).Create(o).Error; err != nil {
		tb.Fatalf("seed org: %v", err)
	}
	return o
}

func SeedRole(tb testing.TB, ctx context.Context, tx *gorm.DB, orgID uuid.UUID, name string) *rbac.Role {
	tb.Helper()
	r := &rbac.Role{
		ID:       uuid.New(),
		OrgID:    orgID,
		Name:     name,
		IsSystem: true,
	}
	if err := tx.WithContext(ctx).Create(r).Error; err != nil {
		tb.Fatalf("seed role: %v", err)
	}
	return r
}

func SeedMember(tb testing.TB, ctx context.Context, tx *gorm.DB, orgID, userID, roleID uuid.UUID) *org.Member {
	tb.Helper()
	m := &org.Member{
		ID:     uuid.New(),
		OrgID:  orgID,
		UserID: userID,
		RoleID: roleID,
		Status: org.MemberStatusActive,
	}
	if err := tx.WithContext(ctx).Create(m).Error; err != nil {
		tb.Fatalf("seed member: %v", err)
	}
	return m
}

func SeedTicket(tb testing.TB, ctx context.Context, tx *gorm.DB, orgID, createdBy uuid.UUID, number string) *ticket.Ticket {
	tb.Helper()
	tk := &ticket.Ticket{
		ID:           uuid.New(),
		OrgID:        orgID,
		Number:       number,
		Subject:      "broken unit",
		TicketType:   ticket.TypeService,
		Priority:     ticket.PriorityMedium,
		CustomerTier: ticket.TierStandard,
		CustomerName: "Acme Traders",
		Status:       ticket.StatusOpen,
		CreatedBy:    createdBy,
	}
	if err := tx.WithContext(ctx).Create(tk).Error; err != nil {
		tb.Fatalf("seed ticket: %v", err)
	}
	return tk
}

func SeedSLAPolicy(tb testing.TB, ctx context.Context, tx *gorm.DB, orgID uuid.UUID, name string, isDefault bool) *sla.Policy {
	tb.Helper()
	p := &sla.Policy{
		ID:                         uuid.New(),
		OrgID:                      orgID,
		Name:                       name,
		ResponseTimeHours:          4,
		ResolutionTimeHours:        48,
		EscalationThresholdPercent: 80,
		IsDefault:                  isDefault,
		IsActive:                   true,
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed sla policy: %v", err)
	}
	return p
}

func SeedExpenseAccount(tb testing.TB, ctx context.Context, tx *gorm.DB, orgID uuid.UUID, code string, parentID *uuid.UUID) *expense.Account {
	tb.Helper()
	a := &expense.Account{
		ID:          uuid.New(),
		OrgID:       orgID,
		Code:        code,
		Name:        "account " + code,
		AccountType: expense.AccountTypeOperational,
		ParentID:    parentID,
		IsActive:    true,
	}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed expense account: %v", err)
	}
	return a
}

func PtrUUID(v uuid.UUID) *uuid.UUID { return &v }

func PtrTime(v time.Time) *time.Time { return &v }
