package feedback

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/veldtops/fieldsuite-backend/internal/data/repos/testutil"
	"github.com/veldtops/fieldsuite-backend/internal/domain/feedback"
	"github.com/veldtops/fieldsuite-backend/internal/platform/dbctx"
)

func TestFeedbackRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewFeedbackRepo(db, testutil.Logger(t))

	o := testutil.SeedOrg(t, ctx, tx, "Feedback Repo Org")
	u := testutil.SeedUser(t, ctx, tx, "feedbackrepo@example.com")
	tk := testutil.SeedTicket(t, ctx, tx, o.ID, u.ID, "TKT-00001")

	created, err := repo.Create(dbc, []*feedback.CustomerFeedback{
		{ID: uuid.New(), OrgID: o.ID, TicketID: testutil.PtrUUID(tk.ID), CustomerName: "Acme", Rating: 5, Channel: feedback.ChannelWeb, Status: feedback.StatusNew},
		{ID: uuid.New(), OrgID: o.ID, CustomerName: "Globex", Rating: 2, Channel: feedback.ChannelPhone, Status: feedback.StatusNew, Comment: "slow response"},
		{ID: uuid.New(), OrgID: o.ID, CustomerName: "Initech", Rating: 4, Channel: feedback.ChannelField, Status: feedback.StatusNew},
	})
	if err != nil || len(created) != 3 {
		t.Fatalf("Create: err=%v len=%d", err, len(created))
	}

	if got, err := repo.GetByID(dbc, created[0].ID); err != nil || got == nil || got.Rating != 5 {
		t.Fatalf("GetByID: err=%v row=%+v", err, got)
	}

	byTicket, err := repo.ListByOrg(dbc, o.ID, Filter{TicketID: testutil.PtrUUID(tk.ID)})
	if err != nil || len(byTicket) != 1 {
		t.Fatalf("ListByOrg (ticket): err=%v len=%d", err, len(byTicket))
	}

	lowRated, err := repo.ListByOrg(dbc, o.ID, Filter{MaxRating: 3})
	if err != nil || len(lowRated) != 1 || lowRated[0].CustomerName != "Globex" {
		t.Fatalf("ListByOrg (low rated): err=%v rows=%+v", err, lowRated)
	}

	now := time.Now()
	if err := repo.SetStatus(dbc, created[1].ID, feedback.StatusReviewed, testutil.PtrUUID(u.ID), &now); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	reviewed, err := repo.ListByOrg(dbc, o.ID, Filter{Statuses: []feedback.Status{feedback.StatusReviewed}})
	if err != nil || len(reviewed) != 1 || reviewed[0].ReviewedBy == nil {
		t.Fatalf("ListByOrg (reviewed): err=%v rows=%+v", err, reviewed)
	}

	if n, err := repo.CountByOrg(dbc, o.ID, Filter{}); err != nil || n != 3 {
		t.Fatalf("CountByOrg: err=%v n=%d", err, n)
	}

	summary, err := repo.SummaryByOrg(dbc, o.ID, nil, nil)
	if err != nil {
		t.Fatalf("SummaryByOrg: %v", err)
	}
	if summary.Total != 3 {
		t.Fatalf("summary total: got %d", summary.Total)
	}
	want := (5.0 + 2.0 + 4.0) / 3.0
	if math.Abs(summary.AverageRating-want) > 1e-9 {
		t.Fatalf("summary average: got %f want %f", summary.AverageRating, want)
	}
	if summary.RatingCounts[5] != 1 || summary.RatingCounts[2] != 1 || summary.RatingCounts[4] != 1 {
		t.Fatalf("summary rating counts: %+v", summary.RatingCounts)
	}
	if summary.StatusCounts[string(feedback.StatusNew)] != 2 || summary.StatusCounts[string(feedback.StatusReviewed)] != 1 {
		t.Fatalf("summary status counts: %+v", summary.StatusCounts)
	}
}
