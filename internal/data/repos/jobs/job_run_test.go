package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/veldtops/fieldsuite-backend/internal/data/repos/testutil"
	"github.com/veldtops/fieldsuite-backend/internal/domain/jobs"
	"github.com/veldtops/fieldsuite-backend/internal/platform/dbctx"
)

func TestJobRunRepoClaim(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewJobRunRepo(db, testutil.Logger(t))

	now := time.Now().UTC()
	docID := uuid.New()
	rows, err := repo.Create(dbc, []*jobs.JobRun{
		{
			JobType:    jobs.TypeSLAScan,
			Status:     jobs.StatusQueued,
			EntityType: "org",
		},
		{
			JobType:    jobs.TypeDocumentExtract,
			Status:     jobs.StatusQueued,
			EntityType: "document",
			EntityID:   testutil.PtrUUID(docID),
		},
		{
			JobType:  jobs.TypeMailboxRefresh,
			Status:   jobs.StatusQueued,
			RunAfter: testutil.PtrTime(now.Add(time.Hour)),
		},
	})
	if err != nil || len(rows) != 3 {
		t.Fatalf("Create: rows=%d err=%v", len(rows), err)
	}
	scan, extract, refresh := rows[0], rows[1], rows[2]

	// Oldest due row first; the future run_after row must not be claimable.
	claimed, err := repo.ClaimNextRunnable(dbc, time.Minute, 5*time.Minute)
	if err != nil || claimed == nil || claimed.ID != scan.ID {
		t.Fatalf("ClaimNextRunnable: got %+v err=%v", claimed, err)
	}
	claimed, err = repo.ClaimNextRunnable(dbc, time.Minute, 5*time.Minute)
	if err != nil || claimed == nil || claimed.ID != extract.ID {
		t.Fatalf("second claim: got %+v err=%v", claimed, err)
	}
	claimed, err = repo.ClaimNextRunnable(dbc, time.Minute, 5*time.Minute)
	if err != nil || claimed != nil {
		t.Fatalf("expected no due rows left, got %+v err=%v", claimed, err)
	}

	got, err := repo.GetByID(dbc, scan.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != jobs.StatusRunning || got.Attempts != 1 || got.HeartbeatAt == nil {
		t.Fatalf("expected claimed row running with one attempt, got %+v", got)
	}

	if err := repo.Heartbeat(dbc, scan.ID); err != nil {
		t.Fatalf("Heartbeat: %v", err)
	}

	// A failed row becomes claimable again only after the retry delay.
	if err := repo.UpdateFields(dbc, extract.ID, map[string]any{
		"status":        jobs.StatusFailed,
		"error":         "provider timeout",
		"last_error_at": now,
	}); err != nil {
		t.Fatalf("UpdateFields fail: %v", err)
	}
	claimed, err = repo.ClaimNextRunnable(dbc, time.Hour, 5*time.Minute)
	if err != nil || claimed != nil {
		t.Fatalf("expected retry delay to hold the row back, got %+v err=%v", claimed, err)
	}
	claimed, err = repo.ClaimNextRunnable(dbc, 0, 5*time.Minute)
	if err != nil || claimed == nil || claimed.ID != extract.ID {
		t.Fatalf("expected failed row claimable after delay, got %+v err=%v", claimed, err)
	}

	// A running row with a dead heartbeat is reclaimable.
	stale := now.Add(-time.Hour)
	if err := repo.UpdateFields(dbc, scan.ID, map[string]any{"heartbeat_at": stale}); err != nil {
		t.Fatalf("UpdateFields stale: %v", err)
	}
	claimed, err = repo.ClaimNextRunnable(dbc, time.Hour, 10*time.Minute)
	if err != nil || claimed == nil || claimed.ID != scan.ID {
		t.Fatalf("expected stale running row reclaimed, got %+v err=%v", claimed, err)
	}

	// Terminal guard: once succeeded, late worker writes must lose.
	finished := time.Now().UTC()
	won, err := repo.UpdateFieldsUnlessStatus(dbc, scan.ID, []string{jobs.StatusSucceeded}, map[string]any{
		"status":      jobs.StatusSucceeded,
		"finished_at": finished,
	})
	if err != nil || !won {
		t.Fatalf("UpdateFieldsUnlessStatus: won=%v err=%v", won, err)
	}
	won, err = repo.UpdateFieldsUnlessStatus(dbc, scan.ID, []string{jobs.StatusSucceeded}, map[string]any{
		"status": jobs.StatusFailed,
	})
	if err != nil || won {
		t.Fatalf("expected terminal row protected, won=%v err=%v", won, err)
	}

	exists, err := repo.ExistsRunnable(dbc, jobs.TypeMailboxRefresh, "", nil)
	if err != nil || !exists {
		t.Fatalf("ExistsRunnable queued: exists=%v err=%v", exists, err)
	}
	exists, err = repo.ExistsRunnable(dbc, jobs.TypeDocumentExtract, "document", testutil.PtrUUID(docID))
	if err != nil || !exists {
		t.Fatalf("ExistsRunnable entity-scoped: exists=%v err=%v", exists, err)
	}
	exists, err = repo.ExistsRunnable(dbc, jobs.TypeSLAScan, "", nil)
	if err != nil || exists {
		t.Fatalf("expected finished job not runnable, exists=%v err=%v", exists, err)
	}

	latest, err := repo.GetLatestByEntity(dbc, "document", docID, jobs.TypeDocumentExtract)
	if err != nil || latest == nil || latest.ID != extract.ID {
		t.Fatalf("GetLatestByEntity: got %+v err=%v", latest, err)
	}

	// Finished rows older than the cutoff are purged; refresh stays queued.
	n, err := repo.DeleteFinishedBefore(dbc, finished.Add(time.Minute))
	if err != nil || n != 1 {
		t.Fatalf("DeleteFinishedBefore: n=%d err=%v", n, err)
	}
	still, err := repo.GetByID(dbc, refresh.ID)
	if err != nil || still == nil || still.Status != jobs.StatusQueued {
		t.Fatalf("expected future job untouched, got %+v err=%v", still, err)
	}
}
