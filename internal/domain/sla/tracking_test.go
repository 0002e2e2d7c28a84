package sla

import (
	"math"
	"testing"
	"time"
)

func TestSettleResponseMet(t *testing.T) {
	deadline := time.Date(2025, 3, 1, 13, 0, 0, 0, time.UTC)
	tr := Tracking{ResponseDeadline: deadline, ResponseStatus: TrackingPending}

	tr.SettleResponse(deadline.Add(-90 * time.Minute))

	if tr.ResponseStatus != TrackingMet {
		t.Fatalf("status: got %s want %s", tr.ResponseStatus, TrackingMet)
	}
	if tr.ResponseBreachHours == nil {
		t.Fatalf("breach hours not recorded")
	}
	if got := *tr.ResponseBreachHours; math.Abs(got-(-1.5)) > 1e-9 {
		t.Fatalf("breach hours: got %v want -1.5", got)
	}
}

func TestSettleResponseBreached(t *testing.T) {
	deadline := time.Date(2025, 3, 1, 13, 0, 0, 0, time.UTC)
	tr := Tracking{ResponseDeadline: deadline, ResponseStatus: TrackingPending}

	tr.SettleResponse(deadline.Add(2*time.Hour + 15*time.Minute))

	if tr.ResponseStatus != TrackingBreached {
		t.Fatalf("status: got %s want %s", tr.ResponseStatus, TrackingBreached)
	}
	if got := *tr.ResponseBreachHours; math.Abs(got-2.25) > 1e-9 {
		t.Fatalf("breach hours: got %v want 2.25", got)
	}
}

func TestSettleExactlyOnDeadlineCountsAsMet(t *testing.T) {
	deadline := time.Date(2025, 3, 1, 13, 0, 0, 0, time.UTC)
	tr := Tracking{ResolutionDeadline: deadline, ResolutionStatus: TrackingPending}

	tr.SettleResolution(deadline)

	if tr.ResolutionStatus != TrackingMet {
		t.Fatalf("on-deadline arrival should be met, got %s", tr.ResolutionStatus)
	}
	if got := *tr.ResolutionBreachHours; got != 0 {
		t.Fatalf("breach hours: got %v want 0", got)
	}
}

func TestSettleResponseIsIdempotent(t *testing.T) {
	deadline := time.Date(2025, 3, 1, 13, 0, 0, 0, time.UTC)
	tr := Tracking{ResponseDeadline: deadline, ResponseStatus: TrackingPending}

	tr.SettleResponse(deadline.Add(-time.Hour))
	first := *tr.ResponseBreachHours

	tr.SettleResponse(deadline.Add(5 * time.Hour))
	if *tr.ResponseBreachHours != first {
		t.Fatalf("second settle should be ignored: got %v want %v", *tr.ResponseBreachHours, first)
	}
	if tr.ResponseStatus != TrackingMet {
		t.Fatalf("second settle must not flip status, got %s", tr.ResponseStatus)
	}
}

func TestReopenResolutionReArms(t *testing.T) {
	deadline := time.Date(2025, 3, 1, 13, 0, 0, 0, time.UTC)
	tr := Tracking{ResolutionDeadline: deadline, ResolutionStatus: TrackingPending}
	tr.SettleResolution(deadline.Add(-time.Hour))

	tr.ReopenResolution()

	if tr.ResolutionStatus != TrackingPending {
		t.Fatalf("status after reopen: got %s want pending", tr.ResolutionStatus)
	}
	if tr.ResolutionBreachHours != nil {
		t.Fatalf("breach hours should reset on reopen")
	}

	// The original deadline still applies to the re-resolution.
	tr.SettleResolution(deadline.Add(3 * time.Hour))
	if tr.ResolutionStatus != TrackingBreached {
		t.Fatalf("late re-resolution should breach, got %s", tr.ResolutionStatus)
	}
}

func TestEscalationDue(t *testing.T) {
	created := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	deadline := created.Add(10 * time.Hour)

	cases := []struct {
		name      string
		threshold int
		now       time.Time
		want      bool
	}{
		{"before threshold", 80, created.Add(7 * time.Hour), false},
		{"exactly at threshold", 80, created.Add(8 * time.Hour), false},
		{"past threshold", 80, created.Add(8*time.Hour + time.Minute), true},
		{"past deadline", 80, created.Add(11 * time.Hour), true},
		{"zero threshold falls back to 80", 0, created.Add(9 * time.Hour), true},
		{"low threshold", 50, created.Add(6 * time.Hour), true},
	}
	for _, tc := range cases {
		if got := EscalationDue(created, deadline, tc.threshold, tc.now); got != tc.want {
			t.Fatalf("%s: got %v want %v", tc.name, got, tc.want)
		}
	}

	if EscalationDue(created, created, 80, created.Add(time.Hour)) {
		t.Fatalf("zero-length window must never escalate")
	}
}

func TestBreachHoursSign(t *testing.T) {
	deadline := time.Date(2025, 3, 1, 13, 0, 0, 0, time.UTC)
	if got := BreachHours(deadline, deadline.Add(30*time.Minute)); math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("late arrival: got %v want 0.5", got)
	}
	if got := BreachHours(deadline, deadline.Add(-15*time.Minute)); math.Abs(got-(-0.25)) > 1e-9 {
		t.Fatalf("early arrival: got %v want -0.25", got)
	}
}
