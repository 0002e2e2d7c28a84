package ticket

import "testing"

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to Status }{
		{StatusOpen, StatusInProgress},
		{StatusOpen, StatusResolved},
		{StatusOpen, StatusCancelled},
		{StatusInProgress, StatusPendingCustomer},
		{StatusPendingCustomer, StatusInProgress},
		{StatusInProgress, StatusResolved},
		{StatusResolved, StatusPendingClosure},
		{StatusPendingClosure, StatusClosed},
		{StatusPendingClosure, StatusInProgress},
		{StatusResolved, StatusInProgress},
		{StatusClosed, StatusInProgress},
	}
	for _, tc := range allowed {
		if !CanTransition(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be allowed", tc.from, tc.to)
		}
	}

	denied := []struct{ from, to Status }{
		{StatusOpen, StatusClosed},
		{StatusOpen, StatusPendingClosure},
		{StatusInProgress, StatusClosed},
		{StatusResolved, StatusClosed},
		{StatusCancelled, StatusInProgress},
		{StatusCancelled, StatusCancelled},
		{StatusClosed, StatusResolved},
		{StatusPendingCustomer, StatusPendingClosure},
	}
	for _, tc := range denied {
		if CanTransition(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be rejected", tc.from, tc.to)
		}
	}
}

func TestStatusPredicates(t *testing.T) {
	if !StatusClosed.Terminal() || !StatusCancelled.Terminal() {
		t.Fatalf("closed and cancelled are terminal")
	}
	if StatusResolved.Terminal() {
		t.Fatalf("resolved is not terminal")
	}
	for _, s := range []Status{StatusOpen, StatusInProgress, StatusPendingCustomer} {
		if !s.Active() {
			t.Errorf("%s should be active", s)
		}
	}
	for _, s := range []Status{StatusResolved, StatusPendingClosure, StatusClosed, StatusCancelled} {
		if s.Active() {
			t.Errorf("%s should not be active", s)
		}
	}
	if !StatusOpen.Valid() || Status("bogus").Valid() {
		t.Fatalf("status validity check broken")
	}
}
