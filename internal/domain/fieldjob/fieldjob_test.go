package fieldjob

import "testing"

func TestJobTransitions(t *testing.T) {
	allowed := []struct{ from, to Status }{
		{StatusScheduled, StatusEnRoute},
		{StatusScheduled, StatusOnSite},
		{StatusScheduled, StatusCancelled},
		{StatusEnRoute, StatusOnSite},
		{StatusOnSite, StatusCompleted},
		{StatusOnSite, StatusCancelled},
	}
	for _, tc := range allowed {
		if !CanTransition(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be allowed", tc.from, tc.to)
		}
	}
	denied := []struct{ from, to Status }{
		{StatusEnRoute, StatusScheduled},
		{StatusOnSite, StatusEnRoute},
		{StatusScheduled, StatusCompleted},
		{StatusCompleted, StatusCancelled},
		{StatusCancelled, StatusScheduled},
	}
	for _, tc := range denied {
		if CanTransition(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be rejected", tc.from, tc.to)
		}
	}
}

func TestSequenceFormat(t *testing.T) {
	s := Sequence{Prefix: "DSP", Padding: 5}
	if got := s.Format(7); got != "DSP-00007" {
		t.Fatalf("Format: got %q want DSP-00007", got)
	}
	if got := s.Format(123456); got != "DSP-123456" {
		t.Fatalf("Format should not truncate: got %q", got)
	}
	unpadded := Sequence{Prefix: "INS"}
	if got := unpadded.Format(3); got != "INS-00003" {
		t.Fatalf("zero padding should default to 5: got %q", got)
	}
}

func TestSequenceKindPrefixes(t *testing.T) {
	cases := map[SequenceKind]string{
		SequenceTicket:       "TKT",
		SequenceDispatch:     "DSP",
		SequenceInstallation: "INS",
	}
	for kind, want := range cases {
		if got := kind.DefaultPrefix(); got != want {
			t.Errorf("%s: got %q want %q", kind, got, want)
		}
	}
}
