package worker

import (
	"errors"
	"testing"
)

func TestErrFromRecoverCarriesValue(t *testing.T) {
	if got := errFromRecover("runtime error: index out of range [3]").Error(); got != "panic: runtime error: index out of range [3]" {
		t.Fatalf("unexpected message: %q", got)
	}
	if got := errFromRecover(errors.New("handler blew up")).Error(); got != "panic: handler blew up" {
		t.Fatalf("unexpected message: %q", got)
	}
}
