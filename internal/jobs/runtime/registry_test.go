package runtime

import "testing"

type fakeHandler struct{ typ string }

func (h *fakeHandler) Type() string      { return h.typ }
func (h *fakeHandler) Run(*Context) error { return nil }

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(nil); err == nil {
		t.Fatal("nil handler must be rejected")
	}
	if err := r.Register(&fakeHandler{}); err == nil {
		t.Fatal("empty type must be rejected")
	}
	if err := r.Register(&fakeHandler{typ: "sla_scan"}); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(&fakeHandler{typ: "sla_scan"}); err == nil {
		t.Fatal("duplicate registration must be rejected")
	}

	if _, ok := r.Get("sla_scan"); !ok {
		t.Fatal("registered handler not found")
	}
	if _, ok := r.Get("unknown"); ok {
		t.Fatal("unknown type must miss")
	}
}
