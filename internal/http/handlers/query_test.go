package handlers

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func testContextWithQuery(t *testing.T, rawQuery string) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/x?"+rawQuery, nil)
	return c
}

func TestQueryDate(t *testing.T) {
	c := testContextWithQuery(t, "from=2026-03-15")
	got := queryDate(c, "from")
	if got == nil {
		t.Fatal("expected parsed date")
	}
	if got.Year() != 2026 || int(got.Month()) != 3 || got.Day() != 15 {
		t.Fatalf("unexpected date: %v", got)
	}
	if queryDate(c, "to") != nil {
		t.Fatal("expected nil for absent param")
	}

	c = testContextWithQuery(t, "from=15/03/2026")
	if queryDate(c, "from") != nil {
		t.Fatal("expected nil for malformed date")
	}
}

func TestQueryInt(t *testing.T) {
	c := testContextWithQuery(t, "limit=25&offset=bogus")
	if got := queryInt(c, "limit", 50); got != 25 {
		t.Fatalf("unexpected limit: got=%d want=25", got)
	}
	if got := queryInt(c, "offset", 0); got != 0 {
		t.Fatalf("malformed value should fall back to default: got=%d", got)
	}
	if got := queryInt(c, "missing", 7); got != 7 {
		t.Fatalf("absent value should fall back to default: got=%d", got)
	}
}

func TestQueryUUID(t *testing.T) {
	id := uuid.New()
	c := testContextWithQuery(t, "account="+id.String()+"&ticket=nope")
	got := queryUUID(c, "account")
	if got == nil || *got != id {
		t.Fatalf("unexpected uuid: got=%v want=%s", got, id)
	}
	if queryUUID(c, "ticket") != nil {
		t.Fatal("expected nil for malformed uuid")
	}
	if queryUUID(c, "missing") != nil {
		t.Fatal("expected nil for absent param")
	}
}
