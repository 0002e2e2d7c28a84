package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/veldtops/fieldsuite-backend/internal/data/db"
)

func TestRespondServiceErrorStatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", db.NotFoundError("ticket not found"), http.StatusNotFound, "not_found"},
		{"conflict", db.ConflictError("ticket number already exists"), http.StatusConflict, "conflict"},
		{"validation", db.ValidationError("rating out of range"), http.StatusBadRequest, "validation_failed"},
		{"internal", http.ErrHandlerTimeout, http.StatusInternalServerError, "internal_error"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)

			RespondServiceError(c, tc.err)

			if rec.Code != tc.wantStatus {
				t.Fatalf("unexpected status: got=%d want=%d", rec.Code, tc.wantStatus)
			}
			var env ErrorEnvelope
			if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if env.Error.Code != tc.wantCode {
				t.Fatalf("unexpected code: got=%q want=%q", env.Error.Code, tc.wantCode)
			}
			if env.Error.Message == "" {
				t.Fatal("expected non-empty message")
			}
		})
	}
}
