package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/veldtops/fieldsuite-backend/internal/platform/ctxutil"
	"github.com/veldtops/fieldsuite-backend/internal/platform/logger"
	"github.com/veldtops/fieldsuite-backend/internal/services"
	userdom "github.com/veldtops/fieldsuite-backend/internal/domain/user"
)

type stubAuthService struct {
	userID uuid.UUID
	err    error
}

func (s *stubAuthService) Register(ctx context.Context, email, password, firstName, lastName string) (*userdom.User, *services.TokenPair, error) {
	return nil, nil, nil
}

func (s *stubAuthService) Login(ctx context.Context, email, password, userAgent string) (*userdom.User, *services.TokenPair, error) {
	return nil, nil, nil
}

func (s *stubAuthService) Refresh(ctx context.Context, refreshToken string) (*services.TokenPair, error) {
	return nil, nil
}

func (s *stubAuthService) Logout(ctx context.Context, refreshToken string) error {
	return nil
}

func (s *stubAuthService) ContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	if s.err != nil {
		return nil, s.err
	}
	return ctxutil.WithActor(ctx, &ctxutil.Actor{UserID: s.userID}), nil
}

func newAuthTestRouter(t *testing.T, auth services.AuthService) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	t.Cleanup(log.Sync)

	r := gin.New()
	r.Use(NewAuthMiddleware(log, auth).RequireAuth())
	r.GET("/protected", func(c *gin.Context) {
		actor := ctxutil.GetActor(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"user_id": actor.UserID})
	})
	return r
}

func TestRequireAuthMissingToken(t *testing.T) {
	r := newAuthTestRouter(t, &stubAuthService{userID: uuid.New()})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: got=%d want=%d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequireAuthBearerHeader(t *testing.T) {
	r := newAuthTestRouter(t, &stubAuthService{userID: uuid.New()})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer some-access-token")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got=%d want=%d body=%s", rec.Code, http.StatusOK, rec.Body.String())
	}
}

func TestRequireAuthQueryTokenFallback(t *testing.T) {
	// EventSource clients cannot set headers, so ?token= must work too.
	r := newAuthTestRouter(t, &stubAuthService{userID: uuid.New()})

	req := httptest.NewRequest(http.MethodGet, "/protected?token=some-access-token", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got=%d want=%d", rec.Code, http.StatusOK)
	}
}

func TestRequireAuthInvalidToken(t *testing.T) {
	r := newAuthTestRouter(t, &stubAuthService{err: context.DeadlineExceeded})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: got=%d want=%d", rec.Code, http.StatusUnauthorized)
	}
}

func TestExtractTokenPrefersBearerHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/x?token=from-query", nil)
	c.Request.Header.Set("Authorization", "Bearer from-header")

	if got := extractToken(c); got != "from-header" {
		t.Fatalf("unexpected token: got=%q want=%q", got, "from-header")
	}
}
