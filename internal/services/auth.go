package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	authdom "github.com/veldtops/fieldsuite-backend/internal/domain/auth"
	userdom "github.com/veldtops/fieldsuite-backend/internal/domain/user"
	"github.com/veldtops/fieldsuite-backend/internal/data/db"
	"github.com/veldtops/fieldsuite-backend/internal/data/repos"
	"github.com/veldtops/fieldsuite-backend/internal/platform/ctxutil"
	"github.com/veldtops/fieldsuite-backend/internal/platform/dbctx"
	"github.com/veldtops/fieldsuite-backend/internal/platform/logger"
)

const bcryptCost = 12

// TokenPair is what login/refresh hand back to the client. The refresh token
// is opaque; only its sha256 lands in storage.
type TokenPair struct {
	AccessToken           string    `json:"access_token"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshToken          string    `json:"refresh_token"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
}

type AuthConfig struct {
	JWTSecretKey    string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

type AuthService interface {
	Register(ctx context.Context, email, password, firstName, lastName string) (*userdom.User, *TokenPair, error)
	Login(ctx context.Context, email, password, userAgent string) (*userdom.User, *TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	// ContextFromToken verifies the access JWT and attaches the actor to the
	// context for downstream services.
	ContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
}

type authService struct {
	db        *gorm.DB
	log       *logger.Logger
	cfg       AuthConfig
	userRepo  repos.UserRepo
	tokenRepo repos.UserTokenRepo
}

func NewAuthService(gdb *gorm.DB, baseLog *logger.Logger, cfg AuthConfig, userRepo repos.UserRepo, tokenRepo repos.UserTokenRepo) AuthService {
	return &authService{
		db:        gdb,
		log:       baseLog.With("service", "AuthService"),
		cfg:       cfg,
		userRepo:  userRepo,
		tokenRepo: tokenRepo,
	}
}

func (s *authService) Register(ctx context.Context, email, password, firstName, lastName string) (*userdom.User, *TokenPair, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, nil, db.ValidationError("invalid email address")
	}
	if len(password) < 8 {
		return nil, nil, db.ValidationError("password must be at least 8 characters")
	}
	if strings.TrimSpace(firstName) == "" {
		return nil, nil, db.ValidationError("first name is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}

	var created *userdom.User
	var pair *TokenPair
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		exists, err := s.userRepo.EmailExists(dbc, email)
		if err != nil {
			return fmt.Errorf("check email: %w", err)
		}
		if exists {
			return db.ConflictError("email already registered")
		}
		rows, err := s.userRepo.Create(dbc, []*userdom.User{{
			Email:        email,
			PasswordHash: string(hash),
			FirstName:    strings.TrimSpace(firstName),
			LastName:     strings.TrimSpace(lastName),
			IsActive:     true,
		}})
		if err != nil {
			return db.MapError("create user", err)
		}
		created = rows[0]
		pair, err = s.issueTokens(dbc, created.ID, "")
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	s.log.Info("User registered", "user_id", created.ID)
	return created, pair, nil
}

func (s *authService) Login(ctx context.Context, email, password, userAgent string) (*userdom.User, *TokenPair, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	dbc := dbctx.Context{Ctx: ctx}

	u, err := s.userRepo.GetByEmail(dbc, email)
	if err != nil {
		return nil, nil, db.MapError("fetch user", err)
	}
	if u == nil || !u.IsActive {
		return nil, nil, db.ValidationError("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, nil, db.ValidationError("invalid credentials")
	}

	var pair *TokenPair
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: ctx, Tx: tx}
		var err error
		pair, err = s.issueTokens(inner, u.ID, userAgent)
		if err != nil {
			return err
		}
		return s.userRepo.UpdateLastLogin(inner, u.ID, time.Now().UTC())
	})
	if err != nil {
		return nil, nil, err
	}
	return u, pair, nil
}

// Refresh rotates the grant: the presented token's row is revoked and a fresh
// pair issued in the same transaction, so a replayed old token dies cleanly.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	hash := hashRefreshToken(refreshToken)
	var pair *TokenPair
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		row, err := s.tokenRepo.GetByRefreshHash(dbc, hash)
		if err != nil {
			return db.MapError("fetch refresh token", err)
		}
		now := time.Now().UTC()
		if !row.Usable(now) {
			return db.ValidationError("refresh token expired or revoked")
		}
		if err := s.tokenRepo.RevokeByIDs(dbc, []uuid.UUID{row.ID}, now); err != nil {
			return db.MapError("revoke refresh token", err)
		}
		pair, err = s.issueTokens(dbc, row.UserID, row.UserAgent)
		return err
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	hash := hashRefreshToken(refreshToken)
	dbc := dbctx.Context{Ctx: ctx}
	row, err := s.tokenRepo.GetByRefreshHash(dbc, hash)
	if err != nil {
		return db.MapError("fetch refresh token", err)
	}
	if row == nil || row.RevokedAt != nil {
		return nil
	}
	return db.MapError("revoke refresh token", s.tokenRepo.RevokeByIDs(dbc, []uuid.UUID{row.ID}, time.Now().UTC()))
}

func (s *authService) ContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	userID, tokenID, err := s.parseAccessToken(tokenString)
	if err != nil {
		return nil, err
	}
	return ctxutil.WithActor(ctx, &ctxutil.Actor{UserID: userID, TokenID: tokenID}), nil
}

func (s *authService) issueTokens(dbc dbctx.Context, userID uuid.UUID, userAgent string) (*TokenPair, error) {
	now := time.Now().UTC()
	accessExpiry := now.Add(s.cfg.AccessTokenTTL)
	access, err := s.mintAccessToken(userID, now, accessExpiry)
	if err != nil {
		return nil, fmt.Errorf("mint access token: %w", err)
	}

	refresh, err := newOpaqueToken()
	if err != nil {
		return nil, fmt.Errorf("mint refresh token: %w", err)
	}
	refreshExpiry := now.Add(s.cfg.RefreshTokenTTL)
	if _, err := s.tokenRepo.Create(dbc, []*authdom.UserToken{{
		UserID:           userID,
		RefreshTokenHash: hashRefreshToken(refresh),
		UserAgent:        userAgent,
		ExpiresAt:        refreshExpiry,
	}}); err != nil {
		return nil, db.MapError("store refresh token", err)
	}

	return &TokenPair{
		AccessToken:           access,
		AccessTokenExpiresAt:  accessExpiry,
		RefreshToken:          refresh,
		RefreshTokenExpiresAt: refreshExpiry,
	}, nil
}

func (s *authService) mintAccessToken(userID uuid.UUID, issuedAt, expiresAt time.Time) (string, error) {
	claims := jwt.MapClaims{
		"sub": userID.String(),
		"iat": issuedAt.Unix(),
		"exp": expiresAt.Unix(),
		"jti": uuid.NewString(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecretKey))
}

func (s *authService) parseAccessToken(tokenString string) (uuid.UUID, string, error) {
	parsed, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecretKey), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("parse token: %w", err)
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return uuid.Nil, "", fmt.Errorf("invalid token claims")
	}
	sub, _ := claims["sub"].(string)
	userID, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("invalid subject claim")
	}
	jti, _ := claims["jti"].(string)
	return userID, jti, nil
}

func newOpaqueToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func hashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
