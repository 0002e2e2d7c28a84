package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/microsoft"
	"golang.org/x/sync/errgroup"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/veldtops/fieldsuite-backend/internal/clients/msgraph"
	"github.com/veldtops/fieldsuite-backend/internal/data/db"
	"github.com/veldtops/fieldsuite-backend/internal/data/repos"
	"github.com/veldtops/fieldsuite-backend/internal/domain/mail"
	"github.com/veldtops/fieldsuite-backend/internal/platform/crypt"
	"github.com/veldtops/fieldsuite-backend/internal/platform/dbctx"
	"github.com/veldtops/fieldsuite-backend/internal/platform/envutil"
	"github.com/veldtops/fieldsuite-backend/internal/platform/logger"
)

const (
	oauthStateTTL = 10 * time.Minute
	// refreshWindow is how close to expiry a send refreshes first.
	refreshWindow = 2 * time.Minute

	googleUserinfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
	googleRevokeURL   = "https://oauth2.googleapis.com/revoke"
)

type MailConfig struct {
	GoogleClientID        string
	GoogleClientSecret    string
	MicrosoftClientID     string
	MicrosoftClientSecret string
	// RedirectBaseURL is the public origin the provider redirects back to;
	// "/api/mail/callback/:provider" is appended per provider.
	RedirectBaseURL string
}

func MailConfigFromEnv() MailConfig {
	return MailConfig{
		GoogleClientID:        strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_CLIENT_ID")),
		GoogleClientSecret:    strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_CLIENT_SECRET")),
		MicrosoftClientID:     strings.TrimSpace(os.Getenv("MS_OAUTH_CLIENT_ID")),
		MicrosoftClientSecret: strings.TrimSpace(os.Getenv("MS_OAUTH_CLIENT_SECRET")),
		RedirectBaseURL:       strings.TrimRight(strings.TrimSpace(os.Getenv("MAIL_OAUTH_REDIRECT_BASE_URL")), "/"),
	}
}

type SendMailInput struct {
	To       []string
	CC       []string
	Subject  string
	BodyHTML string
	BodyText string
}

type MailService interface {
	// Connect persists a single-use state row and returns the provider
	// consent URL.
	Connect(ctx context.Context, orgID, userID uuid.UUID, provider mail.Provider) (string, error)
	// HandleCallback burns the state, exchanges the code, resolves the
	// mailbox address, and upserts the sealed account.
	HandleCallback(ctx context.Context, provider mail.Provider, state, code string) (*mail.Account, error)
	ListAccounts(dbc dbctx.Context, orgID uuid.UUID) ([]*mail.Account, error)
	Send(ctx context.Context, orgID, accountID uuid.UUID, in SendMailInput) error
	// Disconnect best-effort revokes at the provider and removes the row.
	Disconnect(ctx context.Context, orgID, accountID uuid.UUID) error
	// RefreshExpiring proactively rotates tokens expiring inside the window.
	// Called by the background worker.
	RefreshExpiring(ctx context.Context, window time.Duration, limit int) (int, error)
}

type mailService struct {
	db          *gorm.DB
	log         *logger.Logger
	cfg         MailConfig
	accountRepo repos.MailAccountRepo
	stateRepo   repos.OAuthStateRepo
	sealer      *crypt.Sealer
	graph       msgraph.Client
	httpClient  *http.Client
}

func NewMailService(
	gdb *gorm.DB,
	baseLog *logger.Logger,
	cfg MailConfig,
	accountRepo repos.MailAccountRepo,
	stateRepo repos.OAuthStateRepo,
	sealer *crypt.Sealer,
	graph msgraph.Client,
) MailService {
	return &mailService{
		db:          gdb,
		log:         baseLog.With("service", "MailService"),
		cfg:         cfg,
		accountRepo: accountRepo,
		stateRepo:   stateRepo,
		sealer:      sealer,
		graph:       graph,
		httpClient:  &http.Client{Timeout: time.Duration(envutil.Int("MAIL_HTTP_TIMEOUT_SECONDS", 30)) * time.Second},
	}
}

func (s *mailService) oauthConfig(provider mail.Provider) (*oauth2.Config, error) {
	redirect := fmt.Sprintf("%s/api/mail/callback/%s", s.cfg.RedirectBaseURL, provider)
	switch provider {
	case mail.ProviderGoogle:
		if s.cfg.GoogleClientID == "" || s.cfg.GoogleClientSecret == "" {
			return nil, db.ValidationError("google mailbox integration is not configured")
		}
		return &oauth2.Config{
			ClientID:     s.cfg.GoogleClientID,
			ClientSecret: s.cfg.GoogleClientSecret,
			RedirectURL:  redirect,
			Endpoint:     google.Endpoint,
			Scopes: []string{
				gmail.GmailSendScope,
				"https://www.googleapis.com/auth/userinfo.email",
			},
		}, nil
	case mail.ProviderMicrosoft:
		if s.cfg.MicrosoftClientID == "" || s.cfg.MicrosoftClientSecret == "" {
			return nil, db.ValidationError("microsoft mailbox integration is not configured")
		}
		return &oauth2.Config{
			ClientID:     s.cfg.MicrosoftClientID,
			ClientSecret: s.cfg.MicrosoftClientSecret,
			RedirectURL:  redirect,
			Endpoint:     microsoft.AzureADEndpoint("common"),
			Scopes:       []string{"User.Read", "Mail.Send", "offline_access"},
		}, nil
	default:
		return nil, db.ValidationError("unknown mail provider")
	}
}

func (s *mailService) Connect(ctx context.Context, orgID, userID uuid.UUID, provider mail.Provider) (string, error) {
	conf, err := s.oauthConfig(provider)
	if err != nil {
		return "", err
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate oauth state: %w", err)
	}
	state := hex.EncodeToString(raw)

	_, err = s.stateRepo.Create(dbctx.Context{Ctx: ctx}, &mail.OAuthState{
		State:       state,
		OrgID:       orgID,
		UserID:      userID,
		Provider:    provider,
		RedirectURI: conf.RedirectURL,
		ExpiresAt:   time.Now().UTC().Add(oauthStateTTL),
	})
	if err != nil {
		return "", db.MapError("persist oauth state", err)
	}

	opts := []oauth2.AuthCodeOption{oauth2.AccessTypeOffline}
	if provider == mail.ProviderGoogle {
		// Google only re-issues a refresh token when consent is re-prompted.
		opts = append(opts, oauth2.SetAuthURLParam("prompt", "consent"))
	}
	return conf.AuthCodeURL(state, opts...), nil
}

func (s *mailService) HandleCallback(ctx context.Context, provider mail.Provider, state, code string) (*mail.Account, error) {
	if strings.TrimSpace(code) == "" {
		return nil, db.ValidationError("missing authorization code")
	}
	conf, err := s.oauthConfig(provider)
	if err != nil {
		return nil, err
	}

	stateRow, err := s.stateRepo.Consume(dbctx.Context{Ctx: ctx}, strings.TrimSpace(state), time.Now().UTC())
	if err != nil {
		return nil, db.MapError("consume oauth state", err)
	}
	if stateRow == nil || stateRow.Provider != provider {
		return nil, db.ValidationError("invalid or expired oauth state")
	}

	token, err := conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}

	email, err := s.resolveMailbox(ctx, conf, provider, token)
	if err != nil {
		return nil, err
	}

	accessSealed, err := s.sealer.Seal(token.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("seal access token: %w", err)
	}
	refreshSealed := ""
	if token.RefreshToken != "" {
		refreshSealed, err = s.sealer.Seal(token.RefreshToken)
		if err != nil {
			return nil, fmt.Errorf("seal refresh token: %w", err)
		}
	}
	scopes, _ := json.Marshal(conf.Scopes)

	account, err := s.accountRepo.Upsert(dbctx.Context{Ctx: ctx}, &mail.Account{
		OrgID:              stateRow.OrgID,
		UserID:             stateRow.UserID,
		Provider:           provider,
		EmailAddress:       strings.ToLower(email),
		AccessTokenSealed:  accessSealed,
		RefreshTokenSealed: refreshSealed,
		TokenExpiresAt:     token.Expiry,
		Scopes:             datatypes.JSON(scopes),
		Status:             mail.AccountStatusActive,
		ConnectedBy:        stateRow.UserID,
	})
	if err != nil {
		return nil, db.MapError("upsert mail account", err)
	}
	s.log.Info("Mailbox connected", "org_id", stateRow.OrgID, "provider", provider, "email", "[REDACTED]")
	return account, nil
}

func (s *mailService) resolveMailbox(ctx context.Context, conf *oauth2.Config, provider mail.Provider, token *oauth2.Token) (string, error) {
	switch provider {
	case mail.ProviderGoogle:
		return s.googleEmail(ctx, conf, token)
	case mail.ProviderMicrosoft:
		profile, err := s.graph.GetProfile(ctx, token.AccessToken)
		if err != nil {
			return "", fmt.Errorf("fetch graph profile: %w", err)
		}
		addr := profile.EmailAddress()
		if addr == "" {
			return "", db.ValidationError("microsoft account has no mailbox address")
		}
		return addr, nil
	default:
		return "", db.ValidationError("unknown mail provider")
	}
}

func (s *mailService) googleEmail(ctx context.Context, conf *oauth2.Config, token *oauth2.Token) (string, error) {
	client := conf.Client(ctx, token)
	resp, err := client.Get(googleUserinfoURL)
	if err != nil {
		return "", fmt.Errorf("fetch google userinfo: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read google userinfo: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("google userinfo returned status %d", resp.StatusCode)
	}
	var info struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return "", fmt.Errorf("decode google userinfo: %w", err)
	}
	if strings.TrimSpace(info.Email) == "" {
		return "", db.ValidationError("google account has no email address")
	}
	return strings.TrimSpace(info.Email), nil
}

func (s *mailService) ListAccounts(dbc dbctx.Context, orgID uuid.UUID) ([]*mail.Account, error) {
	rows, err := s.accountRepo.ListByOrg(dbc, orgID, nil)
	if err != nil {
		return nil, db.MapError("list mail accounts", err)
	}
	return rows, nil
}

func (s *mailService) Send(ctx context.Context, orgID, accountID uuid.UUID, in SendMailInput) error {
	if len(in.To) == 0 {
		return db.ValidationError("at least one recipient is required")
	}
	if strings.TrimSpace(in.Subject) == "" {
		return db.ValidationError("subject is required")
	}
	if strings.TrimSpace(in.BodyHTML) == "" && strings.TrimSpace(in.BodyText) == "" {
		return db.ValidationError("body_html or body_text is required")
	}

	dbc := dbctx.Context{Ctx: ctx}
	account, err := s.orgAccount(dbc, orgID, accountID)
	if err != nil {
		return err
	}
	if account.Status == mail.AccountStatusRevoked {
		return db.ConflictError("mailbox has been disconnected")
	}

	token, err := s.freshToken(ctx, account, refreshWindow)
	if err != nil {
		s.markError(dbc, account.ID, err)
		return err
	}

	switch account.Provider {
	case mail.ProviderGoogle:
		err = s.sendGmail(ctx, account, token, in)
		if err != nil && isGoogleAuthError(err) {
			s.markError(dbc, account.ID, err)
		}
	case mail.ProviderMicrosoft:
		err = s.graph.SendMail(ctx, token.AccessToken, msgraph.Message{
			Subject:  in.Subject,
			BodyHTML: in.BodyHTML,
			BodyText: in.BodyText,
			To:       in.To,
			CC:       in.CC,
		})
		if err != nil && msgraph.IsAuthError(err) {
			s.markError(dbc, account.ID, err)
		}
	default:
		return db.ValidationError("unknown mail provider")
	}
	if err != nil {
		return fmt.Errorf("send mail: %w", err)
	}

	if err := s.accountRepo.MarkUsed(dbc, account.ID, time.Now().UTC()); err != nil {
		s.log.Warn("mark mailbox used failed", "account_id", account.ID, "error", err)
	}
	if account.Status == mail.AccountStatusError {
		if err := s.accountRepo.SetStatus(dbc, account.ID, mail.AccountStatusActive, ""); err != nil {
			s.log.Warn("clear mailbox error failed", "account_id", account.ID, "error", err)
		}
	}
	return nil
}

func (s *mailService) sendGmail(ctx context.Context, account *mail.Account, token *oauth2.Token, in SendMailInput) error {
	conf, err := s.oauthConfig(mail.ProviderGoogle)
	if err != nil {
		return err
	}
	svc, err := gmail.NewService(ctx, option.WithTokenSource(conf.TokenSource(ctx, token)))
	if err != nil {
		return fmt.Errorf("gmail service: %w", err)
	}

	raw := buildRFC822(account.EmailAddress, in)
	msg := &gmail.Message{Raw: base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString(raw)}
	if _, err := svc.Users.Messages.Send("me", msg).Context(ctx).Do(); err != nil {
		return fmt.Errorf("gmail send: %w", err)
	}
	return nil
}

// isGoogleAuthError reports whether a Gmail API failure means the grant is
// dead (revoked or insufficient), as opposed to a transient fault.
func isGoogleAuthError(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden
	}
	var retrieveErr *oauth2.RetrieveError
	return errors.As(err, &retrieveErr)
}

// buildRFC822 assembles a minimal single-part message for the Gmail raw API.
func buildRFC822(from string, in SendMailInput) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + strings.Join(in.To, ", ") + "\r\n")
	if len(in.CC) > 0 {
		b.WriteString("Cc: " + strings.Join(in.CC, ", ") + "\r\n")
	}
	b.WriteString("Subject: " + strings.ReplaceAll(in.Subject, "\n", " ") + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	if strings.TrimSpace(in.BodyHTML) != "" {
		b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
		b.WriteString(in.BodyHTML)
	} else {
		b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n\r\n")
		b.WriteString(in.BodyText)
	}
	return []byte(b.String())
}

// freshToken unseals the account's tokens and refreshes them when expiry is
// near, persisting any rotation.
func (s *mailService) freshToken(ctx context.Context, account *mail.Account, window time.Duration) (*oauth2.Token, error) {
	access, err := s.sealer.Open(account.AccessTokenSealed)
	if err != nil {
		return nil, fmt.Errorf("unseal access token: %w", err)
	}
	refresh := ""
	if account.RefreshTokenSealed != "" {
		refresh, err = s.sealer.Open(account.RefreshTokenSealed)
		if err != nil {
			return nil, fmt.Errorf("unseal refresh token: %w", err)
		}
	}
	token := &oauth2.Token{
		AccessToken:  access,
		RefreshToken: refresh,
		Expiry:       account.TokenExpiresAt,
	}
	if !account.ExpiresWithin(window, time.Now().UTC()) {
		return token, nil
	}
	if refresh == "" {
		return nil, db.ConflictError("access token expired and no refresh token is available")
	}

	conf, err := s.oauthConfig(account.Provider)
	if err != nil {
		return nil, err
	}
	// A token that is still technically valid would be returned as-is by the
	// token source, so hand it only the refresh token to force rotation.
	rotated, err := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refresh}).Token()
	if err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}
	if err := s.persistRotated(dbctx.Context{Ctx: ctx}, account, rotated); err != nil {
		return nil, err
	}
	return rotated, nil
}

func (s *mailService) persistRotated(dbc dbctx.Context, account *mail.Account, token *oauth2.Token) error {
	accessSealed, err := s.sealer.Seal(token.AccessToken)
	if err != nil {
		return fmt.Errorf("seal access token: %w", err)
	}
	refreshSealed := account.RefreshTokenSealed
	if token.RefreshToken != "" {
		refreshSealed, err = s.sealer.Seal(token.RefreshToken)
		if err != nil {
			return fmt.Errorf("seal refresh token: %w", err)
		}
	}
	if err := s.accountRepo.UpdateTokens(dbc, account.ID, accessSealed, refreshSealed, token.Expiry); err != nil {
		return db.MapError("persist rotated tokens", err)
	}
	account.AccessTokenSealed = accessSealed
	account.RefreshTokenSealed = refreshSealed
	account.TokenExpiresAt = token.Expiry
	return nil
}

func (s *mailService) markError(dbc dbctx.Context, accountID uuid.UUID, cause error) {
	msg := cause.Error()
	if len(msg) > 500 {
		msg = msg[:500]
	}
	if err := s.accountRepo.SetStatus(dbc, accountID, mail.AccountStatusError, msg); err != nil {
		s.log.Warn("mark mailbox error failed", "account_id", accountID, "error", err)
	}
}

func (s *mailService) Disconnect(ctx context.Context, orgID, accountID uuid.UUID) error {
	dbc := dbctx.Context{Ctx: ctx}
	account, err := s.orgAccount(dbc, orgID, accountID)
	if err != nil {
		return err
	}

	// Best-effort provider-side revoke; the row goes away regardless.
	if account.Provider == mail.ProviderGoogle && account.AccessTokenSealed != "" {
		if access, err := s.sealer.Open(account.AccessTokenSealed); err == nil {
			s.revokeGoogle(ctx, access)
		}
	}

	if err := s.accountRepo.SetStatus(dbc, account.ID, mail.AccountStatusRevoked, ""); err != nil {
		s.log.Warn("mark mailbox revoked failed", "account_id", account.ID, "error", err)
	}
	return db.MapError("delete mail account", s.accountRepo.SoftDeleteByID(dbc, account.ID))
}

func (s *mailService) revokeGoogle(ctx context.Context, accessToken string) {
	form := url.Values{"token": {accessToken}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, googleRevokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.log.Warn("google token revoke failed (ignored)", "error", err)
		return
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

func (s *mailService) RefreshExpiring(ctx context.Context, window time.Duration, limit int) (int, error) {
	if window <= 0 {
		window = 10 * time.Minute
	}
	if limit <= 0 {
		limit = 50
	}
	dbc := dbctx.Context{Ctx: ctx}
	cutoff := time.Now().UTC().Add(window)

	accounts, err := s.accountRepo.ListExpiring(dbc, cutoff, limit)
	if err != nil {
		return 0, db.MapError("list expiring mail accounts", err)
	}
	// Token endpoints dominate the latency here, so refresh a few accounts
	// at a time. Rows are distinct accounts; no shared state beyond the
	// counter.
	var refreshed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(envutil.Int("MAIL_REFRESH_CONCURRENCY", 4))
	for _, account := range accounts {
		account := account
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if _, err := s.freshToken(gctx, account, window); err != nil {
				s.log.Warn("mailbox refresh failed", "account_id", account.ID, "error", err)
				s.markError(dbctx.Context{Ctx: gctx}, account.ID, err)
				return nil
			}
			refreshed.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return int(refreshed.Load()), err
	}
	return int(refreshed.Load()), nil
}

func (s *mailService) orgAccount(dbc dbctx.Context, orgID, accountID uuid.UUID) (*mail.Account, error) {
	account, err := s.accountRepo.GetByID(dbc, accountID)
	if err != nil {
		return nil, db.MapError("fetch mail account", err)
	}
	if account == nil || account.OrgID != orgID {
		return nil, db.NotFoundError("mail account not found")
	}
	return account, nil
}
