package msgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/veldtops/fieldsuite-backend/internal/platform/envutil"
	"github.com/veldtops/fieldsuite-backend/internal/platform/httpx"
	"github.com/veldtops/fieldsuite-backend/internal/platform/logger"
)

// Client covers the two Microsoft Graph calls mailbox integration needs:
// resolving the signed-in mailbox address and sending mail. The bearer
// token comes in per call since each mailbox holds its own.
type Client interface {
	GetProfile(ctx context.Context, accessToken string) (*Profile, error)
	SendMail(ctx context.Context, accessToken string, msg Message) error
}

type Profile struct {
	ID                string `json:"id"`
	DisplayName       string `json:"displayName"`
	Mail              string `json:"mail"`
	UserPrincipalName string `json:"userPrincipalName"`
}

// EmailAddress returns the mailbox address, falling back to the principal
// name for accounts without a primary SMTP address set.
func (p *Profile) EmailAddress() string {
	if p == nil {
		return ""
	}
	if addr := strings.TrimSpace(p.Mail); addr != "" {
		return addr
	}
	return strings.TrimSpace(p.UserPrincipalName)
}

type Message struct {
	Subject  string
	BodyHTML string
	BodyText string
	To       []string
	CC       []string
}

type Config struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
}

func ConfigFromEnv() Config {
	timeoutSec := envutil.Int("MSGRAPH_TIMEOUT_SECONDS", 30)
	maxRetries := envutil.Int("MSGRAPH_MAX_RETRIES", 3)

	return Config{
		BaseURL:    strings.TrimSpace(os.Getenv("MSGRAPH_BASE_URL")),
		Timeout:    time.Duration(timeoutSec) * time.Second,
		MaxRetries: maxRetries,
	}
}

func NewFromEnv(log *logger.Logger) (Client, error) {
	return New(log, ConfigFromEnv())
}

func New(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://graph.microsoft.com"
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")

	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}

	return &client{
		log:        log.With("client", "MSGraphClient"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		maxRetries: cfg.MaxRetries,
	}, nil
}

type client struct {
	log        *logger.Logger
	cfg        Config
	httpClient *http.Client
	maxRetries int
}

// --- Graph sendMail wire types ---

type graphRecipient struct {
	EmailAddress struct {
		Address string `json:"address"`
	} `json:"emailAddress"`
}

type graphBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type graphMessage struct {
	Subject      string           `json:"subject"`
	Body         graphBody        `json:"body"`
	ToRecipients []graphRecipient `json:"toRecipients"`
	CcRecipients []graphRecipient `json:"ccRecipients,omitempty"`
}

type sendMailRequest struct {
	Message         graphMessage `json:"message"`
	SaveToSentItems bool         `json:"saveToSentItems"`
}

func (c *client) GetProfile(ctx context.Context, accessToken string) (*Profile, error) {
	if c == nil || c.httpClient == nil {
		return nil, fmt.Errorf("msgraph client unavailable")
	}
	raw, err := c.do(ctx, "GET", "/v1.0/me", accessToken, nil)
	if err != nil {
		return nil, err
	}
	var profile Profile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return nil, fmt.Errorf("msgraph: decode profile: %w", err)
	}
	if profile.EmailAddress() == "" {
		return nil, fmt.Errorf("msgraph: profile has no mailbox address")
	}
	return &profile, nil
}

func (c *client) SendMail(ctx context.Context, accessToken string, msg Message) error {
	if c == nil || c.httpClient == nil {
		return fmt.Errorf("msgraph client unavailable")
	}
	if len(msg.To) == 0 {
		return fmt.Errorf("msgraph: To required")
	}

	body := graphBody{ContentType: "Text", Content: msg.BodyText}
	if strings.TrimSpace(msg.BodyHTML) != "" {
		body = graphBody{ContentType: "HTML", Content: msg.BodyHTML}
	}
	if strings.TrimSpace(body.Content) == "" {
		return fmt.Errorf("msgraph: body required")
	}

	wire := sendMailRequest{
		Message: graphMessage{
			Subject:      strings.TrimSpace(msg.Subject),
			Body:         body,
			ToRecipients: recipients(msg.To),
			CcRecipients: recipients(msg.CC),
		},
		SaveToSentItems: true,
	}

	// Graph answers 202 with an empty body on success.
	_, err := c.do(ctx, "POST", "/v1.0/me/sendMail", accessToken, wire)
	return err
}

func recipients(addrs []string) []graphRecipient {
	if len(addrs) == 0 {
		return nil
	}
	out := make([]graphRecipient, 0, len(addrs))
	for _, a := range addrs {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		var r graphRecipient
		r.EmailAddress.Address = a
		out = append(out, r)
	}
	return out
}

// ---------- HTTP / retry helpers ----------

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type HTTPError struct {
	StatusCode int
	Code       string
	Body       string
	Message    string
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "msgraph: <nil error>"
	}
	if strings.TrimSpace(e.Message) != "" {
		return fmt.Sprintf("msgraph http %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	msg := strings.TrimSpace(e.Body)
	if msg == "" {
		msg = "<empty body>"
	}
	if len(msg) > 4000 {
		msg = msg[:4000] + "..."
	}
	return fmt.Sprintf("msgraph http %d: %s", e.StatusCode, msg)
}

func (e *HTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

// IsAuthError reports whether the failure means the token was rejected, so
// callers can mark the mailbox instead of retrying forever.
func IsAuthError(err error) bool {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.StatusCode == http.StatusUnauthorized || he.StatusCode == http.StatusForbidden
	}
	return false
}

func (c *client) do(ctx context.Context, method, path, accessToken string, body any) ([]byte, error) {
	backoff := 1 * time.Second

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		resp, raw, err := c.doOnce(ctx, method, path, accessToken, body)
		if err == nil {
			return raw, nil
		}

		if !httpx.IsRetryableError(err) || attempt == c.maxRetries {
			return nil, err
		}

		sleepFor := httpx.RetryAfterDuration(resp, backoff, 10*time.Second)
		sleepFor = httpx.JitterSleep(sleepFor)

		c.log.Warn("Graph request retrying",
			"path", path,
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)

		time.Sleep(sleepFor)
		backoff *= 2
	}

	return nil, errors.New("unreachable retry loop")
}

func (c *client) doOnce(ctx context.Context, method, path, accessToken string, body any) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}

	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		he := &HTTPError{StatusCode: resp.StatusCode, Body: string(raw)}

		var env errorEnvelope
		if json.Unmarshal(raw, &env) == nil {
			he.Code = strings.TrimSpace(env.Error.Code)
			he.Message = strings.TrimSpace(env.Error.Message)
		}
		return resp, raw, he
	}

	return resp, raw, nil
}
