package rapidapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/veldtops/fieldsuite-backend/internal/platform/envutil"
	"github.com/veldtops/fieldsuite-backend/internal/platform/httpx"
	"github.com/veldtops/fieldsuite-backend/internal/platform/logger"
)

// GSTClient looks up GSTIN registrations through a RapidAPI-hosted
// verification service. The wire schema differs between providers, so the
// response is normalized field by field.
type GSTClient interface {
	LookupGSTIN(ctx context.Context, gstin string) (*GSTINDetails, error)
}

type GSTINDetails struct {
	GSTIN        string `json:"gstin"`
	LegalName    string `json:"legal_name,omitempty"`
	TradeName    string `json:"trade_name,omitempty"`
	Status       string `json:"status,omitempty"`
	TaxpayerType string `json:"taxpayer_type,omitempty"`
	StateCode    string `json:"state_code,omitempty"`
	RegisteredOn string `json:"registered_on,omitempty"`
	Address      string `json:"address,omitempty"`
}

type Config struct {
	APIKey     string
	Host       string
	Timeout    time.Duration
	MaxRetries int
}

func ConfigFromEnv() Config {
	timeoutSec := envutil.Int("RAPIDAPI_TIMEOUT_SECONDS", 20)
	maxRetries := envutil.Int("RAPIDAPI_MAX_RETRIES", 3)

	return Config{
		APIKey:     strings.TrimSpace(os.Getenv("RAPIDAPI_KEY")),
		Host:       strings.TrimSpace(os.Getenv("RAPIDAPI_GST_HOST")),
		Timeout:    time.Duration(timeoutSec) * time.Second,
		MaxRetries: maxRetries,
	}
}

func NewGSTFromEnv(log *logger.Logger) (GSTClient, error) {
	return NewGST(log, ConfigFromEnv())
}

func NewGST(log *logger.Logger, cfg Config) (GSTClient, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("missing RAPIDAPI_KEY")
	}
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, fmt.Errorf("missing RAPIDAPI_GST_HOST")
	}
	cfg.Host = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(cfg.Host), "https://"), "http://")
	cfg.Host = strings.TrimRight(cfg.Host, "/")

	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}

	return &gstClient{
		log:        log.With("client", "RapidAPIGSTClient"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		maxRetries: cfg.MaxRetries,
	}, nil
}

type gstClient struct {
	log        *logger.Logger
	cfg        Config
	httpClient *http.Client
	maxRetries int
}

// gstWire covers the field spellings seen across GST verification APIs;
// the GSTN-derived short keys (lgnm, tradeNam, sts, ctb, rgdt) and their
// long-form equivalents.
type gstWire struct {
	GSTIN        string `json:"gstin"`
	LegalName    string `json:"legal_name"`
	Lgnm         string `json:"lgnm"`
	TradeName    string `json:"trade_name"`
	TradeNam     string `json:"tradeNam"`
	Status       string `json:"status"`
	Sts          string `json:"sts"`
	TaxpayerType string `json:"taxpayer_type"`
	Ctb          string `json:"ctb"`
	RegisteredOn string `json:"registration_date"`
	Rgdt         string `json:"rgdt"`
	StateCode    string `json:"state_code"`
	Address      string `json:"address"`
	Pradr        struct {
		Adr string `json:"adr"`
	} `json:"pradr"`
}

type gstEnvelope struct {
	Flag    *bool           `json:"flag"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

func (c *gstClient) LookupGSTIN(ctx context.Context, gstin string) (*GSTINDetails, error) {
	if c == nil || c.httpClient == nil {
		return nil, fmt.Errorf("rapidapi client unavailable")
	}
	gstin = strings.ToUpper(strings.TrimSpace(gstin))
	if gstin == "" {
		return nil, fmt.Errorf("rapidapi: gstin required")
	}

	raw, err := c.do(ctx, "/gstin/"+url.PathEscape(gstin))
	if err != nil {
		return nil, err
	}

	// Some providers wrap the record in {flag, message, data}; others
	// return it bare. Try the envelope first.
	payload := raw
	var env gstEnvelope
	if json.Unmarshal(raw, &env) == nil && len(env.Data) > 0 {
		if env.Flag != nil && !*env.Flag {
			msg := strings.TrimSpace(env.Message)
			if msg == "" {
				msg = strings.TrimSpace(env.Error)
			}
			if msg == "" {
				msg = "lookup rejected"
			}
			return nil, fmt.Errorf("rapidapi gst: %s", msg)
		}
		payload = env.Data
	}

	var wire gstWire
	if err := json.Unmarshal(payload, &wire); err != nil {
		return nil, fmt.Errorf("rapidapi gst: decode response: %w", err)
	}

	details := &GSTINDetails{
		GSTIN:        firstNonEmpty(wire.GSTIN, gstin),
		LegalName:    firstNonEmpty(wire.LegalName, wire.Lgnm),
		TradeName:    firstNonEmpty(wire.TradeName, wire.TradeNam),
		Status:       firstNonEmpty(wire.Status, wire.Sts),
		TaxpayerType: firstNonEmpty(wire.TaxpayerType, wire.Ctb),
		RegisteredOn: firstNonEmpty(wire.RegisteredOn, wire.Rgdt),
		StateCode:    wire.StateCode,
		Address:      firstNonEmpty(wire.Address, wire.Pradr.Adr),
	}
	if details.StateCode == "" && len(details.GSTIN) >= 2 {
		details.StateCode = details.GSTIN[:2]
	}
	if details.LegalName == "" && details.TradeName == "" && details.Status == "" {
		return nil, fmt.Errorf("rapidapi gst: no registration data for %s", gstin)
	}
	return details, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

// ---------- HTTP / retry helpers ----------

type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "rapidapi: <nil error>"
	}
	msg := strings.TrimSpace(e.Body)
	if msg == "" {
		msg = "<empty body>"
	}
	if len(msg) > 4000 {
		msg = msg[:4000] + "..."
	}
	return fmt.Sprintf("rapidapi http %d: %s", e.StatusCode, msg)
}

func (e *HTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

func (c *gstClient) do(ctx context.Context, path string) ([]byte, error) {
	backoff := 1 * time.Second

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		resp, raw, err := c.doOnce(ctx, path)
		if err == nil {
			return raw, nil
		}

		if !httpx.IsRetryableError(err) || attempt == c.maxRetries {
			return nil, err
		}

		sleepFor := httpx.RetryAfterDuration(resp, backoff, 10*time.Second)
		sleepFor = httpx.JitterSleep(sleepFor)

		c.log.Warn("RapidAPI request retrying",
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

func (c *gstClient) doOnce(ctx context.Context, path string) (*http.Response, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", "https://"+c.cfg.Host+path, nil)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("x-rapidapi-key", c.cfg.APIKey)
	req.Header.Set("x-rapidapi-host", c.cfg.Host)

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
		return resp, raw, &HTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	return resp, raw, nil
}
