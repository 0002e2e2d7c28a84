package mindee

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/veldtops/fieldsuite-backend/internal/platform/envutil"
	"github.com/veldtops/fieldsuite-backend/internal/platform/httpx"
	"github.com/veldtops/fieldsuite-backend/internal/platform/logger"
)

// Client calls the Mindee invoice prediction API. One upload in, one typed
// prediction out.
type Client interface {
	PredictInvoice(ctx context.Context, filename string, data []byte) (*InvoicePrediction, error)
}

type Config struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
}

func ConfigFromEnv() Config {
	timeoutSec := envutil.Int("MINDEE_TIMEOUT_SECONDS", 60)
	maxRetries := envutil.Int("MINDEE_MAX_RETRIES", 3)

	return Config{
		APIKey:     strings.TrimSpace(os.Getenv("MINDEE_API_KEY")),
		BaseURL:    strings.TrimSpace(os.Getenv("MINDEE_BASE_URL")),
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
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("missing MINDEE_API_KEY")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://api.mindee.net"
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")

	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}

	return &client{
		log:        log.With("client", "MindeeClient"),
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

// --- public result types ---

type Registration struct {
	Type  string
	Value string
}

type InvoicePrediction struct {
	InvoiceNumber string
	InvoiceDate   string
	DueDate       string
	SupplierName  string
	Registrations []Registration
	Currency      string
	TotalAmount   *float64
	TotalNet      *float64
	TotalTax      *float64
	// Fields flattens every prediction key with a usable value, so callers
	// can persist the full provider output without knowing the schema.
	Fields map[string]string
}

// --- wire types ---

type predictResponse struct {
	APIRequest struct {
		StatusCode int      `json:"status_code"`
		Error      struct { // populated on rejection
			Message string `json:"message"`
		} `json:"error"`
	} `json:"api_request"`
	Document struct {
		Inference struct {
			Prediction map[string]json.RawMessage `json:"prediction"`
		} `json:"inference"`
	} `json:"document"`
}

type valueField struct {
	Value any `json:"value"`
}

type localeField struct {
	Currency string `json:"currency"`
}

func (c *client) PredictInvoice(ctx context.Context, filename string, data []byte) (*InvoicePrediction, error) {
	if c == nil || c.httpClient == nil {
		return nil, fmt.Errorf("mindee client unavailable")
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("mindee: empty document payload")
	}
	if strings.TrimSpace(filename) == "" {
		filename = "document.pdf"
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("document", filename)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	raw, err := c.do(ctx, "/v1/products/mindee/invoices/v4/predict", mw.FormDataContentType(), body.Bytes())
	if err != nil {
		return nil, err
	}

	var parsed predictResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("mindee: decode response: %w", err)
	}
	prediction := parsed.Document.Inference.Prediction
	if len(prediction) == 0 {
		return nil, fmt.Errorf("mindee: response had no prediction")
	}

	out := &InvoicePrediction{
		InvoiceNumber: stringValue(prediction, "invoice_number"),
		InvoiceDate:   stringValue(prediction, "date"),
		DueDate:       stringValue(prediction, "due_date"),
		SupplierName:  stringValue(prediction, "supplier_name"),
		TotalAmount:   floatValue(prediction, "total_amount"),
		TotalNet:      floatValue(prediction, "total_net"),
		TotalTax:      floatValue(prediction, "total_tax"),
		Fields:        flattenPrediction(prediction),
	}

	var locale localeField
	if rawLocale, ok := prediction["locale"]; ok {
		_ = json.Unmarshal(rawLocale, &locale)
		out.Currency = strings.TrimSpace(locale.Currency)
	}

	if rawRegs, ok := prediction["supplier_company_registrations"]; ok {
		var regs []struct {
			Type  string `json:"type"`
			Value string `json:"value"`
		}
		if json.Unmarshal(rawRegs, &regs) == nil {
			for _, r := range regs {
				if strings.TrimSpace(r.Value) == "" {
					continue
				}
				out.Registrations = append(out.Registrations, Registration{
					Type:  strings.TrimSpace(r.Type),
					Value: strings.TrimSpace(r.Value),
				})
			}
		}
	}

	return out, nil
}

func stringValue(prediction map[string]json.RawMessage, key string) string {
	raw, ok := prediction[key]
	if !ok {
		return ""
	}
	var vf valueField
	if json.Unmarshal(raw, &vf) != nil || vf.Value == nil {
		return ""
	}
	if s, ok := vf.Value.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func floatValue(prediction map[string]json.RawMessage, key string) *float64 {
	raw, ok := prediction[key]
	if !ok {
		return nil
	}
	var vf valueField
	if json.Unmarshal(raw, &vf) != nil || vf.Value == nil {
		return nil
	}
	if f, ok := vf.Value.(float64); ok {
		return &f
	}
	return nil
}

// flattenPrediction turns each prediction entry with a scalar value into a
// string, keyed by the provider's field name.
func flattenPrediction(prediction map[string]json.RawMessage) map[string]string {
	out := map[string]string{}
	keys := make([]string, 0, len(prediction))
	for k := range prediction {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		var vf valueField
		if json.Unmarshal(prediction[k], &vf) != nil || vf.Value == nil {
			continue
		}
		switch v := vf.Value.(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				out[k] = s
			}
		case float64:
			out[k] = strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			out[k] = strconv.FormatBool(v)
		}
	}
	return out
}

// ---------- HTTP / retry helpers ----------

type HTTPError struct {
	StatusCode int
	Body       string
	Message    string
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "mindee: <nil error>"
	}
	if strings.TrimSpace(e.Message) != "" {
		return fmt.Sprintf("mindee http %d: %s", e.StatusCode, e.Message)
	}
	msg := strings.TrimSpace(e.Body)
	if msg == "" {
		msg = "<empty body>"
	}
	if len(msg) > 4000 {
		msg = msg[:4000] + "..."
	}
	return fmt.Sprintf("mindee http %d: %s", e.StatusCode, msg)
}

func (e *HTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

// do retries the upload with the prebuilt multipart payload; the body is
// replayed from the byte slice on each attempt.
func (c *client) do(ctx context.Context, path, contentType string, payload []byte) ([]byte, error) {
	backoff := 1 * time.Second

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		resp, raw, err := c.doOnce(ctx, path, contentType, payload)
		if err == nil {
			return raw, nil
		}

		if !httpx.IsRetryableError(err) || attempt == c.maxRetries {
			return nil, err
		}

		sleepFor := httpx.RetryAfterDuration(resp, backoff, 15*time.Second)
		sleepFor = httpx.JitterSleep(sleepFor)

		c.log.Warn("Mindee request retrying",
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

func (c *client) doOnce(ctx context.Context, path, contentType string, payload []byte) (*http.Response, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", c.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Token "+c.cfg.APIKey)
	req.Header.Set("Content-Type", contentType)

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

		var env predictResponse
		if json.Unmarshal(raw, &env) == nil {
			he.Message = strings.TrimSpace(env.APIRequest.Error.Message)
		}
		return resp, raw, he
	}

	return resp, raw, nil
}
