package gcp

import (
	"os"
	"strings"

	"google.golang.org/api/option"
)

// ClientOptionsFromEnv resolves Google client credentials in order:
// GCP_CREDS_JSON (inline service-account JSON), GCP_CREDS_JSON_PATH,
// then GOOGLE_APPLICATION_CREDENTIALS. Returns nil when none are set
// so the clients fall back to application default credentials.
func ClientOptionsFromEnv() []option.ClientOption {
	if creds := strings.TrimSpace(os.Getenv("GCP_CREDS_JSON")); creds != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(creds))}
	}
	if path := strings.TrimSpace(os.Getenv("GCP_CREDS_JSON_PATH")); path != "" {
		return []option.ClientOption{option.WithCredentialsFile(path)}
	}
	if path := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")); path != "" {
		return []option.ClientOption{option.WithCredentialsFile(path)}
	}
	return nil
}

func collapseWhitespace(s string) string {
	// Fields collapses all whitespace runs, including the non-breaking
	// spaces OCR output tends to carry.
	return strings.Join(strings.Fields(strings.ReplaceAll(s, " ", " ")), " ")
}
