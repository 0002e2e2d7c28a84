package services

import (
	"fmt"
	"strings"
	"testing"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
)

func TestIsGoogleAuthError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"unauthorized", fmt.Errorf("gmail send: %w", &googleapi.Error{Code: 401}), true},
		{"forbidden", fmt.Errorf("gmail send: %w", &googleapi.Error{Code: 403}), true},
		{"server error", fmt.Errorf("gmail send: %w", &googleapi.Error{Code: 500}), false},
		{"refresh rejected", fmt.Errorf("token refresh: %w", &oauth2.RetrieveError{}), true},
		{"plain error", fmt.Errorf("dial tcp: connection refused"), false},
	}
	for _, tc := range cases {
		if got := isGoogleAuthError(tc.err); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestBuildRFC822(t *testing.T) {
	raw := string(buildRFC822("ops@deccanfield.example", SendMailInput{
		To:       []string{"a@example.com", "b@example.com"},
		CC:       []string{"c@example.com"},
		Subject:  "Quarterly\nreview",
		BodyText: "See attached.",
	}))

	for _, want := range []string{
		"From: ops@deccanfield.example\r\n",
		"To: a@example.com, b@example.com\r\n",
		"Cc: c@example.com\r\n",
		"Subject: Quarterly review\r\n",
		"Content-Type: text/plain",
	} {
		if !strings.Contains(raw, want) {
			t.Fatalf("missing %q in:\n%s", want, raw)
		}
	}
	if !strings.HasSuffix(raw, "See attached.") {
		t.Fatalf("body should close the message, got:\n%s", raw)
	}
}
