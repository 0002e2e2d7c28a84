package gcp

import (
	"context"
	"errors"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestRetryableRPC(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"unavailable", status.Error(codes.Unavailable, "upstream connect error"), true},
		{"throttled", status.Error(codes.ResourceExhausted, "quota exceeded"), true},
		{"deadline", status.Error(codes.DeadlineExceeded, "context deadline exceeded"), true},
		{"bad request", status.Error(codes.InvalidArgument, "unsupported mime type"), false},
		{"permission", status.Error(codes.PermissionDenied, "caller lacks permission"), false},
		{"plain error", errors.New("dial tcp: connection refused"), false},
		{"nil", nil, false},
	}
	for _, tc := range cases {
		if got := retryableRPC(tc.err); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestWithRPCRetryRecovers(t *testing.T) {
	attempts := 0
	err := withRPCRetry(context.Background(), 3, time.Millisecond, func() error {
		attempts++
		if attempts < 3 {
			return status.Error(codes.Unavailable, "try again")
		}
		return nil
	})
	if err != nil || attempts != 3 {
		t.Fatalf("expected success on third attempt, err=%v attempts=%d", err, attempts)
	}
}

func TestWithRPCRetryStopsOnTerminalError(t *testing.T) {
	attempts := 0
	terminal := status.Error(codes.InvalidArgument, "no can do")
	err := withRPCRetry(context.Background(), 5, time.Millisecond, func() error {
		attempts++
		return terminal
	})
	if !errors.Is(err, terminal) || attempts != 1 {
		t.Fatalf("expected single attempt with terminal error, err=%v attempts=%d", err, attempts)
	}
}

func TestWithRPCRetryHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attempts := 0
	err := withRPCRetry(ctx, 5, time.Minute, func() error {
		attempts++
		return status.Error(codes.Unavailable, "try again")
	})
	if err == nil || attempts != 1 {
		t.Fatalf("expected cancellation after first attempt, err=%v attempts=%d", err, attempts)
	}
}
