package client

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	c, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestDefaultRetryConfig(t *testing.T) {
	config := DefaultRetryConfig()

	if config.MaxAttempts != 1 {
		t.Errorf("MaxAttempts = %d, want 1", config.MaxAttempts)
	}
	if config.InitialBackoff != 1*time.Second {
		t.Errorf("InitialBackoff = %v, want 1s", config.InitialBackoff)
	}
	if config.MaxBackoff != 30*time.Second {
		t.Errorf("MaxBackoff = %v, want 30s", config.MaxBackoff)
	}
	if config.BackoffMultiplier != 2.0 {
		t.Errorf("BackoffMultiplier = %v, want 2.0", config.BackoffMultiplier)
	}
}

func TestRetryWithBackoff(t *testing.T) {
	fast := RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
		BackoffMultiplier: 2,
	}
	errFail := errors.New("fail")

	tests := []struct {
		name         string
		config       RetryConfig
		failures     int
		class        ErrorClass
		wantCalls    int
		wantErr      bool
		wantExhausts bool
	}{
		{name: "success first try", config: fast, failures: 0, class: ErrorClassServer, wantCalls: 1},
		{name: "success after retries", config: fast, failures: 2, class: ErrorClassServer, wantCalls: 3},
		{name: "exhausted", config: fast, failures: 5, class: ErrorClassServer, wantCalls: 3, wantErr: true, wantExhausts: true},
		{name: "client error not retried", config: fast, failures: 5, class: ErrorClassClient, wantCalls: 1, wantErr: true},
		{name: "single attempt returns raw error", config: RetryConfig{MaxAttempts: 1}, failures: 5, class: ErrorClassNetwork, wantCalls: 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t)
			calls := 0
			err := c.retryWithBackoff(context.Background(), tt.config, func() (ErrorClass, error) {
				calls++
				if calls <= tt.failures {
					return tt.class, errFail
				}
				return "", nil
			})

			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, errFail) {
					t.Errorf("error should wrap the last attempt error, got %v", err)
				}
				if errors.Is(err, ErrRetryExhausted) != tt.wantExhausts {
					t.Errorf("errors.Is(err, ErrRetryExhausted) = %v, want %v", !tt.wantExhausts, tt.wantExhausts)
				}
			}
		})
	}
}

func TestRetryWithBackoff_ContextCancelled(t *testing.T) {
	c := newTestClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := RetryConfig{MaxAttempts: 5, InitialBackoff: time.Second, BackoffMultiplier: 2}
	err := c.retryWithBackoff(ctx, cfg, func() (ErrorClass, error) {
		return ErrorClassServer, errors.New("fail")
	})

	if !errors.Is(err, ErrContextCancelled) {
		t.Errorf("expected ErrContextCancelled, got %v", err)
	}
}
