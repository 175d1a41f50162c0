package engine

import (
	"errors"
	"fmt"
	"testing"
)

func TestEngineError_Format(t *testing.T) {
	cause := errors.New("connection reset")

	tests := []struct {
		name string
		err  *EngineError
		want string
	}{
		{
			name: "bare",
			err:  NewTransientError("lookup failed", cause),
			want: "[transient] lookup failed: connection reset",
		},
		{
			name: "resource",
			err:  NewThrottledError("slow down", cause).WithResource("ssm"),
			want: "[throttled] slow down (resource=ssm): connection reset",
		},
		{
			name: "resource and operation",
			err:  NewPermanentError("denied", cause).WithResource("example-com").WithOperation("status"),
			want: "[permanent] denied (resource=example-com, operation=status): connection reset",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestEngineError_Classification(t *testing.T) {
	base := NewThrottledError("rate limited", nil).WithCode(ErrCodeRateLimited)
	wrapped := fmt.Errorf("gather: %w", base)

	if ClassOf(wrapped) != ErrorClassThrottled {
		t.Errorf("Expected throttled class, got %q", ClassOf(wrapped))
	}
	if CodeOf(wrapped) != ErrCodeRateLimited {
		t.Errorf("Expected code %s, got %q", ErrCodeRateLimited, CodeOf(wrapped))
	}
	if !IsRetryable(wrapped) || IsPermanent(wrapped) {
		t.Error("Expected throttled error to be retryable and not permanent")
	}

	if !errors.Is(wrapped, &EngineError{Class: ErrorClassThrottled, Code: ErrCodeRateLimited}) {
		t.Error("Expected errors.Is to match class and code")
	}
	if errors.Is(wrapped, &EngineError{Class: ErrorClassThrottled, Code: ErrCodeTimeout}) {
		t.Error("Expected errors.Is to reject a different code")
	}

	plain := errors.New("plain")
	if ClassOf(plain) != "" || CodeOf(plain) != "" || IsRetryable(plain) {
		t.Error("Expected plain errors to be unclassified")
	}

	if !errors.Is(NewTransientError("x", plain), plain) {
		t.Error("Expected the cause to be reachable through Unwrap")
	}
}
