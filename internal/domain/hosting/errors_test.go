package hosting

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestAuthError(t *testing.T) {
	t.Parallel()

	err := error(&AuthError{StatusCode: 401, Message: "bad credentials"})

	var auth *AuthError
	if !errors.As(err, &auth) {
		t.Fatal("errors.As should match AuthError")
	}
	if !strings.Contains(err.Error(), "401") {
		t.Errorf("Error() should include the status, got %q", err.Error())
	}
}

func TestRateLimitedError(t *testing.T) {
	t.Parallel()

	if got := (&RateLimitedError{RetryAfter: 30}).Error(); !strings.Contains(got, "30s") {
		t.Errorf("Error() = %q, want retry hint", got)
	}
	if got := (&RateLimitedError{}).Error(); got != "rate limited" {
		t.Errorf("Error() = %q, want plain message", got)
	}
}

func TestNetworkErrorUnwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection refused")
	err := fmt.Errorf("create release: %w", &NetworkError{Op: "github.CreateRelease", Err: cause})

	if !errors.Is(err, cause) {
		t.Error("NetworkError should unwrap to its cause")
	}
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Error("errors.As should match NetworkError through wrapping")
	}
}
