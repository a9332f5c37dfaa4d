package adapter

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Kind is the coarse failure class shown to users. It goes straight into
// the apology text, so the values stay short and stable.
type Kind string

const (
	KindTimeout Kind = "timeout"
	KindQuota   Kind = "quota"
	KindBlocked Kind = "blocked"
	KindAPI     Kind = "api"
)

// AdapterError wraps provider errors with status metadata.
type AdapterError struct {
	Status    int
	Temporary bool
	Err       error
}

func (e *AdapterError) Error() string {
	if e == nil {
		return "adapter error"
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("adapter error (status=%d)", e.Status)
}

func (e *AdapterError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Classify maps an adapter failure to its user-facing kind.
func Classify(err error) Kind {
	if err == nil {
		return KindAPI
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	var adapterErr *AdapterError
	if errors.As(err, &adapterErr) && adapterErr.Status == 429 {
		return KindQuota
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "quota") || strings.Contains(msg, "rate limit") || strings.Contains(msg, "resource exhausted"):
		return KindQuota
	case strings.Contains(msg, "blocked") || strings.Contains(msg, "safety"):
		return KindBlocked
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline"):
		return KindTimeout
	default:
		return KindAPI
	}
}

// IsTransient reports whether an error is safe to retry.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var adapterErr *AdapterError
	if errors.As(err, &adapterErr) {
		if adapterErr.Temporary {
			return true
		}
		if adapterErr.Status == 429 || (adapterErr.Status >= 500 && adapterErr.Status <= 599) {
			return true
		}
	}
	return false
}
