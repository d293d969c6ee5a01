package sources

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"showsweep/internal/services"
)

// IsTransient reports whether err looks like a temporary upstream condition:
// timeouts, refused or reset connections, rate limiting and gateway errors.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.Code {
		case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
		return statusErr.Code >= http.StatusInternalServerError
	}
	message := strings.ToLower(err.Error())
	for _, token := range []string{
		"timeout",
		"deadline exceeded",
		"connection reset",
		"connection refused",
		"temporary failure",
		"awaiting headers",
	} {
		if strings.Contains(message, token) {
			return true
		}
	}
	return false
}

// Hint returns an operator-facing next step for a failed external call.
func Hint(service string, err error) string {
	var statusErr *StatusError
	switch {
	case errors.As(err, &statusErr) && (statusErr.Code == http.StatusUnauthorized || statusErr.Code == http.StatusForbidden):
		return "check the " + service + " API key or token"
	case errors.Is(err, services.ErrNotFound):
		return "item no longer exists in " + service
	case IsTransient(err):
		return service + " is unreachable or overloaded; the next run retries"
	default:
		return "check " + service + " URL and logs"
	}
}
