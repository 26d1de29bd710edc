package fetch

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"
)

// ErrorKind classifies a failed metadata fetch. Transient kinds are
// retry-eligible; everything else gives up immediately.
type ErrorKind int

const (
	// KindUnknown covers errors we cannot classify. Treated as permanent so
	// an unexpected failure mode never turns into a retry storm.
	KindUnknown ErrorKind = iota
	KindRateLimited
	KindUnavailable
	KindTimeout
	KindAuth
	KindNotFound
	KindMalformed
)

func (k ErrorKind) String() string {
	switch k {
	case KindRateLimited:
		return "rate-limited"
	case KindUnavailable:
		return "unavailable"
	case KindTimeout:
		return "timeout"
	case KindAuth:
		return "auth"
	case KindNotFound:
		return "not-found"
	case KindMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Transient reports whether the kind is worth retrying.
func (k ErrorKind) Transient() bool {
	switch k {
	case KindRateLimited, KindUnavailable, KindTimeout:
		return true
	default:
		return false
	}
}

// Classify maps an error from the Gmail API onto an ErrorKind.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusTooManyRequests:
			return KindRateLimited
		case http.StatusForbidden:
			// Gmail reports per-user rate limits as 403 with a rateLimit
			// reason rather than 429.
			if isRateLimitReason(gerr) {
				return KindRateLimited
			}
			return KindAuth
		case http.StatusUnauthorized:
			return KindAuth
		case http.StatusNotFound:
			return KindNotFound
		case http.StatusBadRequest:
			return KindMalformed
		case http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return KindUnavailable
		}
		return KindUnknown
	}

	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return KindTimeout
	}

	return KindUnknown
}

func isRateLimitReason(gerr *googleapi.Error) bool {
	for _, item := range gerr.Errors {
		reason := strings.ToLower(item.Reason)
		if strings.Contains(reason, "ratelimit") || reason == "userratelimitexceeded" {
			return true
		}
	}
	return strings.Contains(strings.ToLower(gerr.Message), "rate limit")
}
