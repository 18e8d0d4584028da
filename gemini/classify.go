package gemini

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Kind is the coarse classification of a provider failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindCredentialInvalid
	KindQuotaExceeded
	KindModelNotFound
	KindNetwork
)

func (k Kind) String() string {
	switch k {
	case KindCredentialInvalid:
		return "credential-invalid"
	case KindQuotaExceeded:
		return "quota-exceeded"
	case KindModelNotFound:
		return "model-not-found"
	case KindNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// Error is a classified provider error. RetryAfter is zero unless the kind is
// quota-exceeded. Exhausted marks the case where every candidate model was
// tried and all of them failed on quota.
type Error struct {
	Kind       Kind
	Message    string
	RetryAfter time.Duration
	Exhausted  bool
}

func (e *Error) Error() string {
	if e.Exhausted {
		return fmt.Sprintf("gemini: all candidate models exhausted by quota: %s", e.Message)
	}
	return fmt.Sprintf("gemini: %s: %s", e.Kind, e.Message)
}

// Provider-suggested wait times show up in a handful of phrasings. Matched in
// order, first hit wins.
var retryAfterPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)retry\s+in\s+(\d+(?:\.\d+)?)\s*s`),
	regexp.MustCompile(`(?i)retry\s+after\s+(\d+(?:\.\d+)?)\s*s?`),
	regexp.MustCompile(`(?i)wait\s+(\d+(?:\.\d+)?)\s*s`),
	regexp.MustCompile(`(?i)retrydelay["':\s]+(\d+(?:\.\d+)?)\s*s`),
	regexp.MustCompile(`(?i)try\s+again\s+in\s+(\d+(?:\.\d+)?)\s*s`),
}

// Classify derives a typed error from raw provider error text. Gemini does not
// return a machine-readable error schema over llmkit, so this keys off the
// phrasings the API is known to emit.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	if ce, ok := err.(*Error); ok {
		return ce
	}

	msg := err.Error()
	lower := strings.ToLower(msg)

	switch {
	case containsAny(lower, "api key not valid", "api_key_invalid", "invalid api key", "unauthenticated", "permission denied", "401"):
		return &Error{Kind: KindCredentialInvalid, Message: msg}
	case containsAny(lower, "quota", "resource_exhausted", "rate limit", "too many requests", "429"):
		return &Error{Kind: KindQuotaExceeded, Message: msg, RetryAfter: extractRetryAfter(msg)}
	case containsAny(lower, "model not found", "is not found", "not_found", "unsupported model", "404"):
		return &Error{Kind: KindModelNotFound, Message: msg}
	case containsAny(lower, "timeout", "deadline exceeded", "connection refused", "connection reset", "no such host", "dial tcp", "tls handshake", "eof"):
		return &Error{Kind: KindNetwork, Message: msg}
	default:
		return &Error{Kind: KindUnknown, Message: msg}
	}
}

// extractRetryAfter pulls a provider-suggested wait out of the error text.
// Returns zero when no phrasing matches; the caller applies its own default.
func extractRetryAfter(msg string) time.Duration {
	for _, re := range retryAfterPatterns {
		if m := re.FindStringSubmatch(msg); m != nil {
			secs, err := strconv.ParseFloat(m[1], 64)
			if err == nil && secs > 0 {
				return time.Duration(secs * float64(time.Second))
			}
		}
	}
	return 0
}

// mentionsPerMinuteLimit reports whether the error text points at an RPM-style
// limit, which makes a 60 second floor the safe default wait.
func mentionsPerMinuteLimit(msg string) bool {
	lower := strings.ToLower(msg)
	return containsAny(lower, "per minute", "perminute", "requests/min", "rpm")
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
