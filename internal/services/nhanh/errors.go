package nhanh

import (
	"fmt"
	"strings"
	"time"
)

// TransportError wraps a network-level failure talking to Nhanh.vn. No retry
// is performed at this layer; the next scheduled run is the retry mechanism.
type TransportError struct {
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("nhanh: request to %s failed: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// AuthError signals a missing, invalid or expired access token.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("nhanh: auth: %s", e.Reason)
}

// RateLimitError is detected from the response envelope, not from transport
// failure. UnlockedAt is when the remote side will accept requests again.
type RateLimitError struct {
	UnlockedAt time.Time
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("nhanh: rate limited until %s", e.UnlockedAt.Format(time.RFC3339))
}

// NotFoundError means the remote side reports an unknown id.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("nhanh: %s %s not found", e.Kind, e.ID)
}

// APIError carries the messages of a non-success response envelope.
type APIError struct {
	Endpoint string
	Messages []string
}

func (e *APIError) Error() string {
	if len(e.Messages) == 0 {
		return fmt.Sprintf("nhanh: %s returned an error", e.Endpoint)
	}
	return fmt.Sprintf("nhanh: %s: %s", e.Endpoint, strings.Join(e.Messages, ", "))
}

// ValidationError rejects a single unit of work without aborting the batch it
// came from.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("nhanh: validation: %s", e.Reason)
}
