package embedders

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorKind classifies embedding failures. The pipeline reports each kind
// differently: timeouts surface the configured bound, unavailability
// surfaces the attempted endpoint, and empty results are a provider bug
// that must never pass as success.
type ErrorKind int

const (
	KindTimeout ErrorKind = iota
	KindUnavailable
	KindEmpty
	KindBadResponse
)

func (k ErrorKind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindUnavailable:
		return "unavailable"
	case KindEmpty:
		return "empty"
	case KindBadResponse:
		return "bad_response"
	default:
		return "unknown"
	}
}

// EmbeddingError reports a failed embed call with its endpoint so operators
// can diagnose container-networking misconfiguration. API keys are never
// part of the endpoint and are never echoed.
type EmbeddingError struct {
	Kind     ErrorKind
	Endpoint string
	Err      error
}

func (e *EmbeddingError) Error() string {
	msg := fmt.Sprintf("[embedder:%s] request to %s failed", e.Kind, e.Endpoint)
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

func (e *EmbeddingError) Unwrap() error {
	return e.Err
}

func newEmbeddingError(kind ErrorKind, endpoint string, err error) *EmbeddingError {
	return &EmbeddingError{Kind: kind, Endpoint: endpoint, Err: err}
}

// classifyTransportError separates deadline expiry from network-level
// unavailability (connection refused, DNS failure).
func classifyTransportError(endpoint string, err error) *EmbeddingError {
	if errors.Is(err, context.DeadlineExceeded) {
		return newEmbeddingError(KindTimeout, endpoint, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return newEmbeddingError(KindTimeout, endpoint, err)
	}
	return newEmbeddingError(KindUnavailable, endpoint, err)
}

// IsTimeout reports whether err is an embedding timeout.
func IsTimeout(err error) bool {
	return isKind(err, KindTimeout)
}

// IsUnavailable reports whether err is a network-level embedding failure.
func IsUnavailable(err error) bool {
	return isKind(err, KindUnavailable)
}

// IsEmpty reports whether err marks a zero-length vector response.
func IsEmpty(err error) bool {
	return isKind(err, KindEmpty)
}

func isKind(err error, kind ErrorKind) bool {
	var embErr *EmbeddingError
	return errors.As(err, &embErr) && embErr.Kind == kind
}
