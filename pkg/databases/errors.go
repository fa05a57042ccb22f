package databases

import (
	"fmt"
)

// RetrievalError reports a failed vector store call. It carries the attempted
// URL and, for HTTP failures, the status and response body so operators can
// diagnose networking misconfiguration from the error alone.
type RetrievalError struct {
	URL        string
	Operation  string
	StatusCode int
	Body       string
	Err        error
}

func (e *RetrievalError) Error() string {
	msg := fmt.Sprintf("[vector_store:%s] request to %s failed", e.Operation, e.URL)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": HTTP %d", e.StatusCode)
		if e.Body != "" {
			msg += fmt.Sprintf(" (%s)", e.Body)
		}
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

func (e *RetrievalError) Unwrap() error {
	return e.Err
}

func newRetrievalError(operation, url string, statusCode int, body string, err error) *RetrievalError {
	// Bound the echoed body; store error pages can be large.
	if len(body) > 512 {
		body = body[:512] + "..."
	}
	return &RetrievalError{
		URL:        url,
		Operation:  operation,
		StatusCode: statusCode,
		Body:       body,
		Err:        err,
	}
}
