package pipeline

import (
	"errors"
	"fmt"
)

// Stage identifies where a request is in its lifecycle. Stage transitions
// are strictly sequential; FAILED is reachable from any stage.
type Stage string

const (
	StageReceived   Stage = "received"
	StageEmbedding  Stage = "embedding"
	StageSearching  Stage = "searching"
	StageComposing  Stage = "composing"
	StageGenerating Stage = "generating"
	StageDone       Stage = "done"
	StageFailed     Stage = "failed"
)

// Error is a stage-tagged pipeline failure. URL names the upstream endpoint
// that failed so operators can diagnose networking misconfiguration; API
// keys are never part of it.
type Error struct {
	Stage   Stage
	Message string
	URL     string
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("[pipeline:%s] %s", e.Stage, e.Message)
	if e.URL != "" {
		msg += fmt.Sprintf(" (url: %s)", e.URL)
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// FailedStage extracts the stage tag from a pipeline failure, or StageFailed
// when err carries none.
func FailedStage(err error) Stage {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Stage
	}
	return StageFailed
}

// InvalidRequestError rejects bad input before any upstream call is made.
type InvalidRequestError struct {
	Message string
}

func (e *InvalidRequestError) Error() string {
	return e.Message
}

// IsInvalidRequest reports whether err is a request validation failure.
func IsInvalidRequest(err error) bool {
	var ir *InvalidRequestError
	return errors.As(err, &ir)
}

// PluginDisabledError means a prerequisite administrative flag is off. The
// message names the setting so the caller knows what to enable.
type PluginDisabledError struct {
	Setting string
}

func (e *PluginDisabledError) Error() string {
	return fmt.Sprintf("retrieval is disabled; enable %q to use this assistant", e.Setting)
}

// IsPluginDisabled reports whether err is a disabled-plugin rejection.
func IsPluginDisabled(err error) bool {
	var pd *PluginDisabledError
	return errors.As(err, &pd)
}
