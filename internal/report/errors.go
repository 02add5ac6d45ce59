package report

import (
	"errors"
	"fmt"
)

// Stage names one step of the delivery pipeline.
type Stage string

const (
	StageFetch  Stage = "fetch"
	StageBuild  Stage = "build"
	StageExport Stage = "export"
	StageSend   Stage = "send"
)

// Collaborator conditions. Fetchers wrap these so callers can tell a
// missing record set from an outage.
var (
	ErrNotFound    = errors.New("financial data not found")
	ErrUnavailable = errors.New("data source unavailable")
)

// Stage errors. Every error returned by the pipeline matches exactly one
// of these with errors.Is.
var (
	ErrFetch    = errors.New("fetch failed")
	ErrBuild    = errors.New("build failed")
	ErrRender   = errors.New("render failed")
	ErrDelivery = errors.New("delivery failed")
)

// errEmptyOutput marks a collaborator that returned neither a value nor an error.
var errEmptyOutput = errors.New("collaborator returned an empty result")

// StageError carries the failing stage, the recipient and the underlying cause.
type StageError struct {
	Stage     Stage
	Recipient Recipient
	Err       error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s for %s: %v", e.kind(), e.Recipient, e.Err)
}

// Unwrap exposes both the stage sentinel and the collaborator cause.
func (e *StageError) Unwrap() []error {
	return []error{e.kind(), e.Err}
}

func (e *StageError) kind() error {
	switch e.Stage {
	case StageFetch:
		return ErrFetch
	case StageBuild:
		return ErrBuild
	case StageExport:
		return ErrRender
	default:
		return ErrDelivery
	}
}

func newStageError(stage Stage, recipient Recipient, err error) *StageError {
	return &StageError{Stage: stage, Recipient: recipient, Err: err}
}

// FailedStage returns the stage that produced err, if err came from the pipeline.
func FailedStage(err error) (Stage, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return "", false
}
