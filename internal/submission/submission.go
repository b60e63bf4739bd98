// Package submission enforces the one-way Draft to Submitted transition.
package submission

import (
	"errors"
	"fmt"
	"time"

	"labreport/api/internal/report"
)

// ConflictMessage is what users see when a locked report is written to.
const ConflictMessage = "Report already submitted and locked."

var (
	ErrConflict = errors.New("report already submitted")
	ErrRender   = errors.New("render artifact")
)

// ValidationError carries the user-facing message for a missing field.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// RenderFunc turns the final report into the artifact bytes (a PDF).
type RenderFunc func(report.Report) ([]byte, error)

type Result struct {
	Report   report.Report
	Artifact []byte
	FileName string
}

// CanEdit reports whether fields may still change.
func CanEdit(status report.Status) bool {
	return status != report.StatusSubmitted
}

// CanSave reports whether a draft write is allowed.
func CanSave(status report.Status) bool {
	return status != report.StatusSubmitted
}

// Validate returns a *ValidationError for the first missing required field.
func Validate(r report.Report) error {
	if msg := report.ValidateForSubmit(r); msg != "" {
		return &ValidationError{Message: msg}
	}
	return nil
}

// Submit runs the transition. The input is never modified: on any error the
// caller still holds the Draft it passed in. The artifact is rendered from the
// already-Submitted copy so it shows the final state.
func Submit(r report.Report, now time.Time, render RenderFunc) (Result, error) {
	if r.IsSubmitted() {
		return Result{}, ErrConflict
	}
	if err := Validate(r); err != nil {
		return Result{}, err
	}

	final := r.Clone()
	stamp := now.UTC().Format(time.RFC3339)
	final.Status = report.StatusSubmitted
	final.UpdatedAt = stamp
	final.SubmittedAt = stamp

	artifact, err := render(final)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrRender, err)
	}
	if len(artifact) == 0 {
		return Result{}, fmt.Errorf("%w: empty artifact", ErrRender)
	}
	return Result{
		Report:   final,
		Artifact: artifact,
		FileName: report.SafeFileName(final.Title) + ".pdf",
	}, nil
}
