package errors

import (
	stderrors "errors"
	"fmt"
	"os"

	"github.com/julianstephens/daychain/internal/logger"
)

// Engine error taxonomy. Callers wrap these with fmt.Errorf("...: %w", ...) and classify
// with errors.Is. Unschedulable items are never errors; they are skipped with a reason.
var (
	// ErrValidation rejects input before any scheduling work.
	ErrValidation = stderrors.New("validation failed")
	// ErrNotFound means the plan, chain or step does not exist.
	ErrNotFound = stderrors.New("not found")
	// ErrStaleReference means a client holds a block id invalidated by regeneration.
	// Re-resolve the block by (planID, chainID, stepID).
	ErrStaleReference = stderrors.New("stale block reference")
	// ErrInvariant rejects a structural edit that would break a chain.
	ErrInvariant = stderrors.New("invariant violation")
	// ErrRevisionConflict means the plan changed since the caller read it.
	ErrRevisionConflict = stderrors.New("plan revision conflict")
)

// Machine-readable error codes
const (
	CodeValidation       = "VALIDATION_FAILED"
	CodeNotFound         = "NOT_FOUND"
	CodeStaleReference   = "STALE_BLOCK_REFERENCE"
	CodeInvariant        = "INVARIANT_VIOLATION"
	CodeRevisionConflict = "REVISION_CONFLICT"
	CodeInternal         = "INTERNAL"
)

// Code maps err onto its machine-readable code. Unclassified errors are internal.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case stderrors.Is(err, ErrValidation):
		return CodeValidation
	case stderrors.Is(err, ErrNotFound):
		return CodeNotFound
	case stderrors.Is(err, ErrStaleReference):
		return CodeStaleReference
	case stderrors.Is(err, ErrInvariant):
		return CodeInvariant
	case stderrors.Is(err, ErrRevisionConflict):
		return CodeRevisionConflict
	default:
		return CodeInternal
	}
}

// Recoverable reports whether the caller can re-resolve its references and retry.
func Recoverable(err error) bool {
	return stderrors.Is(err, ErrStaleReference) || stderrors.Is(err, ErrRevisionConflict)
}

// Validationf returns a validation error with a formatted detail.
func Validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// Format formats an error message with a consistent "Error: " prefix
func Format(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Error: %v", err)
}

// Formatf formats an error message with a consistent "Error: " prefix using a format string
func Formatf(format string, args ...interface{}) string {
	return fmt.Sprintf("Error: "+format, args...)
}

// Fatal logs an error and exits the program with exit code 1
func Fatal(err error) {
	if err != nil {
		logger.Error("Command execution failed", "error", err, "code", Code(err))
		fmt.Fprintf(os.Stderr, "%s\n", Format(err))
		os.Exit(1)
	}
}
