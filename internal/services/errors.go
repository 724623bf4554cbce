package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCatalogUnavailable means the entity has no completable content, so no
	// amount of learner progress can ever certify it. Configuration problem,
	// not user-actionable.
	ErrCatalogUnavailable = errors.New("entity has no completable content")

	// ErrInvalidProgress covers malformed progress payloads (negative deltas,
	// out-of-range quiz scores, progress writes against the wrong lesson kind).
	ErrInvalidProgress = errors.New("invalid progress payload")
)

// NotEligibleError carries the human-readable missing requirements back to the
// caller. Expected business outcome, never a panic.
type NotEligibleError struct {
	Percentage int
	Missing    []string
}

func (e *NotEligibleError) Error() string {
	return fmt.Sprintf("not eligible (%d%% complete): %s", e.Percentage, strings.Join(e.Missing, "; "))
}

// PartialWriteError reports that the lookup-record write failed after the
// primary certificate record was committed. RolledBack tells operations
// whether the compensating delete worked; callers see the same retryable
// outcome either way.
type PartialWriteError struct {
	Number     string
	RolledBack bool
	Err        error
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("certificate %s: lookup record write failed (rolled back: %t): %v", e.Number, e.RolledBack, e.Err)
}

func (e *PartialWriteError) Unwrap() error { return e.Err }
