package selection

import (
	"errors"
	"fmt"

	"github.com/Conceptual-Machines/prompt-architect/internal/models"
)

// User-facing validation messages
const (
	MsgIncompleteSelection = "Please complete all selections first."
	MsgVocalRequired       = "Please select a vocal style for the full song."
)

var (
	ErrInvalidTransition    = errors.New("selection: action not allowed in the current step")
	ErrInvalidMode          = errors.New("selection: invalid mode")
	ErrUnknownCategory      = errors.New("selection: unknown category")
	ErrUnknownSubgenre      = errors.New("selection: unknown subgenre")
	ErrUnknownStructure     = errors.New("selection: unknown structure template")
	ErrInfluenceConflict    = errors.New("selection: influence genre must differ from the primary subgenre")
	ErrEmptyValue           = errors.New("selection: value is required")
	ErrInvalidConfiguration = errors.New("selection: invalid configuration")
	ErrUnknownAction        = errors.New("selection: unknown action")
)

// ValidationError is an incomplete selection reported to the user as-is
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// RestoreError reports a snapshot that could not be loaded into the wizard
type RestoreError struct {
	Mode     models.Mode
	Subgenre string
	Err      error
}

func (e *RestoreError) Error() string {
	return fmt.Sprintf("selection: cannot restore %q (%s): %v", e.Subgenre, e.Mode, e.Err)
}

func (e *RestoreError) Unwrap() error {
	return e.Err
}
