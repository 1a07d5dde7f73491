package ast

import (
	"errors"
	"fmt"
)

// Error represents a fatal condition detected while processing a tree.
//
// Overflow during ordinary expansion and clean misses during evaluation
// are NOT errors; they resolve to markers and empty sets respectively.
// Error covers the conditions that must abort processing:
//   - Configuration: invalid thresholds or unknown rules
//   - Malformed tree: degenerate junctions, markers without one source
//   - Unsupported negation: a negation with no positive sibling
//   - Unfielded overflow: an unfielded term matched too many fields
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Node is the canonical rendering of the offending node, if any.
	Node string
}

// ErrorCode categorizes tree processing errors.
type ErrorCode string

const (
	// ErrCodeConfig indicates invalid query configuration.
	ErrCodeConfig ErrorCode = "CONFIG_INVALID"

	// ErrCodeMalformed indicates a structurally invalid tree.
	ErrCodeMalformed ErrorCode = "MALFORMED_TREE"

	// ErrCodeUnsupportedNegation indicates a negation that cannot be
	// evaluated against index sets.
	ErrCodeUnsupportedNegation ErrorCode = "UNSUPPORTED_NEGATION"

	// ErrCodeUnfieldedOverflow indicates an unfielded term matched more
	// distinct fields than allowed.
	ErrCodeUnfieldedOverflow ErrorCode = "UNFIELDED_OVERFLOW"

	// ErrCodeUnknownRule indicates a rule name missing from the registry.
	ErrCodeUnknownRule ErrorCode = "UNKNOWN_RULE"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Node != "" {
		return fmt.Sprintf("%s: %s (node=%s)", e.Code, e.Message, e.Node)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Errorf creates an Error with a formatted message. node may be nil.
func Errorf(code ErrorCode, node Node, format string, args ...any) *Error {
	e := &Error{Code: code, Message: fmt.Sprintf(format, args...)}
	if node != nil {
		e.Node = Render(node)
	}
	return e
}

// NewMalformed creates a MALFORMED_TREE error.
func NewMalformed(node Node, format string, args ...any) *Error {
	return Errorf(ErrCodeMalformed, node, format, args...)
}

// NewConfigError creates a CONFIG_INVALID error.
func NewConfigError(format string, args ...any) *Error {
	return Errorf(ErrCodeConfig, nil, format, args...)
}

// HasCode reports whether err wraps an Error with the given code.
func HasCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// IsConfigError returns true for configuration errors.
func IsConfigError(err error) bool { return HasCode(err, ErrCodeConfig) }

// IsMalformed returns true for malformed-tree errors.
func IsMalformed(err error) bool { return HasCode(err, ErrCodeMalformed) }

// IsUnsupportedNegation returns true for unsupported negation errors.
func IsUnsupportedNegation(err error) bool { return HasCode(err, ErrCodeUnsupportedNegation) }

// IsOverflow returns true for fatal unfielded overflow errors.
func IsOverflow(err error) bool { return HasCode(err, ErrCodeUnfieldedOverflow) }
