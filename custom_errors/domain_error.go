package custom_errors

import (
	"errors"
	"fmt"
)

// Kind classifies a domain failure.
type Kind string

const (
	KindValidation          Kind = "validation_error"
	KindNotFound            Kind = "not_found"
	KindUnsupportedRuleType Kind = "unsupported_rule_type"
	KindInvalidRuleValue    Kind = "invalid_rule_value"
	KindPersistence         Kind = "persistence_error"
	KindSync                Kind = "sync_error"
	KindConflict            Kind = "conflict"
)

func (k Kind) String() string {
	return string(k)
}

// Sentinels for errors.Is; any DomainError matches the sentinel of its kind.
var (
	ErrValidation          = &DomainError{Kind: KindValidation, Message: "validation failed"}
	ErrNotFound            = &DomainError{Kind: KindNotFound, Message: "not found"}
	ErrUnsupportedRuleType = &DomainError{Kind: KindUnsupportedRuleType, Message: "unsupported rule type"}
	ErrInvalidRuleValue    = &DomainError{Kind: KindInvalidRuleValue, Message: "invalid rule value"}
	ErrPersistence         = &DomainError{Kind: KindPersistence, Message: "persistence failed"}
	ErrSync                = &DomainError{Kind: KindSync, Message: "store sync failed"}
	ErrConflict            = &DomainError{Kind: KindConflict, Message: "changed concurrently"}
)

// DomainError is a failure with a stable kind that API callers can switch on.
type DomainError struct {
	Kind    Kind   `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

func (e *DomainError) Is(target error) bool {
	var other *DomainError
	if !errors.As(target, &other) {
		return false
	}
	return e.Kind == other.Kind
}

func NewDomainError(kind Kind, format string, args ...any) *DomainError {
	return &DomainError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind to an underlying error.
func Wrap(kind Kind, err error, message string) *DomainError {
	return &DomainError{Kind: kind, Message: message, Err: err}
}

func MissingRequiredField(field string) *DomainError {
	return NewDomainError(KindValidation, "missing required field: %s", field)
}

func NotFound(what string, id int64) *DomainError {
	return NewDomainError(KindNotFound, "%s %d not found", what, id)
}

// KindOf returns the kind of the first DomainError in err's chain.
// Errors without one are reported as persistence failures.
func KindOf(err error) Kind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	if errors.Is(err, ErrValidation) {
		return KindValidation
	}
	return KindPersistence
}
