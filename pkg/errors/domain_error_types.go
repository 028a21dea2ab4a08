package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// DomainErrorType represents the category of domain error
type DomainErrorType string

const (
	// DomainValidationError indicates input validation failure
	DomainValidationError DomainErrorType = "VALIDATION_ERROR"

	// DomainBusinessRuleError indicates a structural rule of the forest would break
	DomainBusinessRuleError DomainErrorType = "BUSINESS_RULE_ERROR"

	// DomainNotFoundError indicates a node was not found
	DomainNotFoundError DomainErrorType = "NOT_FOUND"

	// DomainConflictError indicates a conflict with existing state
	DomainConflictError DomainErrorType = "CONFLICT"
)

// Error codes raised by the mind map domain
const (
	CodeNodeNotFound    = "NODE_NOT_FOUND"
	CodeParentNotFound  = "PARENT_NOT_FOUND"
	CodeDuplicateNode   = "DUPLICATE_NODE"
	CodeCyclicReparent  = "CYCLIC_REPARENT"
	CodeQuestionTooLong = "QUESTION_TOO_LONG"
	CodeAnswerTooLong   = "ANSWER_TOO_LONG"
	CodeInvalidPosition = "INVALID_POSITION"
	CodeInvalidNodeID   = "INVALID_NODE_ID"
	CodeFieldValidation = "FIELD_VALIDATION_ERROR"
)

// DomainError represents a domain-specific error with rich context
type DomainError struct {
	Type       DomainErrorType        `json:"type"`
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	StatusCode int                    `json:"status_code"`
}

func newDomainError(errorType DomainErrorType, code string, message string) *DomainError {
	return &DomainError{
		Type:       errorType,
		Code:       code,
		Message:    message,
		Details:    make(map[string]interface{}),
		StatusCode: domainErrorTypeToStatusCode(errorType),
	}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// WithCause attaches the underlying error
func (e *DomainError) WithCause(cause error) *DomainError {
	e.Cause = cause
	return e
}

// WithDetail adds a detail entry
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	e.Details[key] = value
	return e
}

// Is matches domain errors by code
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Cause
}

func domainErrorTypeToStatusCode(errorType DomainErrorType) int {
	switch errorType {
	case DomainValidationError:
		return http.StatusBadRequest
	case DomainBusinessRuleError:
		return http.StatusUnprocessableEntity
	case DomainNotFoundError:
		return http.StatusNotFound
	case DomainConflictError:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Mind map domain errors. Each call returns a fresh value so details never
// leak between requests.

// ErrNodeNotFound reports a missing node
func ErrNodeNotFound(id string) *DomainError {
	return newDomainError(DomainNotFoundError, CodeNodeNotFound, "The requested node does not exist").
		WithDetail("node_id", id)
}

// ErrParentNotFound reports an add or reparent against a missing parent
func ErrParentNotFound(id string) *DomainError {
	return newDomainError(DomainNotFoundError, CodeParentNotFound, "The parent node does not exist").
		WithDetail("parent_id", id)
}

// ErrDuplicateNode reports an add with an id that is already taken
func ErrDuplicateNode(id string) *DomainError {
	return newDomainError(DomainConflictError, CodeDuplicateNode, "A node with this id already exists").
		WithDetail("node_id", id)
}

// ErrCyclicReparent reports a reparent under the node itself or a descendant
func ErrCyclicReparent(id, parentID string) *DomainError {
	return newDomainError(DomainBusinessRuleError, CodeCyclicReparent,
		"A node cannot be moved under itself or one of its descendants").
		WithDetail("node_id", id).
		WithDetail("parent_id", parentID)
}

// IsDomainNotFound reports whether err carries a not-found DomainError
func IsDomainNotFound(err error) bool {
	var d *DomainError
	return errors.As(err, &d) && d.Type == DomainNotFoundError
}

// ValidationErrors aggregates multiple validation errors
type ValidationErrors struct {
	Errors []*DomainError `json:"errors"`
}

// NewValidationErrors creates a new validation errors collection
func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{
		Errors: make([]*DomainError, 0),
	}
}

// Add adds a validation error for a field
func (v *ValidationErrors) Add(field string, message string) {
	v.AddCode(field, CodeFieldValidation, message)
}

// AddCode adds a validation error with a specific code
func (v *ValidationErrors) AddCode(field, code, message string) {
	err := newDomainError(DomainValidationError, code, message).
		WithDetail("field", field)
	v.Errors = append(v.Errors, err)
}

// Err returns the collection as an error, or nil when empty
func (v *ValidationErrors) Err() error {
	if len(v.Errors) == 0 {
		return nil
	}
	return v
}

// Error implements the error interface
func (v *ValidationErrors) Error() string {
	if len(v.Errors) == 0 {
		return ""
	}

	messages := make([]string, len(v.Errors))
	for i, err := range v.Errors {
		messages[i] = err.Message
	}
	return fmt.Sprintf("Validation failed: %s", strings.Join(messages, "; "))
}

// ToMap converts validation errors to a map for JSON serialization
func (v *ValidationErrors) ToMap() map[string][]string {
	result := make(map[string][]string)

	for _, err := range v.Errors {
		field, ok := err.Details["field"].(string)
		if !ok {
			field = "general"
		}
		result[field] = append(result[field], err.Message)
	}

	return result
}
