package errors

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorCategory represents the category of error
type ErrorCategory string

const (
	// ErrorCategoryConfiguration represents configuration errors
	ErrorCategoryConfiguration ErrorCategory = "CONFIGURATION"
	// ErrorCategoryPlan represents errors reading or parsing plan files
	ErrorCategoryPlan ErrorCategory = "PLAN"
	// ErrorCategoryValidation represents validation errors
	ErrorCategoryValidation ErrorCategory = "VALIDATION"
	// ErrorCategoryExecution represents failures while running a plan
	ErrorCategoryExecution ErrorCategory = "EXECUTION"
)

// TaskflowError represents a structured error with context and troubleshooting information
type TaskflowError struct {
	Category        ErrorCategory
	Code            string
	Message         string
	Operation       string
	Context         map[string]interface{}
	Troubleshooting []string
	OriginalError   error
}

// Error implements the error interface
func (e *TaskflowError) Error() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%s-%s: %s", e.Category, e.Code, e.Message))

	if e.Operation != "" {
		sb.WriteString(fmt.Sprintf("\nOperation: %s", e.Operation))
	}

	if len(e.Context) > 0 {
		sb.WriteString("\nContext:")
		for _, key := range e.contextKeys() {
			sb.WriteString(fmt.Sprintf("\n  %s: %v", key, e.Context[key]))
		}
	}

	if len(e.Troubleshooting) > 0 {
		sb.WriteString("\nTroubleshooting:")
		for i, step := range e.Troubleshooting {
			sb.WriteString(fmt.Sprintf("\n  %d. %s", i+1, step))
		}
	}

	if e.OriginalError != nil {
		sb.WriteString(fmt.Sprintf("\nUnderlying error: %v", e.OriginalError))
	}

	return sb.String()
}

// Unwrap returns the original error for error chain compatibility
func (e *TaskflowError) Unwrap() error {
	return e.OriginalError
}

// contextKeys returns the context keys in a stable order
func (e *TaskflowError) contextKeys() []string {
	keys := make([]string, 0, len(e.Context))
	for key := range e.Context {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// NewTaskflowError creates a new error with the specified parameters
func NewTaskflowError(category ErrorCategory, code, message, operation string) *TaskflowError {
	return &TaskflowError{
		Category:        category,
		Code:            code,
		Message:         message,
		Operation:       operation,
		Context:         make(map[string]interface{}),
		Troubleshooting: []string{},
	}
}

// WithContext adds context information to the error
func (e *TaskflowError) WithContext(key string, value interface{}) *TaskflowError {
	e.Context[key] = value
	return e
}

// WithTroubleshooting adds troubleshooting steps to the error
func (e *TaskflowError) WithTroubleshooting(steps ...string) *TaskflowError {
	e.Troubleshooting = append(e.Troubleshooting, steps...)
	return e
}

// WithOriginalError adds the original error
func (e *TaskflowError) WithOriginalError(err error) *TaskflowError {
	e.OriginalError = err
	return e
}

// As returns the first TaskflowError in err's chain
func As(err error) (*TaskflowError, bool) {
	var tfErr *TaskflowError
	if stderrors.As(err, &tfErr) {
		return tfErr, true
	}
	return nil, false
}
