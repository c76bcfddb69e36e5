package errors

import (
	"fmt"
	"strings"
	"time"
)

// Common error codes
const (
	CodeConfigLoad       = "001"
	CodeConfigValidation = "002"

	CodePlanNotFound = "001"
	CodePlanParse    = "002"

	CodeValidationPlan = "001"

	CodeRunFailed    = "001"
	CodeRunTimeout   = "002"
	CodeRunCancelled = "003"
)

// NewConfigLoadError creates an error for a configuration file that cannot be read
func NewConfigLoadError(path string, originalErr error) *TaskflowError {
	msg := "Failed to load configuration"
	if path != "" {
		msg = fmt.Sprintf("Failed to load configuration from '%s'", path)
	}
	return NewTaskflowError(ErrorCategoryConfiguration, CodeConfigLoad, msg, "Configuration loading").
		WithContext("path", path).
		WithOriginalError(originalErr).
		WithTroubleshooting(
			"Verify the file exists and is readable",
			"Check the file is valid YAML",
			"Remove --config to fall back to the default search paths",
		)
}

// NewConfigValidationError creates an error for invalid configuration values
func NewConfigValidationError(problems []string) *TaskflowError {
	return NewTaskflowError(ErrorCategoryConfiguration, CodeConfigValidation,
		fmt.Sprintf("Invalid configuration: %s", strings.Join(problems, "; ")),
		"Configuration validation").
		WithContext("problems", len(problems)).
		WithTroubleshooting(
			"Check taskflow.yaml and TASKFLOW_* environment variables",
		)
}

// NewPlanNotFoundError creates an error for a plan file that does not exist
func NewPlanNotFoundError(path string, originalErr error) *TaskflowError {
	return NewTaskflowError(ErrorCategoryPlan, CodePlanNotFound,
		fmt.Sprintf("Plan file '%s' not found", path),
		"Plan loading").
		WithContext("path", path).
		WithOriginalError(originalErr).
		WithTroubleshooting(
			"Check the path passed on the command line",
			"Paths are resolved relative to the current directory",
		)
}

// NewPlanParseError creates an error for a plan file that is not valid YAML
func NewPlanParseError(path string, originalErr error) *TaskflowError {
	return NewTaskflowError(ErrorCategoryPlan, CodePlanParse,
		fmt.Sprintf("Plan file '%s' could not be parsed", path),
		"Plan parsing").
		WithContext("path", path).
		WithOriginalError(originalErr).
		WithTroubleshooting(
			"Check the YAML syntax near the reported line",
			"Durations use Go syntax, e.g. 500ms or 2m",
		)
}

// NewPlanValidationError creates an error listing every problem found in a plan
func NewPlanValidationError(planName string, problems []string) *TaskflowError {
	err := NewTaskflowError(ErrorCategoryValidation, CodeValidationPlan,
		fmt.Sprintf("Plan '%s' is invalid (%d problem(s))", planName, len(problems)),
		"Plan validation").
		WithContext("plan", planName)
	for i, p := range problems {
		err = err.WithContext(fmt.Sprintf("problem_%02d", i+1), p)
	}
	return err.WithTroubleshooting(
		"Each step needs a name and exactly one of run, sleep, group or sequence",
		"'after' may only name siblings inside a group",
		"Run 'taskflow graph' to inspect the plan structure",
	)
}

// NewRunFailedError creates an error for a run where steps failed
func NewRunFailedError(planName string, failed []string) *TaskflowError {
	return NewTaskflowError(ErrorCategoryExecution, CodeRunFailed,
		fmt.Sprintf("Plan '%s' finished with %d failed step(s)", planName, len(failed)),
		"Plan execution").
		WithContext("plan", planName).
		WithContext("failed", strings.Join(failed, ", ")).
		WithTroubleshooting(
			"Re-run with --verbose to see step output",
			"Mark steps that may fail with allow_failure: true",
		)
}

// NewRunTimeoutError creates an error for a run cancelled by its timeout
func NewRunTimeoutError(planName string, timeout time.Duration) *TaskflowError {
	return NewTaskflowError(ErrorCategoryExecution, CodeRunTimeout,
		fmt.Sprintf("Plan '%s' exceeded its timeout of %s", planName, timeout),
		"Plan execution").
		WithContext("plan", planName).
		WithContext("timeout", timeout.String()).
		WithTroubleshooting(
			"Increase --timeout or run.timeout",
			"Raise --workers if steps are waiting for a free worker",
		)
}

// NewRunCancelledError creates an error for a run interrupted by the user
func NewRunCancelledError(planName string) *TaskflowError {
	return NewTaskflowError(ErrorCategoryExecution, CodeRunCancelled,
		fmt.Sprintf("Plan '%s' was cancelled", planName),
		"Plan execution").
		WithContext("plan", planName)
}

// GetErrorSeverity returns the severity level of an error
func GetErrorSeverity(err error) string {
	if tfErr, ok := As(err); ok {
		switch tfErr.Category {
		case ErrorCategoryValidation, ErrorCategoryConfiguration:
			return "WARNING"
		case ErrorCategoryExecution:
			return "CRITICAL"
		default:
			return "ERROR"
		}
	}
	return "ERROR"
}
