package errors

import (
	"fmt"
	"strings"
)

// DisplayErrorSummary provides a brief summary of the error for logs
func DisplayErrorSummary(err error) string {
	if tfErr, ok := As(err); ok {
		return fmt.Sprintf("%s-%s: %s", tfErr.Category, tfErr.Code, tfErr.Message)
	}

	errStr := err.Error()
	if len(errStr) > 100 {
		return errStr[:97] + "..."
	}
	return errStr
}

// FormatForCLI formats an error for command-line display with proper spacing
func FormatForCLI(err error) string {
	tfErr, ok := As(err)
	if !ok {
		return fmt.Sprintf("\nError: %v\n", err)
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("\n%s Error [%s-%s]\n", tfErr.Category, tfErr.Category, tfErr.Code))
	sb.WriteString(fmt.Sprintf("  %s\n", tfErr.Message))

	if tfErr.Operation != "" {
		sb.WriteString(fmt.Sprintf("\nFailed Operation: %s\n", tfErr.Operation))
	}

	if len(tfErr.Context) > 0 {
		sb.WriteString("\nDetails:\n")
		for _, key := range tfErr.contextKeys() {
			sb.WriteString(fmt.Sprintf("  %s: %v\n", key, tfErr.Context[key]))
		}
	}

	if len(tfErr.Troubleshooting) > 0 {
		sb.WriteString("\nHow to resolve:\n")
		for i, step := range tfErr.Troubleshooting {
			sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, step))
		}
	}

	if tfErr.OriginalError != nil {
		sb.WriteString(fmt.Sprintf("\nTechnical details: %v\n", tfErr.OriginalError))
	}

	return sb.String()
}

// IsUserError determines if an error is due to user input or configuration
func IsUserError(err error) bool {
	if tfErr, ok := As(err); ok {
		return tfErr.Category == ErrorCategoryValidation ||
			tfErr.Category == ErrorCategoryConfiguration ||
			tfErr.Category == ErrorCategoryPlan
	}
	return false
}

// GetErrorCode extracts the error code for reporting
func GetErrorCode(err error) string {
	if tfErr, ok := As(err); ok {
		return fmt.Sprintf("%s-%s", tfErr.Category, tfErr.Code)
	}
	return "UNKNOWN"
}
