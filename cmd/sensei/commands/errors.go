package commands

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fivetwenty-io/sensei-partner/pkg/sensei"
)

// FormatError renders err for the terminal. API errors include the status,
// field messages and, for rate limits, the advised wait.
func FormatError(err error) string {
	if err == nil {
		return ""
	}

	var builder strings.Builder

	apiErr, ok := sensei.AsAPIError(err)
	if !ok {
		builder.WriteString("Error: " + err.Error())

		var connErr *sensei.ConnectionError
		if errors.As(err, &connErr) {
			builder.WriteString("\nCheck the API URL and your network connection.")
		}

		return builder.String()
	}

	_, _ = fmt.Fprintf(&builder, "Error: %s (HTTP %d, %s)", apiErr.Message, apiErr.StatusCode, apiErr.Kind)

	if code := apiErr.ErrorCode(); code != "" && code != apiErr.Message {
		_, _ = fmt.Fprintf(&builder, "\nCode: %s", code)
	}

	fieldErrors := apiErr.Errors()

	fields := make([]string, 0, len(fieldErrors))
	for field := range fieldErrors {
		fields = append(fields, field)
	}

	sort.Strings(fields)

	for _, field := range fields {
		for _, message := range fieldErrors[field] {
			_, _ = fmt.Fprintf(&builder, "\n  - %s: %s", field, message)
		}
	}

	switch apiErr.Kind {
	case sensei.KindRateLimit:
		_, _ = fmt.Fprintf(&builder, "\nRetry after %d seconds.", apiErr.RetryAfter)
	case sensei.KindAuthentication:
		builder.WriteString("\nCheck your API key or bearer token with 'sensei whoami'.")
	case sensei.KindGeneric, sensei.KindNotFound, sensei.KindValidation, sensei.KindServer:
	}

	return builder.String()
}

// PrintError writes FormatError(err) and a newline to w.
func PrintError(w io.Writer, err error) {
	_, _ = fmt.Fprintln(w, FormatError(err))
}
