package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"

	"github.com/roach88/csom/internal/csom"
	"github.com/roach88/csom/internal/manifest"
	"github.com/roach88/csom/internal/payload"
	"github.com/roach88/csom/internal/taxonomy"
	"github.com/roach88/csom/internal/transport"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // The server or a scenario said no
	ExitCommandError = 2 // Bad flags, bad config, unreadable files
)

// ExitError carries the process exit code of a failed command.
type ExitError struct {
	Code    int    // ExitFailure or ExitCommandError
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format  string
	Writer  io.Writer
	Verbose bool
}

// CLIResponse is the JSON envelope of every command.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok", "partial" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // e.g. BUSINESS_ERROR
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return encodeJSON(f, CLIResponse{Status: "ok", Data: data})
	}
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return encodeJSON(f, CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: message, Details: details},
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

func encodeJSON(f *OutputFormatter, resp CLIResponse) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetEscapeHTML(false)
	return enc.Encode(resp)
}

// Object prints a created object: a JSON document, or a property table
// with keys in sorted order.
func (f *OutputFormatter) Object(obj payload.Object) error {
	if f.Format == "json" {
		return f.Success(payload.ToAny(obj))
	}
	keys := obj.SortedKeys()
	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []string{k, displayValue(obj[k])})
	}
	return f.Table([]string{"Property", "Value"}, rows)
}

// Table renders rows under header with tablewriter.
func (f *OutputFormatter) Table(header []string, rows [][]string) error {
	table := tablewriter.NewWriter(f.Writer)
	table.Header(toAny(header)...)
	for _, row := range rows {
		if err := table.Append(toAny(row)...); err != nil {
			return err
		}
	}
	return table.Render()
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// displayValue renders a payload value for a table cell.
func displayValue(v payload.Value) string {
	switch val := v.(type) {
	case payload.String:
		return taxonomy.NormalizeGuid(string(val))
	case nil, payload.Null:
		return ""
	case payload.Object:
		keys := val.SortedKeys()
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+"="+displayValue(val[k]))
		}
		return fmt.Sprint(parts)
	}
	data, err := payload.MarshalValue(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

// errorCode classifies err for CLIError.Code.
func errorCode(err error) string {
	if code := csom.KindOf(err); code != "" {
		return string(code)
	}
	var te *transport.Error
	var me *manifest.Error
	switch {
	case taxonomy.IsInvalidArgument(err):
		return "INVALID_ARGUMENT"
	case errors.As(err, &me):
		return "INVALID_MANIFEST"
	case errors.As(err, &te):
		if te.IsAuth() {
			return "UNAUTHORIZED"
		}
		return "TRANSPORT_ERROR"
	}
	return "ERROR"
}

// exitCodeOf maps an operation error to the process exit code.
func exitCodeOf(err error) int {
	var me *manifest.Error
	if taxonomy.IsInvalidArgument(err) || errors.As(err, &me) {
		return ExitCommandError
	}
	return ExitFailure
}

// reportError prints err and returns the ExitError the command fails with.
// A partial success also prints the object that was created.
func reportError(f *OutputFormatter, op string, obj payload.Object, err error) error {
	code := errorCode(err)
	if csom.IsPartialSuccess(err) && obj != nil {
		if f.Format == "json" {
			if encErr := encodeJSON(f, CLIResponse{
				Status: "partial",
				Data:   payload.ToAny(obj),
				Error:  &CLIError{Code: code, Message: err.Error()},
			}); encErr != nil {
				return encErr
			}
		} else {
			fmt.Fprintf(f.Writer, "Created, but not fully configured: %v\n", err)
			if outErr := f.Object(obj); outErr != nil {
				return outErr
			}
		}
		return WrapExitError(ExitFailure, op+" partially failed", err)
	}

	var details any
	var be *csom.BusinessError
	if errors.As(err, &be) {
		details = map[string]any{
			"server_code":          be.Code,
			"type_name":            be.TypeName,
			"trace_correlation_id": be.TraceCorrelationID,
		}
	}
	if outErr := f.Error(code, err.Error(), details); outErr != nil {
		return outErr
	}
	return WrapExitError(exitCodeOf(err), op+" failed", err)
}
