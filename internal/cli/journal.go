package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/csom/internal/journal"
)

// NewJournalCommand creates the journal command, which reads the round
// trips recorded by earlier invocations.
func NewJournalCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Inspect recorded round trips",
	}
	cmd.AddCommand(newJournalListCommand(opts))
	cmd.AddCommand(newJournalShowCommand(opts))
	return cmd
}

func newJournalListCommand(opts *RootOptions) *cobra.Command {
	var filter journal.Filter

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded round trips, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := opts.openJournal()
			if err != nil {
				return err
			}
			defer j.Close()

			entries, err := j.List(cmd.Context(), filter)
			if err != nil {
				return WrapExitError(ExitFailure, "list journal", err)
			}

			f := opts.formatter(cmd)
			if f.Format == "json" {
				out := make([]map[string]any, len(entries))
				for i, e := range entries {
					out[i] = entrySummary(e)
				}
				return f.Success(out)
			}
			if len(entries) == 0 {
				fmt.Fprintln(f.Writer, "No round trips recorded.")
				return nil
			}
			rows := make([][]string, len(entries))
			for i, e := range entries {
				rows[i] = []string{
					strconv.FormatInt(e.Seq, 10),
					e.Operation,
					e.OperationID,
					strconv.Itoa(e.Phase),
					string(e.Outcome),
					string(e.ErrorCode),
				}
			}
			return f.Table([]string{"Seq", "Operation", "Operation Id", "Phase", "Outcome", "Error"}, rows)
		},
	}

	cmd.Flags().StringVar(&filter.Operation, "operation", "", `only this operation, e.g. "term set add"`)
	cmd.Flags().StringVar(&filter.OperationID, "operation-id", "", "only round trips of this invocation")
	cmd.Flags().IntVar(&filter.Limit, "limit", 0, "show at most this many entries")
	return cmd
}

func newJournalShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <seq>",
		Short: "Print one round trip with its request and response",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seq, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || seq <= 0 {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid sequence number %q", args[0]))
			}

			j, err := opts.openJournal()
			if err != nil {
				return err
			}
			defer j.Close()

			e, err := j.Get(cmd.Context(), seq)
			if errors.Is(err, journal.ErrNotFound) {
				return WrapExitError(ExitCommandError, "journal show", err)
			}
			if err != nil {
				return WrapExitError(ExitFailure, "journal show", err)
			}

			f := opts.formatter(cmd)
			detail := entrySummary(e)
			detail["endpoint"] = e.Endpoint
			detail["request"] = e.Request
			if e.HasResponse {
				detail["response"] = e.Response
			}
			if f.Format == "json" {
				return f.Success(detail)
			}

			w := f.Writer
			fmt.Fprintf(w, "Seq:          %d\n", e.Seq)
			fmt.Fprintf(w, "Id:           %s\n", e.ID)
			fmt.Fprintf(w, "Operation:    %s (%s)\n", e.Operation, e.OperationID)
			fmt.Fprintf(w, "Phase:        %d\n", e.Phase)
			fmt.Fprintf(w, "Endpoint:     %s\n", e.Endpoint)
			fmt.Fprintf(w, "Outcome:      %s\n", e.Outcome)
			if e.ErrorCode != "" || e.ErrorMessage != "" {
				fmt.Fprintf(w, "Error:        %s %s\n", e.ErrorCode, e.ErrorMessage)
			}
			if e.TraceCorrelationID != "" {
				fmt.Fprintf(w, "Trace:        %s\n", e.TraceCorrelationID)
			}
			fmt.Fprintf(w, "\nRequest:\n%s\n", e.Request)
			if e.HasResponse {
				fmt.Fprintf(w, "\nResponse:\n%s\n", e.Response)
			}
			return nil
		},
	}
}

func entrySummary(e journal.Entry) map[string]any {
	out := map[string]any{
		"seq":          e.Seq,
		"id":           e.ID,
		"operation":    e.Operation,
		"operation_id": e.OperationID,
		"phase":        e.Phase,
		"outcome":      string(e.Outcome),
	}
	if e.ErrorCode != "" {
		out["error_code"] = string(e.ErrorCode)
	}
	if e.ErrorMessage != "" {
		out["error_message"] = e.ErrorMessage
	}
	if e.TraceCorrelationID != "" {
		out["trace_correlation_id"] = e.TraceCorrelationID
	}
	return out
}
