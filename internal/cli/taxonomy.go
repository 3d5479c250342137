package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/csom/internal/manifest"
	"github.com/roach88/csom/internal/payload"
	"github.com/roach88/csom/internal/taxonomy"
)

// NewTaxonomyCommand creates the taxonomy command, which provisions a
// whole hierarchy described by a CUE manifest.
func NewTaxonomyCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "taxonomy",
		Short: "Provision term groups, term sets and terms from a manifest",
	}
	cmd.AddCommand(newTaxonomyApplyCommand(opts))
	return cmd
}

func newTaxonomyApplyCommand(opts *RootOptions) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "apply <manifest.cue>",
		Short: "Create every object of a manifest, parents first",
		Long: `Apply validates a CUE manifest, assigns a Guid to every object that has
none, and creates the objects parents first. It stops at the first failure;
objects already created are reported.

With --dry-run the plan is printed and nothing is sent.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := opts.formatter(cmd)

			m, err := manifest.Load(args[0])
			if err != nil {
				return invalidManifest(f, err)
			}

			ids := opts.ObjectIDs
			if ids == nil {
				ids = taxonomy.RandomIDs{}
			}
			steps, err := manifest.Plan(m, ids)
			if err != nil {
				return invalidManifest(f, err)
			}
			slog.Debug("manifest planned", "file", args[0], "steps", len(steps))

			if dryRun {
				return printSteps(f, steps)
			}

			svc, closeFn, err := opts.openService()
			if err != nil {
				return err
			}
			defer closeFn()

			applied, applyErr := manifest.Apply(cmd.Context(), svc, steps)
			if err := printApplied(f, applied, len(steps), applyErr); err != nil {
				return err
			}
			if applyErr != nil {
				return WrapExitError(exitCodeOf(applyErr), "taxonomy apply failed", applyErr)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the plan without sending anything")
	return cmd
}

// invalidManifest reports a manifest that could not be read or planned.
func invalidManifest(f *OutputFormatter, err error) error {
	if outErr := f.Error(errorCode(err), err.Error(), nil); outErr != nil {
		return outErr
	}
	return WrapExitError(ExitCommandError, "invalid manifest", err)
}

func printSteps(f *OutputFormatter, steps []manifest.Step) error {
	if f.Format == "json" {
		out := make([]map[string]any, len(steps))
		for i, s := range steps {
			out[i] = map[string]any{"kind": string(s.Kind), "path": s.Path, "id": s.ID}
		}
		return f.Success(out)
	}
	rows := make([][]string, len(steps))
	for i, s := range steps {
		rows[i] = []string{fmt.Sprint(i + 1), string(s.Kind), s.Path, s.ID}
	}
	return f.Table([]string{"#", "Kind", "Path", "Id"}, rows)
}

func printApplied(f *OutputFormatter, applied []manifest.Applied, total int, applyErr error) error {
	if f.Format == "json" {
		objects := make([]any, len(applied))
		for i, a := range applied {
			objects[i] = map[string]any{
				"kind":   string(a.Step.Kind),
				"path":   a.Step.Path,
				"object": payload.ToAny(a.Object),
			}
		}
		resp := CLIResponse{Status: "ok", Data: map[string]any{"applied": objects, "total": total}}
		if applyErr != nil {
			resp.Status = "error"
			resp.Error = &CLIError{Code: errorCode(applyErr), Message: applyErr.Error()}
		}
		return encodeJSON(f, resp)
	}

	rows := make([][]string, len(applied))
	for i, a := range applied {
		rows[i] = []string{string(a.Step.Kind), a.Step.Path, field(a.Object, "Id")}
	}
	if len(rows) > 0 {
		if err := f.Table([]string{"Kind", "Path", "Id"}, rows); err != nil {
			return err
		}
	}
	fmt.Fprintf(f.Writer, "%d of %d objects created\n", len(applied), total)
	if applyErr != nil {
		fmt.Fprintf(f.Writer, "Error [%s]: %v\n", errorCode(applyErr), applyErr)
	}
	return nil
}
