package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/csom/internal/payload"
	"github.com/roach88/csom/internal/taxonomy"
)

// NewTermCommand creates the term command tree:
//
//	csom term group add --name Marketing
//	csom term group list
//	csom term set add --name Regions --group Marketing
//	csom term add --name Europe --term-set-id <guid>
func NewTermCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "term",
		Short: "Create and list term store objects",
	}

	group := &cobra.Command{
		Use:   "group",
		Short: "Term groups of the default site collection term store",
	}
	group.AddCommand(newTermGroupAddCommand(opts))
	group.AddCommand(newTermGroupListCommand(opts))

	set := &cobra.Command{
		Use:   "set",
		Short: "Term sets",
	}
	set.AddCommand(newTermSetAddCommand(opts))

	cmd.AddCommand(group)
	cmd.AddCommand(set)
	cmd.AddCommand(newTermAddCommand(opts))
	return cmd
}

func newTermGroupAddCommand(opts *RootOptions) *cobra.Command {
	var req taxonomy.AddTermGroupRequest

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a term group",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := opts.openService()
			if err != nil {
				return err
			}
			defer closeFn()

			f := opts.formatter(cmd)
			obj, err := svc.AddTermGroup(cmd.Context(), req)
			if err != nil {
				return reportError(f, taxonomy.OpAddTermGroup, obj, err)
			}
			return f.Object(obj)
		},
	}

	cmd.Flags().StringVar(&req.Name, "name", "", "group name (required)")
	cmd.Flags().StringVar(&req.ID, "id", "", "group Guid (generated when omitted)")
	cmd.Flags().StringVar(&req.Description, "description", "", "group description")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newTermGroupListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the term groups of the default site collection term store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := opts.openService()
			if err != nil {
				return err
			}
			defer closeFn()

			f := opts.formatter(cmd)
			groups, err := svc.ListTermGroups(cmd.Context())
			if err != nil {
				return reportError(f, taxonomy.OpListTermGroups, nil, err)
			}

			if f.Format == "json" {
				arr := make(payload.Array, len(groups))
				for i, g := range groups {
					arr[i] = g
				}
				return f.Success(payload.ToAny(arr))
			}
			if len(groups) == 0 {
				fmt.Fprintln(f.Writer, "No term groups.")
				return nil
			}
			rows := make([][]string, len(groups))
			for i, g := range groups {
				rows[i] = []string{field(g, "Name"), field(g, "Id"), field(g, "Description")}
			}
			return f.Table([]string{"Name", "Id", "Description"}, rows)
		},
	}
}

func newTermSetAddCommand(opts *RootOptions) *cobra.Command {
	var (
		req   taxonomy.AddTermSetRequest
		props []string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a term set in a term group",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if req.CustomProperties, err = parseProperties("--property", props); err != nil {
				return err
			}
			if req.Group.ID == "" && req.Group.Name == "" {
				return NewExitError(ExitCommandError, "one of --group or --group-id is required")
			}

			svc, closeFn, err := opts.openService()
			if err != nil {
				return err
			}
			defer closeFn()

			f := opts.formatter(cmd)
			obj, err := svc.AddTermSet(cmd.Context(), req)
			if err != nil {
				return reportError(f, taxonomy.OpAddTermSet, obj, err)
			}
			return f.Object(obj)
		},
	}

	cmd.Flags().StringVar(&req.Name, "name", "", "term set name (required)")
	cmd.Flags().StringVar(&req.ID, "id", "", "term set Guid (generated when omitted)")
	cmd.Flags().StringVar(&req.Group.Name, "group", "", "name of the parent term group")
	cmd.Flags().StringVar(&req.Group.ID, "group-id", "", "Guid of the parent term group")
	cmd.Flags().StringVar(&req.Description, "description", "", "term set description")
	cmd.Flags().StringArrayVar(&props, "property", nil, "custom property key=value (repeatable)")
	cmd.Flags().IntVar(&req.LCID, "lcid", 0, "language of the term set name (config default when omitted)")
	_ = cmd.MarkFlagRequired("name")
	cmd.MarkFlagsMutuallyExclusive("group", "group-id")
	return cmd
}

func newTermAddCommand(opts *RootOptions) *cobra.Command {
	var (
		req        taxonomy.AddTermRequest
		props      []string
		localProps []string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a term in a term set or below another term",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if req.CustomProperties, err = parseProperties("--property", props); err != nil {
				return err
			}
			if req.LocalCustomProperties, err = parseProperties("--local-property", localProps); err != nil {
				return err
			}
			if req.ParentTermID == "" && req.TermSet.ID == "" && req.TermSet.Name == "" {
				return NewExitError(ExitCommandError, "one of --term-set, --term-set-id or --parent-term-id is required")
			}

			svc, closeFn, err := opts.openService()
			if err != nil {
				return err
			}
			defer closeFn()

			f := opts.formatter(cmd)
			obj, err := svc.AddTerm(cmd.Context(), req)
			if err != nil {
				return reportError(f, taxonomy.OpAddTerm, obj, err)
			}
			return f.Object(obj)
		},
	}

	cmd.Flags().StringVar(&req.Name, "name", "", "term name (required)")
	cmd.Flags().StringVar(&req.ID, "id", "", "term Guid (generated when omitted)")
	cmd.Flags().StringVar(&req.TermSet.Name, "term-set", "", "name of the term set")
	cmd.Flags().StringVar(&req.TermSet.ID, "term-set-id", "", "Guid of the term set")
	cmd.Flags().StringVar(&req.Group.Name, "group", "", "group of a term set given by name")
	cmd.Flags().StringVar(&req.Group.ID, "group-id", "", "group Guid of a term set given by name")
	cmd.Flags().StringVar(&req.ParentTermID, "parent-term-id", "", "create the term below this term")
	cmd.Flags().StringVar(&req.Description, "description", "", "term description")
	cmd.Flags().StringArrayVar(&props, "property", nil, "custom property key=value (repeatable)")
	cmd.Flags().StringArrayVar(&localProps, "local-property", nil, "local custom property key=value (repeatable)")
	cmd.Flags().IntVar(&req.LCID, "lcid", 0, "language of the term label (config default when omitted)")
	_ = cmd.MarkFlagRequired("name")
	cmd.MarkFlagsMutuallyExclusive("term-set", "term-set-id")
	cmd.MarkFlagsMutuallyExclusive("group", "group-id")
	return cmd
}

// parseProperties turns repeated key=value flags into a map. Values may
// contain '='; keys may not be empty.
func parseProperties(flag string, pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	props := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("%s %q: want key=value", flag, p))
		}
		props[k] = v
	}
	return props, nil
}

// field returns a string property of obj for display.
func field(obj payload.Object, key string) string {
	v, ok := obj[key]
	if !ok {
		return ""
	}
	return displayValue(v)
}
