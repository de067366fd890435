package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/fieldline-labs/fieldline/pkg/staleness"
)

// NewStaleCommand creates the stale command group.
func NewStaleCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stale",
		Short: "Inspect and resolve stale computed properties",
	}
	cmd.AddCommand(newStaleListCommand())
	cmd.AddCommand(newStaleMarkCommand())
	cmd.AddCommand(newStaleRecomputeCommand())
	return cmd
}

func newStaleListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stale properties",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			stale, err := cmdCtx.Store.GetStaleProperties(cmd.Context(), cmdCtx.Cfg.TenantID)
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Entity", "Property"})
			for _, key := range stale {
				t.AppendRow(table.Row{key.EntityID, key.Property})
			}
			t.Render()

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "(%d stale)\n", len(stale))
			return nil
		},
	}
}

func newStaleMarkCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "mark <entity-id> <property>",
		Short: "Propagate staleness from a property as if it changed",
		Long: `Run staleness propagation from the given property without writing a
value. Dependents are marked stale and events are emitted; the property
itself is left untouched.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			key := staleness.PropertyKey{EntityID: args[0], Property: args[1]}
			return staleness.Propagate(cmd.Context(), cmdCtx.Cfg.TenantID, key, cmdCtx.Store, cmdCtx.Notifier)
		},
	}
}

func newStaleRecomputeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "recompute",
		Short: "Recompute all stale properties in dependency order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			count, err := cmdCtx.Engine.RecomputeAll(cmd.Context())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "recomputed %d properties\n", count)
			return nil
		},
	}
}
