package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// NewEntityCommand creates the entity command group.
func NewEntityCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entity",
		Short: "Manage entities",
	}
	cmd.AddCommand(newEntityCreateCommand())
	cmd.AddCommand(newEntityListCommand())
	cmd.AddCommand(newEntityLinkCommand())
	return cmd
}

func newEntityCreateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "create <name>",
		Short: "Create an entity",
		Example: `  fieldline entity create "Pump Assembly"`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			e, err := cmdCtx.Store.CreateEntity(cmd.Context(), cmdCtx.Cfg.TenantID, args[0])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), e.ID)
			return nil
		},
	}
}

func newEntityListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List entities",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			entities, err := cmdCtx.Store.ListEntities(cmd.Context(), cmdCtx.Cfg.TenantID)
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"ID", "Name", "Created"})
			for _, e := range entities {
				t.AppendRow(table.Row{e.ID, e.Name, e.CreatedAt.Format("2006-01-02 15:04:05")})
			}
			t.Render()

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "(%d entities)\n", len(entities))
			return nil
		},
	}
}

func newEntityLinkCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "link <entity-id> <relationship> <target-id>",
		Short: "Add a relationship link between two entities",
		Example: `  fieldline entity link 4f2c9a31-... parts 88ab01c2-...`,
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			return cmdCtx.Store.AddRelationship(cmd.Context(), cmdCtx.Cfg.TenantID, args[0], args[1], args[2])
		},
	}
}
