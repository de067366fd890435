package commands

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/fieldline-labs/fieldline/pkg/deps"
	"github.com/fieldline-labs/fieldline/pkg/expr"
)

// NewDepsCommand creates the deps command.
func NewDepsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deps <formula>",
		Short: "Show the dependencies of a formula",
		Long: `Extract the property dependencies a formula reads, without touching
the store. Relationship hops are listed unresolved; resolution against
actual entities happens when the formula is defined.`,
		Example: `  fieldline deps '@self.price * @self.quantity'
  fieldline deps 'SUM(@self.line_items[*].amount)'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeps(cmd, args[0])
		},
	}
	return cmd
}

func runDeps(cmd *cobra.Command, source string) error {
	ast, err := expr.Parse(source)
	if err != nil {
		return err
	}

	extracted := deps.Extract(ast)
	if len(extracted) == 0 {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "(no dependencies)")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Entity", "Property", "Path", "Collection", "Relationships"})

	for _, d := range extracted {
		t.AppendRow(table.Row{
			d.EntityRef,
			d.Property,
			d.Path,
			d.IsCollection,
			strings.Join(d.Relationships, " -> "),
		})
	}
	t.Render()

	if fns := deps.UsedFunctions(ast); len(fns) > 0 {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "functions: %s\n", strings.Join(fns, ", "))
	}
	return nil
}
