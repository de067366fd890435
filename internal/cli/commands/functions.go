package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/fieldline-labs/fieldline/pkg/funcs"
)

// NewFunctionsCommand creates the functions command.
func NewFunctionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "functions",
		Short: "List the built-in formula functions",
		Example: `  fieldline functions
  fieldline functions --category math`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			category, _ := cmd.Flags().GetString("category")
			return runFunctions(cmd, category)
		},
	}
	cmd.Flags().String("category", "", "Only show functions of one category")
	return cmd
}

func runFunctions(cmd *cobra.Command, category string) error {
	reg := funcs.Default()

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Name", "Category", "Args", "Returns", "Aggregate"})

	count := 0
	for _, name := range reg.Names() {
		def, _ := reg.Get(name)
		if category != "" && def.Category != category {
			continue
		}
		returns := def.ReturnType.String()
		if def.ReturnType == funcs.AnyKind {
			returns = "any"
		}
		t.AppendRow(table.Row{def.Name, def.Category, arity(def), returns, def.Aggregate})
		count++
	}
	t.Render()

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "(%d functions)\n", count)
	return nil
}

func arity(def *funcs.Definition) string {
	if def.MaxArgs == funcs.UnboundedArgs {
		return fmt.Sprintf("%d+", def.MinArgs)
	}
	if def.MinArgs == def.MaxArgs {
		return fmt.Sprintf("%d", def.MinArgs)
	}
	return fmt.Sprintf("%d-%d", def.MinArgs, def.MaxArgs)
}
