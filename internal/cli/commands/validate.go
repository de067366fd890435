package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/fieldline-labs/fieldline/pkg/expr"
	"github.com/fieldline-labs/fieldline/pkg/funcs"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <formula>",
		Short: "Validate a formula without evaluating it",
		Long: `Check a formula for syntax errors, unknown functions, wrong argument
counts, and malformed entity references. Exits non-zero when any
diagnostic is reported.`,
		Example: `  fieldline validate 'ROUND(@self.price, 2)'
  fieldline validate 'SUMM(@self.items[*].qty)'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, args[0])
		},
	}
}

func runValidate(cmd *cobra.Command, source string) error {
	ok, diags := expr.Validate(source, funcs.Default())
	if ok {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "valid")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Line", "Col", "Code", "Message"})
	for _, d := range diags {
		t.AppendRow(table.Row{d.Pos.Line, d.Pos.Column, d.Code, d.Message})
	}
	t.Render()

	return fmt.Errorf("%d diagnostic(s)", len(diags))
}
