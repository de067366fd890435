package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fieldline-labs/fieldline/pkg/eval"
	"github.com/fieldline-labs/fieldline/pkg/expr"
)

// NewWriteCommand creates the write command.
func NewWriteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "write <entity-id> <property> <value>",
		Short: "Write a property value and propagate staleness",
		Long: `Store a raw property value and mark every dependent computed property
stale. The value argument is parsed as a formula, so numbers, quoted
text, booleans, and null all work.`,
		Example: `  fieldline write 4f2c9a31-... weight 12.5
  fieldline write 4f2c9a31-... label '"rotor"'`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			ast, err := expr.Parse(args[2])
			if err != nil {
				return fmt.Errorf("value %q: %w", args[2], err)
			}
			res := eval.Evaluate(ast, &eval.MapContext{})
			if !res.Ok() {
				return fmt.Errorf("value %q: %w", args[2], res.Err)
			}

			if err := cmdCtx.Engine.WriteValue(cmd.Context(), args[0], args[1], res.Value); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s.%s = %s\n", args[0], args[1], res.Value.String())
			return nil
		},
	}
}
