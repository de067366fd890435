package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewDefineCommand creates the define command.
func NewDefineCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "define <entity-id> <property> <formula>",
		Short: "Define a computed property",
		Long: `Parse and validate a formula, resolve its dependencies, and store it
as the definition of the given property. The property is marked stale;
run "fieldline stale recompute" to compute its value.`,
		Example: `  fieldline define 4f2c9a31-... total '@self.price * @self.quantity'`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := cmdCtx.Engine.DefineProperty(cmd.Context(), args[0], args[1], args[2]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "defined %s.%s\n", args[0], args[1])
			return nil
		},
	}
}
