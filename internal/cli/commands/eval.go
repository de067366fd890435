package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fieldline-labs/fieldline/pkg/eval"
	"github.com/fieldline-labs/fieldline/pkg/expr"
	"github.com/fieldline-labs/fieldline/pkg/value"
)

// NewEvalCommand creates the eval command.
func NewEvalCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval <formula>",
		Short: "Evaluate a formula",
		Long: `Evaluate a formula and print the result.

With --entity, the formula runs against the store with that entity as
@self. Without it, the formula runs against an in-memory context built
from --set pairs, whose values are themselves parsed as formulas.`,
		Example: `  fieldline eval '1 + 2 * 3'
  fieldline eval '@self.price * 1.2' --set price=40
  fieldline eval '@self.total' --entity 4f2c9a31-55d3-4d52-9f0e-8b1f3f2a6c77`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entityID, _ := cmd.Flags().GetString("entity")
			sets, _ := cmd.Flags().GetStringArray("set")
			return runEval(cmd, args[0], entityID, sets)
		},
	}
	cmd.Flags().String("entity", "", "Entity id to evaluate as @self")
	cmd.Flags().StringArray("set", nil, "Self property as name=formula (repeatable)")
	return cmd
}

func runEval(cmd *cobra.Command, source, entityID string, sets []string) error {
	if entityID != "" {
		cmdCtx, cleanup, err := NewCommandContext(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		v, err := cmdCtx.Engine.Evaluate(cmd.Context(), entityID, source)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), v.String())
		return nil
	}

	values, err := parseSets(sets)
	if err != nil {
		return err
	}

	ast, err := expr.Parse(source)
	if err != nil {
		return err
	}

	res := eval.Evaluate(ast, &eval.MapContext{Values: values})
	if !res.Ok() {
		return res.Err
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), res.Value.String())
	return nil
}

// parseSets evaluates each name=formula pair into a property value.
func parseSets(sets []string) (map[string]value.Value, error) {
	values := make(map[string]value.Value, len(sets))
	for _, set := range sets {
		name, src, ok := strings.Cut(set, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("malformed --set %q, want name=formula", set)
		}

		ast, err := expr.Parse(src)
		if err != nil {
			return nil, fmt.Errorf("--set %s: %w", name, err)
		}
		res := eval.Evaluate(ast, &eval.MapContext{})
		if !res.Ok() {
			return nil, fmt.Errorf("--set %s: %w", name, res.Err)
		}
		values[name] = res.Value
	}
	return values, nil
}
