package commands

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/fieldline-labs/fieldline/pkg/expr"
)

// NewTokensCommand creates the tokens command.
func NewTokensCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tokens <formula>",
		Short: "Show the token stream of a formula",
		Long: `Lex a formula and print each token with its position.

Useful for debugging formulas the parser rejects.`,
		Example: `  fieldline tokens '@self.weight * 2'
  fieldline tokens 'SUM(@self.parts[*].mass)'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTokens(cmd, args[0])
		},
	}
}

func runTokens(cmd *cobra.Command, source string) error {
	tokens, err := expr.Tokenize(source)
	if err != nil {
		return fmt.Errorf("lexing failed: %w", err)
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Type", "Literal", "Line", "Col"})

	for i, tok := range tokens {
		lit := tok.Literal
		if strings.TrimSpace(lit) == "" {
			lit = ""
		}
		t.AppendRow(table.Row{i, tok.Type.String(), lit, tok.Pos.Line, tok.Pos.Column})
	}
	t.Render()

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "(%d tokens)\n", len(tokens))
	return nil
}
