package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fieldline-labs/fieldline/pkg/expr"
)

// NewParseCommand creates the parse command.
func NewParseCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse <formula>",
		Short: "Parse a formula and print its syntax tree",
		Long: `Parse a formula and print the tree structure, plus the canonical
fully-parenthesized rendering.`,
		Example: `  fieldline parse '@self.price * (1 + @self.tax_rate)'
  fieldline parse 'IF(#total > 100, "big", "small")'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(cmd, args[0])
		},
	}
	return cmd
}

func runParse(cmd *cobra.Command, source string) error {
	ast, err := expr.Parse(source)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	printNode(w, ast, 0)
	_, _ = fmt.Fprintf(w, "\ncanonical: %s\n", ast.String())
	return nil
}

func printNode(w io.Writer, e expr.Expr, depth int) {
	indent := strings.Repeat("  ", depth)

	switch n := e.(type) {
	case *expr.Literal:
		_, _ = fmt.Fprintf(w, "%sliteral %s\n", indent, n.String())
	case *expr.Identifier:
		_, _ = fmt.Fprintf(w, "%sidentifier #%s\n", indent, n.Name)
	case *expr.PropertyRef:
		_, _ = fmt.Fprintf(w, "%sref %s\n", indent, n.String())
	case *expr.UnaryExpr:
		_, _ = fmt.Fprintf(w, "%sunary %s\n", indent, n.Op.String())
		printNode(w, n.Expr, depth+1)
	case *expr.BinaryExpr:
		_, _ = fmt.Fprintf(w, "%sbinary %s\n", indent, n.Op.String())
		printNode(w, n.Left, depth+1)
		printNode(w, n.Right, depth+1)
	case *expr.CallExpr:
		_, _ = fmt.Fprintf(w, "%scall %s (%d args)\n", indent, n.Name, len(n.Args))
		for _, arg := range n.Args {
			printNode(w, arg, depth+1)
		}
	default:
		_, _ = fmt.Fprintf(w, "%s%s\n", indent, e.String())
	}
}
