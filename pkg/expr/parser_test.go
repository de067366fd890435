package expr

import (
	"strings"
	"testing"

	"github.com/fieldline-labs/fieldline/pkg/token"
)

func TestParser_Precedence(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"1 + 2 * 3", "(1 + (2 * 3))"},
		{"(1 + 2) * 3", "((1 + 2) * 3)"},
		{"1 - 2 - 3", "((1 - 2) - 3)"},
		{"2 * 3 % 4", "((2 * 3) % 4)"},
		{"1 + 2 == 3", "((1 + 2) == 3)"},
		{"1 < 2 && 3 < 4", "((1 < 2) && (3 < 4))"},
		{"true || false && true", "(true || (false && true))"},
		{"a and b or c", "error"}, // bare identifiers are not expressions
		{"#a and #b or #c", "((#a && #b) || #c)"},
		{"not true", "(!true)"},
		{"!#done && #ready", "((!#done) && #ready)"},
		{"-#x * 2", "((-#x) * 2)"},
		{"--1", "(-(-1))"},
	}

	for _, tt := range tests {
		ast, err := Parse(tt.input)
		if tt.want == "error" {
			if err == nil {
				t.Errorf("%q: expected parse error", tt.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("%q: failed to parse: %v", tt.input, err)
			continue
		}
		if got := ast.String(); got != tt.want {
			t.Errorf("%q: expected %s, got %s", tt.input, tt.want, got)
		}
	}
}

func TestParser_Literals(t *testing.T) {
	tests := []struct {
		input string
		kind  LiteralKind
	}{
		{"42", LiteralNumber},
		{"3.14", LiteralNumber},
		{"'hello'", LiteralText},
		{"true", LiteralBool},
		{"false", LiteralBool},
		{"null", LiteralNull},
	}

	for _, tt := range tests {
		ast, err := Parse(tt.input)
		if err != nil {
			t.Fatalf("%q: failed to parse: %v", tt.input, err)
		}
		lit, ok := ast.(*Literal)
		if !ok {
			t.Fatalf("%q: expected *Literal, got %T", tt.input, ast)
		}
		if lit.Kind != tt.kind {
			t.Errorf("%q: expected kind %d, got %d", tt.input, tt.kind, lit.Kind)
		}
	}
}

func TestParser_HashShorthand(t *testing.T) {
	ast, err := Parse("#revenue")
	if err != nil {
		t.Fatalf("failed to parse: %v", err)
	}
	ident, ok := ast.(*Identifier)
	if !ok {
		t.Fatalf("expected *Identifier, got %T", ast)
	}
	if ident.Name != "revenue" {
		t.Errorf("expected name 'revenue', got %q", ident.Name)
	}
}

func TestParser_SelfReference(t *testing.T) {
	ast, err := Parse("@self.orders[*].total")
	if err != nil {
		t.Fatalf("failed to parse: %v", err)
	}
	ref, ok := ast.(*PropertyRef)
	if !ok {
		t.Fatalf("expected *PropertyRef, got %T", ast)
	}
	if ref.EntityID != "" {
		t.Errorf("expected self reference, got entity %q", ref.EntityID)
	}
	if len(ref.Path) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(ref.Path))
	}
	if ref.Path[0].Name != "orders" || ref.Path[0].Traversal != TraverseAll {
		t.Errorf("segment 0: expected orders[*], got %+v", ref.Path[0])
	}
	if ref.Path[1].Name != "total" || ref.Path[1].Traversal != TraverseNone {
		t.Errorf("segment 1: expected total, got %+v", ref.Path[1])
	}
}

func TestParser_EntityReference(t *testing.T) {
	ast, err := Parse("@9f2c1b34-55aa-4bd0-9c6e-1d2f3a4b5c6d.rates[0]")
	if err != nil {
		t.Fatalf("failed to parse: %v", err)
	}
	ref, ok := ast.(*PropertyRef)
	if !ok {
		t.Fatalf("expected *PropertyRef, got %T", ast)
	}
	if ref.EntityID != "9f2c1b34-55aa-4bd0-9c6e-1d2f3a4b5c6d" {
		t.Errorf("unexpected entity id %q", ref.EntityID)
	}
	if ref.Path[0].Traversal != TraverseIndex || ref.Path[0].Index != 0 {
		t.Errorf("expected rates[0], got %+v", ref.Path[0])
	}
}

func TestParser_EmptyReferencePath(t *testing.T) {
	_, err := Parse("@self")
	if err == nil {
		t.Fatal("expected parse error for @self without a path")
	}
	if !strings.Contains(err.Error(), "at least one path segment") {
		t.Errorf("unexpected message: %v", err)
	}
}

func TestParser_FunctionCalls(t *testing.T) {
	ast, err := Parse("IF(#qty > 0, #qty * #price, 0)")
	if err != nil {
		t.Fatalf("failed to parse: %v", err)
	}
	call, ok := ast.(*CallExpr)
	if !ok {
		t.Fatalf("expected *CallExpr, got %T", ast)
	}
	if call.Name != "IF" {
		t.Errorf("expected name IF, got %q", call.Name)
	}
	if len(call.Args) != 3 {
		t.Errorf("expected 3 args, got %d", len(call.Args))
	}

	ast, err = Parse("NOW()")
	if err != nil {
		t.Fatalf("failed to parse NOW(): %v", err)
	}
	if call := ast.(*CallExpr); len(call.Args) != 0 {
		t.Errorf("expected 0 args, got %d", len(call.Args))
	}
}

func TestParser_BareIdentifierHint(t *testing.T) {
	_, err := Parse("price * 2")
	if err == nil {
		t.Fatal("expected parse error for bare identifier")
	}
	if !strings.Contains(err.Error(), "use #price to reference a property") {
		t.Errorf("expected #price hint, got %v", err)
	}
}

func TestParser_LowercaseCallee(t *testing.T) {
	_, err := Parse("sum(#a)")
	if err == nil {
		t.Fatal("expected parse error for lowercase function name")
	}
	perr, ok := err.(*ParseError)
	if !ok {
		t.Fatalf("expected *ParseError, got %T", err)
	}
	if !strings.Contains(perr.Message, "sum") {
		t.Errorf("unexpected message: %v", perr)
	}
}

func TestParser_TrailingTokens(t *testing.T) {
	_, err := Parse("1 + 2 3")
	if err == nil {
		t.Fatal("expected parse error for trailing tokens")
	}
	if !strings.Contains(err.Error(), "after expression") {
		t.Errorf("unexpected message: %v", err)
	}
}

func TestParser_UnexpectedEOF(t *testing.T) {
	for _, input := range []string{"", "1 +", "(1 + 2", "SUM(#a,"} {
		_, err := Parse(input)
		if err == nil {
			t.Errorf("%q: expected parse error", input)
		}
	}
}

func TestParser_StringRoundTrip(t *testing.T) {
	inputs := []string{
		"1 + 2 * 3",
		"IF(#qty > 0, #qty * #price, 0)",
		"SUM(@self.orders[*].total) / COUNT(@self.orders[*].total)",
		"@9f2c1b34-55aa-4bd0-9c6e-1d2f3a4b5c6d.fx.rate",
		"'a\\'b' + 'c'",
		"COALESCE(#nickname, #name, 'unknown')",
		"!(#a == #b) || #c != null",
		"-(#x - #y) % 7",
		"@self.rates[2] * 100",
	}

	for _, input := range inputs {
		first, err := Parse(input)
		if err != nil {
			t.Fatalf("%q: failed to parse: %v", input, err)
		}
		rendered := first.String()
		second, err := Parse(rendered)
		if err != nil {
			t.Fatalf("%q: failed to reparse %q: %v", input, rendered, err)
		}
		if !Equal(first, second) {
			t.Errorf("%q: round trip through %q changed the tree", input, rendered)
		}
	}
}

func TestParser_LexErrorSurfaces(t *testing.T) {
	_, err := Parse("#a = 1")
	if err == nil {
		t.Fatal("expected error")
	}
	if _, ok := err.(*LexError); !ok {
		t.Errorf("expected *LexError, got %T: %v", err, err)
	}
}

func TestTryParse(t *testing.T) {
	if TryParse("1 + ") != nil {
		t.Error("expected nil for invalid input")
	}
	if TryParse("1 + 2") == nil {
		t.Error("expected non-nil for valid input")
	}
}

func TestEqual_IgnoresPositions(t *testing.T) {
	a, err := Parse("1 + #x")
	if err != nil {
		t.Fatal(err)
	}
	b, err := Parse("  1   +   #x")
	if err != nil {
		t.Fatal(err)
	}
	if !Equal(a, b) {
		t.Error("expected trees to be equal despite different positions")
	}
	c, _ := Parse("1 - #x")
	if Equal(a, c) {
		t.Error("expected differing operators to compare unequal")
	}
}

func TestParser_KeywordOperatorsEquivalent(t *testing.T) {
	a, err := Parse("#a and not #b")
	if err != nil {
		t.Fatal(err)
	}
	b, err := Parse("#a && !#b")
	if err != nil {
		t.Fatal(err)
	}
	if !Equal(a, b) {
		t.Error("expected keyword and symbol operator forms to parse identically")
	}
	if a.(*BinaryExpr).Op != token.AND {
		t.Errorf("expected AND, got %s", a.(*BinaryExpr).Op)
	}
}
