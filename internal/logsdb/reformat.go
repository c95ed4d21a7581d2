package logsdb

import (
	"fmt"
	"strings"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
)

// ReformatQueryBody strips variable definitions from a stored query
// skeleton and reprints just its root selection set as "query { ... }".
// gqlparser ships no printer, so printSelectionSet below walks the parsed
// AST directly to rebuild the minimal selection-set text MRQ replays.
func ReformatQueryBody(query string) (string, error) {
	doc, err := gqlparser.LoadQuery(&ast.Source{Input: query}, query)
	if err != nil {
		return "", fmt.Errorf("logsdb: parsing query skeleton: %w", err)
	}
	if len(doc.Operations) != 1 {
		return "", fmt.Errorf("logsdb: expected a single root query, got %d operations", len(doc.Operations))
	}

	var b strings.Builder
	b.WriteString("query ")
	printSelectionSet(&b, doc.Operations[0].SelectionSet)
	return b.String(), nil
}

func printSelectionSet(b *strings.Builder, set ast.SelectionSet) {
	b.WriteString("{ ")
	for i, sel := range set {
		if i > 0 {
			b.WriteString(" ")
		}
		printSelection(b, sel)
	}
	b.WriteString(" }")
}

func printSelection(b *strings.Builder, sel ast.Selection) {
	switch s := sel.(type) {
	case *ast.Field:
		if s.Alias != "" && s.Alias != s.Name {
			b.WriteString(s.Alias)
			b.WriteString(": ")
		}
		b.WriteString(s.Name)
		if len(s.Arguments) > 0 {
			b.WriteString("(")
			for i, arg := range s.Arguments {
				if i > 0 {
					b.WriteString(", ")
				}
				b.WriteString(arg.Name)
				b.WriteString(": ")
				b.WriteString(printValue(arg.Value))
			}
			b.WriteString(")")
		}
		if len(s.SelectionSet) > 0 {
			b.WriteString(" ")
			printSelectionSet(b, s.SelectionSet)
		}
	case *ast.FragmentSpread:
		b.WriteString("...")
		b.WriteString(s.Name)
	case *ast.InlineFragment:
		b.WriteString("... ")
		if s.TypeCondition != "" {
			b.WriteString("on ")
			b.WriteString(s.TypeCondition)
			b.WriteString(" ")
		}
		printSelectionSet(b, s.SelectionSet)
	}
}

func printValue(v *ast.Value) string {
	if v == nil {
		return "null"
	}
	switch v.Kind {
	case ast.Variable:
		return "$" + v.Raw
	case ast.StringValue, ast.BlockValue:
		return `"` + v.Raw + `"`
	case ast.IntValue, ast.FloatValue, ast.EnumValue, ast.BooleanValue:
		return v.Raw
	case ast.NullValue:
		return "null"
	case ast.ListValue:
		parts := make([]string, len(v.Children))
		for i, c := range v.Children {
			parts[i] = printValue(c.Value)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case ast.ObjectValue:
		parts := make([]string, len(v.Children))
		for i, c := range v.Children {
			parts[i] = c.Name + ": " + printValue(c.Value)
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return v.Raw
	}
}
