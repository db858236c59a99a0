package graphql

import (
	"fmt"
	"strings"

	"github.com/graphql-go/graphql/language/ast"
	"github.com/graphql-go/graphql/language/parser"
)

// DefaultMaxDepth bounds object nesting. Leaf fields do not count, so
// route { legs { layer } } has depth 2.
const DefaultMaxDepth = 4

// calculateQueryDepth calculates the maximum depth of a GraphQL query
func calculateQueryDepth(document *ast.Document) int {
	fragments := make(map[string]*ast.FragmentDefinition)
	for _, definition := range document.Definitions {
		if def, ok := definition.(*ast.FragmentDefinition); ok && def.Name != nil {
			fragments[def.Name.Value] = def
		}
	}

	maxDepth := 0
	for _, definition := range document.Definitions {
		if def, ok := definition.(*ast.OperationDefinition); ok {
			depth := selectionSetDepth(def.SelectionSet, 0, fragments, map[string]bool{})
			if depth > maxDepth {
				maxDepth = depth
			}
		}
	}
	return maxDepth
}

// selectionSetDepth returns the deepest field nesting below selectionSet.
// visiting guards against fragment cycles, which validation rejects later.
func selectionSetDepth(selectionSet *ast.SelectionSet, depth int, fragments map[string]*ast.FragmentDefinition, visiting map[string]bool) int {
	if selectionSet == nil {
		return depth
	}

	maxDepth := depth
	for _, selection := range selectionSet.Selections {
		var d int
		switch sel := selection.(type) {
		case *ast.Field:
			if strings.HasPrefix(sel.Name.Value, "__") || sel.SelectionSet == nil {
				continue
			}
			d = selectionSetDepth(sel.SelectionSet, depth+1, fragments, visiting)
		case *ast.InlineFragment:
			d = selectionSetDepth(sel.SelectionSet, depth, fragments, visiting)
		case *ast.FragmentSpread:
			name := sel.Name.Value
			frag, ok := fragments[name]
			if !ok || visiting[name] {
				continue
			}
			visiting[name] = true
			d = selectionSetDepth(frag.SelectionSet, depth, fragments, visiting)
			delete(visiting, name)
		}
		if d > maxDepth {
			maxDepth = d
		}
	}
	return maxDepth
}

// ValidateQueryDepth validates a query against the depth limit
func ValidateQueryDepth(query string, maxDepth int) error {
	document, err := parser.Parse(parser.ParseParams{Source: query})
	if err != nil {
		return fmt.Errorf("failed to parse query: %w", err)
	}
	if depth := calculateQueryDepth(document); depth > maxDepth {
		return fmt.Errorf("query depth %d exceeds maximum allowed depth %d", depth, maxDepth)
	}
	return nil
}
