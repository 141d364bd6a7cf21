package schema

import (
	"flatschema/internal/analysis"
	"flatschema/internal/structure"
)

// Standard generates the plain draft-07 document: an array of row
// objects for flat input, recursing naturally for nested trees.
func Standard(tree *structure.Node, req analysis.Request) (map[string]any, error) {
	if tree == nil {
		return nil, analysis.NewError(analysis.GenerationError, req.Kind, "root element cannot be nil")
	}

	doc := map[string]any{
		"$schema": DraftVersion,
		"title":   req.SchemaName,
	}
	for k, v := range nodeSchema(tree) {
		doc[k] = v
	}
	return doc, nil
}

// nodeSchema renders one tree node as a schema fragment.
func nodeSchema(n *structure.Node) map[string]any {
	switch n.Kind {
	case structure.KindArray:
		out := map[string]any{"type": "array"}
		if len(n.Children) > 0 {
			out["items"] = nodeSchema(n.Children[0])
		}
		return out

	case structure.KindObject:
		properties := make(map[string]any, len(n.Children))
		for _, c := range n.Children {
			properties[c.Name] = nodeSchema(c)
		}
		return map[string]any{
			"type":       "object",
			"properties": properties,
		}

	default:
		return map[string]any{"type": mapType(n.Type)}
	}
}
