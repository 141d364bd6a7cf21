package schema

import (
	"strconv"
	"strings"

	"flatschema/internal/analysis"
	"flatschema/internal/structure"
)

// DedupFlat generates the deduplicating Header/Record document: the root
// points at $defs/Header and an array of $defs/Record, and both defs
// share one flat camelCase property set so downstream type generation
// emits exactly three types.
func DedupFlat(tree *structure.Node, req analysis.Request) (map[string]any, error) {
	item, err := rowItem(tree, req)
	if err != nil {
		return nil, err
	}

	flat := flatProperties(item)

	return map[string]any{
		"$schema": DraftVersion,
		"title":   req.SchemaName,
		"type":    "object",
		"properties": map[string]any{
			"header": map[string]any{"$ref": "#/$defs/Header"},
			"records": map[string]any{
				"type":  "array",
				"items": map[string]any{"$ref": "#/$defs/Record"},
			},
		},
		"$defs": map[string]any{
			"Header": map[string]any{
				"title":      "Header",
				"type":       "object",
				"properties": flat,
			},
			"Record": map[string]any{
				"title":      "Record",
				"type":       "object",
				"properties": flat,
			},
		},
	}, nil
}

// flatProperties renders every column as a camelCase property. Name
// collisions after normalization get a counter suffix: base, base2,
// base3, in column order.
func flatProperties(item *structure.Node) map[string]any {
	properties := make(map[string]any, len(item.Children))
	counts := make(map[string]int, len(item.Children))

	for _, field := range item.Children {
		base := columnCamelCase(field.Name)
		counts[base]++
		name := base
		if counts[base] > 1 {
			name = base + strconv.Itoa(counts[base])
		}
		properties[name] = map[string]any{
			"type":        mapType(field.Type),
			"description": "CSV column: " + field.Name,
		}
	}
	return properties
}

// columnCamelCase folds a raw column name to camelCase, treating every
// non-alphanumeric run as a word break:
// ACCOUNTS_BATCH.NUMBER -> accountsBatchNumber,
// EXPENSE.TYPE_TOWN/CITY -> expenseTypeTownCity.
func columnCamelCase(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return camelCase(b.String())
}
