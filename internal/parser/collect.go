package parser

import (
	"strings"

	"flatschema/internal/infer"
	"flatschema/internal/structure"
)

// DefaultSampleRows caps how many non-blank values per column feed type
// inference when the sampleRows option is absent.
const DefaultSampleRows = 100

// Collect builds the canonical row-file tree from ordered column names
// and sampled rows: an array root named schemaName over one "item" object
// whose scalar children are the columns, in order.
//
// Per column, up to sampleRows non-blank values are inferred and widened.
// Blank cells (empty or whitespace-only) and cells beyond a short row
// carry no type evidence; a column that never shows a value stays "null".
// Inference stops early once a column widens to "string".
func Collect(schemaName string, columns []string, rows [][]string, sampleRows int) *structure.Node {
	if sampleRows <= 0 {
		sampleRows = DefaultSampleRows
	}

	fields := make([]*structure.Node, 0, len(columns))
	for i, col := range columns {
		fields = append(fields, structure.Scalar(col, collectColumn(rows, i, sampleRows)))
	}
	return structure.Array(schemaName, structure.Object("item", fields...))
}

func collectColumn(rows [][]string, col, sampleRows int) string {
	merged := infer.TypeNull
	sampled := 0
	for _, row := range rows {
		if sampled >= sampleRows {
			break
		}
		if col >= len(row) || strings.TrimSpace(row[col]) == "" {
			continue
		}
		sampled++
		merged = infer.Merge(merged, infer.Infer(row[col]))
		if merged == infer.TypeString {
			break
		}
	}
	return merged
}
