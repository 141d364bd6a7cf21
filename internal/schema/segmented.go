package schema

import (
	"strings"

	"flatschema/internal/analysis"
	"flatschema/internal/infer"
	"flatschema/internal/structure"
)

// FallbackSegment collects columns without a dot prefix.
const FallbackSegment = "GENERAL"

type segmentField struct {
	name     string // field name inside the segment
	original string // full column name as parsed
	typ      string // inferred type
}

type segment struct {
	name   string
	fields []segmentField
}

// Segmented generates the flat-file mapping document: columns grouped by
// their first-dot prefix into segment objects, each field carrying a
// global 0-based x-position and its original column name. Membership is
// by prefix alone; interleaved columns still land in their segment, and
// positions run strictly increasing over segments in first-seen order.
// Field types pass through as inferred, "null" included, so mapping
// tools can tell a never-valued column from a textual one.
func Segmented(tree *structure.Node, req analysis.Request) (map[string]any, error) {
	item, err := rowItem(tree, req)
	if err != nil {
		return nil, err
	}

	segments := groupBySegment(item)

	properties := make(map[string]any, len(segments))
	var requiredSegments []string
	position := 0
	for _, seg := range segments {
		segProperties := make(map[string]any, len(seg.fields))
		var required []string
		for _, f := range seg.fields {
			segProperties[f.name] = map[string]any{
				"type":         f.typ,
				"x-position":   position,
				"x-csv-column": f.original,
				"description":  "Column: " + f.original,
			}
			if f.typ != infer.TypeNull {
				required = append(required, f.name)
			}
			position++
		}

		segSchema := map[string]any{
			"type":        "object",
			"description": seg.name + " segment",
			"x-segment":   true,
			"properties":  segProperties,
		}
		if len(required) > 0 {
			segSchema["required"] = required
		}
		properties[seg.name] = segSchema

		if len(required) > 0 {
			requiredSegments = append(requiredSegments, seg.name)
		}
	}

	doc := map[string]any{
		"$schema":     DraftVersion,
		"$id":         segmentedID(req),
		"title":       req.SchemaName,
		"description": "Flat-file mapping schema grouped by segment",
		"type":        "object",
		"x-beanio-config": map[string]any{
			"format":     analysis.NormalizeKind(req.Kind),
			"delimiter":  optionValue(req, "delimiter", ","),
			"quoteChar":  optionValue(req, "quoteChar", `"`),
			"recordName": recordName(req.SchemaName),
			"strict":     true,
		},
		"x-metadata": map[string]any{
			"sourceType":  analysis.NormalizeKind(req.Kind),
			"generatedBy": "flatschema analyzer",
			"model":       "segmented-flat-file",
		},
		"properties": properties,
	}
	if len(requiredSegments) > 0 {
		doc["required"] = requiredSegments
	}
	return doc, nil
}

// groupBySegment splits columns on their first dot, keeping segments and
// fields in first-seen column order. Dotless columns fall back to the
// GENERAL segment.
func groupBySegment(item *structure.Node) []*segment {
	var segments []*segment
	index := map[string]*segment{}

	for _, field := range item.Children {
		segName, fieldName, found := strings.Cut(field.Name, ".")
		if !found {
			segName, fieldName = FallbackSegment, field.Name
		}
		seg, ok := index[segName]
		if !ok {
			seg = &segment{name: segName}
			index[segName] = seg
			segments = append(segments, seg)
		}
		seg.fields = append(seg.fields, segmentField{
			name:     fieldName,
			original: field.Name,
			typ:      field.Type,
		})
	}
	return segments
}

// segmentedID derives a stable URN for the document from the input kind
// and schema name.
func segmentedID(req analysis.Request) string {
	return "urn:" + analysis.NormalizeKind(req.Kind) + ":" + snakeCase(req.SchemaName) + ":beanio-mapping"
}

// recordName converts a schema name into a camelCase record identifier:
// CSV_ACCOUNTING_CANONICAL -> csvAccountingCanonical.
func recordName(schemaName string) string {
	if name := camelCase(schemaName); name != "" {
		return name
	}
	return "record"
}

func snakeCase(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return strings.Trim(b.String(), "_")
}

func optionValue(req analysis.Request, key, def string) string {
	if v, ok := req.Options[key]; ok && v != "" {
		return v
	}
	return def
}
