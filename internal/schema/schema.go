// Package schema turns structural trees into JSON-Schema draft-07
// documents. Three generators share the same tree input: Standard emits
// the plain array-of-objects shape, Segmented groups dot-prefixed columns
// into flat-file segments, DedupFlat emits the Header/Record $defs shape.
//
// Documents are map[string]any trees. encoding/json marshals map keys
// sorted, so serialization and fingerprints are deterministic; field
// order is carried explicitly where it matters (x-position).
package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"flatschema/internal/analysis"
	"flatschema/internal/infer"
	"flatschema/internal/structure"
)

// DraftVersion is the $schema tag stamped on every generated document.
const DraftVersion = "http://json-schema.org/draft-07/schema#"

// Generate dispatches on the request mode. Unknown modes are a
// GenerationError; the request should have been validated upstream.
func Generate(tree *structure.Node, req analysis.Request) (map[string]any, error) {
	switch analysis.NormalizeMode(req.Mode) {
	case analysis.ModeStandard:
		return Standard(tree, req)
	case analysis.ModeSegmented:
		return Segmented(tree, req)
	case analysis.ModeDedup:
		return DedupFlat(tree, req)
	}
	return nil, analysis.NewError(analysis.GenerationError, req.Kind, "no generator for mode %q", req.Mode)
}

// Render serializes a document with two-space indentation.
func Render(doc map[string]any) (string, error) {
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", analysis.WrapError(analysis.SerializationError, "", err, "serialize schema")
	}
	return string(b), nil
}

// Fingerprint returns the hex SHA-256 of the document's canonical
// serialization. Two runs over the same input produce the same
// fingerprint; the catalog uses it for idempotent saves.
func Fingerprint(doc map[string]any) (string, error) {
	b, err := json.Marshal(doc)
	if err != nil {
		return "", analysis.WrapError(analysis.SerializationError, "", err, "fingerprint schema")
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// mapType maps an inferred type onto the emitted JSON-Schema type for
// the Standard and DedupFlat shapes. "null" means a column never showed
// a value; those schemas declare it as string, the least committal
// concrete type. Segmented keeps the raw type instead.
func mapType(inferred string) string {
	switch inferred {
	case infer.TypeInteger, infer.TypeNumber, infer.TypeBoolean:
		return inferred
	}
	return "string"
}

// rowItem extracts the row object of a flat-file tree, erroring the way
// both flat generators need.
func rowItem(tree *structure.Node, req analysis.Request) (*structure.Node, error) {
	if tree == nil {
		return nil, analysis.NewError(analysis.GenerationError, req.Kind, "root element cannot be nil")
	}
	if len(tree.Children) == 0 {
		return nil, analysis.NewError(analysis.GenerationError, req.Kind, "no structure found in input")
	}
	item := tree.Item()
	if item == nil {
		return nil, analysis.NewError(analysis.GenerationError, req.Kind, "expected an object row structure")
	}
	return item, nil
}

// camelCase lowercases the first underscore- or space-separated token
// and capitalizes the rest: ACCOUNTS_BATCH_NUMBER -> accountsBatchNumber.
func camelCase(s string) string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == '_' || r == ' ' || r == '\t'
	})
	var b strings.Builder
	for i, part := range parts {
		part = strings.ToLower(part)
		if i == 0 {
			b.WriteString(part)
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	return b.String()
}
