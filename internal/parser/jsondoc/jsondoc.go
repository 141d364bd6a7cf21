// Package jsondoc analyzes the structure of one JSON document: objects
// and arrays become container nodes, scalars are typed from their JSON
// type. Values are never materialized beyond the token stream, so field
// order follows the document.
package jsondoc

import (
	"encoding/json"
	"strconv"
	"strings"

	"flatschema/internal/analysis"
	"flatschema/internal/config"
	"flatschema/internal/infer"
	"flatschema/internal/parser"
	"flatschema/internal/structure"
)

func init() {
	parser.Register(analysis.KindJSON, func() parser.Parser { return jsonParser{} })
}

type jsonParser struct{}

func (jsonParser) Kind() string { return analysis.KindJSON }

func (jsonParser) Options() []parser.OptionDoc {
	return []parser.OptionDoc{
		{Name: "sampleItems", Description: "array elements examined per array for structure merging", Default: "100"},
	}
}

func (p jsonParser) Parse(content, schemaName string, opts config.Options) (*structure.Node, error) {
	sampleItems, err := opts.Int("sampleItems", 100)
	if err != nil {
		return nil, analysis.WrapError(analysis.InvalidOption, analysis.KindJSON, err, "invalid option")
	}
	if sampleItems <= 0 {
		sampleItems = 100
	}

	if strings.TrimSpace(content) == "" {
		return nil, analysis.NewError(analysis.EmptyInput, analysis.KindJSON, "no document")
	}

	dec := json.NewDecoder(strings.NewReader(content))
	dec.UseNumber()

	w := walker{dec: dec, sampleItems: sampleItems}
	root, err := w.value(schemaName)
	if err != nil {
		return nil, analysis.WrapError(analysis.ParseError, analysis.KindJSON, err, "decode document")
	}
	if root.Kind == structure.KindScalar {
		return nil, analysis.NewError(analysis.UnsupportedInput, analysis.KindJSON, "root must be an object or array, got a %s scalar", root.Type)
	}
	return root, nil
}

type walker struct {
	dec         *json.Decoder
	sampleItems int
}

// value consumes one JSON value from the stream and returns its node.
func (w *walker) value(name string) (*structure.Node, error) {
	tok, err := w.dec.Token()
	if err != nil {
		return nil, err
	}
	return w.valueFromToken(name, tok)
}

func (w *walker) valueFromToken(name string, tok json.Token) (*structure.Node, error) {
	switch t := tok.(type) {
	case json.Delim:
		if t == '{' {
			return w.object(name)
		}
		return w.array(name)

	case string:
		return structure.Scalar(name, infer.TypeString), nil

	case json.Number:
		return structure.Scalar(name, numberType(t)), nil

	case bool:
		return structure.Scalar(name, infer.TypeBoolean), nil

	default: // nil
		return structure.Scalar(name, infer.TypeNull), nil
	}
}

// object consumes key/value pairs until the closing brace, keeping keys
// in document order.
func (w *walker) object(name string) (*structure.Node, error) {
	node := structure.Object(name)
	for {
		tok, err := w.dec.Token()
		if err != nil {
			return nil, err
		}
		if d, ok := tok.(json.Delim); ok && d == '}' {
			return node, nil
		}
		key := tok.(string)
		child, err := w.value(key)
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, child)
	}
}

// array consumes elements until the closing bracket. The first
// sampleItems element structures merge into one "item" child; later
// elements are consumed without contributing evidence. An empty array
// has no children.
func (w *walker) array(name string) (*structure.Node, error) {
	var items []*structure.Node
	examined := 0
	for {
		tok, err := w.dec.Token()
		if err != nil {
			return nil, err
		}
		if d, ok := tok.(json.Delim); ok && d == ']' {
			break
		}
		elem, err := w.valueFromToken("item", tok)
		if err != nil {
			return nil, err
		}
		if examined < w.sampleItems {
			items = append(items, elem)
			examined++
		}
	}

	if len(items) == 0 {
		return structure.Array(name), nil
	}
	item, err := structure.MergeSamples(items)
	if err != nil {
		return nil, err
	}
	return structure.Array(name, item), nil
}

// numberType splits JSON numbers the same way delimited inference does:
// anything ParseInt accepts is an integer, the rest are numbers.
func numberType(n json.Number) string {
	if _, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
		return infer.TypeInteger
	}
	return infer.TypeNumber
}
