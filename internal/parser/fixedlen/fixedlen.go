// Package fixedlen parses fixed-width records. The caller supplies the
// field layout as a JSON descriptor; the parser slices each line and
// infers or applies column types.
package fixedlen

import (
	"encoding/json"
	"strings"

	"flatschema/internal/analysis"
	"flatschema/internal/config"
	"flatschema/internal/infer"
	"flatschema/internal/parser"
	"flatschema/internal/structure"
)

func init() {
	parser.Register(analysis.KindFixedLength, func() parser.Parser { return fixedParser{} })
}

// fieldDef is one entry of the fieldDefinitions descriptor. Start is the
// 1-based column of the field's first character, Length its width in
// bytes. Type, when set, overrides inference for the field and must be
// one of the schema scalar types.
type fieldDef struct {
	Name   string `json:"name"`
	Start  int    `json:"start"`
	Length int    `json:"length"`
	Type   string `json:"type,omitempty"`
}

type fixedParser struct{}

func (fixedParser) Kind() string { return analysis.KindFixedLength }

func (fixedParser) Options() []parser.OptionDoc {
	return []parser.OptionDoc{
		{Name: "fieldDefinitions", Description: "JSON array of {name, start, length, type?}; start is 1-based", Default: ""},
		{Name: "trimFields", Description: "trim surrounding spaces from sliced values", Default: "true"},
		{Name: "recordLength", Description: "exact line length to enforce; blank disables the check", Default: ""},
		{Name: "skipLines", Description: "lines to discard before the first record", Default: "0"},
		{Name: "sampleRows", Description: "non-blank values sampled per column for type inference", Default: "100"},
	}
}

var declaredTypes = map[string]bool{
	infer.TypeInteger: true,
	infer.TypeNumber:  true,
	infer.TypeBoolean: true,
	infer.TypeString:  true,
}

func (p fixedParser) Parse(content, schemaName string, opts config.Options) (*structure.Node, error) {
	defs, err := parseFieldDefs(opts.String("fieldDefinitions", ""))
	if err != nil {
		return nil, err
	}
	trimFields, err := opts.Bool("trimFields", true)
	if err != nil {
		return nil, invalidOption(err)
	}
	skipLines, err := opts.Int("skipLines", 0)
	if err != nil {
		return nil, invalidOption(err)
	}
	sampleRows, err := opts.Int("sampleRows", parser.DefaultSampleRows)
	if err != nil {
		return nil, invalidOption(err)
	}
	recordLength := 0
	if opts.String("recordLength", "") != "" {
		recordLength, err = opts.Int("recordLength", 0)
		if err != nil || recordLength <= 0 {
			return nil, analysis.NewError(analysis.InvalidOption, analysis.KindFixedLength,
				"option recordLength=%q: must be a positive number", opts.String("recordLength", ""))
		}
	}

	lines := dataLines(content, skipLines)
	if len(lines) == 0 {
		return nil, analysis.NewError(analysis.EmptyInput, analysis.KindFixedLength, "no data lines")
	}

	columns := make([]string, len(defs))
	for i, d := range defs {
		columns[i] = d.Name
	}

	rows := make([][]string, 0, len(lines))
	for i, line := range lines {
		if recordLength > 0 && len(line) != recordLength {
			return nil, analysis.NewError(analysis.ParseError, analysis.KindFixedLength,
				"line %d: length %d, want %d", skipLines+i+1, len(line), recordLength)
		}
		row := make([]string, len(defs))
		for j, d := range defs {
			row[j] = slice(line, d, trimFields)
		}
		rows = append(rows, row)
	}

	tree := parser.Collect(schemaName, columns, rows, sampleRows)

	// Declared types beat inference.
	item := tree.Item()
	for i, d := range defs {
		if d.Type != "" {
			item.Children[i].Type = d.Type
		}
	}
	return tree, nil
}

func parseFieldDefs(raw string) ([]fieldDef, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, analysis.NewError(analysis.InvalidOption, analysis.KindFixedLength, "option fieldDefinitions is required")
	}
	var defs []fieldDef
	if err := json.Unmarshal([]byte(raw), &defs); err != nil {
		return nil, analysis.WrapError(analysis.InvalidOption, analysis.KindFixedLength, err, "option fieldDefinitions: not a JSON field list")
	}
	if len(defs) == 0 {
		return nil, analysis.NewError(analysis.InvalidOption, analysis.KindFixedLength, "option fieldDefinitions: no fields")
	}
	for i, d := range defs {
		if d.Name == "" {
			return nil, analysis.NewError(analysis.InvalidOption, analysis.KindFixedLength, "option fieldDefinitions: field %d has no name", i)
		}
		if d.Start < 1 || d.Length < 1 {
			return nil, analysis.NewError(analysis.InvalidOption, analysis.KindFixedLength,
				"option fieldDefinitions: field %q needs start >= 1 and length >= 1", d.Name)
		}
		if d.Type != "" && !declaredTypes[d.Type] {
			return nil, analysis.NewError(analysis.InvalidOption, analysis.KindFixedLength,
				"option fieldDefinitions: field %q has unknown type %q", d.Name, d.Type)
		}
	}
	return defs, nil
}

// slice cuts a field out of a line. Fields past the end of a short line
// are blank rather than an error; trailing records are often ragged.
func slice(line string, d fieldDef, trim bool) string {
	start := d.Start - 1
	if start >= len(line) {
		return ""
	}
	end := start + d.Length
	if end > len(line) {
		end = len(line)
	}
	v := line[start:end]
	if trim {
		v = strings.TrimSpace(v)
	}
	return v
}

func dataLines(content string, skip int) []string {
	raw := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		if l != "" {
			lines = append(lines, l)
		}
	}
	if skip > len(lines) {
		skip = len(lines)
	}
	return lines[skip:]
}

func invalidOption(err error) error {
	return analysis.WrapError(analysis.InvalidOption, analysis.KindFixedLength, err, "invalid option")
}
