// Package delimited parses header-oriented delimited text (CSV, TSV and
// other single-rune delimiters) into a structural tree.
package delimited

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/charmap"

	"flatschema/internal/analysis"
	"flatschema/internal/config"
	"flatschema/internal/parser"
	"flatschema/internal/structure"
)

func init() {
	parser.Register(analysis.KindCSV, func() parser.Parser { return csvParser{} })
}

type csvParser struct{}

func (csvParser) Kind() string { return analysis.KindCSV }

func (csvParser) Options() []parser.OptionDoc {
	return []parser.OptionDoc{
		{Name: "delimiter", Description: "field delimiter, a single character", Default: ","},
		{Name: "hasHeader", Description: "first data line is the header row", Default: "true"},
		{Name: "quoteChar", Description: "quote character; only '\"' is supported", Default: `"`},
		{Name: "escapeChar", Description: "escape character inside quoted fields; '\\' and '\"' both select the doubled-quote dialect", Default: `\`},
		{Name: "skipLines", Description: "lines to discard before the header", Default: "0"},
		{Name: "sampleRows", Description: "non-blank values sampled per column for type inference", Default: "100"},
		{Name: "encoding", Description: "input encoding: UTF-8, ISO-8859-1 or Windows-1252", Default: "UTF-8"},
	}
}

func (p csvParser) Parse(content, schemaName string, opts config.Options) (*structure.Node, error) {
	delimiter, err := opts.Rune("delimiter", ',')
	if err != nil {
		return nil, invalidOption(err)
	}
	hasHeader, err := opts.Bool("hasHeader", true)
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
	if err := checkQuoting(opts); err != nil {
		return nil, err
	}

	decoded, err := decode(content, opts.String("encoding", "UTF-8"))
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(strings.NewReader(decoded))
	cr.Comma = delimiter
	cr.FieldsPerRecord = -1

	var records [][]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, analysis.WrapError(analysis.ParseError, analysis.KindCSV, err, "read delimited input")
		}
		records = append(records, rec)
	}

	if skipLines > len(records) {
		skipLines = len(records)
	}
	records = records[skipLines:]

	var columns []string
	if hasHeader {
		if len(records) == 0 {
			return nil, analysis.NewError(analysis.EmptyInput, analysis.KindCSV, "no header row after skipping %d lines", skipLines)
		}
		columns = headerColumns(records[0])
		records = records[1:]
	}
	if len(records) == 0 {
		return nil, analysis.NewError(analysis.EmptyInput, analysis.KindCSV, "no data rows")
	}
	if !hasHeader {
		columns = positionalColumns(widestRow(records))
	}

	return parser.Collect(schemaName, columns, records, sampleRows), nil
}

// checkQuoting rejects quote dialects encoding/csv cannot express. Only
// RFC 4180 double quotes with doubled-quote escaping are supported.
func checkQuoting(opts config.Options) error {
	if q := opts.String("quoteChar", `"`); q != `"` {
		return analysis.NewError(analysis.InvalidOption, analysis.KindCSV, "option quoteChar=%q: only '\"' is supported", q)
	}
	if e := opts.String("escapeChar", `\`); e != `\` && e != `"` {
		return analysis.NewError(analysis.InvalidOption, analysis.KindCSV, "option escapeChar=%q: only '\\' and '\"' are supported", e)
	}
	return nil
}

func decode(content, encoding string) (string, error) {
	switch normalizeEncoding(encoding) {
	case "utf-8", "utf8":
		return content, nil
	case "iso-8859-1", "latin1":
		out, err := charmap.ISO8859_1.NewDecoder().String(content)
		if err != nil {
			return "", analysis.WrapError(analysis.ParseError, analysis.KindCSV, err, "decode ISO-8859-1 input")
		}
		return out, nil
	case "windows-1252", "cp1252":
		out, err := charmap.Windows1252.NewDecoder().String(content)
		if err != nil {
			return "", analysis.WrapError(analysis.ParseError, analysis.KindCSV, err, "decode Windows-1252 input")
		}
		return out, nil
	}
	return "", analysis.NewError(analysis.InvalidOption, analysis.KindCSV, "option encoding=%q: unsupported encoding", encoding)
}

func normalizeEncoding(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// headerColumns trims header cells and strips a UTF-8 BOM from the first
// one. Blank header cells get positional names so every column survives.
func headerColumns(header []string) []string {
	columns := make([]string, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\uFEFF")
		}
		h = strings.TrimSpace(h)
		if h == "" {
			h = positionalName(i)
		}
		columns[i] = h
	}
	return columns
}

func positionalColumns(n int) []string {
	columns := make([]string, n)
	for i := range columns {
		columns[i] = positionalName(i)
	}
	return columns
}

// positionalName names the i-th column 1-based: column1, column2, ...
func positionalName(i int) string {
	return fmt.Sprintf("column%d", i+1)
}

func widestRow(rows [][]string) int {
	widest := 0
	for _, r := range rows {
		if len(r) > widest {
			widest = len(r)
		}
	}
	return widest
}

func invalidOption(err error) error {
	return analysis.WrapError(analysis.InvalidOption, analysis.KindCSV, err, "invalid option")
}
