// Package varlen parses headerless delimited records, either positional
// (fields named by index) or tag-value ("TAG=value" cells named by tag).
// Unlike the csv kind there is no quoting; cells are split verbatim.
package varlen

import (
	"fmt"
	"strings"

	"flatschema/internal/analysis"
	"flatschema/internal/config"
	"flatschema/internal/parser"
	"flatschema/internal/structure"
)

func init() {
	parser.Register(analysis.KindVariableLength, func() parser.Parser { return varParser{} })
}

type varParser struct{}

func (varParser) Kind() string { return analysis.KindVariableLength }

func (varParser) Options() []parser.OptionDoc {
	return []parser.OptionDoc{
		{Name: "delimiter", Description: "field delimiter, a single character", Default: "|"},
		{Name: "tagValuePairs", Description: "cells are TAG=value pairs; columns are named by tag", Default: "false"},
		{Name: "tagValueDelimiter", Description: "separator between tag and value", Default: "="},
		{Name: "skipLines", Description: "lines to discard before the first record", Default: "0"},
		{Name: "sampleRows", Description: "non-blank values sampled per column for type inference", Default: "100"},
	}
}

func (p varParser) Parse(content, schemaName string, opts config.Options) (*structure.Node, error) {
	delimiter, err := opts.Rune("delimiter", '|')
	if err != nil {
		return nil, invalidOption(err)
	}
	tagValue, err := opts.Bool("tagValuePairs", false)
	if err != nil {
		return nil, invalidOption(err)
	}
	tagDelim, err := opts.Rune("tagValueDelimiter", '=')
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

	lines := dataLines(content, skipLines)
	if len(lines) == 0 {
		return nil, analysis.NewError(analysis.EmptyInput, analysis.KindVariableLength, "no data lines")
	}

	records := make([][]string, len(lines))
	for i, line := range lines {
		records[i] = strings.Split(line, string(delimiter))
	}

	var columns []string
	var rows [][]string
	if tagValue {
		columns, rows = tagValueRows(records, string(tagDelim))
		if len(columns) == 0 {
			return nil, analysis.NewError(analysis.EmptyInput, analysis.KindVariableLength,
				"no %q-separated pairs found", string(tagDelim))
		}
	} else {
		columns = positionalColumns(widestRow(records))
		rows = records
	}

	return parser.Collect(schemaName, columns, rows, sampleRows), nil
}

// tagValueRows realigns tag-value records onto a shared column list in
// first-seen tag order. Cells without the tag separator carry no evidence
// and are dropped; records often mix mandatory and optional tags.
func tagValueRows(records [][]string, tagDelim string) ([]string, [][]string) {
	var columns []string
	index := map[string]int{}

	rows := make([][]string, len(records))
	for i, rec := range records {
		values := map[int]string{}
		for _, cell := range rec {
			tag, value, ok := strings.Cut(cell, tagDelim)
			tag = strings.TrimSpace(tag)
			if !ok || tag == "" {
				continue
			}
			col, seen := index[tag]
			if !seen {
				col = len(columns)
				index[tag] = col
				columns = append(columns, tag)
			}
			values[col] = value
		}
		row := make([]string, len(columns))
		for col, v := range values {
			row[col] = v
		}
		rows[i] = row
	}
	return columns, rows
}

func positionalColumns(n int) []string {
	columns := make([]string, n)
	for i := range columns {
		columns[i] = fmt.Sprintf("column%d", i+1)
	}
	return columns
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

func dataLines(content string, skip int) []string {
	raw := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	if skip > len(lines) {
		skip = len(lines)
	}
	return lines[skip:]
}

func invalidOption(err error) error {
	return analysis.WrapError(analysis.InvalidOption, analysis.KindVariableLength, err, "invalid option")
}
