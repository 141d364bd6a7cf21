// Package htmltable extracts the first matching HTML table and analyzes
// its rows like a delimited file: header cells name the columns, body
// cells feed type inference.
package htmltable

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"flatschema/internal/analysis"
	"flatschema/internal/config"
	"flatschema/internal/parser"
	"flatschema/internal/structure"
)

func init() {
	parser.Register(analysis.KindHTMLTable, func() parser.Parser { return tableParser{} })
}

type tableParser struct{}

func (tableParser) Kind() string { return analysis.KindHTMLTable }

func (tableParser) Options() []parser.OptionDoc {
	return []parser.OptionDoc{
		{Name: "tableSelector", Description: "CSS selector for the table to analyze; the first match wins", Default: "table"},
		{Name: "hasHeader", Description: "first row (or the th row) names the columns", Default: "true"},
		{Name: "sampleRows", Description: "non-blank values sampled per column for type inference", Default: "100"},
	}
}

func (p tableParser) Parse(content, schemaName string, opts config.Options) (*structure.Node, error) {
	selector := opts.String("tableSelector", "table")
	hasHeader, err := opts.Bool("hasHeader", true)
	if err != nil {
		return nil, invalidOption(err)
	}
	sampleRows, err := opts.Int("sampleRows", parser.DefaultSampleRows)
	if err != nil {
		return nil, invalidOption(err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, analysis.WrapError(analysis.ParseError, analysis.KindHTMLTable, err, "parse html")
	}

	table := doc.Find(selector).First()
	if table.Length() == 0 {
		return nil, analysis.NewError(analysis.EmptyInput, analysis.KindHTMLTable, "no table matches selector %q", selector)
	}

	var columns []string
	var rows [][]string

	table.Find("tr").Each(func(i int, tr *goquery.Selection) {
		// A th row is the header whenever one exists; with hasHeader the
		// first row serves as header even if it uses td cells.
		if columns == nil && hasHeader {
			if cells := cellTexts(tr, "th"); len(cells) > 0 {
				columns = cells
				return
			}
			columns = cellTexts(tr, "td")
			return
		}
		if cells := cellTexts(tr, "td"); len(cells) > 0 {
			rows = append(rows, cells)
		}
	})

	if len(rows) == 0 {
		return nil, analysis.NewError(analysis.EmptyInput, analysis.KindHTMLTable, "table has no data rows")
	}
	if !hasHeader {
		columns = positionalColumns(widestRow(rows))
	}
	for i, c := range columns {
		if c == "" {
			columns[i] = fmt.Sprintf("column%d", i+1)
		}
	}

	return parser.Collect(schemaName, columns, rows, sampleRows), nil
}

func cellTexts(tr *goquery.Selection, tag string) []string {
	var out []string
	tr.Find(tag).Each(func(i int, cell *goquery.Selection) {
		out = append(out, strings.TrimSpace(cell.Text()))
	})
	return out
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

func invalidOption(err error) error {
	return analysis.WrapError(analysis.InvalidOption, analysis.KindHTMLTable, err, "invalid option")
}
