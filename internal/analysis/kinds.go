// Package analysis defines the request/result model and the tagged error
// type shared by parsers, generators and the orchestrator. It is a leaf
// package so that both sides of the parser registry can import it without
// cycles.
package analysis

import (
	"path/filepath"
	"strings"
)

// Input kinds understood by the parser registry. The strings double as
// registry keys and as the sourceFileType echoed in results.
const (
	KindCSV            = "csv"
	KindJSON           = "json"
	KindFixedLength    = "fixed_length"
	KindVariableLength = "variable_length"
	KindHTMLTable      = "html_table"
)

// Generation modes accepted by Request.Mode.
const (
	ModeStandard  = "standard"
	ModeSegmented = "segmented"
	ModeDedup     = "dedup"
)

// NormalizeKind canonicalizes a user-supplied kind string for registry
// lookup. Lookup itself decides whether the kind is registered.
func NormalizeKind(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeMode canonicalizes a generation mode, defaulting blanks to
// ModeStandard. Unknown modes are returned as-is so the dispatch site can
// report them.
func NormalizeMode(s string) string {
	m := strings.ToLower(strings.TrimSpace(s))
	if m == "" {
		return ModeStandard
	}
	return m
}

var extensionKinds = map[string]string{
	".csv":   KindCSV,
	".tsv":   KindCSV,
	".json":  KindJSON,
	".txt":   KindVariableLength,
	".dat":   KindVariableLength,
	".fix":   KindFixedLength,
	".fixed": KindFixedLength,
	".html":  KindHTMLTable,
	".htm":   KindHTMLTable,
}

// KindFromExtension guesses the input kind from a file name. The second
// return reports whether the extension is known; callers should fall back
// to an explicit kind flag when it is not.
func KindFromExtension(path string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	k, ok := extensionKinds[ext]
	return k, ok
}
