// Package parser defines the input-parser contract and the registry that
// maps input kinds to parser implementations. Concrete parsers live in
// subpackages and self-register from init(); binaries blank-import
// parser/all to get the full set.
package parser

import (
	"fmt"
	"sort"
	"sync"

	"flatschema/internal/analysis"
	"flatschema/internal/config"
	"flatschema/internal/structure"
)

// OptionDoc documents one option a parser understands. The slice returned
// by Parser.Options is ordered for display.
type OptionDoc struct {
	Name        string
	Description string
	Default     string
}

// Parser turns one in-memory input of its kind into a structural tree
// rooted at schemaName. Implementations are stateless; one instance may
// serve concurrent calls.
type Parser interface {
	Kind() string
	Parse(content, schemaName string, opts config.Options) (*structure.Node, error)
	Options() []OptionDoc
}

type factory func() Parser

var (
	mu        sync.RWMutex
	factories = map[string]factory{}
)

// Register registers a parser factory under a kind. Call from an init()
// function in the parser's package.
//
// Panics:
//   - If kind is empty.
//   - If f is nil.
//   - If kind is already registered. Duplicate registration would make
//     kind selection ambiguous, so it fails fast.
func Register(kind string, f factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("parser: Register called with empty kind")
	}
	if f == nil {
		panic("parser: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("parser: factory already registered for kind=%q", kind))
	}

	factories[kind] = f
}

// New constructs the parser for a kind. Unknown kinds are an
// UnsupportedInput error naming the kind.
func New(kind string) (Parser, error) {
	k := analysis.NormalizeKind(kind)

	mu.RLock()
	f := factories[k]
	mu.RUnlock()

	if f == nil {
		return nil, analysis.NewError(analysis.UnsupportedInput, k, "no parser registered for kind %q", kind)
	}
	return f(), nil
}

// Kinds returns the registered kinds, sorted.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()

	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
