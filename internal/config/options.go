// Package config holds the two configuration surfaces of the analyzer:
// the per-request parser option bag (Options) and the CLI application
// config loaded from YAML plus environment overrides.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Options is the string-keyed option bag carried by an analysis request.
// Parsers read it through the typed getters; unknown keys are ignored so
// callers can pass one bag to different parser kinds.
//
// Getters that parse return an error when the key is present but the
// value does not parse. A missing key is never an error, the default is
// returned instead.
type Options map[string]string

// String returns the raw value for key, or def when the key is absent.
// An explicitly empty value counts as present.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		return v
	}
	return def
}

// Int parses the value for key as a base-10 integer.
func (o Options) Int(key string, def int) (int, error) {
	v, ok := o[key]
	if !ok || strings.TrimSpace(v) == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("option %s=%q: not a number", key, v)
	}
	return n, nil
}

// Bool parses the value for key loosely: true/false, yes/no, on/off and
// 1/0 are accepted, case-insensitively.
func (o Options) Bool(key string, def bool) (bool, error) {
	v, ok := o[key]
	if !ok || strings.TrimSpace(v) == "" {
		return def, nil
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "yes", "on", "1":
		return true, nil
	case "false", "no", "off", "0":
		return false, nil
	}
	return false, fmt.Errorf("option %s=%q: not a boolean", key, v)
}

// Rune returns the value for key as a single rune (delimiters, quote
// characters). Multi-rune values are an error.
func (o Options) Rune(key string, def rune) (rune, error) {
	v, ok := o[key]
	if !ok || v == "" {
		return def, nil
	}
	r, size := utf8.DecodeRuneInString(v)
	if r == utf8.RuneError || size != len(v) {
		return 0, fmt.Errorf("option %s=%q: must be a single character", key, v)
	}
	return r, nil
}

// Clone returns a detached copy so parsers can normalize options without
// mutating the caller's request.
func (o Options) Clone() Options {
	if o == nil {
		return Options{}
	}
	out := make(Options, len(o))
	for k, v := range o {
		out[k] = v
	}
	return out
}
