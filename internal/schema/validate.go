package schema

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"flatschema/internal/analysis"
)

// printer renders jsonschema error kinds as English text.
var printer = message.NewPrinter(language.English)

// ValidateDocument checks a generated document before it leaves the
// analyzer: the structural invariants every generator must honor, then a
// full draft-07 compile so a document that could not validate anything
// never reaches a caller.
func ValidateDocument(doc map[string]any) error {
	if doc == nil {
		return analysis.NewError(analysis.ValidationError, "", "schema document is nil")
	}
	if _, ok := doc["$schema"]; !ok {
		return analysis.NewError(analysis.ValidationError, "", "schema document has no $schema")
	}
	_, hasType := doc["type"]
	_, hasProperties := doc["properties"]
	if !hasType && !hasProperties {
		return analysis.NewError(analysis.ValidationError, "", "schema document has neither type nor properties")
	}
	if _, err := Compile(doc); err != nil {
		return err
	}
	return nil
}

// Compile turns a document into a validator usable against instance
// data. The document is round-tripped through encoding/json first so
// the compiler sees plain decoded values.
func Compile(doc map[string]any) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, analysis.WrapError(analysis.SerializationError, "", err, "marshal schema for compile")
	}
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, analysis.WrapError(analysis.SerializationError, "", err, "decode schema for compile")
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", value); err != nil {
		return nil, analysis.WrapError(analysis.ValidationError, "", err, "add schema resource")
	}
	compiled, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, analysis.WrapError(analysis.ValidationError, "", err, "compile schema")
	}
	return compiled, nil
}

// ValidationMessages flattens a jsonschema validation error into
// per-path messages, one line per leaf failure.
func ValidationMessages(err error) []string {
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return []string{err.Error()}
	}
	var out []string
	collectMessages(ve, &out)
	if len(out) == 0 {
		out = append(out, err.Error())
	}
	return out
}

func collectMessages(err *jsonschema.ValidationError, out *[]string) {
	if err.ErrorKind != nil && len(err.Causes) == 0 {
		msg := err.ErrorKind.LocalizedString(printer)
		if len(err.InstanceLocation) > 0 {
			msg = "/" + strings.Join(err.InstanceLocation, "/") + ": " + msg
		}
		*out = append(*out, msg)
	}
	for _, cause := range err.Causes {
		collectMessages(cause, out)
	}
}
