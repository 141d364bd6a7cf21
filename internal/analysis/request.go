package analysis

import "strings"

// Request describes one analysis run: the main input, optional extra
// sample contents of the same kind, and how to generate the schema.
type Request struct {
	// Kind selects the registered parser (KindCSV and friends).
	Kind string
	// Content is the main input, already read into memory.
	Content string
	// SchemaName names the generated schema's root element.
	SchemaName string
	// SampleContents holds extra inputs of the same kind whose structures
	// are merged into the main structure before generation.
	SampleContents []string
	// Mode picks the generator: ModeStandard, ModeSegmented or ModeDedup.
	// Blank means standard.
	Mode string
	// DetectArrays controls whether array paths are reported in the result
	// metadata. Generation itself is unaffected.
	DetectArrays bool
	// Options carries parser-specific settings as strings (delimiter,
	// sampleRows, ...). Parsers document their options via Options().
	Options map[string]string
}

// NewRequest builds a request with the defaults a caller usually wants:
// standard mode and array detection on.
func NewRequest(kind, content, schemaName string) Request {
	return Request{
		Kind:         kind,
		Content:      content,
		SchemaName:   schemaName,
		Mode:         ModeStandard,
		DetectArrays: true,
	}
}

// Validate checks the request's required fields. The first violation is
// returned as a ValidationError naming the field.
func (r Request) Validate() error {
	if NormalizeKind(r.Kind) == "" {
		return NewError(ValidationError, "", "kind is required")
	}
	if r.Content == "" {
		return NewError(ValidationError, r.Kind, "content is required")
	}
	if strings.TrimSpace(r.SchemaName) == "" {
		return NewError(ValidationError, r.Kind, "schemaName must not be blank")
	}
	switch NormalizeMode(r.Mode) {
	case ModeStandard, ModeSegmented, ModeDedup:
	default:
		return NewError(ValidationError, r.Kind, "unknown mode %q", r.Mode)
	}
	return nil
}
