package analysis

// Metadata summarizes what a finished analysis looked at.
type Metadata struct {
	SchemaVersion   string `json:"schemaVersion"`
	RootElement     string `json:"rootElement"`
	SourceKind      string `json:"sourceKind"`
	GeneratedAt     string `json:"generatedAt"`
	TotalElements   int    `json:"totalElements"`
	TotalAttributes int    `json:"totalAttributes"`
	ArrayElements   int    `json:"arrayElements"`
}

// Result is the outcome of one analysis run. Schema holds the generated
// document as a tree of maps, SchemaJSON its canonical serialization.
type Result struct {
	AnalysisID         string         `json:"analysisId"`
	SchemaName         string         `json:"schemaName"`
	SourceKind         string         `json:"sourceKind"`
	Mode               string         `json:"mode"`
	Schema             map[string]any `json:"schema"`
	SchemaJSON         string         `json:"schemaJson"`
	Fingerprint        string         `json:"fingerprint"`
	Metadata           Metadata       `json:"metadata"`
	DetectedArrayPaths []string       `json:"detectedArrayPaths,omitempty"`
	ElementsAnalyzed   int            `json:"elementsAnalyzed"`
	AnalysisTimeMs     int64          `json:"analysisTimeMs"`
	Success            bool           `json:"success"`
}
