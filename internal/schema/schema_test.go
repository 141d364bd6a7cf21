package schema

import (
	"reflect"
	"strings"
	"testing"

	"flatschema/internal/analysis"
	"flatschema/internal/infer"
	"flatschema/internal/structure"
)

func flatTree(name string, fields ...*structure.Node) *structure.Node {
	return structure.Array(name, structure.Object("item", fields...))
}

func req(name, mode string) analysis.Request {
	r := analysis.NewRequest(analysis.KindCSV, "unused", name)
	r.Mode = mode
	return r
}

func TestStandard(t *testing.T) {
	t.Parallel()

	tree := flatTree("orders",
		structure.Scalar("id", infer.TypeInteger),
		structure.Scalar("total", infer.TypeNumber),
		structure.Scalar("note", infer.TypeNull),
	)
	doc, err := Standard(tree, req("orders", analysis.ModeStandard))
	if err != nil {
		t.Fatalf("Standard: %v", err)
	}

	want := map[string]any{
		"$schema": DraftVersion,
		"title":   "orders",
		"type":    "array",
		"items": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"id":    map[string]any{"type": "integer"},
				"total": map[string]any{"type": "number"},
				"note":  map[string]any{"type": "string"},
			},
		},
	}
	if !reflect.DeepEqual(doc, want) {
		t.Errorf("Standard doc = %#v, want %#v", doc, want)
	}
}

func TestStandardNested(t *testing.T) {
	t.Parallel()

	tree := structure.Object("catalog",
		structure.Scalar("version", infer.TypeInteger),
		structure.Array("items",
			structure.Object("item",
				structure.Scalar("sku", infer.TypeString),
			),
		),
	)
	doc, err := Standard(tree, req("catalog", analysis.ModeStandard))
	if err != nil {
		t.Fatalf("Standard: %v", err)
	}

	props, ok := doc["properties"].(map[string]any)
	if !ok {
		t.Fatalf("root properties missing: %#v", doc)
	}
	items, ok := props["items"].(map[string]any)
	if !ok || items["type"] != "array" {
		t.Fatalf("items fragment = %#v, want array", props["items"])
	}
	inner := items["items"].(map[string]any)
	if inner["type"] != "object" {
		t.Errorf("items.items type = %v, want object", inner["type"])
	}
}

func TestStandardEmptyArray(t *testing.T) {
	t.Parallel()

	doc, err := Standard(structure.Array("rows"), req("rows", analysis.ModeStandard))
	if err != nil {
		t.Fatalf("Standard: %v", err)
	}
	if _, ok := doc["items"]; ok {
		t.Errorf("empty array should emit no items key: %#v", doc)
	}
	if doc["type"] != "array" {
		t.Errorf("type = %v, want array", doc["type"])
	}
}

func TestSegmented(t *testing.T) {
	t.Parallel()

	tree := flatTree("CSV_ACCOUNTING",
		structure.Scalar("BATCH.NUMBER", infer.TypeInteger),
		structure.Scalar("BATCH.DATE", infer.TypeString),
		structure.Scalar("EXPENSE.AMOUNT", infer.TypeNumber),
		structure.Scalar("RECORD_ID", infer.TypeInteger),
		structure.Scalar("BATCH.EMPTY", infer.TypeNull),
	)
	doc, err := Segmented(tree, req("CSV_ACCOUNTING", analysis.ModeSegmented))
	if err != nil {
		t.Fatalf("Segmented: %v", err)
	}

	if doc["$id"] != "urn:csv:csv_accounting:beanio-mapping" {
		t.Errorf("$id = %v", doc["$id"])
	}
	if doc["title"] != "CSV_ACCOUNTING" {
		t.Errorf("title = %v", doc["title"])
	}

	beanio := doc["x-beanio-config"].(map[string]any)
	if beanio["format"] != "csv" || beanio["delimiter"] != "," || beanio["quoteChar"] != `"` {
		t.Errorf("x-beanio-config = %#v", beanio)
	}
	if beanio["recordName"] != "csvAccounting" {
		t.Errorf("recordName = %v, want csvAccounting", beanio["recordName"])
	}
	if beanio["strict"] != true {
		t.Errorf("strict = %v, want true", beanio["strict"])
	}

	meta := doc["x-metadata"].(map[string]any)
	if meta["model"] != "segmented-flat-file" || meta["sourceType"] != "csv" {
		t.Errorf("x-metadata = %#v", meta)
	}

	props := doc["properties"].(map[string]any)
	if len(props) != 3 {
		t.Fatalf("segment count = %d, want 3: %#v", len(props), props)
	}

	batch := props["BATCH"].(map[string]any)
	if batch["x-segment"] != true || batch["description"] != "BATCH segment" {
		t.Errorf("BATCH segment = %#v", batch)
	}
	batchProps := batch["properties"].(map[string]any)
	number := batchProps["NUMBER"].(map[string]any)
	if number["type"] != "integer" || number["x-csv-column"] != "BATCH.NUMBER" {
		t.Errorf("BATCH.NUMBER field = %#v", number)
	}
	if number["description"] != "Column: BATCH.NUMBER" {
		t.Errorf("description = %v", number["description"])
	}

	general := props["GENERAL"].(map[string]any)
	generalProps := general["properties"].(map[string]any)
	if _, ok := generalProps["RECORD_ID"]; !ok {
		t.Errorf("RECORD_ID not in GENERAL: %#v", generalProps)
	}

	// The null-typed column is present, keeps its inferred type and is
	// never required.
	batchRequired := batch["required"].([]string)
	for _, name := range batchRequired {
		if name == "EMPTY" {
			t.Errorf("null column listed required: %v", batchRequired)
		}
	}
	empty := batchProps["EMPTY"].(map[string]any)
	if empty["type"] != "null" {
		t.Errorf("null column type = %v, want null", empty["type"])
	}
}

func TestSegmentedPositions(t *testing.T) {
	t.Parallel()

	// Interleaved segments: positions follow grouped segment order, not
	// the original column order.
	tree := flatTree("mixed",
		structure.Scalar("A.one", infer.TypeString),
		structure.Scalar("B.one", infer.TypeString),
		structure.Scalar("A.two", infer.TypeString),
		structure.Scalar("B.two", infer.TypeString),
	)
	doc, err := Segmented(tree, req("mixed", analysis.ModeSegmented))
	if err != nil {
		t.Fatalf("Segmented: %v", err)
	}

	props := doc["properties"].(map[string]any)
	position := func(seg, field string) int {
		s := props[seg].(map[string]any)["properties"].(map[string]any)
		return s[field].(map[string]any)["x-position"].(int)
	}

	got := map[string]int{
		"A.one": position("A", "one"),
		"A.two": position("A", "two"),
		"B.one": position("B", "one"),
		"B.two": position("B", "two"),
	}
	want := map[string]int{"A.one": 0, "A.two": 1, "B.one": 2, "B.two": 3}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("positions = %v, want %v", got, want)
	}
}

func TestSegmentedOptions(t *testing.T) {
	t.Parallel()

	tree := flatTree("pipes", structure.Scalar("A.x", infer.TypeString))
	r := req("pipes", analysis.ModeSegmented)
	r.Kind = analysis.KindVariableLength
	r.Options = map[string]string{"delimiter": "|", "quoteChar": "'"}

	doc, err := Segmented(tree, r)
	if err != nil {
		t.Fatalf("Segmented: %v", err)
	}
	beanio := doc["x-beanio-config"].(map[string]any)
	if beanio["format"] != "variable_length" || beanio["delimiter"] != "|" || beanio["quoteChar"] != "'" {
		t.Errorf("x-beanio-config = %#v", beanio)
	}
	if doc["$id"] != "urn:variable_length:pipes:beanio-mapping" {
		t.Errorf("$id = %v", doc["$id"])
	}
}

func TestSegmentedAllNull(t *testing.T) {
	t.Parallel()

	tree := flatTree("sparse", structure.Scalar("A.x", infer.TypeNull))
	doc, err := Segmented(tree, req("sparse", analysis.ModeSegmented))
	if err != nil {
		t.Fatalf("Segmented: %v", err)
	}
	if _, ok := doc["required"]; ok {
		t.Errorf("root required should be absent when no segment has values: %#v", doc["required"])
	}
	seg := doc["properties"].(map[string]any)["A"].(map[string]any)
	if _, ok := seg["required"]; ok {
		t.Errorf("segment required should be absent: %#v", seg)
	}
	field := seg["properties"].(map[string]any)["x"].(map[string]any)
	if field["type"] != "null" {
		t.Errorf("never-valued column type = %v, want null", field["type"])
	}
}

func TestDedupFlat(t *testing.T) {
	t.Parallel()

	tree := flatTree("LEDGER",
		structure.Scalar("ACCOUNTS_BATCH.NUMBER", infer.TypeInteger),
		structure.Scalar("EXPENSE.TYPE_TOWN/CITY", infer.TypeString),
		structure.Scalar("AMOUNT", infer.TypeNumber),
		structure.Scalar("NOTES", infer.TypeNull),
	)
	doc, err := DedupFlat(tree, req("LEDGER", analysis.ModeDedup))
	if err != nil {
		t.Fatalf("DedupFlat: %v", err)
	}

	props := doc["properties"].(map[string]any)
	header := props["header"].(map[string]any)
	if header["$ref"] != "#/$defs/Header" {
		t.Errorf("header ref = %v", header["$ref"])
	}
	records := props["records"].(map[string]any)
	if records["type"] != "array" {
		t.Errorf("records type = %v", records["type"])
	}
	if items := records["items"].(map[string]any); items["$ref"] != "#/$defs/Record" {
		t.Errorf("records items ref = %v", items["$ref"])
	}

	defs := doc["$defs"].(map[string]any)
	headerDef := defs["Header"].(map[string]any)
	recordDef := defs["Record"].(map[string]any)
	if headerDef["title"] != "Header" || recordDef["title"] != "Record" {
		t.Errorf("def titles = %v / %v", headerDef["title"], recordDef["title"])
	}

	flat := headerDef["properties"].(map[string]any)
	if !reflect.DeepEqual(flat, recordDef["properties"]) {
		t.Errorf("Header and Record properties differ")
	}

	number := flat["accountsBatchNumber"].(map[string]any)
	if number["type"] != "integer" || number["description"] != "CSV column: ACCOUNTS_BATCH.NUMBER" {
		t.Errorf("accountsBatchNumber = %#v", number)
	}
	if _, ok := flat["expenseTypeTownCity"]; !ok {
		t.Errorf("slash column not normalized: %v", keys(flat))
	}
	if notes := flat["notes"].(map[string]any); notes["type"] != "string" {
		t.Errorf("null column type = %v, want string", notes["type"])
	}
}

func TestDedupFlatCollisions(t *testing.T) {
	t.Parallel()

	tree := flatTree("dup",
		structure.Scalar("TOTAL.AMOUNT", infer.TypeNumber),
		structure.Scalar("TOTAL-AMOUNT", infer.TypeInteger),
		structure.Scalar("TOTAL AMOUNT", infer.TypeString),
	)
	doc, err := DedupFlat(tree, req("dup", analysis.ModeDedup))
	if err != nil {
		t.Fatalf("DedupFlat: %v", err)
	}
	flat := doc["$defs"].(map[string]any)["Header"].(map[string]any)["properties"].(map[string]any)

	for _, name := range []string{"totalAmount", "totalAmount2", "totalAmount3"} {
		if _, ok := flat[name]; !ok {
			t.Errorf("missing collision name %q: %v", name, keys(flat))
		}
	}
	if flat["totalAmount"].(map[string]any)["description"] != "CSV column: TOTAL.AMOUNT" {
		t.Errorf("first collision should keep the first column: %#v", flat["totalAmount"])
	}
}

func TestGenerateDispatch(t *testing.T) {
	t.Parallel()

	tree := flatTree("t", structure.Scalar("a", infer.TypeString))

	for _, mode := range []string{analysis.ModeStandard, analysis.ModeSegmented, analysis.ModeDedup, ""} {
		if _, err := Generate(tree, req("t", mode)); err != nil {
			t.Errorf("Generate(mode=%q): %v", mode, err)
		}
	}

	_, err := Generate(tree, req("t", "sideways"))
	if !analysis.IsCode(err, analysis.GenerationError) {
		t.Errorf("unknown mode error = %v, want GENERATION_ERROR", err)
	}
}

func TestGenerateErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		tree *structure.Node
		mode string
		want string
	}{
		{"nil tree segmented", nil, analysis.ModeSegmented, "root element cannot be nil"},
		{"nil tree dedup", nil, analysis.ModeDedup, "root element cannot be nil"},
		{"nil tree standard", nil, analysis.ModeStandard, "root element cannot be nil"},
		{"empty tree", structure.Array("x"), analysis.ModeSegmented, "no structure found in input"},
		{"scalar item", structure.Array("x", structure.Scalar("v", infer.TypeString)), analysis.ModeDedup, "expected an object row structure"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Generate(tt.tree, req("x", tt.mode))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want containing %q", err, tt.want)
			}
			if !analysis.IsCode(err, analysis.GenerationError) {
				t.Errorf("code = %v, want GENERATION_ERROR", analysis.CodeOf(err))
			}
		})
	}
}

func TestRenderAndFingerprint(t *testing.T) {
	t.Parallel()

	tree := flatTree("fp",
		structure.Scalar("b", infer.TypeString),
		structure.Scalar("a", infer.TypeInteger),
	)
	doc, err := Generate(tree, req("fp", analysis.ModeStandard))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	out, err := Render(doc)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.HasPrefix(out, "{\n  ") {
		t.Errorf("Render not indented: %q", out[:20])
	}
	if !strings.Contains(out, `"$schema"`) {
		t.Errorf("Render missing $schema: %s", out)
	}

	fp1, err := Fingerprint(doc)
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	doc2, _ := Generate(tree, req("fp", analysis.ModeStandard))
	fp2, _ := Fingerprint(doc2)
	if fp1 != fp2 {
		t.Errorf("fingerprints differ across runs: %s vs %s", fp1, fp2)
	}
	if len(fp1) != 64 {
		t.Errorf("fingerprint length = %d, want 64 hex chars", len(fp1))
	}
}

func TestValidateDocument(t *testing.T) {
	t.Parallel()

	tree := flatTree("v",
		structure.Scalar("SEG.a", infer.TypeInteger),
		structure.Scalar("b", infer.TypeString),
	)
	for _, mode := range []string{analysis.ModeStandard, analysis.ModeSegmented, analysis.ModeDedup} {
		doc, err := Generate(tree, req("v", mode))
		if err != nil {
			t.Fatalf("Generate(%s): %v", mode, err)
		}
		if err := ValidateDocument(doc); err != nil {
			t.Errorf("ValidateDocument(%s): %v", mode, err)
		}
	}

	tests := []struct {
		name string
		doc  map[string]any
	}{
		{"nil doc", nil},
		{"missing $schema", map[string]any{"type": "object"}},
		{"no type or properties", map[string]any{"$schema": DraftVersion}},
		{"uncompilable", map[string]any{"$schema": DraftVersion, "type": "object", "properties": map[string]any{"x": map[string]any{"type": 12}}}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if err := ValidateDocument(tt.doc); err == nil {
				t.Errorf("ValidateDocument accepted %#v", tt.doc)
			}
		})
	}
}

func TestCompileValidatesInstances(t *testing.T) {
	t.Parallel()

	tree := flatTree("inst",
		structure.Scalar("id", infer.TypeInteger),
		structure.Scalar("name", infer.TypeString),
	)
	doc, err := Generate(tree, req("inst", analysis.ModeStandard))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	compiled, err := Compile(doc)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	good := []any{map[string]any{"id": 1.0, "name": "a"}}
	if err := compiled.Validate(good); err != nil {
		t.Errorf("valid instance rejected: %v", err)
	}

	bad := []any{map[string]any{"id": "not a number"}}
	err = compiled.Validate(bad)
	if err == nil {
		t.Fatal("invalid instance accepted")
	}
	msgs := ValidationMessages(err)
	if len(msgs) == 0 {
		t.Errorf("no messages extracted from %v", err)
	}
}

func TestCamelCase(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"ACCOUNTS_BATCH_NUMBER", "accountsBatchNumber"},
		{"simple", "simple"},
		{"two words", "twoWords"},
		{"", ""},
		{"__", ""},
		{"a_b_c", "aBC"},
	}
	for _, tt := range tests {
		if got := camelCase(tt.in); got != tt.want {
			t.Errorf("camelCase(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
