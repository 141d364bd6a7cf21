// Package all registers every input parser with the parser registry.
// Binaries blank-import it so kind selection stays config-driven.
package all

import (
	_ "flatschema/internal/parser/delimited"
	_ "flatschema/internal/parser/fixedlen"
	_ "flatschema/internal/parser/htmltable"
	_ "flatschema/internal/parser/jsondoc"
	_ "flatschema/internal/parser/varlen"
)
