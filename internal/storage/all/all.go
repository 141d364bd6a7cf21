// Package all registers every catalog backend with the storage
// registry, plus the SQL Server driver the mssql backend expects the
// application to provide. Binaries blank-import it so backend selection
// stays config-driven.
package all

import (
	_ "github.com/microsoft/go-mssqldb"

	_ "flatschema/internal/storage/mssql"
	_ "flatschema/internal/storage/postgres"
	_ "flatschema/internal/storage/sqlite"
)
