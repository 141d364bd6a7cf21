package postgres

import "flatschema/internal/storage"

func init() {
	// registers the catalog backend factory
	storage.Register("postgres", New)
}
