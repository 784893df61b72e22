package catalog

import (
	"context"

	"sortd/internal/services"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS file_categorization (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    dir_path TEXT NOT NULL,
    file_name TEXT NOT NULL,
    file_type TEXT NOT NULL CHECK (file_type IN ('F', 'D')),
    category TEXT NOT NULL DEFAULT '',
    subcategory TEXT NOT NULL DEFAULT '',
    taxonomy_id INTEGER REFERENCES category_taxonomy(id),
    used_hints INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    UNIQUE (dir_path, file_name, file_type)
);

CREATE INDEX IF NOT EXISTS idx_file_categorization_dir
    ON file_categorization (dir_path);

CREATE INDEX IF NOT EXISTS idx_file_categorization_updated
    ON file_categorization (updated_at);

CREATE TABLE IF NOT EXISTS category_taxonomy (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    category TEXT NOT NULL,
    subcategory TEXT NOT NULL,
    normalized_category TEXT NOT NULL,
    normalized_subcategory TEXT NOT NULL,
    frequency INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL,
    UNIQUE (normalized_category, normalized_subcategory)
);

CREATE TABLE IF NOT EXISTS category_alias (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    taxonomy_id INTEGER NOT NULL REFERENCES category_taxonomy(id) ON DELETE CASCADE,
    alias_category TEXT NOT NULL,
    alias_subcategory TEXT NOT NULL,
    created_at TEXT NOT NULL,
    UNIQUE (alias_category, alias_subcategory)
);

CREATE INDEX IF NOT EXISTS idx_category_alias_taxonomy
    ON category_alias (taxonomy_id);
`

func (s *Store) initSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return services.Wrap(services.ErrDatabase, "catalog", "init", "create schema", err)
	}
	return nil
}
