package sqlstore

import "fmt"

// The schema is created with CREATE ... IF NOT EXISTS, so migrate is safe to
// run on every start. The two dialects differ only in key and timestamp types.
var schemas = map[dialect][]string{
	dialectSQLite: {
		`CREATE TABLE IF NOT EXISTS users (
			id                     INTEGER PRIMARY KEY AUTOINCREMENT,
			sub                    TEXT NOT NULL UNIQUE,
			email                  TEXT NOT NULL DEFAULT '',
			given_name             TEXT NOT NULL DEFAULT '',
			family_name            TEXT NOT NULL DEFAULT '',
			picture                TEXT NOT NULL DEFAULT '',
			locale                 TEXT NOT NULL DEFAULT '',
			board_background_type  TEXT NOT NULL DEFAULT 'COLOR',
			board_background_value TEXT NOT NULL DEFAULT '',
			created_at             DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at             DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS sections (
			id      INTEGER PRIMARY KEY AUTOINCREMENT,
			name    TEXT NOT NULL DEFAULT '',
			user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			rank    INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sections_user_id ON sections(user_id)`,
		`CREATE TABLE IF NOT EXISTS links (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			title         TEXT NOT NULL,
			url           TEXT,
			favicon       TEXT,
			section_id    INTEGER NOT NULL REFERENCES sections(id) ON DELETE CASCADE,
			rank          INTEGER NOT NULL DEFAULT 0,
			type          TEXT NOT NULL DEFAULT 'SINGLE' CHECK (type IN ('SINGLE', 'GROUP')),
			link_group_id INTEGER REFERENCES links(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_links_section_id ON links(section_id)`,
		`CREATE INDEX IF NOT EXISTS idx_links_link_group_id ON links(link_group_id)`,
	},
	dialectPostgres: {
		`CREATE TABLE IF NOT EXISTS users (
			id                     BIGSERIAL PRIMARY KEY,
			sub                    TEXT NOT NULL UNIQUE,
			email                  TEXT NOT NULL DEFAULT '',
			given_name             TEXT NOT NULL DEFAULT '',
			family_name            TEXT NOT NULL DEFAULT '',
			picture                TEXT NOT NULL DEFAULT '',
			locale                 TEXT NOT NULL DEFAULT '',
			board_background_type  TEXT NOT NULL DEFAULT 'COLOR',
			board_background_value TEXT NOT NULL DEFAULT '',
			created_at             TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at             TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS sections (
			id      BIGSERIAL PRIMARY KEY,
			name    TEXT NOT NULL DEFAULT '',
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			rank    INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sections_user_id ON sections(user_id)`,
		`CREATE TABLE IF NOT EXISTS links (
			id            BIGSERIAL PRIMARY KEY,
			title         TEXT NOT NULL,
			url           TEXT,
			favicon       TEXT,
			section_id    BIGINT NOT NULL REFERENCES sections(id) ON DELETE CASCADE,
			rank          INTEGER NOT NULL DEFAULT 0,
			type          TEXT NOT NULL DEFAULT 'SINGLE' CHECK (type IN ('SINGLE', 'GROUP')),
			link_group_id BIGINT REFERENCES links(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_links_section_id ON links(section_id)`,
		`CREATE INDEX IF NOT EXISTS idx_links_link_group_id ON links(link_group_id)`,
	},
}

func (db *DB) migrate() error {
	if db.dialect == dialectSQLite {
		if _, err := db.conn.Exec(`PRAGMA foreign_keys=ON`); err != nil {
			return fmt.Errorf("enabling foreign keys: %w", err)
		}
	}

	for i, stmt := range schemas[db.dialect] {
		if _, err := db.conn.Exec(stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i, err)
		}
	}
	return nil
}
