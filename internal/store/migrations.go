package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Templates table - catalog of template files on disk
		`CREATE TABLE IF NOT EXISTS templates (
			id TEXT PRIMARY KEY,
			label TEXT NOT NULL,
			file_name TEXT NOT NULL UNIQUE,
			points INTEGER NOT NULL DEFAULT 0,
			path TEXT NOT NULL DEFAULT '[]',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Casts table - journal of emitted spell decisions
		`CREATE TABLE IF NOT EXISTS casts (
			id TEXT PRIMARY KEY,
			spell TEXT NOT NULL,
			policy TEXT NOT NULL,
			gesture_label TEXT,
			gesture_source TEXT,
			gesture_confidence REAL,
			voice_label TEXT,
			voice_confidence REAL,
			frame_ms INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Settings table - stores application settings as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		// Indexes for better query performance
		`CREATE INDEX IF NOT EXISTS idx_templates_label ON templates(label)`,
		`CREATE INDEX IF NOT EXISTS idx_casts_created_at ON casts(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_casts_spell ON casts(spell)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
