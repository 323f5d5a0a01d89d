package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// History table - durable log of published predictions
		`CREATE TABLE IF NOT EXISTS history (
			id TEXT PRIMARY KEY,
			text TEXT NOT NULL,
			confidence REAL NOT NULL,
			processing_time_ms INTEGER NOT NULL DEFAULT 0,
			captured_at DATETIME NOT NULL
		)`,

		// Settings table - application settings as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		// Index for newest-first history queries
		`CREATE INDEX IF NOT EXISTS idx_history_captured_at ON history(captured_at DESC)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
