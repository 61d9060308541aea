package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Reports table - one row per completed analysis session. The full
		// report snapshot is stored as a JSON payload; the scalar columns
		// exist for listing and filtering without decoding it.
		`CREATE TABLE IF NOT EXISTS reports (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			client_id TEXT NOT NULL DEFAULT '',
			selected_duration INTEGER NOT NULL,
			actual_duration REAL NOT NULL,
			frame_count INTEGER NOT NULL,
			payload TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_reports_session_id ON reports(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_reports_created_at ON reports(created_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
