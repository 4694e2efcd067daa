package storage

import (
	"database/sql"
	"fmt"
	"log"
)

// Migration represents a database schema migration
type Migration struct {
	Version int
	Name    string
	Up      func(*sql.Tx) error
}

// allMigrations defines all migrations in order
var allMigrations = []Migration{
	{
		Version: 1,
		Name:    "residents_and_houses",
		Up:      migration001ResidentsAndHouses,
	},
	{
		Version: 2,
		Name:    "payment_aliases",
		Up:      migration002PaymentAliases,
	},
	{
		Version: 3,
		Name:    "statement_imports",
		Up:      migration003StatementImports,
	},
	{
		Version: 4,
		Name:    "payment_records",
		Up:      migration004PaymentRecords,
	},
	{
		Version: 5,
		Name:    "import_indexes",
		Up:      migration005ImportIndexes,
	},
}

// runMigrations executes all pending migrations
func (s *Storage) runMigrations() error {
	if err := s.ensureMigrationsTable(); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := s.getAppliedMigrations()
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	for _, migration := range allMigrations {
		if applied[migration.Version] {
			continue
		}

		log.Printf("Running migration %d: %s", migration.Version, migration.Name)

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %d: %w", migration.Version, err)
		}

		if err := migration.Up(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d (%s) failed: %w", migration.Version, migration.Name, err)
		}

		_, err = tx.Exec(`
			INSERT INTO schema_migrations (version, name) VALUES (?, ?)
		`, migration.Version, migration.Name)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}

// ensureMigrationsTable creates the schema_migrations table
func (s *Storage) ensureMigrationsTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	_, err := s.db.Exec(query)
	return err
}

// getAppliedMigrations returns a set of applied migration versions
func (s *Storage) getAppliedMigrations() (map[int]bool, error) {
	applied := make(map[int]bool)

	rows, err := s.db.Query(`SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}

	return applied, rows.Err()
}

func migration001ResidentsAndHouses(tx *sql.Tx) error {
	queries := []string{
		`CREATE TABLE residents (
			id TEXT PRIMARY KEY,
			first_name TEXT NOT NULL,
			last_name TEXT NOT NULL,
			code TEXT NOT NULL UNIQUE,
			email TEXT NOT NULL DEFAULT '',
			active INTEGER NOT NULL DEFAULT 1,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE resident_phones (
			resident_id TEXT NOT NULL REFERENCES residents(id) ON DELETE CASCADE,
			phone TEXT NOT NULL,
			PRIMARY KEY (resident_id, phone)
		)`,
		`CREATE TABLE houses (
			id TEXT PRIMARY KEY,
			house_number TEXT NOT NULL,
			street_name TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE resident_houses (
			resident_id TEXT NOT NULL REFERENCES residents(id) ON DELETE CASCADE,
			house_id TEXT NOT NULL REFERENCES houses(id) ON DELETE CASCADE,
			PRIMARY KEY (resident_id, house_id)
		)`,
	}
	for _, q := range queries {
		if _, err := tx.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

func migration002PaymentAliases(tx *sql.Tx) error {
	_, err := tx.Exec(`
	CREATE TABLE payment_aliases (
		id TEXT PRIMARY KEY,
		resident_id TEXT NOT NULL REFERENCES residents(id) ON DELETE CASCADE,
		alias_name TEXT NOT NULL COLLATE NOCASE UNIQUE,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`)
	return err
}

func migration003StatementImports(tx *sql.Tx) error {
	queries := []string{
		`CREATE TABLE statement_imports (
			id TEXT PRIMARY KEY,
			file_name TEXT NOT NULL,
			file_hash TEXT NOT NULL,
			bank_format TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'pending',
			total_rows INTEGER NOT NULL DEFAULT 0,
			matched_rows INTEGER NOT NULL DEFAULT 0,
			unmatched_rows INTEGER NOT NULL DEFAULT 0,
			duplicate_rows INTEGER NOT NULL DEFAULT 0,
			created_rows INTEGER NOT NULL DEFAULT 0,
			skipped_rows INTEGER NOT NULL DEFAULT 0,
			error_rows INTEGER NOT NULL DEFAULT 0,
			total_credits TEXT NOT NULL DEFAULT '0',
			date_from TIMESTAMP,
			date_to TIMESTAMP,
			error_message TEXT NOT NULL DEFAULT '',
			submitted_by TEXT NOT NULL DEFAULT '',
			reviewed_by TEXT NOT NULL DEFAULT '',
			review_note TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			completed_at TIMESTAMP
		)`,
		`CREATE TABLE statement_rows (
			id TEXT PRIMARY KEY,
			import_id TEXT NOT NULL REFERENCES statement_imports(id) ON DELETE CASCADE,
			row_number INTEGER NOT NULL,
			transaction_date TIMESTAMP NOT NULL,
			description TEXT NOT NULL,
			amount TEXT NOT NULL,
			reference TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'pending',
			resident_id TEXT NOT NULL DEFAULT '',
			house_id TEXT NOT NULL DEFAULT '',
			match_confidence TEXT NOT NULL DEFAULT '',
			match_method TEXT NOT NULL DEFAULT '',
			matched_value TEXT NOT NULL DEFAULT '',
			match_score REAL NOT NULL DEFAULT 0,
			candidates_json TEXT NOT NULL DEFAULT '',
			error_message TEXT NOT NULL DEFAULT ''
		)`,
	}
	for _, q := range queries {
		if _, err := tx.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

func migration004PaymentRecords(tx *sql.Tx) error {
	_, err := tx.Exec(`
	CREATE TABLE payment_records (
		id TEXT PRIMARY KEY,
		resident_id TEXT NOT NULL REFERENCES residents(id),
		house_id TEXT NOT NULL DEFAULT '',
		import_id TEXT NOT NULL DEFAULT '',
		row_id TEXT NOT NULL DEFAULT '',
		amount TEXT NOT NULL,
		payment_date TIMESTAMP NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		reference TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`)
	return err
}

func migration005ImportIndexes(tx *sql.Tx) error {
	queries := []string{
		`CREATE INDEX idx_statement_rows_import ON statement_rows(import_id, status)`,
		`CREATE INDEX idx_statement_imports_hash ON statement_imports(file_hash)`,
		`CREATE INDEX idx_payment_records_resident ON payment_records(resident_id, payment_date)`,
		`CREATE INDEX idx_payment_records_reference ON payment_records(reference)`,
	}
	for _, q := range queries {
		if _, err := tx.Exec(q); err != nil {
			return err
		}
	}
	return nil
}
