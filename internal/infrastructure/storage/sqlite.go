package storage

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Storage provides SQLite database access for estate records.
// It implements the Repository interface.
type Storage struct {
	db *sql.DB
}

// Compile-time check that Storage implements Repository
var _ Repository = (*Storage)(nil)

// NewStorage creates a new storage instance with SQLite database
func NewStorage(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable foreign key constraints (SQLite-specific)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &Storage{db: db}

	if err := s.runMigrations(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

// SaveResident inserts or updates a resident and its phone and house links
func (s *Storage) SaveResident(resident *Resident) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(`
		INSERT INTO residents (id, first_name, last_name, code, email, active)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			code = excluded.code,
			email = excluded.email,
			active = excluded.active
	`, resident.ID, resident.FirstName, resident.LastName, resident.Code, resident.Email, resident.Active)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM resident_phones WHERE resident_id = ?`, resident.ID); err != nil {
		return err
	}
	for _, phone := range resident.Phones {
		if _, err := tx.Exec(`INSERT INTO resident_phones (resident_id, phone) VALUES (?, ?)`, resident.ID, phone); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(`DELETE FROM resident_houses WHERE resident_id = ?`, resident.ID); err != nil {
		return err
	}
	for _, houseID := range resident.HouseIDs {
		if _, err := tx.Exec(`INSERT INTO resident_houses (resident_id, house_id) VALUES (?, ?)`, resident.ID, houseID); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetResident retrieves a resident by ID
func (s *Storage) GetResident(id string) (*Resident, error) {
	resident := &Resident{}
	err := s.db.QueryRow(`
		SELECT id, first_name, last_name, code, email, active, created_at
		FROM residents WHERE id = ?
	`, id).Scan(
		&resident.ID,
		&resident.FirstName,
		&resident.LastName,
		&resident.Code,
		&resident.Email,
		&resident.Active,
		&resident.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := s.loadResidentLinks(resident); err != nil {
		return nil, err
	}
	return resident, nil
}

// ListResidents returns residents, optionally only active ones
func (s *Storage) ListResidents(activeOnly bool) ([]*Resident, error) {
	query := `
		SELECT id, first_name, last_name, code, email, active, created_at
		FROM residents
	`
	if activeOnly {
		query += ` WHERE active = 1`
	}
	query += ` ORDER BY last_name, first_name`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var residents []*Resident
	for rows.Next() {
		resident := &Resident{}
		err := rows.Scan(
			&resident.ID,
			&resident.FirstName,
			&resident.LastName,
			&resident.Code,
			&resident.Email,
			&resident.Active,
			&resident.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		residents = append(residents, resident)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, resident := range residents {
		if err := s.loadResidentLinks(resident); err != nil {
			return nil, err
		}
	}
	return residents, nil
}

func (s *Storage) loadResidentLinks(resident *Resident) error {
	rows, err := s.db.Query(`SELECT phone FROM resident_phones WHERE resident_id = ? ORDER BY phone`, resident.ID)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var phone string
		if err := rows.Scan(&phone); err != nil {
			return err
		}
		resident.Phones = append(resident.Phones, phone)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	houseRows, err := s.db.Query(`SELECT house_id FROM resident_houses WHERE resident_id = ? ORDER BY house_id`, resident.ID)
	if err != nil {
		return err
	}
	defer func() { _ = houseRows.Close() }()
	for houseRows.Next() {
		var houseID string
		if err := houseRows.Scan(&houseID); err != nil {
			return err
		}
		resident.HouseIDs = append(resident.HouseIDs, houseID)
	}
	return houseRows.Err()
}

// SaveAlias inserts or updates a payment alias
func (s *Storage) SaveAlias(alias *PaymentAlias) error {
	_, err := s.db.Exec(`
		INSERT INTO payment_aliases (id, resident_id, alias_name)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			resident_id = excluded.resident_id,
			alias_name = excluded.alias_name
	`, alias.ID, alias.ResidentID, alias.AliasName)
	return err
}

// ListAliases returns all aliases, optionally for one resident
func (s *Storage) ListAliases(residentID string) ([]*PaymentAlias, error) {
	query := `SELECT id, resident_id, alias_name, created_at FROM payment_aliases`
	var args []any
	if residentID != "" {
		query += ` WHERE resident_id = ?`
		args = append(args, residentID)
	}
	query += ` ORDER BY alias_name`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var aliases []*PaymentAlias
	for rows.Next() {
		alias := &PaymentAlias{}
		if err := rows.Scan(&alias.ID, &alias.ResidentID, &alias.AliasName, &alias.CreatedAt); err != nil {
			return nil, err
		}
		aliases = append(aliases, alias)
	}
	return aliases, rows.Err()
}

// DeleteAlias removes an alias
func (s *Storage) DeleteAlias(id string) error {
	result, err := s.db.Exec(`DELETE FROM payment_aliases WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SaveHouse inserts or updates a house
func (s *Storage) SaveHouse(house *House) error {
	_, err := s.db.Exec(`
		INSERT INTO houses (id, house_number, street_name)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			house_number = excluded.house_number,
			street_name = excluded.street_name
	`, house.ID, house.HouseNumber, house.StreetName)
	return err
}

// ListHouses returns all houses with their resident links
func (s *Storage) ListHouses() ([]*House, error) {
	rows, err := s.db.Query(`SELECT id, house_number, street_name FROM houses ORDER BY street_name, house_number`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var houses []*House
	byID := make(map[string]*House)
	for rows.Next() {
		house := &House{}
		if err := rows.Scan(&house.ID, &house.HouseNumber, &house.StreetName); err != nil {
			return nil, err
		}
		houses = append(houses, house)
		byID[house.ID] = house
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	linkRows, err := s.db.Query(`SELECT house_id, resident_id FROM resident_houses ORDER BY resident_id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = linkRows.Close() }()
	for linkRows.Next() {
		var houseID, residentID string
		if err := linkRows.Scan(&houseID, &residentID); err != nil {
			return nil, err
		}
		if house, ok := byID[houseID]; ok {
			house.ResidentIDs = append(house.ResidentIDs, residentID)
		}
	}
	return houses, linkRows.Err()
}

// AssignResident links a resident to a house
func (s *Storage) AssignResident(houseID, residentID string) error {
	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO resident_houses (resident_id, house_id) VALUES (?, ?)
	`, residentID, houseID)
	return err
}
