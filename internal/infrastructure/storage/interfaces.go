package storage

import "time"

// Repository defines the complete storage interface.
// This interface allows swapping implementations (SQLite, PostgreSQL, etc.)
// and makes testing with mocks straightforward.
type Repository interface {
	ResidentRepository
	AliasRepository
	HouseRepository
	ImportRepository
	PaymentRepository
	Close() error
}

// ResidentRepository handles resident records
type ResidentRepository interface {
	// SaveResident inserts or updates a resident
	SaveResident(resident *Resident) error

	// GetResident retrieves a resident by ID
	GetResident(id string) (*Resident, error)

	// ListResidents returns residents, optionally only active ones
	ListResidents(activeOnly bool) ([]*Resident, error)
}

// AliasRepository handles payment alias records
type AliasRepository interface {
	// SaveAlias inserts or updates a payment alias
	SaveAlias(alias *PaymentAlias) error

	// ListAliases returns all aliases, optionally for one resident
	ListAliases(residentID string) ([]*PaymentAlias, error)

	// DeleteAlias removes an alias
	DeleteAlias(id string) error
}

// HouseRepository handles house records
type HouseRepository interface {
	// SaveHouse inserts or updates a house
	SaveHouse(house *House) error

	// ListHouses returns all houses with their resident links
	ListHouses() ([]*House, error)

	// AssignResident links a resident to a house
	AssignResident(houseID, residentID string) error
}

// RowFilters defines filters for listing import rows
type RowFilters struct {
	Status string // empty = all
	Limit  int    // 0 = default 100
	Offset int
}

// ImportRepository handles statement imports and their rows
type ImportRepository interface {
	// CreateImport inserts a new import record
	CreateImport(imp *Import) error

	// GetImport retrieves an import by ID
	GetImport(id string) (*Import, error)

	// FindImportByHash finds a non-failed import with the same file hash
	FindImportByHash(hash string) (*Import, error)

	// ListImports returns imports, newest first
	ListImports(limit, offset int) ([]*Import, int, error)

	// UpdateImport persists mutable import fields (status, counts, review)
	UpdateImport(imp *Import) error

	// SaveRows bulk-inserts rows for an import
	SaveRows(rows []*ImportRow) error

	// GetRow retrieves a single row
	GetRow(id string) (*ImportRow, error)

	// ListRows returns rows of an import matching the filters
	ListRows(importID string, filters RowFilters) ([]*ImportRow, int, error)

	// UpdateRow persists a row's match state and status
	UpdateRow(row *ImportRow) error
}

// PaymentRepository handles confirmed payment records
type PaymentRepository interface {
	// SavePayment inserts a payment record
	SavePayment(payment *PaymentRecord) error

	// FindDuplicatePayment looks for an existing payment with the same
	// reference, or with the same amount dated within toleranceDays.
	FindDuplicatePayment(reference string, amount string, date time.Time, toleranceDays int) (*PaymentRecord, error)

	// ListPaymentsForResident returns a resident's payments, newest first
	ListPaymentsForResident(residentID string, limit int) ([]*PaymentRecord, error)

	// GetPaymentStats returns aggregate payment statistics
	GetPaymentStats() (*PaymentStats, error)
}
