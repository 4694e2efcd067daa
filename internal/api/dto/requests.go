package dto

// ManualMatchRequest assigns a statement row to a resident.
type ManualMatchRequest struct {
	ResidentID  string `json:"resident_id"`
	HouseID     string `json:"house_id,omitempty"`
	SaveAsAlias bool   `json:"save_as_alias,omitempty"`
}

// ProcessRequest controls payment creation for an import.
type ProcessRequest struct {
	Atomic         bool `json:"atomic,omitempty"`
	SkipDuplicates bool `json:"skip_duplicates"`
	SkipUnmatched  bool `json:"skip_unmatched"`
}

// SubmitRequest sends a matched import for approval.
type SubmitRequest struct {
	SubmittedBy string `json:"submitted_by,omitempty"`
}

// ReviewRequest carries approval or rejection details.
type ReviewRequest struct {
	ReviewedBy string `json:"reviewed_by"`
	Note       string `json:"note,omitempty"`
}

// BatchRowStatusRequest moves all rows of an import between statuses.
type BatchRowStatusRequest struct {
	FromStatus string `json:"from_status"`
	ToStatus   string `json:"to_status"`
}

// ResidentRequest creates or updates a resident.
type ResidentRequest struct {
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Code      string   `json:"code"`
	Email     string   `json:"email,omitempty"`
	Phones    []string `json:"phones,omitempty"`
	HouseIDs  []string `json:"house_ids,omitempty"`
	Active    *bool    `json:"active,omitempty"`
}

// HouseRequest creates or updates a house.
type HouseRequest struct {
	HouseNumber string `json:"house_number"`
	StreetName  string `json:"street_name,omitempty"`
}

// AssignResidentRequest links a resident to a house.
type AssignResidentRequest struct {
	ResidentID string `json:"resident_id"`
}

// AliasRequest registers a payment alias for a resident.
type AliasRequest struct {
	ResidentID string `json:"resident_id"`
	AliasName  string `json:"alias_name"`
}
