package model

// MandatoryClass enum constants
const (
	MandatoryMonthly           MandatoryClass = "monthly"
	MandatoryAnnualJanuaryOnly MandatoryClass = "annual-january-only"
	MandatoryOptional          MandatoryClass = "optional"
)

// MandatoryClass decides in which reporting periods a document type is required.
type MandatoryClass string

// DocumentType is an immutable catalog entry. Catalog entries live in process memory and are
// never persisted; documents refer to them by ID.
type DocumentType struct {
	ID                  string         `json:"id"`
	DisplayName         string         `json:"display_name"`
	MandatoryClass      MandatoryClass `json:"mandatory_class"`
	ExcludedFromScoring bool           `json:"excluded_from_scoring"` // administrative certificates and similar
}
