package models

import (
	"time"

	"gorm.io/datatypes"
)

// CatalogEntry is the product-level record shared by all stock units of the
// same code. Rows are created lazily the first time a code is scanned and keep
// the usage timestamps the reporting screens sort by.
type CatalogEntry struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Code         string     `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"`
	DisplayName  string     `gorm:"type:varchar(255);not null" json:"display_name"`
	LastSupplied *time.Time `json:"last_supplied,omitempty"`
	LastSearched *time.Time `json:"last_searched,omitempty"`
	LastEdited   *time.Time `json:"last_edited,omitempty"`

	// Last payload returned by the product master for this code, kept verbatim
	// for diagnostics.
	RawData datatypes.JSON `json:"raw_data,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (CatalogEntry) TableName() string { return "catalog_entries" }
