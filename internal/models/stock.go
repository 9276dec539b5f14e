package models

import "time"

// StockUnit is one physical lot of a product currently assigned to a slot.
// The unit barcode is not globally unique; uniqueness within the current slot
// is an application-level invariant enforced by the ledger.
type StockUnit struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Code        string     `gorm:"type:varchar(50);index;not null" json:"code"`
	UnitBarcode string     `gorm:"type:varchar(50);index;not null" json:"unit_barcode"`
	Expiry      *time.Time `json:"expiry,omitempty"`
	SlotID      uint       `gorm:"index;not null" json:"slot_id"`

	// Suspect is only meaningful while a cleaning sweep is active: set on every
	// unit at sweep start, cleared as units are rescanned.
	Suspect bool `gorm:"default:false;index" json:"suspect"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Slot    *Slot         `gorm:"foreignKey:SlotID" json:"slot,omitempty"`
	Catalog *CatalogEntry `gorm:"foreignKey:Code;references:Code" json:"catalog,omitempty"`
}

func (StockUnit) TableName() string { return "stock_units" }

// MissingFlag records "this product has zero units in stock right now".
// Multiple historical (inactive) rows per code may exist, but at most one row
// per code is active at any time.
type MissingFlag struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Code       string    `gorm:"type:varchar(50);index;not null" json:"code"`
	Source     string    `gorm:"type:varchar(50)" json:"source"`
	ReportedAt time.Time `json:"reported_at"`
	Active     bool      `gorm:"default:true;index" json:"active"`
}

func (MissingFlag) TableName() string { return "missing_flags" }
