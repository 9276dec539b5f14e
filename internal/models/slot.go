package models

import "time"

// Slot is a physical, barcode-labeled storage location.
// The barcode is always derived from the label by the location codec
// ("A1" -> "0000101") and both stay unique.
type Slot struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Label     string    `gorm:"type:varchar(10);uniqueIndex;not null" json:"label"`
	Barcode   string    `gorm:"type:varchar(20);uniqueIndex;not null" json:"barcode"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Units []StockUnit `gorm:"foreignKey:SlotID" json:"units,omitempty"`
}

func (Slot) TableName() string { return "slots" }
