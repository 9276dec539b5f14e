package models

import "time"

// RunStatus is the lifecycle of a supply run. Transitions are monotonic:
// draft -> closed -> validated.
type RunStatus string

const (
	RunDraft     RunStatus = "draft"
	RunClosed    RunStatus = "closed"
	RunValidated RunStatus = "validated"
)

// SupplyRun is a picking/restocking batch. Lines are editable only while the
// run is a draft; validation replays the line resolutions against the ledger.
type SupplyRun struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"type:varchar(100);not null" json:"title"`
	Status    RunStatus `gorm:"type:varchar(20);default:'draft';index" json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Lines []SupplyLine `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE" json:"lines,omitempty"`
}

func (SupplyRun) TableName() string { return "supply_runs" }

// SupplyLine is a point-in-time snapshot of a candidate pick. The Alt* fields
// hold the next same-name candidate offered alongside the first, when one
// existed at snapshot time. Snapshots are immutable after creation even if the
// underlying stock unit later moves or vanishes.
type SupplyLine struct {
	ID    uint `gorm:"primaryKey" json:"id"`
	RunID uint `gorm:"index;not null" json:"run_id"`

	Code        string     `gorm:"type:varchar(50);not null" json:"code"`
	DisplayName string     `gorm:"type:varchar(255)" json:"display_name"`
	SlotLabel   string     `gorm:"type:varchar(10)" json:"slot_label"`
	UnitBarcode string     `gorm:"type:varchar(50)" json:"unit_barcode"`
	Expiry      *time.Time `json:"expiry,omitempty"`

	AltCode        string     `gorm:"type:varchar(50)" json:"alt_code,omitempty"`
	AltDisplayName string     `gorm:"type:varchar(255)" json:"alt_display_name,omitempty"`
	AltSlotLabel   string     `gorm:"type:varchar(10)" json:"alt_slot_label,omitempty"`
	AltUnitBarcode string     `gorm:"type:varchar(50)" json:"alt_unit_barcode,omitempty"`
	AltExpiry      *time.Time `json:"alt_expiry,omitempty"`

	Quantity int `gorm:"default:1" json:"quantity"`

	// Resolution is the serialized pick outcome: "confirmed", "removed" or
	// "relocated-to:<label>". Parsed by the supply package.
	Resolution string `gorm:"type:varchar(50);default:'confirmed'" json:"resolution"`

	CreatedAt time.Time `json:"created_at"`
}

func (SupplyLine) TableName() string { return "supply_lines" }
