package models

import "time"

// EventLog is the audit trail: unit removals, moves, run validations, sweep
// closes and intake-delay samples all land here. Reporting reads it, nothing
// in the core ever depends on it.
type EventLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	EventType string    `gorm:"type:varchar(50);index;not null" json:"event_type"`
	Details   string    `gorm:"type:text" json:"details,omitempty"`
	Source    string    `gorm:"type:varchar(100)" json:"source,omitempty"`
	Station   string    `gorm:"type:varchar(100)" json:"station,omitempty"`
	DelayHrs  *float64  `json:"delay_hours,omitempty"` // intake-delay samples only
	CreatedAt time.Time `json:"created_at"`
}

func (EventLog) TableName() string { return "event_log" }
