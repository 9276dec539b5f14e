package models

import "time"

// RequestStatus is the lifecycle of a cross-station request:
// pending -> {confirmed, rejected} -> closed.
type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestConfirmed RequestStatus = "confirmed"
	RequestRejected  RequestStatus = "rejected"
	RequestClosed    RequestStatus = "closed"
)

// TargetHub is the only target role currently in use: every request is
// addressed to the hub station.
const TargetHub = "HUB"

// StationRequest is an ask-for-stock message between stations, carried through
// the shared store and discovered by polling.
type StationRequest struct {
	ID            string        `gorm:"type:varchar(36);primaryKey" json:"id"`
	SenderStation string        `gorm:"type:varchar(100);index;not null" json:"sender_station"`
	TargetRole    string        `gorm:"type:varchar(20);index;default:'HUB'" json:"target_role"`
	Code          string        `gorm:"type:varchar(50)" json:"code"`
	DisplayName   string        `gorm:"type:varchar(255)" json:"display_name"`
	Quantity      int           `gorm:"default:1" json:"quantity"`
	Message       string        `gorm:"type:text" json:"message"`
	Urgent        bool          `gorm:"default:false" json:"urgent"`
	Status        RequestStatus `gorm:"type:varchar(20);default:'pending';index" json:"status"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

func (StationRequest) TableName() string { return "station_requests" }
