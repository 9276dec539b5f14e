// Package messaging carries restock requests between satellite stations and
// the hub over the shared database. There is no push channel; both sides
// poll.
package messaging

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/gravitypharm/gravistock/internal/models"
	"gorm.io/gorm"
)

// ErrRequestNotFound is returned for unknown request ids
var ErrRequestNotFound = errors.New("station request not found")

// Service reads and writes station requests for one station
type Service struct {
	db      *gorm.DB
	station string
}

func New(db *gorm.DB, station string) *Service {
	return &Service{db: db, station: station}
}

// Send files a new restock request addressed to the hub
func (s *Service) Send(code, displayName string, quantity int, message string, urgent bool) (*models.StationRequest, error) {
	if quantity < 1 {
		quantity = 1
	}
	req := models.StationRequest{
		ID:            uuid.New().String(),
		SenderStation: s.station,
		TargetRole:    models.TargetHub,
		Code:          code,
		DisplayName:   displayName,
		Quantity:      quantity,
		Message:       message,
		Urgent:        urgent,
		Status:        models.RequestPending,
	}
	if err := s.db.Create(&req).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

// Respond records the hub's verdict on a pending request. Requests that
// already left pending are left untouched, so a double-click or a racing
// second hub operator cannot flip an answer.
func (s *Service) Respond(id string, accept bool) error {
	status := models.RequestRejected
	if accept {
		status = models.RequestConfirmed
	}
	return s.transition(id, status, []models.RequestStatus{models.RequestPending})
}

// Acknowledge closes an answered request on the sender side. Only confirmed
// or rejected requests move; pending and closed ones are left alone.
func (s *Service) Acknowledge(id string) error {
	return s.transition(id, models.RequestClosed,
		[]models.RequestStatus{models.RequestConfirmed, models.RequestRejected})
}

// transition moves a request to next only when its current status is in
// from. A request in any other state is a silent no-op.
func (s *Service) transition(id string, next models.RequestStatus, from []models.RequestStatus) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var req models.StationRequest
		err := tx.First(&req, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRequestNotFound
		}
		if err != nil {
			return err
		}
		for _, f := range from {
			if req.Status == f {
				return tx.Model(&req).Updates(map[string]interface{}{
					"status":     next,
					"updated_at": time.Now(),
				}).Error
			}
		}
		return nil
	})
}

// PendingForHub lists open requests the hub has not answered, urgent first
func (s *Service) PendingForHub() ([]models.StationRequest, error) {
	var reqs []models.StationRequest
	err := s.db.Where("target_role = ? AND status = ?", models.TargetHub, models.RequestPending).
		Order("urgent DESC, created_at").
		Find(&reqs).Error
	return reqs, err
}

// ResponsesFor lists answered requests a station has not yet acknowledged
func (s *Service) ResponsesFor(station string) ([]models.StationRequest, error) {
	var reqs []models.StationRequest
	err := s.db.Where("sender_station = ? AND status IN ?",
		station, []models.RequestStatus{models.RequestConfirmed, models.RequestRejected}).
		Order("created_at").
		Find(&reqs).Error
	return reqs, err
}

// Get returns one request by id
func (s *Service) Get(id string) (*models.StationRequest, error) {
	var req models.StationRequest
	err := s.db.First(&req, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}
