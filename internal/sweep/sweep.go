// Package sweep implements the warehouse-wide recount. A sweep is not a
// separate entity: it is the suspect flag on every stock unit, and the sweep
// is "active" exactly while any suspect unit exists. One sweep at a time,
// system-wide; the precondition is checked at this service boundary inside
// the start transaction.
package sweep

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gravitypharm/gravistock/internal/ledger"
	"github.com/gravitypharm/gravistock/internal/models"
	"gorm.io/gorm"
)

var (
	// ErrSweepActive rejects starting a sweep while one is running
	ErrSweepActive = errors.New("a cleaning sweep is already active")
	// ErrSweepIdle rejects confirm/close while no sweep is running
	ErrSweepIdle = errors.New("no cleaning sweep is active")
)

// Sweep drives the recount against the ledger
type Sweep struct {
	db      *gorm.DB
	ledger  *ledger.Ledger
	station string
}

func New(l *ledger.Ledger, station string) *Sweep {
	return &Sweep{db: l.DB(), ledger: l, station: station}
}

// Active reports whether a sweep is running (any suspect unit exists)
func (s *Sweep) Active() (bool, error) {
	var count int64
	err := s.db.Model(&models.StockUnit{}).
		Where("suspect = ?", true).
		Count(&count).Error
	return count > 0, err
}

// Start marks every stock unit suspect. Requires idle; a concurrent second
// start loses with ErrSweepActive instead of silently doubling.
func (s *Sweep) Start() error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var active int64
		if err := tx.Model(&models.StockUnit{}).
			Where("suspect = ?", true).
			Count(&active).Error; err != nil {
			return err
		}
		if active > 0 {
			return ErrSweepActive
		}

		if err := tx.Model(&models.StockUnit{}).
			Where("suspect = ?", false).
			Update("suspect", true).Error; err != nil {
			return err
		}

		logEvent(tx, s.station, "sweep_started", "")
		return nil
	})
}

// Confirm handles one rescan during an active sweep. A unit found in the slot
// is cleared; a unit not found is treated as newly discovered and scanned in
// through the normal path, without re-flagging it suspect. The duplicate and
// catalog warnings the normal scan path surfaces are suppressed here: a
// recount operator works through thousands of scans and only the audit
// export matters.
func (s *Sweep) Confirm(unitBarcode string, slotID uint) (*models.StockUnit, error) {
	active, err := s.Active()
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, ErrSweepIdle
	}

	var unit models.StockUnit
	err = s.db.Where("unit_barcode = ? AND slot_id = ?", unitBarcode, slotID).
		First(&unit).Error
	if err == nil {
		if err := s.db.Model(&unit).Update("suspect", false).Error; err != nil {
			return nil, err
		}
		unit.Suspect = false
		return &unit, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// Newly found during the recount. Created units default to suspect=false,
	// so nothing re-flags them before close.
	created, err := s.ledger.ScanIn(unitBarcode, slotID)
	if errors.Is(err, ledger.ErrDuplicateInSlot) || errors.Is(err, ledger.ErrUnknownProduct) {
		log.Printf("sweep: scan of %q in slot %d skipped: %v", unitBarcode, slotID, err)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return created, nil
}

// ListUnconfirmed returns the units still suspect, for the pre-close audit
// export.
func (s *Sweep) ListUnconfirmed() ([]models.StockUnit, error) {
	var units []models.StockUnit
	err := s.db.Preload("Catalog").Preload("Slot").
		Where("suspect = ?", true).
		Order("slot_id, id").
		Find(&units).Error
	return units, err
}

// Close purges every unit that was never reconfirmed and returns the purge
// count. Each vanished code gets the missing-flag invariant applied with
// source "sweep-loss". Runs as one transaction: a crash mid-close leaves the
// sweep fully active, never half-purged.
func (s *Sweep) Close() (int, error) {
	purged := 0

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var units []models.StockUnit
		if err := tx.Where("suspect = ?", true).Find(&units).Error; err != nil {
			return err
		}
		if len(units) == 0 {
			return ErrSweepIdle
		}

		codes := make(map[string]struct{})
		for _, unit := range units {
			if err := tx.Delete(&models.StockUnit{}, unit.ID).Error; err != nil {
				return err
			}
			codes[unit.Code] = struct{}{}
			purged++
		}

		for code := range codes {
			if err := ledger.FlagMissing(tx, code, "sweep-loss"); err != nil {
				return err
			}
		}

		logEvent(tx, s.station, "sweep_closed", fmt.Sprintf("purged=%d", purged))
		return nil
	})
	if err != nil {
		return 0, err
	}
	return purged, nil
}

func logEvent(tx *gorm.DB, station, eventType, details string) {
	entry := models.EventLog{
		EventType: eventType,
		Details:   details,
		Station:   station,
		CreatedAt: time.Now(),
	}
	if err := tx.Create(&entry).Error; err != nil {
		log.Printf("sweep: failed to log event %s: %v", eventType, err)
	}
}
