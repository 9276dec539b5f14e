// Package ledger is the authoritative record of which physical stock units
// occupy which slot. All mutations run in short transactions scoped to one
// operator action; the only cross-entity rule it owns is the missing-flag
// invariant (last unit of a code removed => exactly one active flag).
package ledger

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gravitypharm/gravistock/internal/catalog"
	"github.com/gravitypharm/gravistock/internal/models"
	"gorm.io/gorm"
)

var (
	// ErrDuplicateInSlot means a unit with the same barcode already sits in
	// the target slot. Uniqueness is per slot only; the same barcode in two
	// different slots is accepted.
	ErrDuplicateInSlot = errors.New("unit already present in this slot")
	// ErrUnknownProduct means the product master does not recognize the
	// scanned unit barcode.
	ErrUnknownProduct = errors.New("unit barcode not recognized by product master")
	// ErrSlotOccupied rejects deletion of a slot that still holds units.
	ErrSlotOccupied = errors.New("slot still holds stock units")
	// ErrSlotNotFound is returned for unknown slot ids, labels or barcodes.
	ErrSlotNotFound = errors.New("slot not found")
	// ErrUnitNotFound is returned for unknown stock unit ids.
	ErrUnitNotFound = errors.New("stock unit not found")
)

// Resolver turns scanned text into catalog data. *catalog.Service implements it.
type Resolver interface {
	Resolve(scanned string) (*catalog.Resolved, error)
}

// Ledger mutates stock state against the shared store
type Ledger struct {
	db          *gorm.DB
	resolver    Resolver
	station     string
	deliveryDay time.Weekday
}

func New(db *gorm.DB, resolver Resolver, station string, deliveryDay time.Weekday) *Ledger {
	return &Ledger{
		db:          db,
		resolver:    resolver,
		station:     station,
		deliveryDay: deliveryDay,
	}
}

// DB exposes the underlying handle for the workflow packages layered on top
func (l *Ledger) DB() *gorm.DB { return l.db }

// ScanIn registers a physical unit in a slot. It resolves the barcode through
// the catalog (lazily creating the CatalogEntry and stamping its supply/edit
// timestamps) and fails without state change on a duplicate in the same slot
// or an unknown barcode.
func (l *Ledger) ScanIn(unitBarcode string, slotID uint) (*models.StockUnit, error) {
	var unit models.StockUnit
	var resolved *catalog.Resolved

	err := l.db.Transaction(func(tx *gorm.DB) error {
		var slot models.Slot
		if err := tx.First(&slot, slotID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSlotNotFound
			}
			return err
		}

		var count int64
		if err := tx.Model(&models.StockUnit{}).
			Where("unit_barcode = ? AND slot_id = ?", unitBarcode, slotID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrDuplicateInSlot
		}

		res, err := l.resolver.Resolve(unitBarcode)
		if errors.Is(err, catalog.ErrNotFound) {
			return ErrUnknownProduct
		}
		if err != nil {
			return fmt.Errorf("resolving %q: %w", unitBarcode, err)
		}
		resolved = res

		if _, err := catalog.EnsureEntry(tx, res.Code, res.DisplayName); err != nil {
			return err
		}
		now := time.Now()
		if err := tx.Model(&models.CatalogEntry{}).
			Where("code = ?", res.Code).
			Updates(map[string]interface{}{"last_supplied": now, "last_edited": now}).Error; err != nil {
			return err
		}
		if res.Unit != nil {
			if err := catalog.AttachPayload(tx, res.Code, res.Unit); err != nil {
				log.Printf("ledger: failed to attach master payload for %s: %v", res.Code, err)
			}
		}

		unit = models.StockUnit{
			Code:        res.Code,
			UnitBarcode: unitBarcode,
			SlotID:      slotID,
		}
		if res.Unit != nil {
			unit.Expiry = res.Unit.ExpiryDate()
		}
		return tx.Create(&unit).Error
	})
	if err != nil {
		return nil, err
	}

	// Reporting only: failures here must never fail the scan.
	if resolved != nil && resolved.Unit != nil {
		l.recordIntakeDelay(resolved.Code, resolved.Unit.AvailableSince())
	}

	return &unit, nil
}

// Remove deletes a unit. If it was the last one for its code, the missing-flag
// invariant applies with source "manual-removal".
func (l *Ledger) Remove(unitID uint) error {
	return l.db.Transaction(func(tx *gorm.DB) error {
		var unit models.StockUnit
		if err := tx.First(&unit, unitID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUnitNotFound
			}
			return err
		}

		if err := tx.Delete(&unit).Error; err != nil {
			return err
		}
		now := time.Now()
		if err := tx.Model(&models.CatalogEntry{}).
			Where("code = ?", unit.Code).
			Update("last_edited", now).Error; err != nil {
			return err
		}

		if err := FlagMissing(tx, unit.Code, "manual-removal"); err != nil {
			return err
		}

		logEvent(tx, l.station, "unit_removed", fmt.Sprintf("code=%s barcode=%s", unit.Code, unit.UnitBarcode))
		return nil
	})
}

// Relocate reassigns a unit to another slot. The unit still exists, so the
// missing-flag invariant never fires here.
func (l *Ledger) Relocate(unitID, newSlotID uint) error {
	return l.db.Transaction(func(tx *gorm.DB) error {
		var unit models.StockUnit
		if err := tx.First(&unit, unitID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUnitNotFound
			}
			return err
		}
		var slot models.Slot
		if err := tx.First(&slot, newSlotID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSlotNotFound
			}
			return err
		}

		if err := tx.Model(&unit).Update("slot_id", newSlotID).Error; err != nil {
			return err
		}
		now := time.Now()
		if err := tx.Model(&models.CatalogEntry{}).
			Where("code = ?", unit.Code).
			Update("last_edited", now).Error; err != nil {
			return err
		}

		logEvent(tx, l.station, "unit_moved", fmt.Sprintf("code=%s -> %s", unit.Code, slot.Label))
		return nil
	})
}

// ListBySlot returns the units in a slot joined with their catalog entries
func (l *Ledger) ListBySlot(slotID uint) ([]models.StockUnit, error) {
	var units []models.StockUnit
	err := l.db.Preload("Catalog").
		Where("slot_id = ?", slotID).
		Order("id").
		Find(&units).Error
	return units, err
}

// FlagMissing applies the missing-flag invariant inside the caller's
// transaction: if no unit of the code remains, exactly one active flag must
// exist afterward. An already-active flag is left untouched, never duplicated.
func FlagMissing(tx *gorm.DB, code, source string) error {
	var remaining int64
	if err := tx.Model(&models.StockUnit{}).
		Where("code = ?", code).
		Count(&remaining).Error; err != nil {
		return err
	}
	if remaining > 0 {
		return nil
	}

	var active int64
	if err := tx.Model(&models.MissingFlag{}).
		Where("code = ? AND active = ?", code, true).
		Count(&active).Error; err != nil {
		return err
	}
	if active > 0 {
		return nil
	}

	flag := models.MissingFlag{
		Code:       code,
		Source:     source,
		ReportedAt: time.Now(),
		Active:     true,
	}
	return tx.Create(&flag).Error
}

// recordIntakeDelay samples the elapsed time between a lot becoming available
// upstream and its scan into a slot. Lots that arrived on the delivery
// weekday get a 24h grace. Purely for reporting; any failure is swallowed.
func (l *Ledger) recordIntakeDelay(code string, availableSince *time.Time) {
	if availableSince == nil {
		return
	}

	elapsed := time.Since(*availableSince)
	if availableSince.Weekday() == l.deliveryDay {
		elapsed -= 24 * time.Hour
	}
	if elapsed < 0 {
		elapsed = 0
	}

	hours := elapsed.Hours()
	entry := models.EventLog{
		EventType: "intake_delay",
		Details:   fmt.Sprintf("code=%s", code),
		Station:   l.station,
		DelayHrs:  &hours,
	}
	if err := l.db.Create(&entry).Error; err != nil {
		log.Printf("ledger: failed to record intake delay for %s: %v", code, err)
	}
}

func logEvent(tx *gorm.DB, station, eventType, details string) {
	entry := models.EventLog{
		EventType: eventType,
		Details:   details,
		Station:   station,
	}
	if err := tx.Create(&entry).Error; err != nil {
		log.Printf("ledger: failed to log event %s: %v", eventType, err)
	}
}
