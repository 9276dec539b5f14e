package ledger

import (
	"errors"
	"fmt"

	"github.com/gravitypharm/gravistock/internal/barcode"
	"github.com/gravitypharm/gravistock/internal/models"
	"gorm.io/gorm"
)

// ErrDuplicateSlot rejects a second slot with the same label
var ErrDuplicateSlot = errors.New("slot label already exists")

// CreateSlot registers a new slot; the barcode is derived from the label by
// the codec, never supplied by the caller.
func (l *Ledger) CreateSlot(label string) (*models.Slot, error) {
	code, err := barcode.Encode(label)
	if err != nil {
		return nil, err
	}

	slot := models.Slot{Label: label, Barcode: code}
	err = l.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Slot{}).
			Where("label = ? OR barcode = ?", label, code).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrDuplicateSlot
		}
		return tx.Create(&slot).Error
	})
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

// RenameSlot is the only administrative mutation of an existing slot. Units
// keep pointing at the slot id, so stock is unaffected.
func (l *Ledger) RenameSlot(slotID uint, newLabel string) (*models.Slot, error) {
	code, err := barcode.Encode(newLabel)
	if err != nil {
		return nil, err
	}

	var slot models.Slot
	err = l.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&slot, slotID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSlotNotFound
			}
			return err
		}

		var count int64
		if err := tx.Model(&models.Slot{}).
			Where("(label = ? OR barcode = ?) AND id <> ?", newLabel, code, slotID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrDuplicateSlot
		}

		slot.Label = newLabel
		slot.Barcode = code
		return tx.Save(&slot).Error
	})
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

// DeleteSlot removes an empty slot; a slot still holding units is rejected
func (l *Ledger) DeleteSlot(slotID uint) error {
	return l.db.Transaction(func(tx *gorm.DB) error {
		var slot models.Slot
		if err := tx.First(&slot, slotID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSlotNotFound
			}
			return err
		}

		var occupied int64
		if err := tx.Model(&models.StockUnit{}).
			Where("slot_id = ?", slotID).
			Count(&occupied).Error; err != nil {
			return err
		}
		if occupied > 0 {
			return fmt.Errorf("%w: %d units in %s", ErrSlotOccupied, occupied, slot.Label)
		}

		return tx.Delete(&slot).Error
	})
}

// ListSlots returns all slots ordered by label
func (l *Ledger) ListSlots() ([]models.Slot, error) {
	var slots []models.Slot
	err := l.db.Order("label").Find(&slots).Error
	return slots, err
}

// SlotByBarcode resolves a scanned location barcode to its slot
func (l *Ledger) SlotByBarcode(code string) (*models.Slot, error) {
	var slot models.Slot
	err := l.db.Where("barcode = ?", code).First(&slot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSlotNotFound
	}
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

// SlotByLabel resolves a printable label to its slot
func (l *Ledger) SlotByLabel(label string) (*models.Slot, error) {
	var slot models.Slot
	err := l.db.Where("label = ?", label).First(&slot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSlotNotFound
	}
	if err != nil {
		return nil, err
	}
	return &slot, nil
}
