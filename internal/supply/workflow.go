// Package supply implements the picking workflow: a run collects point-in-
// time snapshots of candidate units while draft, freezes on close, and
// replays the per-line resolutions against the ledger on validate.
package supply

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
	// ErrNotDraft rejects line edits and close on a non-draft run
	ErrNotDraft = errors.New("supply run is not a draft")
	// ErrNotClosed rejects resolve/validate on a run that is not closed
	ErrNotClosed = errors.New("supply run is not closed")
	// ErrDuplicateProduct rejects a second line for the same code in a run
	ErrDuplicateProduct = errors.New("product already on this run")
	// ErrRunNotFound is returned for unknown run ids
	ErrRunNotFound = errors.New("supply run not found")
	// ErrLineNotFound is returned for unknown line ids
	ErrLineNotFound = errors.New("supply line not found")
)

// PickCandidate is the snapshot source for one side of a supply line
type PickCandidate struct {
	Code        string     `json:"code"`
	DisplayName string     `json:"display_name"`
	SlotLabel   string     `json:"slot_label"`
	UnitBarcode string     `json:"unit_barcode"`
	Expiry      *time.Time `json:"expiry,omitempty"`
}

// Workflow drives supply runs against the shared store
type Workflow struct {
	db      *gorm.DB
	station string
}

func New(l *ledger.Ledger, station string) *Workflow {
	return &Workflow{db: l.DB(), station: station}
}

// CreateDraft opens a new run. An empty title gets a dated default.
func (w *Workflow) CreateDraft(title string) (*models.SupplyRun, error) {
	if title == "" {
		title = "Run of " + time.Now().Format("02/01/2006 15:04")
	}
	run := models.SupplyRun{Title: title, Status: models.RunDraft}
	if err := w.db.Create(&run).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

// Get returns a run with its lines
func (w *Workflow) Get(runID uint) (*models.SupplyRun, error) {
	var run models.SupplyRun
	err := w.db.Preload("Lines").First(&run, runID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// List returns runs filtered by status, newest first. No statuses means all.
func (w *Workflow) List(statuses ...models.RunStatus) ([]models.SupplyRun, error) {
	q := w.db.Order("created_at DESC")
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}
	var runs []models.SupplyRun
	err := q.Find(&runs).Error
	return runs, err
}

// AddLine snapshots a candidate pick onto a draft run, together with the
// optional next same-name candidate. Rejects non-draft runs and duplicate
// codes. The snapshots stay frozen even if the underlying units later change.
func (w *Workflow) AddLine(runID uint, primary PickCandidate, quantity int, alt *PickCandidate) (*models.SupplyLine, error) {
	if quantity < 1 {
		quantity = 1
	}

	var line models.SupplyLine
	err := w.db.Transaction(func(tx *gorm.DB) error {
		run, err := lockRun(tx, runID)
		if err != nil {
			return err
		}
		if run.Status != models.RunDraft {
			return ErrNotDraft
		}

		var dup int64
		if err := tx.Model(&models.SupplyLine{}).
			Where("run_id = ? AND code = ?", runID, primary.Code).
			Count(&dup).Error; err != nil {
			return err
		}
		if dup > 0 {
			return fmt.Errorf("%w: %s", ErrDuplicateProduct, primary.Code)
		}

		line = models.SupplyLine{
			RunID:       runID,
			Code:        primary.Code,
			DisplayName: primary.DisplayName,
			SlotLabel:   primary.SlotLabel,
			UnitBarcode: primary.UnitBarcode,
			Expiry:      primary.Expiry,
			Quantity:    quantity,
			Resolution:  Confirmed().String(),
		}
		if alt != nil {
			line.AltCode = alt.Code
			line.AltDisplayName = alt.DisplayName
			line.AltSlotLabel = alt.SlotLabel
			line.AltUnitBarcode = alt.UnitBarcode
			line.AltExpiry = alt.Expiry
		}
		return tx.Create(&line).Error
	})
	if err != nil {
		return nil, err
	}
	return &line, nil
}

// CandidateFromUnit builds a snapshot from a live unit. Catalog and Slot must
// be preloaded.
func CandidateFromUnit(u *models.StockUnit) PickCandidate {
	c := PickCandidate{
		Code:        u.Code,
		UnitBarcode: u.UnitBarcode,
		Expiry:      u.Expiry,
	}
	if u.Catalog != nil {
		c.DisplayName = u.Catalog.DisplayName
	}
	if u.Slot != nil {
		c.SlotLabel = u.Slot.Label
	}
	return c
}

// NextSameName finds the adjacent candidate offered alongside a pick: the
// soonest-expiring other unit carrying the same display name. Nil when none
// exists.
func (w *Workflow) NextSameName(unit *models.StockUnit) (*PickCandidate, error) {
	if unit.Catalog == nil {
		return nil, nil
	}

	var next models.StockUnit
	err := w.db.Preload("Catalog").Preload("Slot").
		Joins("JOIN catalog_entries ON catalog_entries.code = stock_units.code").
		Where("catalog_entries.display_name = ? AND stock_units.id <> ?",
			unit.Catalog.DisplayName, unit.ID).
		Order("stock_units.expiry").
		First(&next).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	c := CandidateFromUnit(&next)
	return &c, nil
}

// RemoveLine deletes one line; allowed only while the run is a draft
func (w *Workflow) RemoveLine(lineID uint) error {
	return w.db.Transaction(func(tx *gorm.DB) error {
		var line models.SupplyLine
		if err := tx.First(&line, lineID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrLineNotFound
			}
			return err
		}
		run, err := lockRun(tx, line.RunID)
		if err != nil {
			return err
		}
		if run.Status != models.RunDraft {
			return ErrNotDraft
		}
		return tx.Delete(&line).Error
	})
}

// ClearLines empties a draft run
func (w *Workflow) ClearLines(runID uint) error {
	return w.db.Transaction(func(tx *gorm.DB) error {
		run, err := lockRun(tx, runID)
		if err != nil {
			return err
		}
		if run.Status != models.RunDraft {
			return ErrNotDraft
		}
		return tx.Where("run_id = ?", runID).Delete(&models.SupplyLine{}).Error
	})
}

// Close freezes line editing: draft -> closed. No ledger mutation happens
// here.
func (w *Workflow) Close(runID uint) error {
	return w.db.Transaction(func(tx *gorm.DB) error {
		run, err := lockRun(tx, runID)
		if err != nil {
			return err
		}
		if run.Status != models.RunDraft {
			return ErrNotDraft
		}
		return tx.Model(run).Update("status", models.RunClosed).Error
	})
}

// ResolveLine records the picker's verdict on a line of a closed run.
// Bookkeeping only; the ledger is untouched until validate.
func (w *Workflow) ResolveLine(lineID uint, res Resolution) error {
	return w.db.Transaction(func(tx *gorm.DB) error {
		var line models.SupplyLine
		if err := tx.First(&line, lineID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrLineNotFound
			}
			return err
		}
		run, err := lockRun(tx, line.RunID)
		if err != nil {
			return err
		}
		if run.Status != models.RunClosed {
			return ErrNotClosed
		}
		return tx.Model(&line).Update("resolution", res.String()).Error
	})
}

// Validate replays every line's resolution against the ledger, re-locating
// each unit by its snapshotted barcode and slot label. Units that moved or
// vanished since the snapshot are skipped with a log line, never a failure.
// The whole replay and the closed -> validated transition run in a single
// transaction, so a crash cannot leave the run closed with some lines
// applied.
func (w *Workflow) Validate(runID uint) error {
	return w.db.Transaction(func(tx *gorm.DB) error {
		run, err := lockRun(tx, runID)
		if err != nil {
			return err
		}
		if run.Status != models.RunClosed {
			return ErrNotClosed
		}

		var lines []models.SupplyLine
		if err := tx.Where("run_id = ?", runID).Order("id").Find(&lines).Error; err != nil {
			return err
		}

		for _, line := range lines {
			res, err := ParseResolution(line.Resolution)
			if err != nil {
				log.Printf("supply: run %d line %d has %v, skipping", runID, line.ID, err)
				continue
			}
			if res.Kind == KindConfirmed {
				continue
			}

			unit, ok := locateSnapshot(tx, line)
			if !ok {
				log.Printf("supply: run %d line %d: unit %s no longer in %s, skipping",
					runID, line.ID, line.UnitBarcode, line.SlotLabel)
				continue
			}

			switch res.Kind {
			case KindRemoved:
				if err := tx.Delete(&models.StockUnit{}, unit.ID).Error; err != nil {
					return err
				}
				if err := ledger.FlagMissing(tx, unit.Code, "workflow-validation"); err != nil {
					return err
				}
				if err := stampEdited(tx, unit.Code); err != nil {
					return err
				}

			case KindRelocated:
				var slot models.Slot
				err := tx.Where("label = ?", res.TargetLabel).First(&slot).Error
				if errors.Is(err, gorm.ErrRecordNotFound) {
					log.Printf("supply: run %d line %d: target slot %q not found, skipping",
						runID, line.ID, res.TargetLabel)
					continue
				}
				if err != nil {
					return err
				}
				if err := tx.Model(&models.StockUnit{}).
					Where("id = ?", unit.ID).
					Update("slot_id", slot.ID).Error; err != nil {
					return err
				}
				if err := stampEdited(tx, unit.Code); err != nil {
					return err
				}
			}
		}

		if err := tx.Model(run).Update("status", models.RunValidated).Error; err != nil {
			return err
		}

		event := models.EventLog{
			EventType: "run_validated",
			Details:   fmt.Sprintf("run=%d lines=%d", runID, len(lines)),
			Station:   w.station,
		}
		if err := tx.Create(&event).Error; err != nil {
			log.Printf("supply: failed to log validation of run %d: %v", runID, err)
		}
		return nil
	})
}

// locateSnapshot re-locates the live unit a line was snapshotted from
func locateSnapshot(tx *gorm.DB, line models.SupplyLine) (*models.StockUnit, bool) {
	var unit models.StockUnit
	err := tx.Joins("JOIN slots ON slots.id = stock_units.slot_id").
		Where("stock_units.unit_barcode = ? AND slots.label = ?",
			line.UnitBarcode, line.SlotLabel).
		First(&unit).Error
	if err != nil {
		return nil, false
	}
	return &unit, true
}

func stampEdited(tx *gorm.DB, code string) error {
	now := time.Now()
	return tx.Model(&models.CatalogEntry{}).
		Where("code = ?", code).
		Update("last_edited", now).Error
}

func lockRun(tx *gorm.DB, runID uint) (*models.SupplyRun, error) {
	var run models.SupplyRun
	err := tx.First(&run, runID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}
