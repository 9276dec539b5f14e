package supply

import (
	"errors"
	"testing"

	"github.com/gravitypharm/gravistock/internal/catalog"
	"github.com/gravitypharm/gravistock/internal/ledger"
	"github.com/gravitypharm/gravistock/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fakeResolver struct {
	products map[string]catalog.Resolved
}

func (f *fakeResolver) Resolve(scanned string) (*catalog.Resolved, error) {
	if r, ok := f.products[scanned]; ok {
		return &r, nil
	}
	return nil, catalog.ErrNotFound
}

func testWorkflow(t *testing.T) (*Workflow, *ledger.Ledger, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&models.Slot{},
		&models.CatalogEntry{},
		&models.StockUnit{},
		&models.MissingFlag{},
		&models.SupplyRun{},
		&models.SupplyLine{},
		&models.EventLog{},
	)
	if err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}

	resolver := &fakeResolver{products: map[string]catalog.Resolved{
		"7501234567890": {Code: "450123", DisplayName: "DOLIPRANE 1000MG CPR 8"},
		"7501234567891": {Code: "450124", DisplayName: "DOLIPRANE 1000MG CPR 8"},
		"7509999999990": {Code: "990001", DisplayName: "SPASFON LYOC 80MG"},
	}}
	l := ledger.New(db, resolver, "test-station", 0)
	return New(l, "test-station"), l, db
}

func mustSlot(t *testing.T, l *ledger.Ledger, label string) *models.Slot {
	t.Helper()
	slot, err := l.CreateSlot(label)
	if err != nil {
		t.Fatalf("Failed to create slot %s: %v", label, err)
	}
	return slot
}

func loadUnit(t *testing.T, db *gorm.DB, id uint) *models.StockUnit {
	t.Helper()
	var unit models.StockUnit
	err := db.Preload("Catalog").Preload("Slot").First(&unit, id).Error
	if err != nil {
		t.Fatalf("Failed to load unit %d: %v", id, err)
	}
	return &unit
}

func TestRunLifecycle(t *testing.T) {
	w, l, _ := testWorkflow(t)
	a1 := mustSlot(t, l, "A1")

	unit, err := l.ScanIn("7501234567890", a1.ID)
	if err != nil {
		t.Fatalf("ScanIn failed: %v", err)
	}

	run, err := w.CreateDraft("")
	if err != nil {
		t.Fatalf("CreateDraft failed: %v", err)
	}
	if run.Title == "" {
		t.Error("An empty title should get a default")
	}
	if run.Status != models.RunDraft {
		t.Errorf("New run should be draft, got %s", run.Status)
	}

	cand := CandidateFromUnit(loadUnit(t, w.db, unit.ID))
	line, err := w.AddLine(run.ID, cand, 2, nil)
	if err != nil {
		t.Fatalf("AddLine failed: %v", err)
	}
	if line.SlotLabel != "A1" || line.Code != "450123" {
		t.Errorf("Snapshot mismatch: %+v", line)
	}

	// one line per product code
	if _, err := w.AddLine(run.ID, cand, 1, nil); !errors.Is(err, ErrDuplicateProduct) {
		t.Errorf("Expected ErrDuplicateProduct, got %v", err)
	}

	// resolving requires a closed run
	if err := w.ResolveLine(line.ID, Removed()); !errors.Is(err, ErrNotClosed) {
		t.Errorf("Expected ErrNotClosed, got %v", err)
	}
	if err := w.Validate(run.ID); !errors.Is(err, ErrNotClosed) {
		t.Errorf("Expected ErrNotClosed, got %v", err)
	}

	if err := w.Close(run.ID); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// line editing froze at close
	if _, err := w.AddLine(run.ID, cand, 1, nil); !errors.Is(err, ErrNotDraft) {
		t.Errorf("Expected ErrNotDraft, got %v", err)
	}
	if err := w.RemoveLine(line.ID); !errors.Is(err, ErrNotDraft) {
		t.Errorf("Expected ErrNotDraft, got %v", err)
	}
	if err := w.Close(run.ID); !errors.Is(err, ErrNotDraft) {
		t.Errorf("Closing twice should fail, got %v", err)
	}

	if err := w.ResolveLine(line.ID, Confirmed()); err != nil {
		t.Fatalf("ResolveLine failed: %v", err)
	}
	if err := w.Validate(run.ID); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	validated, _ := w.Get(run.ID)
	if validated.Status != models.RunValidated {
		t.Errorf("Expected validated, got %s", validated.Status)
	}

	// validated is terminal
	if err := w.Validate(run.ID); !errors.Is(err, ErrNotClosed) {
		t.Errorf("Validating twice should fail, got %v", err)
	}
}

func TestValidateRelocates(t *testing.T) {
	w, l, db := testWorkflow(t)
	a1 := mustSlot(t, l, "A1")
	b2 := mustSlot(t, l, "B2")

	unit, _ := l.ScanIn("7501234567890", a1.ID)

	run, _ := w.CreateDraft("evening restock")
	line, err := w.AddLine(run.ID, CandidateFromUnit(loadUnit(t, db, unit.ID)), 1, nil)
	if err != nil {
		t.Fatalf("AddLine failed: %v", err)
	}
	if err := w.Close(run.ID); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := w.ResolveLine(line.ID, RelocatedTo("B2")); err != nil {
		t.Fatalf("ResolveLine failed: %v", err)
	}
	if err := w.Validate(run.ID); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	var moved models.StockUnit
	db.First(&moved, unit.ID)
	if moved.SlotID != b2.ID {
		t.Errorf("Expected unit relocated to B2 (slot %d), got slot %d", b2.ID, moved.SlotID)
	}

	var flags int64
	db.Model(&models.MissingFlag{}).Where("active = ?", true).Count(&flags)
	if flags != 0 {
		t.Errorf("Relocation must not raise missing flags, got %d", flags)
	}
}

func TestValidateRemovalFlagsMissing(t *testing.T) {
	w, l, db := testWorkflow(t)
	a1 := mustSlot(t, l, "A1")

	unit, _ := l.ScanIn("7509999999990", a1.ID)

	run, _ := w.CreateDraft("")
	line, _ := w.AddLine(run.ID, CandidateFromUnit(loadUnit(t, db, unit.ID)), 1, nil)
	w.Close(run.ID)
	w.ResolveLine(line.ID, Removed())

	if err := w.Validate(run.ID); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	var count int64
	db.Model(&models.StockUnit{}).Count(&count)
	if count != 0 {
		t.Errorf("Expected the unit removed, %d remain", count)
	}

	var flag models.MissingFlag
	if err := db.Where("code = ? AND active = ?", "990001", true).First(&flag).Error; err != nil {
		t.Fatalf("Expected an active missing flag: %v", err)
	}
	if flag.Source != "workflow-validation" {
		t.Errorf("Expected source workflow-validation, got %s", flag.Source)
	}
}

func TestValidateSkipsMovedUnits(t *testing.T) {
	w, l, db := testWorkflow(t)
	a1 := mustSlot(t, l, "A1")
	c3 := mustSlot(t, l, "C3")

	unit, _ := l.ScanIn("7501234567890", a1.ID)

	run, _ := w.CreateDraft("")
	line, _ := w.AddLine(run.ID, CandidateFromUnit(loadUnit(t, db, unit.ID)), 1, nil)
	w.Close(run.ID)
	w.ResolveLine(line.ID, Removed())

	// somebody moved the unit between close and validate, so the snapshot no
	// longer locates it
	if err := l.Relocate(unit.ID, c3.ID); err != nil {
		t.Fatalf("Relocate failed: %v", err)
	}

	if err := w.Validate(run.ID); err != nil {
		t.Fatalf("Validate should skip unlocatable lines, got %v", err)
	}

	var survivor models.StockUnit
	if err := db.First(&survivor, unit.ID).Error; err != nil {
		t.Fatalf("The moved unit must survive validation: %v", err)
	}

	validated, _ := w.Get(run.ID)
	if validated.Status != models.RunValidated {
		t.Errorf("Run should still validate, got %s", validated.Status)
	}
}

func TestNextSameNameSnapshotsAlternate(t *testing.T) {
	w, l, db := testWorkflow(t)
	a1 := mustSlot(t, l, "A1")
	mustSlot(t, l, "B1")
	b1, _ := l.SlotByLabel("B1")

	first, _ := l.ScanIn("7501234567890", a1.ID)
	l.ScanIn("7501234567891", b1.ID) // same display name, different code
	l.ScanIn("7509999999990", b1.ID) // unrelated product

	alt, err := w.NextSameName(loadUnit(t, db, first.ID))
	if err != nil {
		t.Fatalf("NextSameName failed: %v", err)
	}
	if alt == nil {
		t.Fatal("Expected an alternate candidate")
	}
	if alt.Code != "450124" || alt.SlotLabel != "B1" {
		t.Errorf("Unexpected alternate: %+v", alt)
	}

	run, _ := w.CreateDraft("")
	line, err := w.AddLine(run.ID, CandidateFromUnit(loadUnit(t, db, first.ID)), 1, alt)
	if err != nil {
		t.Fatalf("AddLine failed: %v", err)
	}
	if line.AltCode != "450124" || line.AltSlotLabel != "B1" {
		t.Errorf("Alternate snapshot not stored: %+v", line)
	}
}
