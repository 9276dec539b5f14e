package sweep

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

func testSweep(t *testing.T) (*Sweep, *ledger.Ledger, *gorm.DB) {
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
		&models.EventLog{},
	)
	if err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}

	resolver := &fakeResolver{products: map[string]catalog.Resolved{
		"7501234567890": {Code: "450123", DisplayName: "DOLIPRANE 1000MG CPR 8"},
		"7509999999990": {Code: "990001", DisplayName: "SPASFON LYOC 80MG"},
		"7508888888880": {Code: "880001", DisplayName: "EFFERALGAN 500MG"},
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

func TestStartRequiresIdle(t *testing.T) {
	s, l, _ := testSweep(t)
	a1 := mustSlot(t, l, "A1")
	if _, err := l.ScanIn("7501234567890", a1.ID); err != nil {
		t.Fatalf("ScanIn failed: %v", err)
	}

	if active, _ := s.Active(); active {
		t.Fatal("Sweep should be idle before start")
	}
	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if active, _ := s.Active(); !active {
		t.Fatal("Sweep should be active after start")
	}

	if err := s.Start(); !errors.Is(err, ErrSweepActive) {
		t.Errorf("Expected ErrSweepActive, got %v", err)
	}
}

func TestConfirmClearsSuspect(t *testing.T) {
	s, l, db := testSweep(t)
	a1 := mustSlot(t, l, "A1")
	unit, _ := l.ScanIn("7501234567890", a1.ID)

	if _, err := s.Confirm(unit.UnitBarcode, a1.ID); !errors.Is(err, ErrSweepIdle) {
		t.Errorf("Confirm before start should fail with ErrSweepIdle, got %v", err)
	}

	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	confirmed, err := s.Confirm(unit.UnitBarcode, a1.ID)
	if err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}
	if confirmed.Suspect {
		t.Error("Confirmed unit should no longer be suspect")
	}

	var stored models.StockUnit
	db.First(&stored, unit.ID)
	if stored.Suspect {
		t.Error("Suspect mark should be cleared in the store")
	}
}

func TestConfirmScansInNewDiscovery(t *testing.T) {
	s, l, _ := testSweep(t)
	a1 := mustSlot(t, l, "A1")
	if _, err := l.ScanIn("7501234567890", a1.ID); err != nil {
		t.Fatalf("ScanIn failed: %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// a unit nobody had registered turns up during the recount
	created, err := s.Confirm("7509999999990", a1.ID)
	if err != nil {
		t.Fatalf("Confirm of new unit failed: %v", err)
	}
	if created == nil {
		t.Fatal("Expected the new unit to be created")
	}
	if created.Suspect {
		t.Error("A unit found during the sweep must not be purged at close")
	}

	// unknown barcodes are logged and skipped, never an error
	skipped, err := s.Confirm("0000000000000", a1.ID)
	if err != nil {
		t.Fatalf("Unknown barcode should be swallowed, got %v", err)
	}
	if skipped != nil {
		t.Error("Unknown barcode should not create a unit")
	}
}

func TestCloseFlagsSweepLosses(t *testing.T) {
	s, l, db := testSweep(t)
	a1 := mustSlot(t, l, "A1")
	b1 := mustSlot(t, l, "B1")

	seen, _ := l.ScanIn("7501234567890", a1.ID)
	l.ScanIn("7501234567890", b1.ID) // same code, second unit, never rescanned
	l.ScanIn("7509999999990", b1.ID) // last unit of its code, never rescanned

	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if _, err := s.Confirm(seen.UnitBarcode, a1.ID); err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}

	unconfirmed, err := s.ListUnconfirmed()
	if err != nil {
		t.Fatalf("ListUnconfirmed failed: %v", err)
	}
	if len(unconfirmed) != 2 {
		t.Fatalf("Expected 2 unconfirmed units, got %d", len(unconfirmed))
	}

	purged, err := s.Close()
	if err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if purged != 2 {
		t.Errorf("Expected 2 purged units, got %d", purged)
	}
	if active, _ := s.Active(); active {
		t.Error("Sweep should be idle after close")
	}

	// one unit of 450123 survived, so no flag for it
	var flags []models.MissingFlag
	db.Where("active = ?", true).Find(&flags)
	if len(flags) != 1 {
		t.Fatalf("Expected exactly one active flag, got %d", len(flags))
	}
	if flags[0].Code != "990001" {
		t.Errorf("Expected flag for 990001, got %s", flags[0].Code)
	}
	if flags[0].Source != "sweep-loss" {
		t.Errorf("Expected source sweep-loss, got %s", flags[0].Source)
	}
}

func TestCloseRequiresActive(t *testing.T) {
	s, _, _ := testSweep(t)
	if _, err := s.Close(); !errors.Is(err, ErrSweepIdle) {
		t.Errorf("Expected ErrSweepIdle, got %v", err)
	}
}
