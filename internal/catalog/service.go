// Package catalog keeps the local "known products" table in sync with the
// external product master and resolves scanned input to catalog data.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gravitypharm/gravistock/internal/barcode"
	"github.com/gravitypharm/gravistock/internal/models"
	"github.com/gravitypharm/gravistock/internal/services/master"
	"gorm.io/gorm"
)

// ErrNotFound means neither the master nor the local catalog know the
// scanned input.
var ErrNotFound = errors.New("no matching product")

// Source is the external product master as seen by this package.
// *master.Client implements it.
type Source interface {
	LookupUnit(unitBarcode string) (*master.Product, error)
	LookupCode(code string) (*master.Product, error)
	SearchName(query string, limit int) ([]master.Product, error)
	FetchAll() ([]master.Product, error)
}

// Resolved is the outcome of a scan resolution
type Resolved struct {
	Code        string `json:"code"`
	DisplayName string `json:"display_name"`

	// Unit is the full master row when the input matched a unit barcode,
	// nil for code/name matches.
	Unit *master.Product `json:"unit,omitempty"`
}

// Service resolves scans against the master (with local fallback) and owns
// the lazy catalog_entries rows.
type Service struct {
	db     *gorm.DB
	source Source
	cache  *NameCache

	refreshEvery time.Duration
	stop         chan struct{}
}

func NewService(db *gorm.DB, source Source, cache *NameCache, refreshEvery time.Duration) *Service {
	return &Service{
		db:           db,
		source:       source,
		cache:        cache,
		refreshEvery: refreshEvery,
		stop:         make(chan struct{}),
	}
}

// Resolve maps scanned text to {code, displayName}. Entirely numeric input is
// tried as a unit barcode first, then as a raw catalog code; anything else is
// a name lookup, served from the cache before the master. When the master is
// unreachable, name lookups fall back to the local catalog table.
func (s *Service) Resolve(scanned string) (*Resolved, error) {
	if barcode.Classify(scanned) == barcode.ScanText {
		return s.resolveName(scanned)
	}
	return s.resolveNumeric(scanned)
}

func (s *Service) resolveNumeric(scanned string) (*Resolved, error) {
	p, err := s.source.LookupUnit(scanned)
	if errors.Is(err, master.ErrNotFound) {
		p, err = s.source.LookupCode(scanned)
	}
	if errors.Is(err, master.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	s.stampSearched(p.Code)
	return &Resolved{Code: p.Code, DisplayName: p.Designation, Unit: p}, nil
}

// Suggest returns typeahead candidates for a partial name. Served from the
// cache when loaded, otherwise straight from the master.
func (s *Service) Suggest(query string, limit int) []master.Product {
	if !s.cache.Empty() {
		return s.cache.Search(query, limit)
	}
	hits, err := s.source.SearchName(query, limit)
	if err != nil {
		log.Printf("catalog: suggest %q failed: %v", query, err)
		return nil
	}
	return hits
}

func (s *Service) resolveName(query string) (*Resolved, error) {
	if hits := s.cache.Search(query, 1); len(hits) > 0 {
		s.stampSearched(hits[0].Code)
		return &Resolved{Code: hits[0].Code, DisplayName: hits[0].Designation}, nil
	}

	hits, err := s.source.SearchName(query, 1)
	if err != nil {
		if errors.Is(err, master.ErrUnavailable) {
			return s.resolveNameLocal(query)
		}
		return nil, err
	}
	if len(hits) == 0 {
		return nil, ErrNotFound
	}

	s.stampSearched(hits[0].Code)
	return &Resolved{Code: hits[0].Code, DisplayName: hits[0].Designation}, nil
}

// resolveNameLocal serves a name lookup from catalog_entries when the master
// is down. Stale names beat no answer for a picking operator.
func (s *Service) resolveNameLocal(query string) (*Resolved, error) {
	var entry models.CatalogEntry
	err := s.db.Where("display_name LIKE ?", "%"+query+"%").First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &Resolved{Code: entry.Code, DisplayName: entry.DisplayName}, nil
}

func (s *Service) stampSearched(code string) {
	now := time.Now()
	if err := s.db.Model(&models.CatalogEntry{}).
		Where("code = ?", code).
		Update("last_searched", now).Error; err != nil {
		log.Printf("catalog: failed to stamp last_searched for %s: %v", code, err)
	}
}

// EnsureEntry creates the CatalogEntry for code if absent; otherwise it
// updates the display name and bumps last_edited only when the name actually
// differs. Runs inside the caller's transaction.
func EnsureEntry(tx *gorm.DB, code, displayName string) (*models.CatalogEntry, error) {
	var entry models.CatalogEntry
	err := tx.Where("code = ?", code).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		now := time.Now()
		entry = models.CatalogEntry{
			Code:        code,
			DisplayName: displayName,
			LastEdited:  &now,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return nil, fmt.Errorf("failed to create catalog entry: %w", err)
		}
		return &entry, nil
	}
	if err != nil {
		return nil, err
	}

	if displayName != "" && entry.DisplayName != displayName {
		now := time.Now()
		entry.DisplayName = displayName
		entry.LastEdited = &now
		if err := tx.Save(&entry).Error; err != nil {
			return nil, fmt.Errorf("failed to update catalog entry: %w", err)
		}
	}
	return &entry, nil
}

// AttachPayload stores the latest master payload on the entry, for
// diagnostics only. Errors are the caller's to swallow.
func AttachPayload(tx *gorm.DB, code string, p *master.Product) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return tx.Model(&models.CatalogEntry{}).
		Where("code = ?", code).
		Update("raw_data", raw).Error
}

// Start launches the background name-cache refresh loop
func (s *Service) Start() {
	go func() {
		log.Println("📡 Catalog refresher started")

		s.refresh()

		interval := s.refreshEvery
		if interval <= 0 {
			interval = 15 * time.Minute
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.refresh()
			case <-s.stop:
				log.Println("🛑 Catalog refresher stopped")
				return
			}
		}
	}()
}

// Stop halts the refresh loop
func (s *Service) Stop() {
	close(s.stop)
}

func (s *Service) refresh() {
	products, err := s.source.FetchAll()
	if err != nil {
		log.Printf("❌ Catalog refresh failed: %v", err)
		return
	}
	s.cache.Replace(products)
	log.Printf("✅ Catalog name cache loaded: %d products", len(products))
}
