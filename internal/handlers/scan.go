package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gravitypharm/gravistock/internal/barcode"
	"github.com/gravitypharm/gravistock/internal/catalog"
)

// ScanRequest represents the payload from a scanner
type ScanRequest struct {
	Barcode string `json:"barcode"`
}

// ScanResponse standardizes the scan result
type ScanResponse struct {
	Kind    string      `json:"kind"`           // location, product, search
	Message string      `json:"message"`        // Human readable status
	Data    interface{} `json:"data,omitempty"` // The resulting object
}

// handleScan is the universal entry point for all barcode scans. Location
// barcodes win over product codes, product codes over free-text search.
func (r *Router) handleScan(w http.ResponseWriter, req *http.Request) {
	var body ScanRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	scanned := strings.TrimSpace(body.Barcode)
	if scanned == "" {
		respondError(w, http.StatusBadRequest, "Empty barcode")
		return
	}

	switch barcode.Classify(scanned) {
	case barcode.ScanLocation:
		r.processLocationScan(w, scanned)
	case barcode.ScanNumeric:
		r.processProductScan(w, scanned, "product")
	default:
		r.processProductScan(w, scanned, "search")
	}
}

// processLocationScan resolves a shelf barcode to its slot and contents
func (r *Router) processLocationScan(w http.ResponseWriter, scanned string) {
	slot, err := r.ledger.SlotByBarcode(scanned)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	units, err := r.ledger.ListBySlot(slot.ID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, ScanResponse{
		Kind:    "location",
		Message: "Slot " + slot.Label,
		Data: map[string]interface{}{
			"slot":  slot,
			"units": units,
		},
	})
}

// processProductScan resolves a numeric code or a name fragment through the
// catalog service
func (r *Router) processProductScan(w http.ResponseWriter, scanned, kind string) {
	resolved, err := r.catalog.Resolve(scanned)
	if errors.Is(err, catalog.ErrNotFound) {
		respondError(w, http.StatusNotFound, "No product matches "+scanned)
		return
	}
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, ScanResponse{
		Kind:    kind,
		Message: resolved.DisplayName,
		Data:    resolved,
	})
}

// searchCatalog serves typeahead lookups against the in-memory name cache
func (r *Router) searchCatalog(w http.ResponseWriter, req *http.Request) {
	query := strings.TrimSpace(req.URL.Query().Get("q"))
	if len(query) < 3 {
		respondError(w, http.StatusBadRequest, "Query must be at least 3 characters")
		return
	}
	respondJSON(w, http.StatusOK, r.catalog.Suggest(query, 20))
}
