package handlers

import (
	"encoding/json"
	"net/http"
)

func (r *Router) sweepStatus(w http.ResponseWriter, req *http.Request) {
	active, err := r.sweep.Active()
	if err != nil {
		respondServiceError(w, err)
		return
	}

	resp := map[string]interface{}{"active": active}
	if active {
		unconfirmed, err := r.sweep.ListUnconfirmed()
		if err != nil {
			respondServiceError(w, err)
			return
		}
		resp["unconfirmed"] = unconfirmed
	}
	respondJSON(w, http.StatusOK, resp)
}

func (r *Router) startSweep(w http.ResponseWriter, req *http.Request) {
	if err := r.sweep.Start(); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"active": true})
}

type sweepConfirmRequest struct {
	Barcode   string `json:"barcode"`
	SlotLabel string `json:"slot_label"`
}

// confirmSweep handles one sighting during a sweep. Known units lose their
// suspect mark; unknown barcodes are scanned in fresh.
func (r *Router) confirmSweep(w http.ResponseWriter, req *http.Request) {
	var body sweepConfirmRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	slot, err := r.ledger.SlotByLabel(body.SlotLabel)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	unit, err := r.sweep.Confirm(body.Barcode, slot.ID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if unit == nil {
		// sighting noted but nothing changed, e.g. unknown product
		respondJSON(w, http.StatusOK, map[string]bool{"recorded": false})
		return
	}
	respondJSON(w, http.StatusOK, unit)
}

func (r *Router) closeSweep(w http.ResponseWriter, req *http.Request) {
	purged, err := r.sweep.Close()
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"purged": purged})
}
