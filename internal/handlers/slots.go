package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/gravitypharm/gravistock/internal/barcode"
	"github.com/gravitypharm/gravistock/internal/labels"
	"github.com/gravitypharm/gravistock/internal/models"
)

type slotRequest struct {
	Label string `json:"label"`
}

func (r *Router) listSlots(w http.ResponseWriter, req *http.Request) {
	slots, err := r.ledger.ListSlots()
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, slots)
}

func (r *Router) createSlot(w http.ResponseWriter, req *http.Request) {
	var body slotRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	slot, err := r.ledger.CreateSlot(body.Label)
	if errors.Is(err, barcode.ErrInvalidLabel) {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, slot)
}

func (r *Router) renameSlot(w http.ResponseWriter, req *http.Request) {
	slot, err := r.ledger.SlotByLabel(mux.Vars(req)["label"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	var body slotRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	renamed, err := r.ledger.RenameSlot(slot.ID, body.Label)
	if errors.Is(err, barcode.ErrInvalidLabel) {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, renamed)
}

func (r *Router) deleteSlot(w http.ResponseWriter, req *http.Request) {
	slot, err := r.ledger.SlotByLabel(mux.Vars(req)["label"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if err := r.ledger.DeleteSlot(slot.ID); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"deleted": slot.Label})
}

func (r *Router) listSlotUnits(w http.ResponseWriter, req *http.Request) {
	slot, err := r.ledger.SlotByLabel(mux.Vars(req)["label"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	units, err := r.ledger.ListBySlot(slot.ID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, units)
}

type scanInRequest struct {
	Barcode string `json:"barcode"`
}

func (r *Router) scanInUnit(w http.ResponseWriter, req *http.Request) {
	slot, err := r.ledger.SlotByLabel(mux.Vars(req)["label"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	var body scanInRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	unit, err := r.ledger.ScanIn(body.Barcode, slot.ID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, unit)
}

func (r *Router) removeUnit(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid unit id")
		return
	}
	if err := r.ledger.Remove(id); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]uint{"removed": id})
}

type relocateRequest struct {
	TargetLabel string `json:"target_label"`
}

func (r *Router) relocateUnit(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid unit id")
		return
	}

	var body relocateRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	slot, err := r.ledger.SlotByLabel(body.TargetLabel)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if err := r.ledger.Relocate(id, slot.ID); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"relocated_to": slot.Label})
}

func (r *Router) listMissing(w http.ResponseWriter, req *http.Request) {
	var flags []models.MissingFlag
	if err := r.db.Where("active = ?", true).Order("reported_at DESC").Find(&flags).Error; err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, flags)
}

// deactivateMissing marks a flag handled. Flags are never hard-deleted, they
// stay on record for the audit trail.
func (r *Router) deactivateMissing(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid flag id")
		return
	}

	res := r.db.Model(&models.MissingFlag{}).Where("id = ? AND active = ?", id, true).Update("active", false)
	if res.Error != nil {
		respondServiceError(w, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		respondError(w, http.StatusNotFound, "No active flag with that id")
		return
	}
	respondJSON(w, http.StatusOK, map[string]uint{"deactivated": id})
}

// printLabels renders a PDF label sheet for the requested slots, or all of
// them when no labels are given
func (r *Router) printLabels(w http.ResponseWriter, req *http.Request) {
	var body struct {
		Labels []string           `json:"labels"`
		Sheet  *labels.SheetConfig `json:"sheet"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var slots []models.Slot
	if len(body.Labels) == 0 {
		all, err := r.ledger.ListSlots()
		if err != nil {
			respondServiceError(w, err)
			return
		}
		slots = all
	} else {
		for _, label := range body.Labels {
			slot, err := r.ledger.SlotByLabel(label)
			if err != nil {
				respondServiceError(w, err)
				return
			}
			slots = append(slots, *slot)
		}
	}

	sheet := labels.DefaultSheet()
	if body.Sheet != nil {
		sheet = *body.Sheet
	}

	pdf, err := labels.GenerateSlotLabelsPDF(sheet, slots)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="slot-labels.pdf"`)
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}

func pathID(req *http.Request) (uint, error) {
	raw := mux.Vars(req)["id"]
	id, err := strconv.ParseUint(raw, 10, 32)
	return uint(id), err
}
