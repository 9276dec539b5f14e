package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gravitypharm/gravistock/internal/models"
	"github.com/gravitypharm/gravistock/internal/supply"
)

func (r *Router) listRuns(w http.ResponseWriter, req *http.Request) {
	var statuses []models.RunStatus
	if s := req.URL.Query().Get("status"); s != "" {
		statuses = append(statuses, models.RunStatus(s))
	}
	runs, err := r.supply.List(statuses...)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, runs)
}

func (r *Router) createRun(w http.ResponseWriter, req *http.Request) {
	var body struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	run, err := r.supply.CreateDraft(body.Title)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, run)
}

func (r *Router) getRun(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid run id")
		return
	}
	run, err := r.supply.Get(id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, run)
}

type addLineRequest struct {
	UnitBarcode string `json:"unit_barcode"`
	Quantity    int    `json:"quantity"`
}

// addLine resolves a scanned unit into a frozen snapshot line. The service
// also snapshots the next unit sharing the same product name, so the picker
// sees the follow-up candidate even if stock moves meanwhile.
func (r *Router) addLine(w http.ResponseWriter, req *http.Request) {
	runID, err := pathID(req)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid run id")
		return
	}

	var body addLineRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var unit models.StockUnit
	err = r.db.Preload("Catalog").Preload("Slot").
		Where("unit_barcode = ?", body.UnitBarcode).
		First(&unit).Error
	if err != nil {
		respondError(w, http.StatusNotFound, "No stocked unit with barcode "+body.UnitBarcode)
		return
	}

	alt, err := r.supply.NextSameName(&unit)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	line, err := r.supply.AddLine(runID, supply.CandidateFromUnit(&unit), body.Quantity, alt)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, line)
}

func (r *Router) removeLine(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid line id")
		return
	}
	if err := r.supply.RemoveLine(id); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]uint{"removed": id})
}

func (r *Router) clearLines(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid run id")
		return
	}
	if err := r.supply.ClearLines(id); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]uint{"cleared": id})
}

func (r *Router) closeRun(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid run id")
		return
	}
	if err := r.supply.Close(id); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": string(models.RunClosed)})
}

type resolveLineRequest struct {
	Resolution string `json:"resolution"`
}

func (r *Router) resolveLine(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid line id")
		return
	}

	var body resolveLineRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := supply.ParseResolution(body.Resolution)
	if errors.Is(err, supply.ErrBadResolution) {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if err := r.supply.ResolveLine(id, res); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"resolution": res.String()})
}

func (r *Router) validateRun(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid run id")
		return
	}
	if err := r.supply.Validate(id); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": string(models.RunValidated)})
}
