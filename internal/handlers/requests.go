package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
)

type sendRequestBody struct {
	Code        string `json:"code"`
	DisplayName string `json:"display_name"`
	Quantity    int    `json:"quantity"`
	Message     string `json:"message"`
	Urgent      bool   `json:"urgent"`
}

func (r *Router) sendRequest(w http.ResponseWriter, req *http.Request) {
	var body sendRequestBody
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if body.Code == "" && body.DisplayName == "" {
		respondError(w, http.StatusBadRequest, "Either code or display_name is required")
		return
	}

	sent, err := r.requests.Send(body.Code, body.DisplayName, body.Quantity, body.Message, body.Urgent)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, sent)
}

func (r *Router) pendingRequests(w http.ResponseWriter, req *http.Request) {
	reqs, err := r.requests.PendingForHub()
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, reqs)
}

func (r *Router) requestResponses(w http.ResponseWriter, req *http.Request) {
	station := req.URL.Query().Get("station")
	if station == "" {
		station = r.cfg.Station.Name
	}
	reqs, err := r.requests.ResponsesFor(station)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, reqs)
}

type respondRequestBody struct {
	Accept bool `json:"accept"`
}

func (r *Router) respondRequest(w http.ResponseWriter, req *http.Request) {
	var body respondRequestBody
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	id := mux.Vars(req)["id"]
	if err := r.requests.Respond(id, body.Accept); err != nil {
		respondServiceError(w, err)
		return
	}

	updated, err := r.requests.Get(id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

func (r *Router) ackRequest(w http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]
	if err := r.requests.Acknowledge(id); err != nil {
		respondServiceError(w, err)
		return
	}

	updated, err := r.requests.Get(id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}
