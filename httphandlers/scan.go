package httphandlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/lessslie/olimpo-checkin/scan"
)

const maxCodeSize = 4096

type statusMsg struct {
	Session string      `json:"session,omitempty"`
	Status  scan.Status `json:"status"`
	Error   string      `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("error writing response: %s", err)
	}
}

func (h handlers) startRequest(w http.ResponseWriter, req *http.Request) {
	id, err := h.scanner.Start(h.ctx)
	if errors.Is(err, scan.ErrBusy) {
		writeJSON(w, http.StatusConflict, statusMsg{
			Session: h.scanner.Session(),
			Status:  h.scanner.Status(),
			Error:   err.Error(),
		})
		return
	}
	if err != nil {
		log.Printf("error starting scan: %s", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusAccepted, statusMsg{Session: id, Status: h.scanner.Status()})
}

func (h handlers) stopRequest(w http.ResponseWriter, req *http.Request) {
	h.scanner.Stop()
	w.WriteHeader(http.StatusNoContent)
}

func (h handlers) statusRequest(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, statusMsg{Session: h.scanner.Session(), Status: h.scanner.Status()})
}

func (h handlers) checkinRequest(w http.ResponseWriter, req *http.Request) {
	b, err := io.ReadAll(io.LimitReader(req.Body, maxCodeSize+1))
	if err != nil {
		log.Printf("error reading body: %s", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if len(b) > maxCodeSize {
		w.WriteHeader(http.StatusRequestEntityTooLarge)
		return
	}

	raw := strings.TrimSpace(string(b))
	log.Printf("Check-in request received: %s", raw)

	out := h.checkin.HandleRaw(req.Context(), raw)
	if h.outcomes != nil {
		h.outcomes.OutcomeReady("", out)
	}
	writeJSON(w, http.StatusOK, out)
}
