package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/synaptica-ai/clinical-assistant/pkg/common/logger"
	"github.com/synaptica-ai/clinical-assistant/pkg/common/models"
	"github.com/synaptica-ai/clinical-assistant/pkg/common/validation"
	"github.com/synaptica-ai/clinical-assistant/pkg/observability/metrics"
)

type errorBody struct {
	Error  string   `json:"error"`
	Errors []string `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Log.WithError(err).Warn("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// writeFailure maps domain errors onto status codes.
func writeFailure(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "Patient not found")
	case validation.IsValidationError(err):
		metrics.IncValidationRejected()
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Validation failed", Errors: validation.Violations(err)})
	default:
		logger.Log.WithError(err).Error("Request failed")
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func patientID(r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	return dec.Decode(dst)
}
