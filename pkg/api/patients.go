package api

import (
	"net/http"

	"github.com/synaptica-ai/clinical-assistant/pkg/common/logger"
	"github.com/synaptica-ai/clinical-assistant/pkg/common/models"
	"github.com/synaptica-ai/clinical-assistant/pkg/common/validation"
	"github.com/synaptica-ai/clinical-assistant/pkg/familyhistory"
	"github.com/synaptica-ai/clinical-assistant/pkg/medimage"
	"github.com/synaptica-ai/clinical-assistant/pkg/patientctx"
	"github.com/synaptica-ai/clinical-assistant/pkg/records"
	"github.com/synaptica-ai/clinical-assistant/pkg/teeth"
)

func (s *Server) handleListPatients(w http.ResponseWriter, r *http.Request) {
	patients, err := s.registry.Store().ListPatients(r.Context())
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, patients)
}

func (s *Server) handleCreatePatient(w http.ResponseWriter, r *http.Request) {
	var req models.CreatePatientRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	patient, err := records.RegisterPatient(r.Context(), s.registry.Store(), req)
	if violations := validation.Violations(err); len(violations) > 0 {
		writeError(w, http.StatusBadRequest, violations[0])
		return
	}
	if err != nil {
		writeFailure(w, err)
		return
	}
	logger.ForPatient("api", patient.ID).WithField("reference", patient.ReferenceNumber).Info("Patient registered")
	writeJSON(w, http.StatusCreated, patient)
}

func (s *Server) handleGetPatient(w http.ResponseWriter, r *http.Request) {
	id, ok := patientID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Patient not found")
		return
	}
	patient, err := s.registry.Store().GetPatient(r.Context(), id)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, patient)
}

// handleDeletePatient removes the patient, every child record and the
// uploaded files those records point at.
func (s *Server) handleDeletePatient(w http.ResponseWriter, r *http.Request) {
	id, ok := patientID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Patient not found")
		return
	}
	ctx := r.Context()
	pc, err := s.registry.BuildContext(ctx, id)
	if err != nil {
		writeFailure(w, err)
		return
	}
	if err := s.registry.Store().DeletePatient(ctx, id); err != nil {
		writeFailure(w, err)
		return
	}

	log := logger.ForPatient("api", id)
	for _, doc := range pc.Documents {
		if err := s.uploads.Remove(doc.FilePath); err != nil {
			log.WithError(err).Warn("Failed to remove document file")
		}
	}
	for _, img := range pc.Images {
		if err := s.uploads.Remove(img.FilePath); err != nil {
			log.WithError(err).Warn("Failed to remove image file")
		}
	}
	s.registry.NotifyPatientDeleted(ctx, id)
	log.Info("Patient deleted")
	writeJSON(w, http.StatusOK, map[string]interface{}{"deleted": true, "id": id})
}

func (s *Server) handleContext(w http.ResponseWriter, r *http.Request) {
	id, ok := patientID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Patient not found")
		return
	}
	pc, err := s.registry.BuildContext(r.Context(), id)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pc)
}

type summaryResponse struct {
	Prompt        string `json:"prompt"`
	FamilyHistory string `json:"family_history"`
	Dental        string `json:"dental"`
	Images        string `json:"images"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := patientID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Patient not found")
		return
	}
	pc, err := s.registry.BuildContext(r.Context(), id)
	if err != nil {
		writeFailure(w, err)
		return
	}
	dental := make(map[string]string, len(pc.DentalRecords))
	for _, f := range pc.DentalRecords {
		dental[f.ToothID] = f.Condition
	}
	writeJSON(w, http.StatusOK, summaryResponse{
		Prompt:        patientctx.BuildPromptContext(pc),
		FamilyHistory: familyhistory.Summarize(pc.FamilyHistory),
		Dental:        teeth.Summary(dental),
		Images:        medimage.Summarize(pc.Images),
	})
}
