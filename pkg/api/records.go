package api

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/synaptica-ai/clinical-assistant/pkg/common/logger"
	"github.com/synaptica-ai/clinical-assistant/pkg/common/models"
	"github.com/synaptica-ai/clinical-assistant/pkg/document"
	"github.com/synaptica-ai/clinical-assistant/pkg/familyhistory"
	"github.com/synaptica-ai/clinical-assistant/pkg/medimage"
	"github.com/synaptica-ai/clinical-assistant/pkg/teeth"
	"github.com/synaptica-ai/clinical-assistant/pkg/uploads"
)

// requirePatient resolves the {id} route variable to an existing patient.
func (s *Server) requirePatient(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, ok := patientID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Patient not found")
		return 0, false
	}
	if _, err := s.registry.Store().GetPatient(r.Context(), id); err != nil {
		writeFailure(w, err)
		return 0, false
	}
	return id, true
}

// saveUpload stores the "file" form part under subdir.
func (s *Server) saveUpload(w http.ResponseWriter, r *http.Request, subdir string) (string, string, bool) {
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, uploads.ErrTooLarge.Error())
			return "", "", false
		}
		writeError(w, http.StatusBadRequest, "No file provided")
		return "", "", false
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file provided")
		return "", "", false
	}
	defer func(f multipart.File) { _ = f.Close() }(file)

	name, path, err := s.uploads.Save(subdir, header.Filename, file)
	switch {
	case errors.Is(err, uploads.ErrNoFile), errors.Is(err, uploads.ErrInvalidFileType):
		writeError(w, http.StatusBadRequest, err.Error())
		return "", "", false
	case errors.Is(err, uploads.ErrTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
		return "", "", false
	case err != nil:
		writeFailure(w, err)
		return "", "", false
	}
	return name, path, true
}

func formValue(r *http.Request, key, fallback string) string {
	if v := strings.TrimSpace(r.FormValue(key)); v != "" {
		return v
	}
	return fallback
}

func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requirePatient(w, r)
	if !ok {
		return
	}
	name, path, ok := s.saveUpload(w, r, uploads.DocumentsDir)
	if !ok {
		return
	}
	docType := formValue(r, "document_type", document.DefaultDocumentType)
	doc, err := s.registry.Documents().Ingest(r.Context(), id, name, path, docType)
	if err != nil {
		_ = s.uploads.Remove(path)
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requirePatient(w, r)
	if !ok {
		return
	}
	docs, err := s.registry.Documents().List(r.Context(), id)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

func (s *Server) handleAddVitals(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requirePatient(w, r)
	if !ok {
		return
	}
	var fields map[string]interface{}
	if err := decodeJSON(r, &fields); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	vital, err := s.registry.Vitals().Store(r.Context(), id, fields)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, vital)
}

func (s *Server) handleListVitals(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requirePatient(w, r)
	if !ok {
		return
	}
	vitals, err := s.registry.Vitals().List(r.Context(), id)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vitals)
}

func (s *Server) handleAddFamilyHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requirePatient(w, r)
	if !ok {
		return
	}
	var fields map[string]interface{}
	if err := decodeJSON(r, &fields); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	entry, err := s.registry.FamilyHistory().Store(r.Context(), id, fields)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) handleListFamilyHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requirePatient(w, r)
	if !ok {
		return
	}
	entries, err := s.registry.FamilyHistory().List(r.Context(), id)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleRelations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, familyhistory.CommonRelations)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "Question is required")
		return
	}
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
	answer, source := s.registry.Chatbot().AnswerWithSource(ctx, req.Question, pc)

	if s.history != nil {
		turn := models.ChatTurn{Question: req.Question, Response: answer, Source: source, AskedAt: time.Now().UTC()}
		if err := s.history.Append(ctx, id, turn); err != nil {
			logger.ForPatient("api", id).WithError(err).Warn("Failed to record chat turn")
		}
	}

	writeJSON(w, http.StatusOK, models.ChatResponse{
		Question:           req.Question,
		Response:           answer,
		Source:             source,
		PatientContextUsed: true,
	})
}

func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requirePatient(w, r)
	if !ok {
		return
	}
	if s.history == nil {
		writeJSON(w, http.StatusOK, []models.ChatTurn{})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	turns, err := s.history.Recent(r.Context(), id, limit)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, turns)
}

func (s *Server) handleUploadImage(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requirePatient(w, r)
	if !ok {
		return
	}
	name, path, ok := s.saveUpload(w, r, uploads.ImagesDir)
	if !ok {
		return
	}
	img, err := s.registry.Images().Ingest(
		r.Context(), id, name, path,
		formValue(r, "image_type", medimage.DefaultImageType),
		r.FormValue("description"),
	)
	if err != nil {
		_ = s.uploads.Remove(path)
		if errors.Is(err, medimage.ErrInvalidImage) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, img)
}

func (s *Server) handleListImages(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requirePatient(w, r)
	if !ok {
		return
	}
	images, err := s.registry.Images().List(r.Context(), id)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, images)
}

func (s *Server) handleGetTeeth(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requirePatient(w, r)
	if !ok {
		return
	}
	findings, err := s.registry.Teeth().GetAll(r.Context(), id)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, findings)
}

type toothRequest struct {
	ToothID   string `json:"tooth_id"`
	Condition string `json:"condition"`
}

func (s *Server) handleUpdateTooth(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requirePatient(w, r)
	if !ok {
		return
	}
	var req toothRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.ToothID) == "" {
		writeError(w, http.StatusBadRequest, "tooth_id is required")
		return
	}
	result, err := s.registry.Teeth().Update(r.Context(), id, req.ToothID, req.Condition)
	if errors.Is(err, teeth.ErrInvalidTooth) {
		writeError(w, http.StatusBadRequest, "Invalid tooth identifier")
		return
	}
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
