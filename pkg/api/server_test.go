package api

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/synaptica-ai/clinical-assistant/pkg/common/models"
	"github.com/synaptica-ai/clinical-assistant/pkg/document"
	"github.com/synaptica-ai/clinical-assistant/pkg/master"
	"github.com/synaptica-ai/clinical-assistant/pkg/records"
	"github.com/synaptica-ai/clinical-assistant/pkg/uploads"
)

type fakeHistory struct {
	mu    sync.Mutex
	turns map[uint][]models.ChatTurn
}

func (f *fakeHistory) Append(_ context.Context, id uint, turn models.ChatTurn) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.turns == nil {
		f.turns = map[uint][]models.ChatTurn{}
	}
	f.turns[id] = append([]models.ChatTurn{turn}, f.turns[id]...)
	return nil
}

func (f *fakeHistory) Recent(_ context.Context, id uint, limit int) ([]models.ChatTurn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	turns := f.turns[id]
	if limit > 0 && limit < len(turns) {
		turns = turns[:limit]
	}
	return turns, nil
}

type stubOCR struct{}

func (stubOCR) Recognize(context.Context, string) (string, error) { return "scanned text", nil }

type testEnv struct {
	handler http.Handler
	store   *records.MemoryStore
	uploads *uploads.Store
	history *fakeHistory
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := records.NewMemoryStore()
	up := uploads.NewStore(t.TempDir(), []string{"pdf", "txt", "png", "jpg", "jpeg", "dicom", "dcm"}, 1<<20)
	require.NoError(t, up.Init())

	parser := document.NewParser(document.NewPDFTextExtractor(), nil, stubOCR{})
	reg := master.New(store, master.Options{Parser: parser})
	history := &fakeHistory{}
	srv := NewServer(reg, up, Options{History: history, MaxUploadBytes: 1 << 20})
	return &testEnv{handler: srv.Router(), store: store, uploads: up, history: history}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) upload(t *testing.T, path, filename string, content []byte, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) createPatient(t *testing.T, name string) models.Patient {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/patients", map[string]string{"name": name})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var p models.Patient
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	return p
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

func TestPatientLifecycle(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/patients", map[string]string{"name": "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Patient name is required")

	p := env.createPatient(t, "Ada Lovelace")
	assert.True(t, strings.HasPrefix(p.ReferenceNumber, "PAT-"))

	rec = env.do(t, http.MethodPost, "/api/patients", map[string]string{"name": "Twin", "reference_number": p.ReferenceNumber})
	require.Equal(t, http.StatusCreated, rec.Code)
	var twin models.Patient
	decode(t, rec, &twin)
	assert.NotEqual(t, p.ReferenceNumber, twin.ReferenceNumber)
	assert.True(t, strings.HasPrefix(twin.ReferenceNumber, p.ReferenceNumber+"-"))

	rec = env.do(t, http.MethodGet, "/api/patients", nil)
	var all []models.Patient
	decode(t, rec, &all)
	assert.Len(t, all, 2)

	rec = env.do(t, http.MethodGet, "/api/patients/999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/patients/"+itoa(p.ID), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, http.MethodGet, "/api/patients/"+itoa(p.ID)+"/context", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestVitalsValidation(t *testing.T) {
	env := newTestEnv(t)
	p := env.createPatient(t, "Ada")
	path := "/api/patients/" + itoa(p.ID) + "/vitals"

	rec := env.do(t, http.MethodPost, path, map[string]interface{}{"temperature": 46, "heart_rate": "fast"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body errorBody
	decode(t, rec, &body)
	assert.Equal(t, "Validation failed", body.Error)
	assert.ElementsMatch(t, []string{"Temperature should be between 30-45°C", "Heart rate must be a valid number"}, body.Errors)

	rec = env.do(t, http.MethodPost, path, map[string]interface{}{"temperature": 37.5, "blood_pressure_systolic": 120, "weight": ""})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodGet, path, nil)
	var vitals []models.Vital
	decode(t, rec, &vitals)
	require.Len(t, vitals, 1)
	assert.Nil(t, vitals[0].Weight)
	assert.Equal(t, 37.5, *vitals[0].Temperature)
}

func TestFamilyHistoryRoutes(t *testing.T) {
	env := newTestEnv(t)
	p := env.createPatient(t, "Ada")
	path := "/api/patients/" + itoa(p.ID) + "/family-history"

	rec := env.do(t, http.MethodPost, path, map[string]interface{}{"relation": "Mother"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Condition is required")

	rec = env.do(t, http.MethodPost, path, map[string]interface{}{"condition": "Diabetes", "relation": "Mother", "age_of_onset": "52"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/family-history/relations", nil)
	assert.Contains(t, rec.Body.String(), "Maternal Grandmother")

	rec = env.do(t, http.MethodGet, "/api/patients/"+itoa(p.ID)+"/summary", nil)
	var summary summaryResponse
	decode(t, rec, &summary)
	assert.Equal(t, "Family History:\n- Diabetes (Mother) - Onset at age 52\n", summary.FamilyHistory)
	assert.Equal(t, "No dental findings recorded.", summary.Dental)
}

func TestTeethRoutes(t *testing.T) {
	env := newTestEnv(t)
	p := env.createPatient(t, "Ada")
	path := "/api/patients/" + itoa(p.ID) + "/teeth"

	rec := env.do(t, http.MethodPost, path, map[string]string{"condition": "root"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, path, map[string]string{"tooth_id": "t33", "condition": "root"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid tooth identifier")

	rec = env.do(t, http.MethodPost, path, map[string]string{"tooth_id": "T14", "condition": " Both "})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"tooth_id":"t14","condition":"both","action":"saved"}`, rec.Body.String())

	rec = env.do(t, http.MethodGet, path, nil)
	assert.JSONEq(t, `{"t14":"both"}`, rec.Body.String())

	rec = env.do(t, http.MethodPost, path, map[string]string{"tooth_id": "t14", "condition": "chipped"})
	assert.JSONEq(t, `{"tooth_id":"t14","condition":null,"action":"removed"}`, rec.Body.String())

	rec = env.do(t, http.MethodGet, path, nil)
	assert.JSONEq(t, `{}`, rec.Body.String())
}

func TestDocumentUpload(t *testing.T) {
	env := newTestEnv(t)
	p := env.createPatient(t, "Ada")
	path := "/api/patients/" + itoa(p.ID) + "/documents"

	rec := env.upload(t, path, "notes.exe", []byte("x"), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid file type")

	rec = env.upload(t, path, "lab notes.txt", []byte("Hemoglobin 13.2"), map[string]string{"document_type": "Lab Result"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var doc models.Document
	decode(t, rec, &doc)
	assert.Equal(t, "Lab Result", doc.DocumentType)
	require.NotNil(t, doc.ParsedText)
	assert.Equal(t, "Hemoglobin 13.2", *doc.ParsedText)
	assert.True(t, strings.HasSuffix(doc.Filename, "_lab_notes.txt"))

	rec = env.upload(t, path, "xray.png", []byte("pixels"), nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	decode(t, rec, &doc)
	assert.Equal(t, document.DefaultDocumentType, doc.DocumentType)
	assert.Equal(t, "scanned text", *doc.ParsedText)

	rec = env.do(t, http.MethodGet, path, nil)
	var docs []models.Document
	decode(t, rec, &docs)
	assert.Len(t, docs, 2)

	rec = env.do(t, http.MethodGet, "/uploads/"+uploads.DocumentsDir+"/"+docs[0].Filename, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Hemoglobin 13.2", rec.Body.String())

	rec = env.upload(t, "/api/patients/999/documents", "a.txt", []byte("x"), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestImageUpload(t *testing.T) {
	env := newTestEnv(t)
	p := env.createPatient(t, "Ada")
	path := "/api/patients/" + itoa(p.ID) + "/images"

	rec := env.upload(t, path, "broken.png", []byte("not a png"), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	entries, _ := os.ReadDir(filepath.Join(env.uploads.Root(), uploads.ImagesDir))
	assert.Empty(t, entries)

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 8, 8))))
	rec = env.upload(t, path, "chest.png", buf.Bytes(), map[string]string{"description": "PA view"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var img models.MedicalImage
	decode(t, rec, &img)
	assert.Equal(t, "Medical Image", img.ImageType)
	assert.Equal(t, "PA view", img.Description)
	assert.Equal(t, "png", img.Info["format"])

	rec = env.do(t, http.MethodGet, path, nil)
	var images []models.MedicalImage
	decode(t, rec, &images)
	assert.Len(t, images, 1)
}

func TestChat(t *testing.T) {
	env := newTestEnv(t)
	p := env.createPatient(t, "Ada")
	path := "/api/patients/" + itoa(p.ID) + "/chat"

	rec := env.do(t, http.MethodPost, path, map[string]string{"question": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Question is required")

	rec = env.do(t, http.MethodPost, "/api/patients/999/chat", map[string]string{"question": "fever?"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, path, map[string]string{"question": "Any fever?"})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp models.ChatResponse
	decode(t, rec, &resp)
	assert.Equal(t, "Any fever?", resp.Question)
	assert.True(t, resp.PatientContextUsed)
	assert.Equal(t, "responder", resp.Source)
	assert.Contains(t, resp.Response, "temperature readings")

	rec = env.do(t, http.MethodGet, path, nil)
	var turns []models.ChatTurn
	decode(t, rec, &turns)
	require.Len(t, turns, 1)
	assert.Equal(t, "Any fever?", turns[0].Question)
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy","backend":false}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = env.do(t, http.MethodGet, "/metrics", nil)
	assert.Contains(t, rec.Body.String(), "clinical_chat_fallback_answers_total")

	req := httptest.NewRequest(http.MethodOptions, "/api/patients", nil)
	rr := httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
