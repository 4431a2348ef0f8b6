package api

import (
	"context"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"
	"github.com/synaptica-ai/clinical-assistant/pkg/common/models"
	"github.com/synaptica-ai/clinical-assistant/pkg/master"
	"github.com/synaptica-ai/clinical-assistant/pkg/observability/metrics"
	"github.com/synaptica-ai/clinical-assistant/pkg/uploads"
)

// ChatHistory records chat turns. It is optional.
type ChatHistory interface {
	Append(ctx context.Context, patientID uint, turn models.ChatTurn) error
	Recent(ctx context.Context, patientID uint, limit int) ([]models.ChatTurn, error)
}

// ReadinessCheck reports whether a backing service is reachable.
type ReadinessCheck func(ctx context.Context) error

type Server struct {
	registry       *master.Registry
	uploads        *uploads.Store
	history        ChatHistory
	maxRequestBody int64
	maxUploadBytes int64
	checks         map[string]ReadinessCheck
}

type Options struct {
	History        ChatHistory
	MaxRequestBody int64
	MaxUploadBytes int64
	Checks         map[string]ReadinessCheck
}

func NewServer(registry *master.Registry, store *uploads.Store, opts Options) *Server {
	if opts.MaxRequestBody <= 0 {
		opts.MaxRequestBody = 4 << 20
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 16 << 20
	}
	return &Server{
		registry:       registry,
		uploads:        store,
		history:        opts.History,
		maxRequestBody: opts.MaxRequestBody,
		maxUploadBytes: opts.MaxUploadBytes,
		checks:         opts.Checks,
	}
}

func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.Use(Logging)
	router.Use(Recovery)
	router.Use(CORS)

	// Preflight requests need a matching route for the middleware chain to run.
	router.PathPrefix("/").Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/ready", s.handleReady).Methods(http.MethodGet)
	router.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w)
	}).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	jsonLimit := BodyLimit(s.maxRequestBody)
	uploadLimit := BodyLimit(s.maxUploadBytes)

	api.Handle("/patients", jsonLimit(http.HandlerFunc(s.handleListPatients))).Methods(http.MethodGet)
	api.Handle("/patients", jsonLimit(http.HandlerFunc(s.handleCreatePatient))).Methods(http.MethodPost)
	api.HandleFunc("/patients/{id:[0-9]+}", s.handleGetPatient).Methods(http.MethodGet)
	api.HandleFunc("/patients/{id:[0-9]+}", s.handleDeletePatient).Methods(http.MethodDelete)
	api.HandleFunc("/patients/{id:[0-9]+}/context", s.handleContext).Methods(http.MethodGet)
	api.HandleFunc("/patients/{id:[0-9]+}/summary", s.handleSummary).Methods(http.MethodGet)

	api.Handle("/patients/{id:[0-9]+}/documents", uploadLimit(http.HandlerFunc(s.handleUploadDocument))).Methods(http.MethodPost)
	api.HandleFunc("/patients/{id:[0-9]+}/documents", s.handleListDocuments).Methods(http.MethodGet)

	api.Handle("/patients/{id:[0-9]+}/vitals", jsonLimit(http.HandlerFunc(s.handleAddVitals))).Methods(http.MethodPost)
	api.HandleFunc("/patients/{id:[0-9]+}/vitals", s.handleListVitals).Methods(http.MethodGet)

	api.Handle("/patients/{id:[0-9]+}/family-history", jsonLimit(http.HandlerFunc(s.handleAddFamilyHistory))).Methods(http.MethodPost)
	api.HandleFunc("/patients/{id:[0-9]+}/family-history", s.handleListFamilyHistory).Methods(http.MethodGet)
	api.HandleFunc("/family-history/relations", s.handleRelations).Methods(http.MethodGet)

	api.Handle("/patients/{id:[0-9]+}/chat", jsonLimit(http.HandlerFunc(s.handleChat))).Methods(http.MethodPost)
	api.HandleFunc("/patients/{id:[0-9]+}/chat", s.handleChatHistory).Methods(http.MethodGet)

	api.Handle("/patients/{id:[0-9]+}/images", uploadLimit(http.HandlerFunc(s.handleUploadImage))).Methods(http.MethodPost)
	api.HandleFunc("/patients/{id:[0-9]+}/images", s.handleListImages).Methods(http.MethodGet)

	api.HandleFunc("/patients/{id:[0-9]+}/teeth", s.handleGetTeeth).Methods(http.MethodGet)
	api.Handle("/patients/{id:[0-9]+}/teeth", jsonLimit(http.HandlerFunc(s.handleUpdateTooth))).Methods(http.MethodPost)

	router.PathPrefix("/uploads/").Handler(http.StripPrefix("/uploads/", s.uploadsHandler())).Methods(http.MethodGet)

	return router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"backend": s.registry.Chatbot().HasBackend(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	results := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		if err := check(r.Context()); err != nil {
			results[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}
	writeJSON(w, status, map[string]interface{}{"checks": results})
}

// uploadsHandler serves stored files without directory listings.
func (s *Server) uploadsHandler() http.Handler {
	fs := http.FileServer(http.Dir(s.uploads.Root()))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clean := filepath.ToSlash(filepath.Clean("/" + r.URL.Path))
		if strings.HasSuffix(r.URL.Path, "/") || clean == "/" {
			http.NotFound(w, r)
			return
		}
		fs.ServeHTTP(w, r)
	})
}
