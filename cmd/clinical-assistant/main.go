package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/synaptica-ai/clinical-assistant/pkg/api"
	"github.com/synaptica-ai/clinical-assistant/pkg/chatbot"
	"github.com/synaptica-ai/clinical-assistant/pkg/common/config"
	"github.com/synaptica-ai/clinical-assistant/pkg/common/database"
	"github.com/synaptica-ai/clinical-assistant/pkg/common/kafka"
	"github.com/synaptica-ai/clinical-assistant/pkg/common/logger"
	"github.com/synaptica-ai/clinical-assistant/pkg/document"
	"github.com/synaptica-ai/clinical-assistant/pkg/llm"
	"github.com/synaptica-ai/clinical-assistant/pkg/master"
	"github.com/synaptica-ai/clinical-assistant/pkg/records"
	"github.com/synaptica-ai/clinical-assistant/pkg/terminology"
	"github.com/synaptica-ai/clinical-assistant/pkg/uploads"
	"gorm.io/gorm"
)

func main() {
	logger.Init()
	cfg := config.Load()

	store, db, err := openStore(cfg)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to open record store")
	}
	defer database.ClosePostgres(db)

	checks := map[string]api.ReadinessCheck{}
	if db != nil {
		checks["postgres"] = func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}
	}

	// Redis only backs chat history; the service runs without it.
	var history api.ChatHistory
	redisClient, err := database.OpenRedis(cfg)
	if err != nil {
		logger.Log.WithError(err).Warn("Chat history disabled")
		_ = database.CloseRedis(redisClient)
	} else {
		defer database.CloseRedis(redisClient)
		history = chatbot.NewHistoryStore(redisClient, cfg.ChatHistorySize, cfg.ChatHistoryTTL)
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	var events kafka.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaEventsTopic)
		defer producer.Close()
		events = producer
		logger.Log.WithField("topic", cfg.KafkaEventsTopic).Info("Record events enabled")
	}

	buckets, err := chatbot.LoadBuckets(cfg.ResponderRulesPath)
	if err != nil {
		logger.Log.WithError(err).Warn("Failed to load responder buckets, using defaults")
		buckets = chatbot.DefaultBuckets()
	}
	params := chatbot.DefaultGenerateParams()
	params.MaxNewTokens = cfg.LLMMaxNewTokens
	params.Temperature = cfg.LLMTemperature
	engine := chatbot.NewEngine(llm.Load(cfg), chatbot.NewResponder(buckets), params)

	parser := document.NewParser(
		document.NewPDFTextExtractor(),
		document.NewPopplerRasterizer(cfg.PdftoppmPath, cfg.OCRDPI),
		document.NewTesseractOCR(cfg.TesseractPath, cfg.OCRLanguage),
	)
	catalog, err := terminology.Load(cfg.TerminologyPath)
	if err != nil {
		logger.Log.WithError(err).Warn("Failed to load terminology catalog, using defaults")
		catalog = terminology.DefaultCatalog()
	}
	registry := master.New(store, master.Options{Parser: parser, Engine: engine, Events: events, Catalog: catalog})

	uploadStore := uploads.NewStore(cfg.UploadDir, cfg.AllowedExtensions, cfg.MaxUploadBytes)
	if err := uploadStore.Init(); err != nil {
		logger.Log.WithError(err).Fatal("Failed to create upload directories")
	}

	srv := api.NewServer(registry, uploadStore, api.Options{
		History:        history,
		MaxRequestBody: cfg.MaxRequestBody,
		MaxUploadBytes: cfg.MaxUploadBytes,
		Checks:         checks,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      srv.Router(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host":    cfg.ServerHost,
			"port":    cfg.ServerPort,
			"storage": cfg.StorageDriver,
			"backend": engine.HasBackend(),
		}).Info("Clinical assistant started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down clinical assistant...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}

	logger.Log.Info("Clinical assistant stopped")
}

func openStore(cfg *config.Config) (records.Store, *gorm.DB, error) {
	switch cfg.StorageDriver {
	case "memory":
		logger.Log.Warn("Using in-memory record store; data is lost on restart")
		return records.NewMemoryStore(), nil, nil
	case "postgres", "":
		db, err := database.OpenPostgres(cfg)
		if err != nil {
			return nil, nil, err
		}
		repo := records.NewRepository(db)
		if err := repo.AutoMigrate(); err != nil {
			return nil, db, fmt.Errorf("migrating schema: %w", err)
		}
		return repo, db, nil
	default:
		return nil, nil, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.StorageDriver)
	}
}
