package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Server
	ServerPort     string
	ServerHost     string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxRequestBody int64

	// Storage: "postgres" or "memory"
	StorageDriver string

	// Database
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Kafka
	KafkaBrokers     []string
	KafkaEventsTopic string

	// Uploads
	UploadDir         string
	AllowedExtensions []string
	MaxUploadBytes    int64

	// OCR
	TesseractPath string
	PdftoppmPath  string
	OCRLanguage   string
	OCRDPI        int

	// LLM
	LLMEnabled      bool
	LLMAPIKey       string
	LLMBaseURL      string
	LLMModelName    string
	LLMTimeout      time.Duration
	LLMMaxNewTokens int
	LLMTemperature  float64
	LLMRedactPHI    bool
	DLPRulesPath    string

	// Terminology catalog for family history coding
	TerminologyPath string

	// Chat
	ResponderRulesPath string
	ChatHistorySize    int
	ChatHistoryTTL     time.Duration
}

func Load() *Config {
	return &Config{
		ServerPort:     getEnv("SERVER_PORT", "5000"),
		ServerHost:     getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:    getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:   getDuration("WRITE_TIMEOUT", 120*time.Second),
		MaxRequestBody: int64(getIntEnv("MAX_REQUEST_BODY_BYTES", 4*1024*1024)),

		StorageDriver: strings.ToLower(getEnv("STORAGE_DRIVER", "postgres")),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "clinical"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "clinical123"),
		PostgresDB:       getEnv("POSTGRES_DB", "clinical_assistant"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		KafkaBrokers:     getStringSliceEnv("KAFKA_BROKERS", nil),
		KafkaEventsTopic: getEnv("KAFKA_EVENTS_TOPIC", "clinical.records"),

		UploadDir:         getEnv("UPLOAD_FOLDER", "uploads"),
		AllowedExtensions: getStringSliceEnv("ALLOWED_EXTENSIONS", []string{"pdf", "txt", "png", "jpg", "jpeg", "dicom", "dcm"}),
		MaxUploadBytes:    int64(getIntEnv("MAX_UPLOAD_BYTES", 16*1024*1024)),

		TesseractPath: getEnv("TESSERACT_PATH", "tesseract"),
		PdftoppmPath:  getEnv("PDFTOPPM_PATH", "pdftoppm"),
		OCRLanguage:   getEnv("OCR_LANGUAGE", "eng"),
		OCRDPI:        getIntEnv("OCR_DPI", 200),

		LLMEnabled:      getBoolEnv("LLM_ENABLED", false),
		LLMAPIKey:       getEnv("LLM_API_KEY", ""),
		LLMBaseURL:      getEnv("LLM_BASE_URL", "https://api.openai.com/v1"),
		LLMModelName:    getEnv("LLM_MODEL_NAME", "gpt-4o-mini"),
		LLMTimeout:      getDuration("LLM_TIMEOUT", 60*time.Second),
		LLMMaxNewTokens: getIntEnv("LLM_MAX_NEW_TOKENS", 200),
		LLMTemperature:  getFloatEnv("LLM_TEMPERATURE", 0.7),
		LLMRedactPHI:    getBoolEnv("LLM_REDACT_PHI", true),
		DLPRulesPath:    getEnv("DLP_RULES_PATH", ""),

		TerminologyPath: getEnv("TERMINOLOGY_PATH", ""),

		ResponderRulesPath: getEnv("RESPONDER_RULES_PATH", ""),
		ChatHistorySize:    getIntEnv("CHAT_HISTORY_SIZE", 50),
		ChatHistoryTTL:     getDuration("CHAT_HISTORY_TTL", 7*24*time.Hour),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
