package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type Config struct {
	Port        string
	StorageMode string
	DatabaseURL string
	SslCertPath string

	AwsAccessKey string
	AwsSecretKey string
	AwsRegion    string
	BucketName   string

	AIAPIKey   string
	EmbedModel string
	EmbedDim   int

	JWTSecret    string
	CorsOrigins  []string
	AdminUserIDs []string

	MaxPDFPages     int
	MaxUploadMB     int
	MaxFetchMB      int
	WorkerCount     int
	WorkerQueue     int
	JobTimeout      time.Duration
	WebJobTimeout   time.Duration
	UpsertBatchSize int
	WebMaxDocuments int

	GoogleAPIKey         string
	GoogleSearchEngineID string
	DDGSearchEnabled     bool
	FetchUserAgent       string

	FirestoreProjectID  string
	FirestoreCollection string
}

// LoadConfig loads the environment variables and return config
func LoadConfig() *Config {

	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		StorageMode: getEnv("STORAGE_MODE", StoragePostgres),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		SslCertPath: getEnv("SSL_CERT_PATH", ""),

		AwsAccessKey: getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey: getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:    getEnv("AWS_REGION", "us-east-2"),
		BucketName:   getEnv("BUCKET_NAME", "examcraft-staging"),

		AIAPIKey:   getEnv("GEMINI_API_KEY", ""),
		EmbedModel: getEnv("EMBED_MODEL", "text-embedding-004"),
		EmbedDim:   getEnvInt("EMBED_DIM", 768),

		JWTSecret:    getEnv("JWT_SECRET", ""),
		CorsOrigins:  getEnvList("CORS_ORIGINS", []string{"http://localhost:5173", "http://localhost:3000"}),
		AdminUserIDs: getEnvList("ADMIN_USER_IDS", nil),

		MaxPDFPages:     getEnvInt("MAX_PDF_PAGES", 50),
		MaxUploadMB:     getEnvInt("MAX_UPLOAD_MB", 20),
		MaxFetchMB:      getEnvInt("MAX_FETCH_MB", 15),
		WorkerCount:     getEnvInt("WORKER_COUNT", 2),
		WorkerQueue:     getEnvInt("WORKER_QUEUE", 64),
		JobTimeout:      getEnvDuration("JOB_TIMEOUT", 300*time.Second),
		WebJobTimeout:   getEnvDuration("WEB_JOB_TIMEOUT", 30*time.Minute),
		UpsertBatchSize: getEnvInt("UPSERT_BATCH_SIZE", 10),
		WebMaxDocuments: getEnvInt("WEB_MAX_DOCUMENTS", 50),

		GoogleAPIKey:         getEnv("GOOGLE_API_KEY", ""),
		GoogleSearchEngineID: getEnv("GOOGLE_SEARCH_ENGINE_ID", ""),
		DDGSearchEnabled:     getEnvBool("DDG_SEARCH_ENABLED", true),
		FetchUserAgent:       getEnv("FETCH_USER_AGENT", "Mozilla/5.0 (compatible; ExamcraftBot/1.0)"),

		FirestoreProjectID:  getEnv("FIRESTORE_PROJECT_ID", ""),
		FirestoreCollection: getEnv("FIRESTORE_COLLECTION", "questions"),
	}

	if cfg.StorageMode == StoragePostgres && cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}
	if cfg.JWTSecret == "" {
		log.Println("WARN: JWT_SECRET not set; every authenticated request will be rejected")
	}

	return cfg
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("WARN: %s=%q not an int, using default %d", key, v, def)
		return def
	}
	return n
}

func getEnvBool(key string, def bool) bool {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("WARN: %s=%q not a bool, using default %t", key, v, def)
		return def
	}
	return b
}

// getEnvDuration accepts Go durations ("5m") or a bare number of seconds.
func getEnvDuration(key string, def time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	log.Printf("WARN: %s=%q not a duration, using default %s", key, v, def)
	return def
}

func getEnvList(key string, def []string) []string {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
