package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultDSN = "host=localhost user=postgres password=postgres dbname=casper port=5432 sslmode=disable"

type Config struct {
	HTTPPort             string
	DatabaseDSN          string
	JWTSecret            string
	CORSOrigins          string
	StorageBackend       string // local or s3
	MediaRoot            string // uploaded feed files are stored below this folder
	S3Bucket             string
	S3Region             string
	S3Prefix             string
	AccessTokenLifetime  time.Duration
	RefreshTokenLifetime time.Duration
	RotateRefreshTokens  bool
	AllowedEmailDomain   string
	FeedLayout           string // column layout version used by the feed importer
	ReportTimezone       string
	ExportCacheTTL       time.Duration
	ExportCacheSweep     string // cron spec
	PageSize             int
}

func Load() *Config {
	// .env is optional, real environment variables win
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("[WARN] .env could not be read: %v", err)
	}

	cfg := &Config{
		HTTPPort:             getEnv("HTTP_PORT", "8080"),
		DatabaseDSN:          getEnv("DATABASE_DSN", defaultDSN),
		JWTSecret:            getEnv("JWT_SECRET", ""),
		CORSOrigins:          getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
		StorageBackend:       strings.ToLower(getEnv("STORAGE_BACKEND", "local")),
		MediaRoot:            getEnv("MEDIA_ROOT", "./media"),
		S3Bucket:             getEnv("S3_BUCKET", ""),
		S3Region:             getEnv("S3_REGION", ""),
		S3Prefix:             getEnv("S3_PREFIX", ""),
		AccessTokenLifetime:  getSeconds("ACCESS_TOKEN_LIFETIME", 3600),
		RefreshTokenLifetime: getSeconds("REFRESH_TOKEN_LIFETIME", 86400),
		RotateRefreshTokens:  getBool("ROTATE_REFRESH_TOKENS", true),
		AllowedEmailDomain:   strings.ToLower(getEnv("ALLOWED_EMAIL_DOMAIN", "belf.com")),
		FeedLayout:           getEnv("FEED_LAYOUT", "1"),
		ReportTimezone:       getEnv("REPORT_TIMEZONE", "America/Hermosillo"),
		ExportCacheTTL:       getSeconds("EXPORT_CACHE_TTL", 24*3600),
		ExportCacheSweep:     getEnv("EXPORT_CACHE_SWEEP", "*/15 * * * *"),
		PageSize:             getInt("PAGE_SIZE", 100),
	}

	if cfg.JWTSecret == "" {
		log.Fatal("[FATAL] JWT_SECRET is not set")
	}
	if len(cfg.JWTSecret) < 32 {
		log.Fatal("[FATAL] JWT_SECRET must be at least 32 characters long")
	}
	switch cfg.StorageBackend {
	case "local":
	case "s3":
		if cfg.S3Bucket == "" {
			log.Fatal("[FATAL] STORAGE_BACKEND=s3 needs S3_BUCKET")
		}
	default:
		log.Fatalf("[FATAL] STORAGE_BACKEND=%q is not supported, use local or s3", cfg.StorageBackend)
	}
	if cfg.DatabaseDSN == defaultDSN {
		log.Println("[WARN] DATABASE_DSN is using the local default, set it for production.")
	}
	if cfg.CORSOrigins == "http://localhost:3000" {
		log.Println("[WARN] CORS_ALLOWED_ORIGINS is using the local default, set it for production.")
	}

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[WARN] %s=%q is not an integer, using %d", key, v, def)
		return def
	}
	return n
}

func getSeconds(key string, def int) time.Duration {
	return time.Duration(getInt(key, def)) * time.Second
}

func getBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("[WARN] %s=%q is not a boolean, using %t", key, v, def)
		return def
	}
	return b
}
