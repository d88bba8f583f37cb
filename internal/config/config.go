package config

import (
	"os"
	"strconv"
	"strings"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// StorageConfig holds object storage settings.
// Driver selects the client implementation: "minio" (default), "s3" or "memory".
type StorageConfig struct {
	Driver    string
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	PathStyle bool
}

// UploadConfig holds the static validation inputs for uploads.
type UploadConfig struct {
	AllowedExtensions []string
	MaxFileSizeMB     int
}

// MaxFileSizeBytes returns the configured size limit in bytes.
func (u UploadConfig) MaxFileSizeBytes() int64 {
	return int64(u.MaxFileSizeMB) * 1024 * 1024
}

// VersioningConfig holds engine tuning and the location of static policy defaults.
type VersioningConfig struct {
	// HistoryYears is how many calendar years (including the current one) the
	// enumerator scans when rebuilding a document's history.
	HistoryYears int
	// Allocator is "listing" or "sequence".
	Allocator           string
	RetentionTimeoutSec int
	DefaultsFile        string
}

// RedisConfig holds the policy cache settings. An empty URL disables the cache.
type RedisConfig struct {
	URL            string
	PolicyCacheTTL int
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level    string
	Timezone string
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost    string
	Port       string
	Database   DatabaseConfig
	Storage    StorageConfig
	Upload     UploadConfig
	Versioning VersioningConfig
	Redis      RedisConfig
	Log        LogConfig
}

// DefaultAllowedExtensions is used when UPLOAD_ALLOWED_EXTENSIONS is not set.
var DefaultAllowedExtensions = []string{
	".pdf", ".doc", ".docx", ".xls", ".xlsx",
	".ppt", ".pptx", ".txt", ".csv", ".json",
	".png", ".jpg", ".jpeg", ".gif", ".bmp",
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost: getEnv("APP_HOST", "localhost:8080"),
		Port:    getEnv("PORT", "8080"),
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		Storage: StorageConfig{
			Driver:    strings.ToLower(getEnv("STORAGE_DRIVER", "minio")),
			Endpoint:  getEnv("STORAGE_ENDPOINT", ""),
			Region:    getEnv("STORAGE_REGION", "eu-west-1"),
			AccessKey: getEnv("STORAGE_ACCESS_KEY", ""),
			SecretKey: getEnv("STORAGE_SECRET_KEY", ""),
			Bucket:    getEnv("STORAGE_BUCKET", ""),
			UseSSL:    getEnvBool("STORAGE_USE_SSL", false),
			PathStyle: getEnvBool("STORAGE_PATH_STYLE", true),
		},
		Upload: UploadConfig{
			AllowedExtensions: getEnvList("UPLOAD_ALLOWED_EXTENSIONS", DefaultAllowedExtensions),
			MaxFileSizeMB:     getEnvInt("UPLOAD_MAX_FILE_SIZE_MB", 100),
		},
		Versioning: VersioningConfig{
			HistoryYears:        getEnvInt("VERSIONING_HISTORY_YEARS", 5),
			Allocator:           strings.ToLower(getEnv("VERSION_ALLOCATOR", "listing")),
			RetentionTimeoutSec: getEnvInt("RETENTION_TIMEOUT_SEC", 30),
			DefaultsFile:        getEnv("VERSIONING_DEFAULTS_FILE", ""),
		},
		Redis: RedisConfig{
			URL:            getEnv("REDIS_URL", ""),
			PolicyCacheTTL: getEnvInt("POLICY_CACHE_TTL_SEC", 60),
		},
		Log: LogConfig{
			Level:    getEnv("LOG_LEVEL", "info"),
			Timezone: getEnv("LOG_TIMEZONE", "UTC"),
		},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

// getEnvList splits a comma separated value, normalizing extensions to ".ext" lowercase.
func getEnvList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return append([]string(nil), def...)
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		if !strings.HasPrefix(part, ".") {
			part = "." + part
		}
		out = append(out, part)
	}
	if len(out) == 0 {
		return append([]string(nil), def...)
	}
	return out
}
