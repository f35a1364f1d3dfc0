package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Storage drivers accepted by MEDIA_STORAGE_DRIVER.
const (
	StorageDriverLocal = "local"
	StorageDriverMinIO = "minio"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	CORS          CORSConfig
	Log           LogConfig
	Media         MediaConfig
	MinIO         MinIOConfig
	Links         LinkConfig
	Probe         ProbeConfig
	Cache         CacheConfig
	SourceCatalog SourceCatalogConfig
}

type DatabaseConfig struct {
	Host          string
	Port          int
	User          string
	Password      string
	Name          string
	SSLMode       string
	MaxOpenConns  int
	MaxIdleConns  int
	AutoMigrate   bool
	MigrationsTbl string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// MediaConfig governs uploads, storage and streaming.
type MediaConfig struct {
	StorageDriver     string
	StorageDir        string
	MaxUploadBytes    int64
	AllowedExtensions []string
	EnableUserUploads bool
	EnableGuestView   bool
	StreamChunkSize   int
	TempMaxAge        time.Duration
}

// MinIOConfig configures the object storage driver.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// LinkConfig signs anonymous share links for LINK-visible media.
type LinkConfig struct {
	Secret  string
	TTL     time.Duration
	BaseURL string
}

// ProbeConfig controls the post-ingest probe workers.
type ProbeConfig struct {
	Enabled    bool
	Workers    int
	Retries    int
	RetryDelay time.Duration
	Timeout    time.Duration
}

// CacheConfig toggles the Redis media detail cache.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

// SourceCatalogConfig sizes the in-process source lookup cache.
type SourceCatalogConfig struct {
	Size int
	TTL  time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:          v.GetString("DB_HOST"),
		Port:          v.GetInt("DB_PORT"),
		User:          v.GetString("DB_USER"),
		Password:      v.GetString("DB_PASSWORD"),
		Name:          v.GetString("DB_NAME"),
		SSLMode:       v.GetString("DB_SSL_MODE"),
		MaxOpenConns:  v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns:  v.GetInt("DB_MAX_IDLE_CONNS"),
		AutoMigrate:   v.GetBool("DB_AUTO_MIGRATE"),
		MigrationsTbl: v.GetString("DB_MIGRATIONS_TABLE"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	maxUploadMB := v.GetInt64("MAX_UPLOAD_SIZE_MB")
	if maxUploadMB <= 0 {
		maxUploadMB = 2048
	}
	chunk := v.GetInt("STREAM_CHUNK_SIZE")
	if chunk <= 0 {
		chunk = 8 * 1024
	}
	cfg.Media = MediaConfig{
		StorageDriver:     strings.ToLower(v.GetString("MEDIA_STORAGE_DRIVER")),
		StorageDir:        v.GetString("MEDIA_STORAGE_DIR"),
		MaxUploadBytes:    maxUploadMB * 1024 * 1024,
		AllowedExtensions: normaliseExtensions(splitAndTrim(v.GetString("ALLOWED_EXTENSIONS"))),
		EnableUserUploads: v.GetBool("ENABLE_USER_UPLOADS"),
		EnableGuestView:   v.GetBool("ENABLE_GUEST_VIEW"),
		StreamChunkSize:   chunk,
		TempMaxAge:        parseDuration(v.GetString("MEDIA_TEMP_MAX_AGE"), time.Hour),
	}

	cfg.MinIO = MinIOConfig{
		Endpoint:  v.GetString("MINIO_ENDPOINT"),
		AccessKey: v.GetString("MINIO_ACCESS_KEY"),
		SecretKey: v.GetString("MINIO_SECRET_KEY"),
		Bucket:    v.GetString("MINIO_BUCKET"),
		UseSSL:    v.GetBool("MINIO_USE_SSL"),
	}

	cfg.Links = LinkConfig{
		Secret:  v.GetString("LINK_SIGNING_SECRET"),
		TTL:     parseDuration(v.GetString("LINK_TTL"), 7*24*time.Hour),
		BaseURL: strings.TrimRight(v.GetString("PUBLIC_BASE_URL"), "/"),
	}

	cfg.Probe = ProbeConfig{
		Enabled:    v.GetBool("ENABLE_PROBE"),
		Workers:    v.GetInt("PROBE_WORKERS"),
		Retries:    v.GetInt("PROBE_RETRIES"),
		RetryDelay: parseDuration(v.GetString("PROBE_RETRY_DELAY"), 2*time.Second),
		Timeout:    parseDuration(v.GetString("PROBE_TIMEOUT"), time.Minute),
	}

	cfg.Cache = CacheConfig{
		Enabled: v.GetBool("ENABLE_CACHE"),
		TTL:     parseDuration(v.GetString("CACHE_TTL"), 5*time.Minute),
	}

	cfg.SourceCatalog = SourceCatalogConfig{
		Size: v.GetInt("SOURCE_CACHE_SIZE"),
		TTL:  parseDuration(v.GetString("SOURCE_CACHE_TTL"), 10*time.Minute),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "media_library")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_AUTO_MIGRATE", true)
	v.SetDefault("DB_MIGRATIONS_TABLE", "schema_migrations")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("MEDIA_STORAGE_DRIVER", StorageDriverLocal)
	v.SetDefault("MEDIA_STORAGE_DIR", "./storage")
	v.SetDefault("MAX_UPLOAD_SIZE_MB", 2048)
	v.SetDefault("ALLOWED_EXTENSIONS", ".mp4,.mov,.jpg,.jpeg,.png,.heic,.webp")
	v.SetDefault("ENABLE_USER_UPLOADS", false)
	v.SetDefault("ENABLE_GUEST_VIEW", false)
	v.SetDefault("STREAM_CHUNK_SIZE", 8*1024)
	v.SetDefault("MEDIA_TEMP_MAX_AGE", "1h")

	v.SetDefault("MINIO_ENDPOINT", "localhost:9000")
	v.SetDefault("MINIO_ACCESS_KEY", "minioadmin")
	v.SetDefault("MINIO_SECRET_KEY", "minioadmin")
	v.SetDefault("MINIO_BUCKET", "media")
	v.SetDefault("MINIO_USE_SSL", false)

	v.SetDefault("LINK_SIGNING_SECRET", "dev_link_secret")
	v.SetDefault("LINK_TTL", "168h")
	v.SetDefault("PUBLIC_BASE_URL", "")

	v.SetDefault("ENABLE_PROBE", true)
	v.SetDefault("PROBE_WORKERS", 2)
	v.SetDefault("PROBE_RETRIES", 3)
	v.SetDefault("PROBE_RETRY_DELAY", "2s")
	v.SetDefault("PROBE_TIMEOUT", "1m")

	v.SetDefault("ENABLE_CACHE", false)
	v.SetDefault("CACHE_TTL", "5m")

	v.SetDefault("SOURCE_CACHE_SIZE", 32)
	v.SetDefault("SOURCE_CACHE_TTL", "10m")
}

// ExtensionAllowed reports whether ext (with or without the leading dot) is
// on the upload allow-list. An empty list allows everything.
func (m MediaConfig) ExtensionAllowed(ext string) bool {
	if len(m.AllowedExtensions) == 0 {
		return true
	}
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	for _, allowed := range m.AllowedExtensions {
		if allowed == ext {
			return true
		}
	}
	return false
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

func normaliseExtensions(exts []string) []string {
	for i, ext := range exts {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts[i] = ext
	}
	return exts
}

func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
