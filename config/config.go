package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the worker configuration. It is built once at startup and handed
// to the components that need it; nothing reads the environment after Load.
type Config struct {
	DataDir    string
	ListenAddr string

	// Output locator resolution
	OutputBucket string
	OutputPrefix string
	OutputURLTTL time.Duration

	// Engine and staging
	FFmpegPath     string
	StagingDir     string
	StagingEnabled bool

	// Storage backend: "s3", "gcs", "sftp" or "directServe"
	StorageBackend        string
	StorageCredentialsKey string
	AWSRegion             string
	S3Endpoint            string
	S3AccessKey           string
	S3SecretKey           string
	S3ForcePathStyle      bool
	GCSCredentialsJSON    string
	SFTPHost              string
	SFTPPort              string
	SFTPUser              string
	SFTPPassword          string
	SFTPPrivateKey        string
	SFTPRoot              string
	ServeDir              string
	PublicBaseURL         string

	// Local dispatcher
	JWTSecret      string
	JobTimeout     time.Duration
	JobMaxAttempts int
	RedisAddr      string

	LogFile  string
	LogLevel string
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	// a missing .env is the normal case in containers
	_ = godotenv.Load()
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from an environment lookup function.
func FromLookup(lookup func(string) (string, bool)) (*Config, error) {
	e := env{lookup: lookup}
	cfg := &Config{
		DataDir:    e.str("WORKER_DATA_DIR", "./data"),
		ListenAddr: e.str("WORKER_LISTEN_ADDR", ":8080"),

		OutputBucket: e.str("OUTPUT_BUCKET", ""),
		OutputPrefix: e.str("OUTPUT_BUCKET_PREFIX", ""),
		OutputURLTTL: e.duration("OUTPUT_URL_TTL", 12*time.Hour),

		FFmpegPath:     e.str("FFMPEG_PATH", "ffmpeg"),
		StagingDir:     e.str("STAGING_DIR", os.TempDir()),
		StagingEnabled: e.boolean("STAGING_ENABLED", true),

		StorageBackend:        e.str("STORAGE_BACKEND", "s3"),
		StorageCredentialsKey: e.str("STORAGE_CREDENTIALS_KEY", ""),
		AWSRegion:             e.str("AWS_REGION", "us-east-1"),
		S3Endpoint:            e.str("S3_ENDPOINT", ""),
		S3AccessKey:           e.str("S3_ACCESS_KEY", ""),
		S3SecretKey:           e.str("S3_SECRET_KEY", ""),
		S3ForcePathStyle:      e.boolean("S3_FORCE_PATH_STYLE", false),
		GCSCredentialsJSON:    e.str("GCS_CREDENTIALS_JSON", ""),
		SFTPHost:              e.str("SFTP_HOST", ""),
		SFTPPort:              e.str("SFTP_PORT", "22"),
		SFTPUser:              e.str("SFTP_USER", ""),
		SFTPPassword:          e.str("SFTP_PASSWORD", ""),
		SFTPPrivateKey:        e.str("SFTP_PRIVATE_KEY", ""),
		SFTPRoot:              e.str("SFTP_ROOT", "/"),
		ServeDir:              e.str("SERVE_DIR", "./serve"),
		PublicBaseURL:         e.str("PUBLIC_BASE_URL", "http://localhost:8080"),

		JWTSecret:      e.str("WORKER_JWT_SECRET", ""),
		JobTimeout:     e.duration("JOB_TIMEOUT", 15*time.Minute),
		JobMaxAttempts: e.integer("JOB_MAX_ATTEMPTS", 1),
		RedisAddr:      e.str("PROGRESS_REDIS_ADDR", ""),

		LogFile:  e.str("WORKER_LOG_FILE", ""),
		LogLevel: e.str("WORKER_LOG_LEVEL", "info"),
	}
	if e.err != nil {
		return nil, e.err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.StorageBackend {
	case "s3", "gcs", "sftp", "directServe":
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}
	if c.OutputURLTTL <= 0 {
		return fmt.Errorf("OUTPUT_URL_TTL must be positive")
	}
	if c.JobMaxAttempts < 1 {
		return fmt.Errorf("JOB_MAX_ATTEMPTS must be at least 1")
	}
	return nil
}

// AccessInfo returns the storage backend settings in the key/value shape the
// writer backends consume.
func (c *Config) AccessInfo() map[string]string {
	info := map[string]string{}
	switch c.StorageBackend {
	case "s3":
		info["region"] = c.AWSRegion
		info["endpoint"] = c.S3Endpoint
		info["accessKey"] = c.S3AccessKey
		info["secretKey"] = c.S3SecretKey
		info["forcePathStyle"] = strconv.FormatBool(c.S3ForcePathStyle)
	case "gcs":
		info["credentialsJSON"] = c.GCSCredentialsJSON
	case "sftp":
		info["host"] = c.SFTPHost
		info["port"] = c.SFTPPort
		info["user"] = c.SFTPUser
		info["password"] = c.SFTPPassword
		info["privateKey"] = c.SFTPPrivateKey
		info["root"] = c.SFTPRoot
	case "directServe":
		info["baseDir"] = c.ServeDir
		info["publicBaseURL"] = c.PublicBaseURL
		info["secret"] = c.JWTSecret
	}
	for k, v := range info {
		if v == "" {
			delete(info, k)
		}
	}
	return info
}

// GetCredentialsDBPath returns the full path to the credentials database.
// Path: {DataDir}/credentials.db
func (c *Config) GetCredentialsDBPath() string {
	return filepath.Join(c.DataDir, "credentials.db")
}

// GetFailuresDBPath returns the full path to the failures database.
// Path: {DataDir}/failures.db
func (c *Config) GetFailuresDBPath() string {
	return filepath.Join(c.DataDir, "failures.db")
}

// GetSuccessDBPath returns the full path to the success database.
// Path: {DataDir}/success.db
func (c *Config) GetSuccessDBPath() string {
	return filepath.Join(c.DataDir, "success.db")
}

// GetJobQueueDBPath returns the full path to the job record queue.
// Path: {DataDir}/JobQueue.db
func (c *Config) GetJobQueueDBPath() string {
	return filepath.Join(c.DataDir, "JobQueue.db")
}

type env struct {
	lookup func(string) (string, bool)
	err    error
}

func (e *env) str(key, def string) string {
	if v, ok := e.lookup(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func (e *env) boolean(key string, def bool) bool {
	v := e.str(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.fail(fmt.Errorf("%s: %w", key, err))
		return def
	}
	return b
}

func (e *env) integer(key string, def int) int {
	v := e.str(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func (e *env) duration(key string, def time.Duration) time.Duration {
	v := e.str(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}

func (e *env) fail(err error) {
	if e.err == nil {
		e.err = err
	}
}
