package app

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is read from the environment. When SHAREBOX_CONFIG names a YAML or
// TOML file it is loaded first and environment variables override it.
type Config struct {
	Issuer         string `yaml:"issuer" env:"SHAREBOX_ISSUER" env-default:"sharebox" env-description:"issuer claim for session tokens"`
	BaseURL        string `yaml:"base_url" env:"SHAREBOX_BASE_URL" env-default:"http://localhost:8080" env-description:"public URL used in invitation links"`
	BootstrapToken string `yaml:"-" env:"BOOTSTRAP_TOKEN" env-description:"token required to create the first superuser; empty disables bootstrap"`

	DatabaseFile   string        `yaml:"database_file" env:"SHAREBOX_DATABASE_FILE" env-default:"sharebox.db" env-description:"path to the SQLite database"`
	PepperFile     string        `yaml:"pepper_file" env:"SHAREBOX_PEPPER_FILE" env-default:"pepper" env-description:"path to the password hashing pepper"`
	SessionKeyFile string        `yaml:"session_key_file" env:"SHAREBOX_SESSION_KEY_FILE" env-default:"session.pem" env-description:"Ed25519 PEM used to sign sessions, created when missing"`
	SessionTTL     time.Duration `yaml:"session_ttl" env:"SHAREBOX_SESSION_TTL" env-default:"12h" env-description:"session lifetime"`
	SecureCookies  bool          `yaml:"secure_cookies" env:"SHAREBOX_SECURE_COOKIES" env-default:"false" env-description:"mark the session cookie Secure"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes" env:"SHAREBOX_MAX_UPLOAD_BYTES" env-default:"536870912" env-description:"largest accepted upload"`

	Blob BlobConfig `yaml:"blob"`

	Env                  string        `yaml:"env" env:"ENV" env-default:"dev"`
	LogLevel             string        `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	LogFormat            string        `yaml:"log_format" env:"LOG_FORMAT" env-default:"json"`
	Port                 int           `yaml:"port" env:"PORT" env-default:"8080"`
	ShutdownGracePeriod  time.Duration `yaml:"shutdown_grace_period" env:"SHUTDOWN_GRACE_PERIOD" env-default:"10s"`
	HousekeepingInterval time.Duration `yaml:"housekeeping_interval" env:"HOUSEKEEPING_INTERVAL" env-default:"15m"`
}

// BlobConfig selects where uploaded bytes live.
type BlobConfig struct {
	Backend   string `yaml:"backend" env:"SHAREBOX_BLOB_BACKEND" env-default:"local" env-description:"local or s3"`
	LocalRoot string `yaml:"local_root" env:"SHAREBOX_BLOB_ROOT" env-default:"uploads"`

	S3Endpoint  string `yaml:"s3_endpoint" env:"SHAREBOX_S3_ENDPOINT"`
	S3Region    string `yaml:"s3_region" env:"SHAREBOX_S3_REGION"`
	S3Bucket    string `yaml:"s3_bucket" env:"SHAREBOX_S3_BUCKET"`
	S3Prefix    string `yaml:"s3_prefix" env:"SHAREBOX_S3_PREFIX"`
	S3UseSSL    bool   `yaml:"s3_use_ssl" env:"SHAREBOX_S3_USE_SSL" env-default:"true"`
	S3AccessKey string `yaml:"-" env:"SHAREBOX_S3_ACCESS_KEY"`
	S3SecretKey string `yaml:"-" env:"SHAREBOX_S3_SECRET_KEY"`
}

// LoadConfig reads the configuration and checks it.
func LoadConfig() (Config, error) {
	var cfg Config

	if path := os.Getenv("SHAREBOX_CONFIG"); path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error

	switch c.Blob.Backend {
	case "local":
		if c.Blob.LocalRoot == "" {
			errs = append(errs, errors.New("SHAREBOX_BLOB_ROOT is required for the local backend"))
		}
	case "s3":
		if c.Blob.S3Endpoint == "" {
			errs = append(errs, errors.New("SHAREBOX_S3_ENDPOINT is required for the s3 backend"))
		}
		if c.Blob.S3Bucket == "" {
			errs = append(errs, errors.New("SHAREBOX_S3_BUCKET is required for the s3 backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown blob backend %q", c.Blob.Backend))
	}

	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("SHAREBOX_SESSION_TTL must be positive"))
	}
	if c.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("SHAREBOX_MAX_UPLOAD_BYTES must be positive"))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid PORT %d", c.Port))
	}

	return errors.Join(errs...)
}

// Usage describes every environment variable.
func Usage() string {
	var cfg Config
	desc, err := cleanenv.GetDescription(&cfg, nil)
	if err != nil {
		return err.Error()
	}
	return desc
}
