package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("SHAREBOX_CONFIG", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "sharebox", cfg.Issuer)
	require.Equal(t, "local", cfg.Blob.Backend)
	require.Equal(t, 12*time.Hour, cfg.SessionTTL)
	require.Equal(t, 15*time.Minute, cfg.HousekeepingInterval)
	require.Equal(t, 8080, cfg.Port)
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("SHAREBOX_CONFIG", "")
	t.Setenv("SHAREBOX_BASE_URL", "https://files.example.com")
	t.Setenv("SHAREBOX_SESSION_TTL", "2h")
	t.Setenv("SHAREBOX_BLOB_BACKEND", "s3")
	t.Setenv("SHAREBOX_S3_ENDPOINT", "minio:9000")
	t.Setenv("SHAREBOX_S3_BUCKET", "uploads")
	t.Setenv("PORT", "9090")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "https://files.example.com", cfg.BaseURL)
	require.Equal(t, 2*time.Hour, cfg.SessionTTL)
	require.Equal(t, "s3", cfg.Blob.Backend)
	require.Equal(t, "uploads", cfg.Blob.S3Bucket)
	require.True(t, cfg.Blob.S3UseSSL)
	require.Equal(t, 9090, cfg.Port)
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sharebox.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
issuer: files
port: 7000
blob:
  backend: local
  local_root: /srv/uploads
`), 0o600))
	t.Setenv("SHAREBOX_CONFIG", path)
	t.Setenv("PORT", "7100")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "files", cfg.Issuer)
	require.Equal(t, "/srv/uploads", cfg.Blob.LocalRoot)
	require.Equal(t, 7100, cfg.Port, "environment overrides the file")
}

func TestConfigValidate(t *testing.T) {
	t.Setenv("SHAREBOX_CONFIG", "")
	base, err := LoadConfig()
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown backend", func(c *Config) { c.Blob.Backend = "ftp" }},
		{"s3 without bucket", func(c *Config) { c.Blob.Backend = "s3"; c.Blob.S3Endpoint = "x" }},
		{"zero session ttl", func(c *Config) { c.SessionTTL = 0 }},
		{"bad port", func(c *Config) { c.Port = 70000 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}
