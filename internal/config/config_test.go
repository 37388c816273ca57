package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(nil, "")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, MediaLocal, cfg.Media.Backend)
	assert.Equal(t, "/media", cfg.Media.PublicURL)
	assert.Empty(t, cfg.Admin.Password)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.NotEmpty(t, cfg.CORS.AllowedOrigins)
}

func TestLoadEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SHAREHUB_PORT", "9090")
	t.Setenv("SHAREHUB_DATABASE_DRIVER", "Postgres")
	t.Setenv("SHAREHUB_DATABASE_URL", "postgres://localhost/sharehub?sslmode=disable")
	t.Setenv("SHAREHUB_ADMIN_PASSWORD", "hunter2")
	t.Setenv("SHAREHUB_CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load(nil, "")
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "hunter2", cfg.Admin.Password)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
}

func TestLoadConfigFileAndOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	file := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
port: 7000
media:
  backend: gcs
  gcs_bucket: sharehub-media
log:
  level: debug
`), 0o644))

	v := viper.New()
	v.Set("port", 7100)

	cfg, err := Load(v, file)
	require.NoError(t, err)
	assert.Equal(t, 7100, cfg.Port)
	assert.Equal(t, MediaGCS, cfg.Media.Backend)
	assert.Equal(t, "sharehub-media", cfg.Media.GCSBucket)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"bad port", map[string]string{"SHAREHUB_PORT": "70000"}},
		{"bad driver", map[string]string{"SHAREHUB_DATABASE_DRIVER": "mysql"}},
		{"gcs without bucket", map[string]string{"SHAREHUB_MEDIA_BACKEND": "gcs"}},
		{"gridfs without uri", map[string]string{"SHAREHUB_MEDIA_BACKEND": "gridfs"}},
		{"unknown backend", map[string]string{"SHAREHUB_MEDIA_BACKEND": "ftp"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(nil, "")
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(nil, filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
