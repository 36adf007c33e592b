package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "")
	t.Setenv("PER_PAGE", "")

	cfg := Load()

	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, 8, cfg.PerPage)
	assert.Equal(t, "cookie", cfg.SessionStore)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr())
	assert.NoError(t, cfg.Validate())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("PER_PAGE", "20")
	t.Setenv("CACHE_ENABLED", "true")
	t.Setenv("JWT_TTL", "2h")
	t.Setenv("GIN_MODE", "release")

	cfg := Load()

	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, 20, cfg.PerPage)
	assert.True(t, cfg.CacheEnabled)
	assert.Equal(t, 2*time.Hour, cfg.JWTTTL)
	assert.True(t, cfg.IsProduction())
}

func TestLoad_InvalidNumbersFallBack(t *testing.T) {
	t.Setenv("PER_PAGE", "lots")
	t.Setenv("JWT_TTL", "forever")

	cfg := Load()

	assert.Equal(t, 8, cfg.PerPage)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
}

func TestLoadFile(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("PER_PAGE", "")
	path := filepath.Join(t.TempDir(), "taskmaster.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: \"9090\"\nper_page: 12\ntimezone: Europe/Paris\n"), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 12, cfg.PerPage)
	assert.Equal(t, "Europe/Paris", cfg.Location().String())
}

func TestLoadFile_EnvWinsOverFile(t *testing.T) {
	t.Setenv("PORT", "7070")
	path := filepath.Join(t.TempDir(), "taskmaster.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: \"9090\"\n"), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.Port)
}

func TestLoadFile_Errors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	t.Setenv("DB_DRIVER", "oracle")
	_, err = LoadFile("")
	assert.ErrorContains(t, err, "unsupported DB_DRIVER")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"bad session store", func(c *Config) { c.SessionStore = "memcached" }, false},
		{"zero per page", func(c *Config) { c.PerPage = 0 }, false},
		{"bad timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if tt.ok {
				assert.NoError(t, cfg.Validate())
			} else {
				assert.Error(t, cfg.Validate())
			}
		})
	}
}
