package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveire/grantlee/internal/config"
)

func env(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func TestDefaults(t *testing.T) {
	t.Parallel()
	cfg, err := config.LoadFrom("", env(nil))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("data", "grantlee.db"), cfg.DBPath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 64, cfg.CacheSize)
	assert.Equal(t, 60*time.Second, cfg.Timeout)
}

func TestFileAndEnvPrecedence(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "grantlee.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
db = "file.db"
log_level = "debug"
template_dirs = ["templates", "shared"]
locale = "translations/app_de_DE.ts"
provider_timeout = "90s"
`), 0o644))

	cfg, err := config.LoadFrom(path, env(map[string]string{
		"GRANTLEE_DB":         "env.db",
		"GRANTLEE_LOG_JSON":   "true",
		"GRANTLEE_CACHE_SIZE": "8",
	}))
	require.NoError(t, err)
	assert.Equal(t, "env.db", cfg.DBPath)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.LogJSON)
	assert.Equal(t, []string{"templates", "shared"}, cfg.TemplateDirs)
	assert.Equal(t, "translations/app_de_DE.ts", cfg.Locale)
	assert.Equal(t, 8, cfg.CacheSize)
	assert.Equal(t, 90*time.Second, cfg.Timeout)

	viaEnv, err := config.LoadFrom("", env(map[string]string{"GRANTLEE_CONFIG": path}))
	require.NoError(t, err)
	assert.Equal(t, "file.db", viaEnv.DBPath)
}

func TestInvalid(t *testing.T) {
	t.Parallel()
	unknown := filepath.Join(t.TempDir(), "unknown.toml")
	require.NoError(t, os.WriteFile(unknown, []byte("colour = \"blue\"\n"), 0o644))

	tests := []struct {
		name string
		path string
		vars map[string]string
	}{
		{"missing file", filepath.Join(t.TempDir(), "nope.toml"), nil},
		{"unknown key", unknown, nil},
		{"log level", "", map[string]string{"GRANTLEE_LOG_LEVEL": "loud"}},
		{"log json", "", map[string]string{"GRANTLEE_LOG_JSON": "maybe"}},
		{"cache size", "", map[string]string{"GRANTLEE_CACHE_SIZE": "-1"}},
		{"cache size type", "", map[string]string{"GRANTLEE_CACHE_SIZE": "lots"}},
		{"workers", "", map[string]string{"GRANTLEE_WORKERS": "0"}},
		{"timeout", "", map[string]string{"GRANTLEE_PROVIDER_TIMEOUT": "soon"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.LoadFrom(tt.path, env(tt.vars))
			assert.Error(t, err)
		})
	}
}
