package config

import (
	"os"
	"path/filepath"
	"testing"

	"deps-triage/triage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	for _, k := range []string{
		"TRIAGE_CONFIG", "PORT", "SQLITE_PATH", "DEPSDEV_URL", "REFRESH_SCHEDULE",
		"MAX_CONCURRENT", "WITH_INITIAL_DATA_REFRESH", "WITH_DAILY_DATA_REFRESH", "ALLOWED_ORIGINS",
	} {
		t.Setenv(k, "")
	}
	return dir
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultSQLitePath, cfg.SQLitePath)
	assert.Equal(t, BaseURL, cfg.DepsDevURL)
	assert.Equal(t, DefaultMaxConcurrent, cfg.MaxConcurrent)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.AllowedOrigins)
	assert.Equal(t, RefreshTarget{Project: "default", System: "NPM", Package: "react", Version: "18.2.0"}, cfg.Refresh)
	assert.Equal(t, triage.DefaultThresholds(), cfg.Thresholds)
	assert.False(t, cfg.DailyRefresh)
}

func TestLoadYAMLAndEnv(t *testing.T) {
	dir := isolate(t)

	yml := `
port: "9000"
max_concurrent: 4
refresh:
  project: web
  package: axios
  version: 1.6.2
thresholds:
  stale_days: 0
  popular_stars: 250
`
	path := filepath.Join(dir, "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))

	t.Setenv("TRIAGE_CONFIG", path)
	t.Setenv("PORT", "9100")
	t.Setenv("WITH_DAILY_DATA_REFRESH", "true")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9100", cfg.Port)
	assert.Equal(t, 4, cfg.MaxConcurrent)
	assert.True(t, cfg.DailyRefresh)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, "web", cfg.Refresh.Project)
	assert.Equal(t, "NPM", cfg.Refresh.System)
	assert.Equal(t, "axios", cfg.Refresh.Package)
	assert.Equal(t, triage.Thresholds{
		HighRiskScore:   60,
		PopularStars:    250,
		FewContributors: 5,
		StaleDays:       0,
	}, cfg.Thresholds)
}

func TestLoadDotEnv(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("SQLITE_PATH=/tmp/dotenv.db\n"), 0o600))
	// godotenv never overrides a variable that is already set, even empty
	require.NoError(t, os.Unsetenv("SQLITE_PATH"))
	t.Cleanup(func() { _ = os.Unsetenv("SQLITE_PATH") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/dotenv.db", cfg.SQLitePath)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: [unterminated"), 0o600))
	t.Setenv("TRIAGE_CONFIG", path)

	_, err := Load()
	assert.Error(t, err)
}
