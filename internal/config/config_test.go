package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points HOME and the working directory at an empty temp dir so
// no real config file is picked up.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Chdir(dir)
	return dir
}

func testFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("db", "fieldreg.db", "")
	fs.String("as", "", "")
	fs.String("format", "text", "")
	fs.BoolP("verbose", "v", false, "")
	require.NoError(t, fs.Parse(args))
	return fs
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, Defaults(), *cfg)
}

func TestLoad_LocalFile(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, LocalConfigFile), `
db: /var/lib/fieldreg/journal.db
principal: ST1PQHQKV0RJXZFY1DGX8MNSNYVE3VGZJSRTPGZGM
log:
  level: info
identity:
  jwt_secret: s3cret
  token_ttl: 2h
tracing:
  enabled: true
  exporter: file
  file_path: traces.json
`)

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/fieldreg/journal.db", cfg.DB)
	assert.Equal(t, "ST1PQHQKV0RJXZFY1DGX8MNSNYVE3VGZJSRTPGZGM", cfg.Principal)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "s3cret", cfg.Identity.JWTSecret)
	assert.Equal(t, "fieldreg", cfg.Identity.Issuer)
	assert.Equal(t, 2*time.Hour, cfg.Identity.TokenTTL)
	assert.True(t, cfg.Tracing.Enabled)
	assert.Equal(t, "file", cfg.Tracing.Exporter)
	assert.Equal(t, "traces.json", cfg.Tracing.FilePath)
}

func TestLoad_HomeConfig(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, ".config", "fieldreg", "config.yaml"), "format: json\n")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Format)
}

func TestLoad_ExplicitFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.yaml")
	writeFile(t, path, "db: custom.db\n")

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "custom.db", cfg.DB)

	_, err = Load(filepath.Join(dir, "missing.yaml"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestLoad_Environment(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, LocalConfigFile), "db: from-file.db\n")
	t.Setenv("FIELDREG_DB", "from-env.db")
	t.Setenv("FIELDREG_IDENTITY_JWT_SECRET", "env-secret")
	t.Setenv("FIELDREG_TRACING_ENABLED", "true")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "from-env.db", cfg.DB)
	assert.Equal(t, "env-secret", cfg.Identity.JWTSecret)
	assert.True(t, cfg.Tracing.Enabled)
}

func TestLoad_FlagsOverride(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, LocalConfigFile), "db: from-file.db\nformat: json\n")
	t.Setenv("FIELDREG_PRINCIPAL", "ST-ENV")

	cfg, err := Load("", testFlags(t, "--as", "ST-FLAG", "-v"))
	require.NoError(t, err)
	assert.Equal(t, "from-file.db", cfg.DB, "unset flag keeps the file value")
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, "ST-FLAG", cfg.Principal)
	assert.Equal(t, "debug", cfg.Log.Level)

	cfg, err = Load("", testFlags(t, "--db", "flag.db", "--format", "text"))
	require.NoError(t, err)
	assert.Equal(t, "flag.db", cfg.DB)
	assert.Equal(t, "text", cfg.Format)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		wantErr string
	}{
		{name: "format", file: "format: xml\n", wantErr: `invalid format "xml"`},
		{name: "log level", file: "log:\n  level: loud\n", wantErr: `invalid log level "loud"`},
		{name: "empty db", file: "db: \"\"\n", wantErr: "db path must not be empty"},
		{name: "bad yaml", file: "db: [\n", wantErr: "read config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := isolate(t)
			writeFile(t, filepath.Join(dir, LocalConfigFile), tt.file)

			_, err := Load("", nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSlogLevel(t *testing.T) {
	level, err := LogConfig{Level: "DEBUG"}.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	level, err = LogConfig{Level: "warn"}.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)
}
