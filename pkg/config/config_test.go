package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "server:\n  port: 9000\n"))
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 384, cfg.Vector.Dimension)
	assert.Equal(t, 20, cfg.Crawler.TimeoutSec)
	assert.Equal(t, 180, cfg.LLM.TimeoutSec)
	assert.Equal(t, "ollama", cfg.LLM.Provider)
	assert.Equal(t, 6000, cfg.Chat.MaxContextChars)
	assert.False(t, cfg.Ingestion.Run)
}

func TestLoadSubstitutesPlaceholders(t *testing.T) {
	t.Setenv("SPACEAPP_TEST_DB_PASSWORD", "s3cret")
	t.Setenv("SPACEAPP_TEST_EMPTY", "")

	cfg, err := Load(writeConfig(t, `
database:
  password: ${SPACEAPP_TEST_DB_PASSWORD}
  user: ${SPACEAPP_TEST_EMPTY}
  dbname: prefix-${SPACEAPP_TEST_DB_PASSWORD}
llm:
  apiKey: ${SPACEAPP_TEST_UNSET_VAR}
`))
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.Database.Password)
	assert.Equal(t, "${SPACEAPP_TEST_EMPTY}", cfg.Database.User)
	assert.Equal(t, "prefix-${SPACEAPP_TEST_DB_PASSWORD}", cfg.Database.DBName)
	assert.Equal(t, "${SPACEAPP_TEST_UNSET_VAR}", cfg.LLM.APIKey)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDSN(t *testing.T) {
	pg := DatabaseConfig{Driver: "postgres", Host: "db", Port: 5432, User: "u", Password: "p@ss", DBName: "docs", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p%40ss@db:5432/docs?sslmode=disable", pg.DSN())

	lite := DatabaseConfig{Driver: "sqlite3", Path: "/tmp/x.db"}
	assert.Equal(t, "/tmp/x.db", lite.DSN())
}

func TestVectorAddress(t *testing.T) {
	v := VectorConfig{Host: "milvus", GrpcPort: 19530}
	assert.Equal(t, "milvus:19530", v.Address())
}
