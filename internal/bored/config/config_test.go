package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SECRET_KEY", "test")
	t.Setenv("PORT", "5000")
	t.Setenv("ENV", EnvLocal)
	t.Setenv("BCRYPT_WORK_FACTOR", "11")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "test", cfg.JWTSecret)
	assert.Equal(t, "5000", cfg.HttpPort)
	assert.Equal(t, 11, cfg.BcryptCost)
	assert.Equal(t, time.Duration(0), cfg.TokenTTL)
}

func TestLoadTestEnvUsesMinCost(t *testing.T) {
	t.Setenv("ENV", EnvTest)
	t.Setenv("BCRYPT_WORK_FACTOR", "12")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cfg.BcryptCost)
}

func TestLoadRejectsBadCost(t *testing.T) {
	t.Setenv("ENV", EnvProd)
	t.Setenv("BCRYPT_WORK_FACTOR", "2")

	_, err := Load("")
	assert.Error(t, err)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "env: prod\nhttp_port: \"8080\"\njwt_secret: from-file\nbcrypt_work_factor: 10\ntoken_ttl: 1h\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, EnvProd, cfg.Env)
	assert.Equal(t, "8080", cfg.HttpPort)
	assert.Equal(t, "from-file", cfg.JWTSecret)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, time.Hour, cfg.TokenTTL)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
