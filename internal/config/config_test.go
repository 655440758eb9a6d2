package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const minimalConfig = `
app:
  name: dispatch
  environment: test
redis:
  address: localhost:6379
links:
  public_base_url: https://example.nz
`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "x-api-key", cfg.Admin.HeaderAPIKey)
	assert.Equal(t, "64", cfg.SMS.CountryCode)
	assert.Equal(t, 5, cfg.Worker.MaxRetries)
	assert.Equal(t, 15, cfg.Mail.TimeoutSec)
	assert.True(t, cfg.Mail.Demo())
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("TEST_REDIS_ADDR", "redis.internal:6380")

	cfg, err := Load(writeConfig(t, `
redis:
  address: ${TEST_REDIS_ADDR}
links:
  public_base_url: https://example.nz
`))
	require.NoError(t, err)
	assert.Equal(t, "redis.internal:6380", cfg.Redis.Address)
}

func TestValidateRequiresRedis(t *testing.T) {
	_, err := Load(writeConfig(t, `
links:
  public_base_url: https://example.nz
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis address")
}

func TestValidateRequiresFromAddressWithCredentials(t *testing.T) {
	_, err := Load(writeConfig(t, minimalConfig+`
mail:
  tenant_id: t
  client_id: c
  client_secret: s
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "from_address")
}

func TestMailDemoMode(t *testing.T) {
	assert.True(t, MailConfig{}.Demo())
	assert.False(t, MailConfig{TenantID: "t", ClientID: "c", ClientSecret: "s"}.Demo())
}
