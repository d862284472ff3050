package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadRequiresEndpointHost(t *testing.T) {
	t.Setenv("TPN_ENDPOINT_HOST", "")

	_, err := Load("")
	require.Error(t, err)
	require.Contains(t, err.Error(), "endpoint host is required")
}

func TestLoadDefaultsAndEnvOverrides(t *testing.T) {
	t.Setenv("TPN_ENDPOINT_HOST", "203.0.113.7")
	t.Setenv("TPN_ENDPOINT_PORT", "1081")
	t.Setenv("TPN_PASSWORD_DIR", "/srv/passwords")
	t.Setenv("TPN_COMPOSE_FILES", "docker-compose.yml, docker-compose.override.yml")
	t.Setenv("TPN_DEBUG", "true")
	t.Setenv("TPN_SERVER_PORT", "")
	t.Setenv("TPN_KEY_PREFIX", "")
	t.Setenv("TPN_DEFAULT_LEASE_MINUTES", "")

	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, "203.0.113.7", cfg.Endpoint.Host)
	require.Equal(t, 1081, cfg.Endpoint.Port)
	require.Equal(t, "/srv/passwords", cfg.Pool.PasswordDir)
	require.Equal(t, []string{"docker-compose.yml", "docker-compose.override.yml"}, cfg.Restart.ComposeFiles)
	require.True(t, cfg.Security.Debug)

	// Untouched defaults survive.
	require.Equal(t, "3000", cfg.Server.Port)
	require.Equal(t, "tpn:", cfg.Storage.KeyPrefix)
	require.Equal(t, 30, cfg.Pool.DefaultLeaseMinutes)
}

func TestLoadDefaultEndpointPort(t *testing.T) {
	t.Setenv("TPN_ENDPOINT_HOST", "proxy.example.net")
	t.Setenv("TPN_ENDPOINT_PORT", "")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 1080, cfg.Endpoint.Port)
}

func TestLoadYAMLFileMergedBeforeEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
endpoint:
  host: from-file.example.net
  port: 9999
pool:
  password_dir: /file/passwords
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	t.Setenv("TPN_ENDPOINT_HOST", "from-env.example.net")
	t.Setenv("TPN_ENDPOINT_PORT", "")
	t.Setenv("TPN_PASSWORD_DIR", "")

	cfg, err := Load(path)
	require.NoError(t, err)

	// Env wins over file, file wins over defaults.
	require.Equal(t, "from-env.example.net", cfg.Endpoint.Host)
	require.Equal(t, 9999, cfg.Endpoint.Port)
	require.Equal(t, "/file/passwords", cfg.Pool.PasswordDir)
}

func TestLoadIgnoresInvalidEnvNumbers(t *testing.T) {
	t.Setenv("TPN_ENDPOINT_HOST", "proxy.example.net")
	t.Setenv("TPN_ENDPOINT_PORT", "not-a-port")
	t.Setenv("TPN_RATE_RPS", "-3")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 1080, cfg.Endpoint.Port)
	require.Equal(t, 5, cfg.RateLimit.RPS)
}
