package tfgo

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "10.150.160.52", cfg.Server.Host)
	assert.Equal(t, 9265, cfg.Server.Port)
	assert.Equal(t, "10.150.160.52:9265", cfg.Address())
	assert.Equal(t, defaultConnectTimeout, cfg.Network.ConnectTimeout)
	assert.Equal(t, defaultIdleTimeout, cfg.Network.IdleTimeout)
	assert.Equal(t, defaultWriteTimeout, cfg.Network.WriteTimeout)
	assert.Equal(t, DefaultReceiveBuffer, cfg.Network.ReceiveBuffer)
	assert.Equal(t, defaultMaxPackageLength, cfg.Network.MaxRecordSize)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.WeaponCatalog)
}

func TestLoadConfig_File(t *testing.T) {
	path := writeConfig(t, "tfgo.yaml", `
server:
  host: game.example.org
  port: 7000
network:
  idleTimeout: 5s
  receiveBuffer: 4096
player:
  name: alice
  icon: fox
logLevel: debug
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "game.example.org:7000", cfg.Address())
	assert.Equal(t, 5*time.Second, cfg.Network.IdleTimeout)
	assert.Equal(t, defaultConnectTimeout, cfg.Network.ConnectTimeout)
	assert.Equal(t, 4096, cfg.Network.ReceiveBuffer)
	assert.Equal(t, User{Name: "alice", Icon: "fox"}, cfg.User())
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	path := writeConfig(t, "tfgo.yaml", "server:\n  host: game.example.org\n  port: 7000\n")
	t.Setenv("TFGO_SERVER_PORT", "7100")
	t.Setenv("TFGO_PLAYER_NAME", "bob")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 7100, cfg.Server.Port)
	assert.Equal(t, "game.example.org", cfg.Server.Host)
	assert.Equal(t, "bob", cfg.Player.Name)
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := map[string]string{
		"port out of range": "server:\n  port: 70000\n",
		"empty host":        "server:\n  host: \"\"\n",
		"negative timeout":  "network:\n  writeTimeout: -1s\n",
		"record too small":  "network:\n  receiveBuffer: 4096\n  maxRecordSize: 1024\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, "tfgo.yaml", content))
			assert.Error(t, err)
		})
	}
}

func TestConfig_Options(t *testing.T) {
	catalog := writeConfig(t, "weapons.toml", "[[weapon]]\nname = \"Stick\"\nclip_size = 1\n")
	path := writeConfig(t, "tfgo.toml", `
weaponCatalog = "`+filepath.ToSlash(catalog)+`"

[network]
connectTimeout = "3s"
receiveBuffer = 2048
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	opt, err := cfg.Options()
	require.NoError(t, err)

	opts, err := buildOptions(opt)
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, opts.connectTimeout)
	assert.Equal(t, 2048, opts.receiveBuffer)
	_, ok := opts.catalog.Lookup("Stick")
	assert.True(t, ok)
	_, ok = opts.catalog.Lookup("Sword")
	assert.False(t, ok, "a configured catalog replaces the default one")
}

func TestConfig_OptionsBadCatalog(t *testing.T) {
	cfg := &Config{WeaponCatalog: filepath.Join(t.TempDir(), "missing.toml")}

	_, err := cfg.Options()
	assert.Error(t, err)
}
