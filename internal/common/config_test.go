package common

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "https://annonces.nc/dashboard/conversations", cfg.Scraper.TargetURL)
	assert.Equal(t, 600, cfg.Scraper.MaxConversations)
	assert.True(t, cfg.Scraper.Headless)
	assert.NotEmpty(t, cfg.Scraper.Selectors.ConvList)
	assert.Empty(t, cfg.Tenants)
}

func TestLoadFromFileMissingPathUsesDefaults(t *testing.T) {
	cfg, err := LoadFromFile("/nonexistent/msgvault.toml")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadFromFileParsesToml(t *testing.T) {
	tmpDir, err := ioutil.TempDir("", "config-test")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	content := `
environment = "production"

[server]
port = 9090
host = "0.0.0.0"

[storage]
path = "/var/lib/msgvault"

[scraper]
max_conversations = 50

[[tenants]]
name = "alice"
email = "alice@example.com"
password = "secret"
telegram_chat_id = "12345"

[[tenants]]
name = "bob"
email = "bob@example.com"
password = "secret2"
`
	path := filepath.Join(tmpDir, "msgvault.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "/var/lib/msgvault", cfg.Storage.Path)
	assert.Equal(t, 50, cfg.Scraper.MaxConversations)

	// Values absent from the file keep their defaults
	assert.Equal(t, 5, cfg.Scraper.MaxPages)
	assert.Equal(t, "annonces.nc", cfg.Scraper.Site)

	require.Len(t, cfg.Tenants, 2)
	assert.Equal(t, "alice", cfg.Tenants[0].Name)
	assert.Equal(t, "12345", cfg.Tenants[0].TelegramChatID)
}

func TestLoadFromFileInvalidToml(t *testing.T) {
	tmpDir, err := ioutil.TempDir("", "config-test")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	path := filepath.Join(tmpDir, "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server\nport=1"), 0644))

	_, err = LoadFromFile(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MSGVAULT_SERVER_PORT", "7070")
	t.Setenv("MSGVAULT_LOG_LEVEL", "debug")
	t.Setenv("MSGVAULT_TELEGRAM_BOT_TOKEN", "123:abc")

	cfg, err := LoadFromFile("")
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "123:abc", cfg.Telegram.BotToken)
	assert.True(t, cfg.Telegram.Enabled)
}

func TestApplyFlagOverrides(t *testing.T) {
	cfg := NewDefaultConfig()
	ApplyFlagOverrides(cfg, 6060, "127.0.0.1")
	assert.Equal(t, 6060, cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)

	ApplyFlagOverrides(cfg, 0, "")
	assert.Equal(t, 6060, cfg.Server.Port, "zero values leave the config untouched")
}

func TestTenantLookup(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Tenants = []TenantConfig{{Name: "alice"}, {Name: "bob"}}

	require.NotNil(t, cfg.Tenant("bob"))
	assert.Equal(t, "bob", cfg.Tenant("bob").Name)
	assert.Nil(t, cfg.Tenant("carol"))
}
