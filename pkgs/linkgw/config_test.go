package linkgw

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lijianying10/lnlgateway/pkgs/linkstore"
	"github.com/lijianying10/lnlgateway/pkgs/oauthprovider"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestNewConfigFileAndEnv(t *testing.T) {
	path := writeConfig(t, `{
		"app_origin": "https://app.example.com",
		"flow_ttl_seconds": 300,
		"discord": {"client_id": "file-id", "client_secret": "file-secret"},
		"store": {"driver": "sqlite", "sqlite_path": "/var/lib/lnl/links.db"},
		"host_mapping": {"dash.example.com": "http://127.0.0.1:3000"}
	}`)
	t.Setenv("DISCORD_CLIENT_ID", "env-id")
	t.Setenv("X_REDIRECT_URI", "https://gw.example.com/api/auth/x/callback")
	t.Setenv("LNL_STORE_SQLITE_PATH", "/tmp/links.db")

	cfg, err := NewConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "https://app.example.com", cfg.AppOrigin)
	assert.Equal(t, "env-id", cfg.Discord.ClientID)
	assert.Equal(t, "file-secret", cfg.Discord.ClientSecret)
	assert.Equal(t, "https://gw.example.com/api/auth/x/callback", cfg.X.RedirectURI)
	assert.Equal(t, linkstore.DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, "/tmp/links.db", cfg.Store.SQLitePath)
	assert.Equal(t, "http://127.0.0.1:3000", cfg.HostMapping["dash.example.com"])
	assert.Equal(t, 5*time.Minute, cfg.FlowTTL())

	assert.Equal(t, ":8000", cfg.ListenAddr)
	assert.Equal(t, 10*time.Minute, cfg.LinkTokenTTL())
	assert.Equal(t, float64(defaultProviderRateLimit), cfg.ProviderRateLimit)
	assert.Equal(t, oauthprovider.DiscordTokenURL, cfg.Discord.TokenURL)
	assert.Equal(t, oauthprovider.XProfileURL, cfg.X.ProfileURL)
}

func TestNewConfigWithoutFile(t *testing.T) {
	t.Setenv("APP_ORIGIN", "https://app.example.com")
	t.Setenv("LNL_LISTEN_ADDR", "127.0.0.1:9000")
	cfg, err := NewConfig("")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.ListenAddr)
	assert.Equal(t, linkstore.DriverNone, cfg.Store.Driver)
}

func TestNewConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad json", `{"app_origin":`},
		{"unknown store driver", `{"store": {"driver": "mongo"}}`},
		{"redis without address", `{"store": {"driver": "redis"}}`},
		{"relative upstream", `{"host_mapping": {"dash.example.com": "/dashboard"}}`},
		{"relative app origin", `{"app_origin": "app.example.com"}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewConfig(writeConfig(t, tc.body))
			assert.Error(t, err)
		})
	}

	_, err := NewConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestConfigMissing(t *testing.T) {
	cfg := &Config{}
	assert.Equal(t,
		[]string{"APP_ORIGIN", "X_CLIENT_ID", "X_CLIENT_SECRET", "X_REDIRECT_URI"},
		cfg.missing("X", cfg.X, true))

	cfg.AppOrigin = testOrigin
	cfg.Discord = ProviderConfig{ClientID: "id", RedirectURI: "https://gw.example.com/cb"}
	assert.Empty(t, cfg.missing("DISCORD", cfg.Discord, false))
	assert.Equal(t, []string{"DISCORD_CLIENT_SECRET"}, cfg.missing("DISCORD", cfg.Discord, true))
}
