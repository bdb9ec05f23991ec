package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "STEAM_USERNAME", "STEAM_STORAGE_PATH", "STEAM_COMMUNITY_URL", "STEAM_TIMEOUT_SECONDS"} {
		t.Setenv(k, "")
	}
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "storage", cfg.SteamStoragePath)
	assert.Equal(t, "https://steamcommunity.com", cfg.SteamCommunityURL)
	assert.Equal(t, 30*time.Second, cfg.SteamTimeout)
}

func TestSteamConfig_SecretsOnlyForDefaultAccount(t *testing.T) {
	t.Setenv("STEAM_USERNAME", "alice")
	t.Setenv("STEAM_PASSWORD", "hunter2")
	t.Setenv("STEAM_SHARED_SECRET", "c2VjcmV0")
	t.Setenv("STEAM_API_KEY_DOMAIN", "example.com")
	t.Setenv("STEAM_TIMEOUT_SECONDS", "5")
	cfg := Load()

	alice := cfg.SteamConfig("alice")
	assert.Equal(t, "hunter2", alice.Password)
	assert.Equal(t, "c2VjcmV0", alice.SharedSecret)
	assert.Equal(t, "example.com", alice.APIKeyDomain)

	bob := cfg.SteamConfig("bob")
	assert.Equal(t, "bob", bob.Username)
	assert.Empty(t, bob.Password)
	assert.Empty(t, bob.SharedSecret)
	assert.Equal(t, "example.com", bob.APIKeyDomain)
	assert.Equal(t, 5*time.Second, cfg.SteamTimeout)
}
