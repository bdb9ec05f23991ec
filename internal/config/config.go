package config

import (
	"os"
	"strconv"
	"time"

	"steam-trader/internal/services/steamauth"
)

type Config struct {
	DatabaseURL string
	Port        string
	Environment string

	// Default Steam account; further accounts are addressed by username
	// through the API and share the storage path.
	SteamUsername     string
	SteamPassword     string
	SteamWebAPIKey    string
	SteamID           string
	SteamStoragePath  string
	SteamAPIKeyDomain string
	SteamSharedSecret string
	SteamProxyURL     string
	SteamCommunityURL string
	SteamWebAPIURL    string

	// Transport timeout for every Steam request
	SteamTimeout time.Duration
}

func Load() *Config {
	return &Config{
		DatabaseURL: getEnv("DATABASE_URL", "root:root@tcp(127.0.0.1:3306)/steam_trader?charset=utf8mb4&parseTime=True&loc=Local"),
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),

		SteamUsername:     getEnv("STEAM_USERNAME", ""),
		SteamPassword:     getEnv("STEAM_PASSWORD", ""),
		SteamWebAPIKey:    getEnv("STEAM_API_KEY", ""),
		SteamID:           getEnv("STEAM_ID", ""),
		SteamStoragePath:  getEnv("STEAM_STORAGE_PATH", steamauth.DefaultStoragePath),
		SteamAPIKeyDomain: getEnv("STEAM_API_KEY_DOMAIN", ""),
		SteamSharedSecret: getEnv("STEAM_SHARED_SECRET", ""),
		SteamProxyURL:     getEnv("STEAM_PROXY_URL", ""),
		SteamCommunityURL: getEnv("STEAM_COMMUNITY_URL", steamauth.DefaultCommunityURL),
		SteamWebAPIURL:    getEnv("STEAM_WEBAPI_URL", "https://api.steampowered.com"),

		SteamTimeout: time.Duration(getEnvInt("STEAM_TIMEOUT_SECONDS", 30)) * time.Second,
	}
}

// SteamConfig is the client configuration for username. The password and
// Steam Guard secret only apply to the default account.
func (c *Config) SteamConfig(username string) steamauth.Config {
	cfg := steamauth.Config{
		Username:     username,
		StoragePath:  c.SteamStoragePath,
		APIKeyDomain: c.SteamAPIKeyDomain,
		ProxyURL:     c.SteamProxyURL,
		CommunityURL: c.SteamCommunityURL,
	}
	if username == c.SteamUsername {
		cfg.Password = c.SteamPassword
		cfg.WebAPIKey = c.SteamWebAPIKey
		cfg.SteamID = c.SteamID
		cfg.SharedSecret = c.SteamSharedSecret
	}
	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
