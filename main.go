package main

import (
	"log"
	"net/http"

	"steam-trader/internal/api"
	"steam-trader/internal/config"
	"steam-trader/internal/database"
	"steam-trader/internal/services/steamauth"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg := config.Load()

	if cfg.SteamUsername != "" {
		log.Printf("🔐 默认Steam账号: %s (存储目录: %s)", cfg.SteamUsername, cfg.SteamStoragePath)
	} else {
		log.Println("⚠️  未配置默认Steam账号, 仅按用户名访问")
	}

	db, err := database.Initialize(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	accounts := api.NewRegistry(cfg.SteamConfig, steamauth.WithTimeout(cfg.SteamTimeout))
	accounts.SetWebAPI(cfg.SteamWebAPIURL, cfg.SteamProxyURL)
	hub := api.NewHub()

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()

	// CORS middleware
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "ws_subscribers": hub.Subscribers()})
	})
	r.GET("/ws", hub.ServeWS)

	apiGroup := r.Group("/api/v1")
	api.SetupRoutes(apiGroup, api.NewGormAccountStore(db), accounts, hub)

	log.Printf("Server starting on port %s", cfg.Port)
	log.Fatal(http.ListenAndServe(":"+cfg.Port, r))
}
