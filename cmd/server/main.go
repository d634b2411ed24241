package main

import (
	"log"
	"strconv"
	"time"

	"github.com/skogeo/hear-me-out-cake/internal/config"
	"github.com/skogeo/hear-me-out-cake/internal/database"
	"github.com/skogeo/hear-me-out-cake/internal/handlers"
	"github.com/skogeo/hear-me-out-cake/internal/services"
	"github.com/skogeo/hear-me-out-cake/internal/storage"
	"github.com/skogeo/hear-me-out-cake/internal/storage/memory"
	"github.com/skogeo/hear-me-out-cake/internal/storage/postgres"
	"github.com/skogeo/hear-me-out-cake/internal/ws"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Hear Me Out API
// @version         1.0
// @description     Session coordination for the "hear me out" reveal party game
// @host            localhost:3001
// @BasePath        /

func main() {
	cfg := config.Load()

	var store storage.SessionStore
	if cfg.DBDisabled == "true" {
		log.Println("DB_DISABLED set, using in-memory session store")
		store = memory.NewSessionStore()
	} else {
		db := database.Connect(cfg)
		database.AutoMigrate(db)
		store = postgres.NewSessionStore(db)
	}

	maxUploadSize, err := strconv.ParseInt(cfg.MaxUploadSize, 10, 64)
	if err != nil || maxUploadSize <= 0 {
		maxUploadSize = 5 << 20
	}
	sessionMaxAge, err := time.ParseDuration(cfg.SessionMaxAge)
	if err != nil || sessionMaxAge <= 0 {
		sessionMaxAge = 24 * time.Hour
	}
	cleanupInterval, err := time.ParseDuration(cfg.CleanupInterval)
	if err != nil || cleanupInterval <= 0 {
		cleanupInterval = time.Hour
	}

	hub := ws.NewHub()
	cache := services.NewSessionCache(store)
	sessionService := services.NewSessionService(cache, store)
	uploadService, err := services.NewUploadService(cfg.UploadDir, maxUploadSize)
	if err != nil {
		log.Fatalf("failed to init upload service: %v", err)
	}

	cleanup := services.NewCleanupService(store, cache, sessionMaxAge, cleanupInterval)
	cleanup.Start()
	defer cleanup.Stop()

	sessionHandler := handlers.NewSessionHandler(sessionService, hub)
	uploadHandler := handlers.NewUploadHandler(uploadService)
	wsHandler := handlers.NewWSHandler(sessionService, hub)

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	r.Static("/uploads", cfg.UploadDir)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/ws", wsHandler.HandleWebSocket)

	api := r.Group("/api")
	{
		api.POST("/sessions", sessionHandler.CreateSession)
		api.GET("/sessions/:id", sessionHandler.GetSession)
		api.POST("/sessions/:id/start", sessionHandler.StartSession)
		api.POST("/sessions/:id/reveal", sessionHandler.RevealNext)
		api.POST("/upload", uploadHandler.Upload)
	}

	log.Printf("server starting on :%s", cfg.ServerPort)
	if err := r.Run(":" + cfg.ServerPort); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}
