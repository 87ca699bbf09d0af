package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lifeplan-backend/internal/config"
	"lifeplan-backend/internal/db"
	"lifeplan-backend/internal/middleware"
	"lifeplan-backend/internal/version"
	"lifeplan-backend/internal/worker"
	"lifeplan-backend/redis"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	config.LoadConfig()

	// Connect to database
	db.ConnectDb()
	defer db.CloseDb()

	// Migrate database schema
	db.Migrate()

	// Seed database with initial data (for development)
	if config.AppConfig.Environment == "development" {
		db.SeedData()
	}

	// Initialize Redis
	redis.InitRedis()
	cache := redis.NewCache(redis.RedisClient)

	// Background pool for cache writes
	pool := worker.NewWorkerPool(4)
	defer pool.Shutdown()

	// Initialize repository
	versionRepo := version.NewRepository(db.AppDb)
	// Initialize service
	versionService := version.NewService(versionRepo, cache, pool)
	// Initialize handler
	versionHandler := version.NewHandler(versionService)

	// Initialize Gin router
	router := gin.Default()
	router.Use(middleware.ErrorHandler())

	// cors setting
	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
	}

	if config.AppConfig.Environment == "development" {
		// Allow all origins in development
		corsConfig.AllowAllOrigins = true
	} else {
		// Restrict origins in production
		corsConfig.AllowOrigins = []string{config.AppConfig.FrontendAddress}
	}
	router.Use(cors.New(corsConfig))

	authRequired := middleware.AuthMiddleWare()

	// Document routes
	router.POST("/documents/:type", authRequired, versionHandler.CreateDocument)
	router.GET("/documents/:type/current", authRequired, versionHandler.ShowCurrentDocument)
	router.GET("/documents/:type/versions", authRequired, versionHandler.ShowVersions)
	router.POST("/documents/:type/draft", authRequired, versionHandler.EnsureDraft)
	router.GET("/documents/:type/draft", authRequired, versionHandler.ShowDraft)
	router.GET("/documents/:type/draft/changes", authRequired, versionHandler.ShowDraftChanges)

	// Draft routes
	router.PUT("/drafts/:id/fields/:key", authRequired, versionHandler.UpdateDraftField)
	router.POST("/drafts/:id/fields/:key/refine", authRequired, versionHandler.MarkFieldRefined)
	router.DELETE("/drafts/:id", authRequired, versionHandler.DeleteDraft)
	router.POST("/drafts/:id/commit", authRequired, versionHandler.CommitDraft)

	// Server configuration
	serverPort := config.AppConfig.ServerPort
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", serverPort),
		Handler: router.Handler(),
	}

	// Start server
	go func() {
		log.Printf("Server listening on port %s", serverPort)
		err := server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Println("Server shutdown error:", err)
	}

	<-ctx.Done()
	log.Println("Server shutdown complete")
}
