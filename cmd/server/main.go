package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"voiceletter/internal/api"
	"voiceletter/internal/config"
	"voiceletter/internal/db"
	"voiceletter/internal/dispatch"
	"voiceletter/internal/generation"
	"voiceletter/internal/profile"
	"voiceletter/internal/store"
)

func main() {
	// Load .env file if it exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set Gin mode (default to release mode)
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Storage backend is chosen exactly once, here. Everything above the
	// store interface is unaware of which one is running.
	var recordStore store.Store
	if cfg.OfflineStorage() {
		log.Println("DATABASE_URL not set, running on in-memory storage (offline mode)")
		recordStore = store.NewMemory()
	} else {
		log.Printf("Initializing database connection...")
		if err := db.Init(cfg.DatabaseURL); err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer db.Close()
		recordStore = store.NewPostgres(db.DB)
		log.Println("Database and store initialized successfully")
	}

	profiles := profile.NewRepository(recordStore)

	// The dispatcher is also chosen once: the real webhook client, or the
	// local simulator that feeds completions back through the same callback
	// path the workflow would use.
	var orch *generation.Orchestrator
	callbackURL := cfg.CallbackBaseURL + "/api/v1/callbacks/generation"
	if cfg.SimulatedDispatch() {
		log.Println("GENERATION_WEBHOOK_URL not set, simulating the generation workflow")
		sim := dispatch.NewSimulator(func(p dispatch.CallbackPayload) {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if _, err := orch.HandleCompletionCallback(ctx, p); err != nil {
				log.Printf("Warning: simulated callback for generation %s not applied: %v", p.GenerationID, err)
			}
		}, 2*time.Second)
		orch = generation.NewOrchestrator(recordStore, profiles, sim, callbackURL)
	} else {
		client := dispatch.NewClient(cfg.WebhookURL, cfg.WebhookTimeout)
		orch = generation.NewOrchestrator(recordStore, profiles, client, callbackURL)
		log.Printf("Generation webhook configured: %s (timeout %v)", cfg.WebhookURL, cfg.WebhookTimeout)
	}

	r := gin.Default()
	r.Use(corsMiddleware())

	api.NewHandlers(profiles, orch).RegisterRoutes(r)

	log.Printf("Voiceletter backend running on :%s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// corsMiddleware adds CORS headers for the web frontend
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With, X-User-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
