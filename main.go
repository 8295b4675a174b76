package main

import (
	"context"
	"embed"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"popdash/internal"
	"popdash/internal/api"
	"popdash/internal/config"
	"popdash/internal/container"
	"popdash/ui"
)

//go:embed ui/templates ui/static
var embeddedFiles embed.FS

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Load application configuration
	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if level, ok := internal.ParseLogLevel(appConfig.Logging.Level); ok {
		internal.DefaultLogger = internal.NewLogger(level)
	}
	defer internal.DefaultLogger.Sync()

	profiles, err := appConfig.Profiles()
	if err != nil {
		log.Fatalf("Failed to load dataset profiles: %v", err)
	}
	if len(profiles.Profiles) == 0 {
		log.Println("No profiles configured (PROFILES_FILE, DATA_FILE or DATA_URL); dashboard runs in upload-only mode")
	} else {
		log.Printf("Loaded %d dataset profiles: %v", len(profiles.Profiles), profiles.Names())
	}

	// Create dependency injection container
	appContainer, err := container.New(appConfig, profiles)
	if err != nil {
		log.Fatalf("Failed to create application container: %v", err)
	}
	defer appContainer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	err = appContainer.InitWithDatabase(ctx)
	cancel()
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	gin.SetMode(appConfig.Server.GinMode)

	// Initialize web server with the JSON API mounted under /api
	server, err := ui.NewServer(embeddedFiles, appContainer, api.NewHandler(appContainer))
	if err != nil {
		log.Fatalf("Failed to initialize server: %v", err)
	}

	log.Printf("🚀 Starting popdash dashboard on port %s", appConfig.Server.Port)
	log.Fatal(server.Start(":" + appConfig.Server.Port))
}
