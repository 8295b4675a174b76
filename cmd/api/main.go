package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"popdash/internal"
	"popdash/internal/api"
	"popdash/internal/config"
	"popdash/internal/container"
)

// Standalone JSON API without the dashboard
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

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

	appContainer, err := container.New(appConfig, profiles)
	if err != nil {
		log.Fatalf("Failed to create application container: %v", err)
	}
	defer appContainer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := appContainer.InitWithDatabase(ctx); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	srv := &http.Server{
		Addr:              ":" + appConfig.API.Port,
		Handler:           api.NewHandler(appContainer),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      appConfig.Data.FetchTimeout + 30*time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("API server shutdown failed: %v", err)
		}
	}()

	log.Printf("Starting API server on %s (%d profiles)", srv.Addr, len(profiles.Profiles))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("API server failed: %v", err)
	}
}
