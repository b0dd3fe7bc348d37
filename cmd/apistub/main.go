package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/SolomonGao/UniPick-sub000/internal/config"
	"github.com/SolomonGao/UniPick-sub000/internal/stub"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("apistub %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", buildDate)
		os.Exit(0)
	}

	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Error loading .env file: %v", err)
	}

	cfg := config.Load()

	if cfg.Stub.Secret == "" {
		log.Println("WARNING: APISTUB_SECRET is empty, using insecure default (set APISTUB_SECRET to match your client)")
		cfg.Stub.Secret = "insecure-dev-secret-change-me"
	}

	s := stub.New(cfg.Stub.Secret)

	seed, err := loadSeed(cfg.Stub.SeedPath)
	if err != nil {
		log.Fatalf("Failed to load seed data: %v", err)
	}
	if err := s.Seed(seed); err != nil {
		log.Fatalf("Failed to seed catalog: %v", err)
	}
	log.Printf("Seeded %d users and %d items", len(seed.Users), len(seed.Items))

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check.
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Mount("/", s.Handler())

	srv := &http.Server{
		Addr:         cfg.Stub.Addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	log.Printf("API stub listening on %s", cfg.Stub.Addr)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
	log.Println("Server stopped")
}

// loadSeed reads the fixture file when one is configured and falls
// back to the embedded set.
func loadSeed(path string) (stub.Seed, error) {
	if path != "" {
		return stub.LoadSeed(path)
	}
	return stub.DefaultSeed()
}
