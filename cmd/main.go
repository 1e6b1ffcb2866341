package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"blog/config"
	"blog/controllers"
	"blog/db"
	"blog/routes"
	"blog/views"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("Error opening database: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	schemaCtx, cancelSchema := context.WithTimeout(ctx, 30*time.Second)
	err = store.EnsureSchema(schemaCtx)
	cancelSchema()
	if err != nil {
		log.Fatalf("Error creating schema: %v", err)
	}

	cache, closeCache := newCache(ctx, cfg)
	defer closeCache()

	renderer, err := views.New()
	if err != nil {
		log.Fatalf("Error loading templates: %v", err)
	}

	posts := &controllers.PostHandler{
		Store:    store,
		Cache:    cache,
		Views:    renderer,
		CacheTTL: cfg.CacheTTL,
	}
	handler, err := routes.SetupRoutes(ctx, cfg, posts)
	if err != nil {
		log.Fatalf("Error setting up routes: %v", err)
	}

	srv := &http.Server{
		Addr:           cfg.BindAddress,
		Handler:        handler,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   30 * time.Second,
		MaxHeaderBytes: 1 << 16,
		IdleTimeout:    120 * time.Second,
	}

	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("ListenAndServe error: %v", err)
		}
	}()
	log.Printf("Server started on %s", cfg.BindAddress)

	// Wait for interrupt signal to gracefully shut down the server
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown failed: %+v", err)
	}

	wg.Wait()
	log.Println("Server exited gracefully")
}

// newCache connects to Redis when REDIS_URL is set. Without it, or when the
// server cannot be reached, posts are always read from the database.
func newCache(ctx context.Context, cfg *config.Config) (db.Cache, func()) {
	if cfg.RedisURL == "" {
		log.Println("REDIS_URL not set, post caching disabled.")
		return db.NopCache{}, func() {}
	}

	client, err := db.NewRedisClient(ctx, db.DefaultRedisConfig(cfg.RedisURL))
	if err != nil {
		log.Printf("Redis unavailable, post caching disabled: %v", err)
		return db.NopCache{}, func() {}
	}

	log.Println("Redis connection initialized successfully.")
	cache := &db.RedisCache{Client: client}
	return cache, func() {
		if err := cache.Close(); err != nil {
			log.Printf("Error closing Redis client: %v", err)
		}
	}
}
