package routes

import (
	"context"
	"fmt"
	"net/http"
	"net/http/pprof"
	"time"

	"blog/config"
	"blog/controllers"
	"blog/middlewares"

	"github.com/gorilla/mux"
)

// SetupRoutes sets up the application routes and middlewares.
// The rate limiter's cleanup loop stops when ctx is cancelled.
func SetupRoutes(ctx context.Context, cfg *config.Config, posts *controllers.PostHandler) (http.Handler, error) {
	router := mux.NewRouter()

	// Apply global middlewares
	router.Use(middlewares.RequestID)
	router.Use(middlewares.LoggingMiddleware)

	rateLimiter := middlewares.NewRateLimiter(ctx, cfg.RateLimit, time.Minute, 2*time.Minute)
	if err := rateLimiter.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	router.Use(rateLimiter.Limit)

	router.HandleFunc("/healthz", posts.Healthz).Methods("GET")
	posts.SetupPostAPIRoutes(router)
	posts.SetupPostRoutes(router)

	if cfg.DebugMode {
		router.HandleFunc("/debug/pprof/", pprof.Index)
		router.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		router.HandleFunc("/debug/pprof/profile", pprof.Profile)
		router.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		router.HandleFunc("/debug/pprof/trace", pprof.Trace)
		router.PathPrefix("/debug/pprof/").HandlerFunc(pprof.Index)
	}

	// CORS wraps the router so preflight requests, which match no route, still get answered.
	cors := middlewares.CorsMiddleware(&middlewares.CorsConfig{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", middlewares.RequestIDHeader},
	})
	return cors(router), nil
}
