package main

import (
	"context"
	"encoding/base64"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"chat-widget-backend/cmd"
	"chat-widget-backend/internal/api"
	"chat-widget-backend/internal/database"
	"chat-widget-backend/internal/metrics"
	"chat-widget-backend/internal/nonce"
	"chat-widget-backend/internal/proxy"
	"chat-widget-backend/internal/settings"
	"chat-widget-backend/web"
)

type ServerConfig struct {
	DatabasePath    string        `env:"DATABASE_PATH" envDefault:"chat-widget.db"`
	APIPort         string        `env:"API_PORT" envDefault:"8080"`
	AdminToken      string        `env:"ADMIN_TOKEN"`
	NonceKey        string        `env:"NONCE_KEY"` // base64; random per process when empty
	WebhookTimeout  time.Duration `env:"WEBHOOK_TIMEOUT" envDefault:"30s"`
	AllowedOrigins  []string      `env:"ALLOWED_ORIGINS" envDefault:"*"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

func main() {
	log.Println("Starting chat widget backend...")

	cmd.LoadEnvFile()

	var cfg ServerConfig
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("error parsing config: %v", err)
	}

	db, err := database.NewDatabase(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to open settings database: %v", err)
	}

	nonces, err := buildNonceIssuer(cfg.NonceKey)
	if err != nil {
		log.Fatalf("Failed to create nonce issuer: %v", err)
	}

	metrics.Init()

	store := settings.NewStore(db)
	webhook := proxy.NewClient(cfg.WebhookTimeout)
	chatService := api.NewChatService(store, webhook, nonces, cfg.AdminToken)

	// --- Chi Router Setup ---
	r := chi.NewRouter()

	r.Use(cors.Handler(corsOptions(cfg.AllowedOrigins)))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))

	r.Route("/api/v1", func(r chi.Router) {
		chatService.AddRoutes(r)
	})

	r.Handle("/metrics", metrics.Handler())
	r.Handle("/widget/*", http.StripPrefix("/widget/", web.Handler()))

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: r,
	}

	// Goroutine for graceful shutdown
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("Shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			log.Fatalf("Server forced to shutdown: %v", err)
		}
	}()

	log.Printf("API server listening on port %s", cfg.APIPort)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Could not listen on %s: %v\n", cfg.APIPort, err)
	}

	log.Println("Server stopped.")
}

// corsOptions builds the CORS policy. The widget relies on its session
// cookie, so responses carry Access-Control-Allow-Credentials; browsers
// reject that combined with a literal "*" allow-origin header, so a "*"
// entry echoes the request origin instead. The cookie is SameSite=Strict
// and does not ride cross-site regardless.
func corsOptions(allowedOrigins []string) cors.Options {
	opts := cors.Options{
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	for _, origin := range allowedOrigins {
		if origin == "*" {
			opts.AllowOriginFunc = func(r *http.Request, origin string) bool { return true }
			return opts
		}
	}
	opts.AllowedOrigins = allowedOrigins
	return opts
}

func buildNonceIssuer(key string) (*nonce.Issuer, error) {
	if strings.TrimSpace(key) == "" {
		log.Println("NONCE_KEY not set, generating an ephemeral signing key")
		return nonce.NewRandomIssuer(nonce.DefaultTTL)
	}
	raw, err := base64.StdEncoding.DecodeString(key)
	if err != nil {
		return nil, err
	}
	return nonce.NewIssuer(raw, nonce.DefaultTTL), nil
}
