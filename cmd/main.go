package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/omarabozied5/zonak-storefront/internal/auth"
	"github.com/omarabozied5/zonak-storefront/internal/catalog"
	"github.com/omarabozied5/zonak-storefront/internal/httpapi"
	"github.com/omarabozied5/zonak-storefront/internal/reconciler"
	"github.com/omarabozied5/zonak-storefront/internal/registry"
	"github.com/omarabozied5/zonak-storefront/internal/storage"
)

type Config struct {
	HTTPPort           string
	StoragePath        string
	CatalogURL         string
	PaymentURL         string
	RedisAddr          string
	RedisPassword      string
	Debounce           time.Duration
	FetchTimeout       time.Duration
	MaxRestoreAttempts int
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
}

func loadConfig() *Config {
	return &Config{
		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		StoragePath:        getEnv("STORAGE_PATH", "storefront.db"),
		CatalogURL:         getEnv("CATALOG_URL", "http://localhost:9090"),
		PaymentURL:         getEnv("PAYMENT_URL", "https://pay.example.com/checkout"),
		RedisAddr:          getEnv("REDIS_ADDR", ""),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		Debounce:           time.Duration(getEnvInt("DEBOUNCE_MS", 500)) * time.Millisecond,
		FetchTimeout:       time.Duration(getEnvInt("FETCH_TIMEOUT_MS", 10000)) * time.Millisecond,
		MaxRestoreAttempts: getEnvInt("MAX_RESTORE_ATTEMPTS", 3),
		RequestTimeout:     30 * time.Second,
		ShutdownTimeout:    10 * time.Second,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
		log.Printf("ignoring non-numeric %s=%q", key, value)
	}
	return defaultValue
}

// openStorage picks the durable sqlite store, or the in-memory store when
// explicitly asked for (useful for local smoke runs).
func openStorage(path string) (storage.Store, error) {
	if path == "memory" {
		return storage.NewMemoryStore(), nil
	}
	return storage.OpenSQLite(path)
}

func main() {
	cfg := loadConfig()

	kv, err := openStorage(cfg.StoragePath)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	if closer, ok := kv.(*storage.SQLiteStore); ok {
		defer closer.Close()
	}
	log.Printf("Storage ready at %s", cfg.StoragePath)

	var catalogClient catalog.Client = catalog.NewHTTPClient(cfg.CatalogURL, cfg.FetchTimeout)
	catalogClient = catalog.NewBreakerClient(catalogClient)
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Fatal("Redis connection failed:", err)
		}
		log.Printf("Redis ping succeeded, menu cache enabled")
		catalogClient = catalog.NewCachedClient(catalogClient, redisClient)
	}

	reg := registry.New(kv)
	authStore := auth.NewStore(kv)

	server := httpapi.NewServer(reg, authStore, catalogClient, kv, httpapi.Config{
		Reconciler: reconciler.Config{
			Debounce:     cfg.Debounce,
			FetchTimeout: cfg.FetchTimeout,
		},
		MaxRestoreAttempts: cfg.MaxRestoreAttempts,
		PaymentURL:         cfg.PaymentURL,
	})
	defer server.Close()

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Mount("/", server.Routes())

	httpServer := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: r,
	}

	go func() {
		log.Printf("Storefront listening on port %s", cfg.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down storefront...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
	log.Println("Storefront stopped")
}
