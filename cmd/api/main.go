package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"comicapi/internal/comic"
	apphttp "comicapi/internal/http"
	"comicapi/internal/httpx"
	"comicapi/internal/platform/marvel"
	"comicapi/internal/store"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load(".env.local")

	serverAddress := getEnv("APP_ADDR", ":8080")
	databaseDSN := os.Getenv("DB_DSN")
	baseURL := getEnv("MARVEL_BASE_URL", "https://gateway.marvel.com")
	publicKey := mustGetEnv("MARVEL_PUBLIC_KEY")
	privateKey := mustGetEnv("MARVEL_PRIVATE_KEY")
	upstreamRPS := getEnvInt("UPSTREAM_RPS", 3)
	totalTTL := time.Duration(getEnvInt("YEAR_TOTAL_TTL_HOURS", 24)) * time.Hour

	signer := marvel.MD5Signer{PublicKey: publicKey, PrivateKey: privateKey}
	client := marvel.NewClient(baseURL, publicKey, signer, upstreamRPS)

	var (
		comicStore comic.Store
		dbPool     *pgxpool.Pool
	)
	if databaseDSN != "" {
		dbPool = mustOpenDB(databaseDSN)
		defer dbPool.Close()
		comicStore = store.NewComicPG(dbPool)
	} else {
		log.Println("DB_DSN not set, using in-memory store")
		comicStore = store.NewMemory(totalTTL)
	}

	fetcher := comic.NewFetcher(client, comicStore)
	comicHandler := apphttp.NewComicHandler(fetcher, comicStore)

	router := http.NewServeMux()

	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if dbPool != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
			defer cancel()
			if err := dbPool.Ping(ctx); err != nil {
				http.Error(w, "db not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	router.HandleFunc("/comics", comicHandler.GetPage)
	router.HandleFunc("/comics/total", comicHandler.GetYearTotal)
	router.HandleFunc("/comics/random", comicHandler.Random)
	router.HandleFunc("/comics/search", comicHandler.Search)

	rateLimit := httpx.NewRateLimitMiddleware(getEnvFloat("RATE_LIMIT_RPS", 10), getEnvInt("RATE_LIMIT_BURST", 20))
	allowedOrigins := strings.Split(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"), ",")

	var handler http.Handler = router
	handler = rateLimit.Middleware(handler)
	handler = httpx.CORSMiddleware(allowedOrigins)(handler)
	handler = httpx.SecurityHeadersMiddleware(handler)
	handler = httpx.RecoveryMiddleware(handler)
	handler = httpx.AccessLogMiddleware(handler)
	handler = httpx.RequestIDMiddleware(handler)

	httpServer := &http.Server{
		Addr:         serverAddress,
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("listening on %s", serverAddress)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

func mustOpenDB(dsn string) *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		log.Fatalf("failed to create db pool: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("failed to ping db: %v", err)
	}
	return pool
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func mustGetEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("missing required env var %s", key)
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
