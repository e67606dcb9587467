package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/Vovarama1992/moodtwin-bridge/internal/ai"
	"github.com/Vovarama1992/moodtwin-bridge/internal/config"
	"github.com/Vovarama1992/moodtwin-bridge/internal/twin"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	// --- Store ---
	repo, closeRepo, err := openRepo(cfg)
	if err != nil {
		log.Fatalf("store error: %v", err)
	}
	defer closeRepo()

	// --- AI ---
	var aiClient ai.AI
	if cfg.HasUpstream() {
		aiClient = ai.NewOpenAIClient(ai.Options{
			APIKey:      cfg.OpenAIAPIKey,
			Model:       cfg.OpenAIModel,
			BaseURL:     cfg.OpenAIBaseURL,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
		})
		log.Printf("[ai] upstream enabled model=%s", cfg.OpenAIModel)
	} else {
		log.Println("[ai] OPENAI_API_KEY not set, using local fallback replies")
	}

	// --- Twin module wiring ---
	twinService := twin.NewService(repo, aiClient, twin.NewMockOutbound(), cfg.EchoRaw)
	twinHandler := twin.NewHandler(twinService)

	r := newRouter(cfg, twinHandler)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("MoodTwin server running on port %s (store=%s)", cfg.Port, cfg.StoreBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}

func newRouter(cfg config.Config, twinHandler *twin.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSAllowOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	twin.RegisterRoutes(r, twinHandler)

	// --- health ---
	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})

	return r
}

func openRepo(cfg config.Config) (twin.Repo, func(), error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	switch cfg.StoreBackend {
	case config.BackendPostgres:
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		if err := twin.EnsurePGSchema(ctx, db); err != nil {
			db.Close()
			return nil, nil, err
		}
		return twin.NewPGRepo(db), func() { db.Close() }, nil

	case config.BackendRedis:
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, err
		}
		return twin.NewRedisRepo(client), func() { client.Close() }, nil

	default:
		repo, err := twin.NewFileRepo(cfg.DataDir, cfg.StoreLock)
		if err != nil {
			return nil, nil, err
		}
		if !cfg.StoreLock {
			log.Println("[store] STORE_LOCK=false: concurrent trains may lose updates")
		}
		return repo, func() {}, nil
	}
}
