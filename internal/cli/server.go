package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"marathon-service/internal/app"
	"marathon-service/internal/config"
	"marathon-service/internal/domain"
	"marathon-service/internal/infra/memory"
	pgcatalog "marathon-service/internal/infra/postgres"
	redisinfra "marathon-service/internal/infra/redis"
	transport "marathon-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the marathon server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	marathonID := cfg.Marathon.ID
	if marathonID == "" {
		marathonID = "marathon-1"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var (
		loader memory.CatalogLoader
		admin  transport.CatalogAdmin
	)
	if pool != nil {
		store := pgcatalog.NewCatalogStore(pool)
		loader = store
		admin = store
	} else {
		store := memory.NewStaticCatalogStore(sampleCatalog())
		loader = store
		admin = store
	}

	catalogTTL := config.TTLDuration(cfg.Catalog.TTL, 10*time.Minute)
	var (
		catalogRepo app.CatalogRepository
		invalidator transport.CatalogInvalidator
	)
	if redisClient != nil {
		repo := redisinfra.NewCatalogRepository(redisClient, loader, catalogTTL)
		catalogRepo = repo
		invalidator = repo
	} else {
		repo := memory.NewCatalogRepository(loader, catalogTTL)
		catalogRepo = repo
		invalidator = repo
	}

	var boards app.BoardRepository
	if redisClient != nil {
		boardTTL := config.TTLDuration(cfg.Redis.BoardTTL, 0)
		boards = redisinfra.NewBoardStore(redisClient, boardTTL)
	} else {
		boards = memory.NewBoardStore()
	}
	// Warm the default board so reads work before the first join.
	boards.GetOrCreate(marathonID)

	service := app.NewMarathonService(boards, catalogRepo)
	wsHandler := transport.NewWSHandler(service)
	api := transport.NewAPI(service, catalogRepo, admin, invalidator)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	api.Register(mux)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting marathon service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleCatalog provides a minimal reading plan; production deployments load
// the catalog from Postgres instead.
func sampleCatalog() []domain.Reading {
	today := domain.DateOf(time.Now())
	return []domain.Reading{
		{
			ID:       "r-1",
			Date:     today,
			Title:    "Genesis 1-3",
			Question: "What was created on the first day?",
			Options: []domain.QuizOption{
				{ID: "a", Text: "Light"},
				{ID: "b", Text: "Animals"},
				{ID: "c", Text: "Mankind"},
			},
			CorrectOptionID: "a",
			BonusPoints:     2,
		},
		{
			ID:          "r-2",
			Date:        today,
			Title:       "Genesis 4-6",
			BonusPoints: 0,
		},
	}
}
