package admin

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
	"github.com/splashxmoon/domufi-app/internal/api/handlers"
	"github.com/splashxmoon/domufi-app/internal/config"
	"github.com/splashxmoon/domufi-app/internal/database"
	"github.com/splashxmoon/domufi-app/internal/embedding"
	"github.com/splashxmoon/domufi-app/internal/jobs"
	"github.com/splashxmoon/domufi-app/internal/openai"
	"github.com/splashxmoon/domufi-app/internal/repository"
	"github.com/splashxmoon/domufi-app/internal/server"
	"github.com/splashxmoon/domufi-app/internal/service"
	"github.com/splashxmoon/domufi-app/internal/storage"
	"github.com/splashxmoon/domufi-app/internal/telemetry"
	"github.com/splashxmoon/domufi-app/internal/vectorstore"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the conversational API server",
		Long:  "Start the domufi conversational AI server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")
	cmd.Flags().Bool("no-learning", false, "Disable the background learning loops")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.HasSentry() {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              cfg.SentryDSN,
			Environment:      environment,
			TracesSampleRate: sampleRate,
			Debug:            cfg.Debug,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	var pool *pgxpool.Pool
	if cfg.HasDatabase() {
		pool, err = database.NewPool(ctx, database.Config{
			URL:      cfg.DatabaseURL,
			MaxConns: cfg.DBMaxConns,
			MinConns: cfg.DBMinConns,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()
		log.Println("connected to database")

		noMigrate, _ := cmd.Flags().GetBool("no-migrate")
		if !noMigrate {
			if err := runMigrations(cfg.DatabaseURL); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
		}
	} else {
		log.Println("no DATABASE_URL set, serving from vector memory only")
	}

	var embeddingClient embedding.EncoderClient
	if cfg.HasOpenAI() {
		embeddingClient = openai.NewClient(cfg.OpenAIAPIKey)
		log.Println("using OpenAI embeddings")
	} else {
		log.Println("no OPENAI_API_KEY set, using hashing embeddings")
	}
	provider := embedding.NewProvider(embeddingClient, embedding.DefaultDimensions)

	store := vectorStore(cfg, provider)
	defer store.Close()

	if err := service.SeedIntentExamples(ctx, store); err != nil {
		return err
	}

	var platform service.PlatformData
	var archiver service.InsightArchiver
	if pool != nil {
		platform = service.NewPlatformDataService(
			repository.NewPropertyRepository(pool),
			repository.NewPortfolioRepository(pool),
			repository.NewInvestmentRepository(pool),
			repository.NewWalletRepository(pool),
			repository.NewMarketDataRepository(pool),
		)
		archiver = repository.NewInsightRepository(pool)

		if _, err := service.SeedDemoData(ctx, repository.NewTxRunner(pool), repository.NewPropertyRepository(pool)); err != nil {
			log.Printf("demo seed failed (continuing): %v", err)
		}
	}

	understanding := service.NewUnderstandingEngine(provider)
	collector := service.NewCuratedCollector()
	analyzer := service.NewSemanticAnalyzer(provider, store)
	memory := service.NewConversationMemory(cfg.StateDir)
	learner := service.NewBackgroundLearner(store, provider, understanding, collector, archiver, cfg.StateDir)
	responder := service.NewResponder(platform)
	tuner := service.NewFeedbackTuner(store, cfg.StateDir)

	engine := service.NewEngine(analyzer, responder, understanding, collector, memory, learner, store)
	tester := service.NewSelfTester(service.NewEngineAnswerer(engine), store, learner, cfg.StateDir)

	engine.SetReady(true)

	noLearning, _ := cmd.Flags().GetBool("no-learning")
	var workers []*jobs.Worker
	startWorker := func(name string, processor jobs.JobProcessor, interval time.Duration) {
		w := jobs.NewWorker(processor, interval)
		go w.Start(ctx)
		workers = append(workers, w)
		log.Printf("%s worker started (every %s)", name, interval)
	}

	if cfg.EnableLearning && !noLearning {
		startWorker("continuous learning", learner.ContinuousJob(), service.ContinuousLearnInterval)
		startWorker("active learning", learner.ActiveJob(), service.ActiveLearnInterval)
		startWorker("trending learning", learner.TrendingJob(), service.TrendingLearnInterval)
		startWorker("self-test", tester.Job(), service.SelfTestInterval)
	}
	startWorker("feedback", tuner.Job(), service.FeedbackDrainInterval)

	if cfg.HasS3() {
		s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
		startWorker("snapshot backup", storage.NewSnapshotBackup(s3Client, cfg.StateDir, "state"), storage.SnapshotInterval)
	}

	router := server.NewRouter(server.RouterConfig{
		ChatHandler:     handlers.NewChatHandler(engine),
		FeedbackHandler: handlers.NewFeedbackHandler(tuner),
		LearningHandler: handlers.NewLearningHandler(tester, learner),
		StatusHandler:   handlers.NewStatusHandler(engine, store, tuner, cfg.HasDatabase(), cfg.HasOpenAI()),
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	engine.SetReady(false)
	for _, w := range workers {
		w.Stop()
	}
	memory.Flush()

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

func vectorStore(cfg *config.Config, provider *embedding.Provider) vectorstore.Store {
	return vectorstore.New(cfg.VectorBackend, provider, filepath.Join(cfg.StateDir, "vector_store"))
}

func runMigrations(databaseURL string) error {
	// Create a sql.DB connection for golang-migrate
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	// Create postgres driver instance
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	// Create migrate instance with file source
	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	// Run migrations
	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	// Get migration version and status
	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
