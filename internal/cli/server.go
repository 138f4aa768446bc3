package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"qcm-service/internal/app"
	"qcm-service/internal/auth"
	"qcm-service/internal/config"
	"qcm-service/internal/infra/memory"
	pgloader "qcm-service/internal/infra/postgres"
	infraredis "qcm-service/internal/infra/redis"
	"qcm-service/internal/infra/sqlstore"
	"qcm-service/internal/logging"
	transport "qcm-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the QCM server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// stores groups the persistence ports chosen from config.
type stores struct {
	quizzes app.QuizStore
	results app.ResultStore
	loader  app.QuizLoader
	close   func()
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logging.New(cfg.Log.Level, cfg.Log.Format)
	if cfg.Auth.Secret == "" {
		return fmt.Errorf("auth secret not configured")
	}

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.close()

	quizTTL := config.Duration(cfg.Cache.QuizTTL, 10*time.Minute)
	statsTTL := config.Duration(cfg.Cache.StatisticsTTL, time.Minute)

	var (
		quizRepo   app.QuizRepository
		statsCache app.StatisticsCache
	)
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		quizRepo = infraredis.NewQuizRepository(redisClient, st.loader, quizTTL)
		statsCache = infraredis.NewStatisticsCache(redisClient, statsTTL)
	} else {
		quizRepo = memory.NewQuizRepository(st.loader, quizTTL)
		statsCache = memory.NewStatisticsCache(statsTTL)
	}

	results := app.NewResultService(quizRepo, st.results, statsCache, app.NewStatisticsFeed(), log)
	quizzes := app.NewQuizService(st.quizzes, quizRepo, statsCache)
	submissions := app.NewSubmissionService(quizRepo, st.quizzes, st.results, log, results)

	authSvc := auth.NewService(cfg.Auth.Secret, config.Duration(cfg.Auth.TokenTTL, 8*time.Hour))
	router := transport.NewRouter(
		transport.NewHandler(quizzes, submissions, results, log),
		transport.NewWSHandler(results, log, cfg.CORS.AllowedOrigins),
		transport.RouterConfig{Auth: authSvc, Log: log, AllowedOrigins: cfg.CORS.AllowedOrigins},
	)

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  config.Duration(cfg.Server.ReadTimeout, 15*time.Second),
		WriteTimeout: config.Duration(cfg.Server.WriteTimeout, 15*time.Second),
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Infof("starting qcm service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// openStores picks the in-memory store, or a migrated bun store; Postgres
// additionally gets the pgx graph loader on the read path.
func openStores(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (stores, error) {
	if cfg.Database.Driver == "" {
		log.Warn("no database configured, data lives in memory only")
		store := memory.NewStore()
		return stores{quizzes: store, results: store, loader: store, close: func() {}}, nil
	}

	db, err := sqlstore.Open(cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		return stores{}, err
	}
	if err := migrateDB(ctx, db, log); err != nil {
		db.Close()
		return stores{}, err
	}
	store := sqlstore.NewStore(db)
	st := stores{quizzes: store, results: store, loader: store, close: func() { db.Close() }}

	if cfg.Database.Driver == sqlstore.DriverPostgres {
		pool, err := pgxpool.Connect(ctx, cfg.Database.URL)
		if err != nil {
			db.Close()
			return stores{}, err
		}
		st.loader = pgloader.NewQuizLoader(pool)
		st.close = func() {
			pool.Close()
			db.Close()
		}
	}
	return st, nil
}
