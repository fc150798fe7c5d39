package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/auth"
	"quiz-session-service/internal/config"
	"quiz-session-service/internal/domain"
	"quiz-session-service/internal/infra/memory"
	"quiz-session-service/internal/infra/postgres"
	redisstore "quiz-session-service/internal/infra/redis"
	transport "quiz-session-service/internal/transport/http"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"golang.org/x/sync/errgroup"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz session server",
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
	logger := newLogger(cfg.Server.Debug)
	slog.SetDefault(logger)

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var db *bun.DB
	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		db, err = openBunDB(cfg)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := runMigrations(ctx, db, logger); err != nil {
			return err
		}
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}

	service := app.NewSessionService(
		sessionStore(redisClient),
		quizRepository(cfg, redisClient, pool),
		resultStore(cfg, redisClient, db),
		app.Options{
			Countdown:        config.TTLDuration(cfg.Session.Countdown, app.DefaultCountdown),
			MaxActivePerQuiz: cfg.Session.MaxActivePerQuiz,
			MaxAutoStart:     cfg.Session.MaxAutoStart,
			Logger:           logger,
		})

	if cfg.Auth.JWTSecret == "" {
		logger.Warn("auth.jwtSecret not configured, host routes will reject every token")
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	transport.NewHandler(service, auth.NewJWTResolver(cfg.Auth.JWTSecret), logger).
		Register(mux, transport.Middlewares(cfg.Server.Debug)...)
	mux.HandleFunc("GET /ws", transport.NewWSHandler(service, logger).ServeWS)

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting quiz session service", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func sessionStore(client *redis.Client) app.SessionRepository {
	if client != nil {
		return redisstore.NewSessionStore(client)
	}
	return memory.NewSessionStore()
}

func quizRepository(cfg config.Config, client *redis.Client, pool *pgxpool.Pool) app.QuizRepository {
	var loader memory.QuizLoader = memory.NewStaticQuizLoader(sampleQuizzes())
	if pool != nil {
		loader = postgres.NewQuizLoader(pool)
	}
	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	if client != nil {
		return redisstore.NewQuizRepository(client, loader, quizTTL)
	}
	return memory.NewQuizRepository(loader, quizTTL)
}

// resultStore prefers postgres, then redis, then process memory.
func resultStore(cfg config.Config, client *redis.Client, db *bun.DB) app.ResultStore {
	switch {
	case db != nil:
		return postgres.NewResultStore(db)
	case client != nil:
		return redisstore.NewResultStore(client, config.TTLDuration(cfg.Session.ResultTTL, 24*time.Hour))
	default:
		return memory.NewResultStore()
	}
}

// sampleQuizzes seeds the in-memory loader used when no postgres is configured.
func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"quiz-1": {
			ID:      "quiz-1",
			OwnerID: "host-1",
			Name:    "Warm-up",
			Questions: []domain.Question{
				{
					ID:       "q1",
					Text:     "What is 2 + 2?",
					Duration: 20,
					Points:   10,
					Answers: []domain.Answer{
						{ID: "a1", Text: "3", Correct: false},
						{ID: "a2", Text: "4", Correct: true},
						{ID: "a3", Text: "5", Correct: false},
					},
				},
				{
					ID:       "q2",
					Text:     "Which of these are prime?",
					Duration: 30,
					Points:   20,
					Answers: []domain.Answer{
						{ID: "a1", Text: "2", Correct: true},
						{ID: "a2", Text: "4", Correct: false},
						{ID: "a3", Text: "7", Correct: true},
					},
				},
			},
		},
	}
}
