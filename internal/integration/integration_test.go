package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"
	"quiz-session-service/internal/infra/postgres"
	pgmigrations "quiz-session-service/internal/infra/postgres/migrations"
	infraredis "quiz-session-service/internal/infra/redis"

	"github.com/benbjohnson/clock"
	"github.com/google/go-cmp/cmp"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

func TestSessionResultsSurviveRestart(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	db := openDB(t, ctx, pgURL)
	defer db.Close()

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	loader := postgres.NewQuizLoader(pool)
	if err := loader.SaveQuiz(ctx, sampleQuiz()); err != nil {
		t.Fatalf("seed quiz: %v", err)
	}

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	newService := func() *app.SessionService {
		return app.NewSessionService(
			infraredis.NewSessionStore(redisClient),
			infraredis.NewQuizRepository(redisClient, loader, 5*time.Minute),
			postgres.NewResultStore(db),
			app.Options{Clock: clock.NewMock()},
		)
	}
	service := newService()

	sessionID, err := service.StartSession(ctx, "quiz-1", "host-1", 2)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	alice, err := service.JoinSession(ctx, sessionID, "Alice")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	bob, err := service.JoinSession(ctx, sessionID, "Bob")
	if err != nil {
		t.Fatalf("join: %v", err)
	}

	// Second join reached the auto-start threshold.
	status, err := service.GetPlayerStatus(ctx, alice)
	if err != nil {
		t.Fatalf("player status: %v", err)
	}
	if status.Phase != domain.PhaseQuestionCountdown {
		t.Fatalf("expected auto-start into countdown, got %s", status.Phase)
	}

	mustAct(t, service, sessionID, domain.ActionFinishCountdown)
	if err := service.SubmitAnswer(ctx, bob, 0, []string{"o2"}); err != nil {
		t.Fatalf("submit bob: %v", err)
	}
	if err := service.SubmitAnswer(ctx, alice, 0, []string{"o1"}); err != nil {
		t.Fatalf("submit alice: %v", err)
	}
	mustAct(t, service, sessionID, domain.ActionGoToAnswer)
	mustAct(t, service, sessionID, domain.ActionGoToFinalResults)

	want, err := service.GetFinalResults(ctx, "host-1", sessionID)
	if err != nil {
		t.Fatalf("final results: %v", err)
	}
	if len(want.Ranking) != 2 || want.Ranking[0].Name != "Bob" || want.Ranking[0].Score != 4 {
		t.Fatalf("expected bob leading with 4 points, got %+v", want.Ranking)
	}

	// A fresh service has no live session and must read the stored result.
	restarted := newService()
	got, err := restarted.GetFinalResults(ctx, "host-1", sessionID)
	if err != nil {
		t.Fatalf("final results after restart: %v", err)
	}
	if diff := cmp.Diff(want.Ranking, got.Ranking); diff != "" {
		t.Fatalf("stored ranking differs (-live +stored):\n%s", diff)
	}
	if _, err := restarted.GetFinalResults(ctx, "host-2", sessionID); err != domain.ErrNotOwner {
		t.Fatalf("expected not owner for foreign host, got %v", err)
	}
}

func mustAct(t *testing.T, service *app.SessionService, sessionID string, action domain.Action) {
	t.Helper()
	if err := service.ApplyAction(context.Background(), sessionID, "host-1", action); err != nil {
		t.Fatalf("%s: %v", action, err)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

// openDB connects bun and applies every migration.
func openDB(t *testing.T, ctx context.Context, dsn string) *bun.DB {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID:      "quiz-1",
		OwnerID: "host-1",
		Name:    "Arithmetic",
		Questions: []domain.Question{
			{
				ID:       "q1",
				Text:     "What is 2 + 2?",
				Duration: 30,
				Points:   4,
				Answers: []domain.Answer{
					{ID: "o1", Text: "3", Correct: false},
					{ID: "o2", Text: "4", Correct: true},
					{ID: "o3", Text: "5", Correct: false},
				},
			},
		},
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(opts), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
