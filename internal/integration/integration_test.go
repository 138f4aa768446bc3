package integration

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun/migrate"
	"qcm-service/internal/app"
	"qcm-service/internal/domain"
	pgloader "qcm-service/internal/infra/postgres"
	infraredis "qcm-service/internal/infra/redis"
	"qcm-service/internal/infra/sqlstore"
	"qcm-service/internal/infra/sqlstore/migrations"
)

var (
	teacher = domain.Actor{ID: 1, Role: domain.RoleTeacher}
	alice   = domain.Actor{ID: 21, Role: domain.RoleStudent}
)

func TestSubmitQuizEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	db, err := sqlstore.Open(sqlstore.DriverPostgres, pgURL)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()
	migrator := migrate.NewMigrator(db, migrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	store := sqlstore.NewStore(db)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	log := logrus.New()
	log.SetOutput(io.Discard)

	quizRepo := infraredis.NewQuizRepository(redisClient, pgloader.NewQuizLoader(pool), 5*time.Minute)
	stats := infraredis.NewStatisticsCache(redisClient, time.Minute)
	results := app.NewResultService(quizRepo, store, stats, app.NewStatisticsFeed(), log)
	quizzes := app.NewQuizService(store, quizRepo, stats)
	submissions := app.NewSubmissionService(quizRepo, store, store, log, results)

	quiz, right, wrong := seedQuiz(t, ctx, quizzes)

	result, err := submissions.SubmitQuizResponses(ctx, alice, quiz.ID, domain.Submission{
		StartedAt: time.Now().Add(-2 * time.Minute),
		Items: []domain.SubmissionItem{
			{QuestionID: quiz.Questions[0].ID, AnswerID: &right},
			{QuestionID: quiz.Questions[1].ID, AnswerID: &wrong},
		},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Percentage != 12 || result.CorrectAnswers != 1 || result.TotalQuestions != 2 {
		t.Fatalf("unexpected result %+v", result)
	}

	_, err = submissions.SubmitQuizResponses(ctx, alice, quiz.ID, domain.Submission{
		StartedAt: time.Now(),
		Items:     []domain.SubmissionItem{{QuestionID: quiz.Questions[0].ID, AnswerID: &right}},
	})
	if !errors.Is(err, domain.ErrAlreadySubmitted) {
		t.Fatalf("expected already submitted, got %v", err)
	}

	summary, err := results.Statistics(ctx, teacher, quiz.ID)
	if err != nil {
		t.Fatalf("statistics: %v", err)
	}
	if summary.TotalAttempts != 1 || summary.AverageScore != 12 {
		t.Fatalf("unexpected statistics %+v", summary)
	}

	if err := quizzes.DeleteQuiz(ctx, teacher, quiz.ID); err != nil {
		t.Fatalf("delete quiz: %v", err)
	}
	if _, err := results.GetResult(ctx, alice, result.ID); !errors.Is(err, domain.ErrResultNotFound) {
		t.Fatalf("expected cascade to remove result, got %v", err)
	}
}

// seedQuiz publishes a quiz with a 3 point and a 2 point question and returns
// the right answer of the first and a wrong answer of the second.
func seedQuiz(t *testing.T, ctx context.Context, quizzes *app.QuizService) (domain.Quiz, int64, int64) {
	t.Helper()
	quiz, err := quizzes.CreateQuiz(ctx, teacher, app.QuizInput{Title: "Capitals", DurationMinutes: 10})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	q1, err := quizzes.AddQuestion(ctx, teacher, quiz.ID, app.QuestionInput{
		Text:    "Capital of France?",
		Type:    domain.QuestionSingleChoice,
		Points:  3,
		Answers: []app.AnswerInput{{Text: "Paris", Correct: true}, {Text: "Lyon"}},
	})
	if err != nil {
		t.Fatalf("add question: %v", err)
	}
	q2, err := quizzes.AddQuestion(ctx, teacher, quiz.ID, app.QuestionInput{
		Text:    "Capital of Italy?",
		Type:    domain.QuestionSingleChoice,
		Points:  2,
		Answers: []app.AnswerInput{{Text: "Rome", Correct: true}, {Text: "Milan"}},
	})
	if err != nil {
		t.Fatalf("add question: %v", err)
	}
	published := true
	if _, err := quizzes.UpdateQuiz(ctx, teacher, quiz.ID, app.QuizPatch{Published: &published}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	quiz, err = quizzes.GetQuiz(ctx, alice, quiz.ID)
	if err != nil {
		t.Fatalf("reload quiz: %v", err)
	}
	if len(quiz.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(quiz.Questions))
	}
	return quiz, q1.Answers[0].ID, q2.Answers[1].ID
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "qcm", "POSTGRES_PASSWORD": "qcmpass", "POSTGRES_DB": "qcmdb"},
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
	dsn := fmt.Sprintf("postgres://qcm:qcmpass@%s:%s/qcmdb?sslmode=disable", host, port.Port())
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
