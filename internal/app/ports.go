package app

import (
	"context"

	"qcm-service/internal/domain"
)

// QuizLoader fetches a full quiz graph (quiz, questions, answers) from the backing store.
type QuizLoader interface {
	LoadQuiz(ctx context.Context, quizID int64) (domain.Quiz, error)
}

// QuizRepository serves quiz graphs, usually from a cache in front of a QuizLoader.
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID int64) (domain.Quiz, error)
	Invalidate(ctx context.Context, quizID int64)
}

// QuizStore persists quizzes, questions and answers.
type QuizStore interface {
	CreateQuiz(ctx context.Context, quiz *domain.Quiz) error
	UpdateQuiz(ctx context.Context, quiz *domain.Quiz) error
	DeleteQuiz(ctx context.Context, quizID int64) error
	ListQuizzes(ctx context.Context, filter domain.QuizFilter) ([]domain.Quiz, error)

	// CreateQuestion appends the question after the current last one and
	// stores its answers in order, atomically.
	CreateQuestion(ctx context.Context, question *domain.Question) error
	UpdateQuestion(ctx context.Context, question *domain.Question) error
	DeleteQuestion(ctx context.Context, quizID, questionID int64) error
	QuestionExists(ctx context.Context, questionID int64) (bool, error)
}

// ResultStore persists submissions and serves results.
type ResultStore interface {
	ResultExists(ctx context.Context, studentID, quizID int64) (bool, error)
	// WithinTx runs fn in one transactional scope. Every write made through
	// tx is committed when fn returns nil and rolled back otherwise.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx SubmissionTx) error) error

	GetResult(ctx context.Context, resultID int64) (domain.Result, error)
	ListResults(ctx context.Context, filter domain.ResultFilter) ([]domain.Result, error)
	ListResponses(ctx context.Context, studentID, quizID int64) ([]domain.StudentResponse, error)
}

// SubmissionTx is the write surface available inside ResultStore.WithinTx.
// Unique violations surface as domain.ErrDuplicateResponse and
// domain.ErrAlreadySubmitted.
type SubmissionTx interface {
	InsertResponse(ctx context.Context, response *domain.StudentResponse) error
	InsertResult(ctx context.Context, result *domain.Result) error
}

// StatisticsCache memoizes per-quiz statistics.
type StatisticsCache interface {
	Get(ctx context.Context, quizID int64) (domain.Statistics, bool)
	Set(ctx context.Context, quizID int64, stats domain.Statistics)
	Invalidate(ctx context.Context, quizID int64)
}

// SubmissionObserver is notified after a submission is committed.
type SubmissionObserver interface {
	SubmissionRecorded(ctx context.Context, result domain.Result)
}

type noopStatisticsCache struct{}

func (noopStatisticsCache) Get(context.Context, int64) (domain.Statistics, bool) {
	return domain.Statistics{}, false
}
func (noopStatisticsCache) Set(context.Context, int64, domain.Statistics) {}
func (noopStatisticsCache) Invalidate(context.Context, int64)             {}
