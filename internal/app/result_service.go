package app

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"qcm-service/internal/domain"
)

// ResultService serves results, reviews, statistics and exports.
type ResultService struct {
	quizzes QuizRepository
	results ResultStore
	cache   StatisticsCache
	feed    *StatisticsFeed
	log     logrus.FieldLogger

	// statsGen counts invalidations per quiz so a computation that started
	// before one is not cached.
	genMu    sync.Mutex
	statsGen map[int64]uint64
}

func NewResultService(quizzes QuizRepository, results ResultStore, cache StatisticsCache, feed *StatisticsFeed, log logrus.FieldLogger) *ResultService {
	if cache == nil {
		cache = noopStatisticsCache{}
	}
	if feed == nil {
		feed = NewStatisticsFeed()
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ResultService{
		quizzes:  quizzes,
		results:  results,
		cache:    cache,
		feed:     feed,
		log:      log,
		statsGen: make(map[int64]uint64),
	}
}

// ListResults lists a student's own results, or the results of a teacher's quizzes.
func (s *ResultService) ListResults(ctx context.Context, actor domain.Actor) ([]domain.Result, error) {
	switch {
	case actor.IsStudent():
		return s.results.ListResults(ctx, domain.ResultFilter{StudentID: actor.ID})
	case actor.IsTeacher():
		return s.results.ListResults(ctx, domain.ResultFilter{TeacherID: actor.ID})
	}
	return nil, domain.ErrPermissionDenied
}

// GetResult returns one result visible to the actor.
func (s *ResultService) GetResult(ctx context.Context, actor domain.Actor, resultID int64) (domain.Result, error) {
	result, err := s.results.GetResult(ctx, resultID)
	if err != nil {
		return domain.Result{}, err
	}
	if err := s.authorizeResult(ctx, actor, result); err != nil {
		return domain.Result{}, err
	}
	return result, nil
}

// ResultDetail returns the result with its per-question review.
func (s *ResultService) ResultDetail(ctx context.Context, actor domain.Actor, resultID int64) (domain.Result, []domain.DetailedResponse, error) {
	result, err := s.results.GetResult(ctx, resultID)
	if err != nil {
		return domain.Result{}, nil, err
	}
	quiz, err := s.quizzes.GetQuiz(ctx, result.QuizID)
	if err != nil {
		return domain.Result{}, nil, err
	}
	if err := authorizeResultOn(actor, result, quiz); err != nil {
		return domain.Result{}, nil, err
	}
	responses, err := s.results.ListResponses(ctx, result.StudentID, result.QuizID)
	if err != nil {
		return domain.Result{}, nil, err
	}
	return result, ComposeResultDetail(result, quiz, responses), nil
}

// Statistics aggregates every result of a quiz owned by the acting teacher.
func (s *ResultService) Statistics(ctx context.Context, actor domain.Actor, quizID int64) (domain.Statistics, error) {
	if err := s.authorizeQuizOwner(ctx, actor, quizID); err != nil {
		return domain.Statistics{}, err
	}
	return s.statistics(ctx, quizID)
}

// SubscribeStatistics streams fresh statistics after every accepted submission.
// The caller must invoke the returned cancel function.
func (s *ResultService) SubscribeStatistics(ctx context.Context, actor domain.Actor, quizID int64) (<-chan domain.Statistics, func(), error) {
	if err := s.authorizeQuizOwner(ctx, actor, quizID); err != nil {
		return nil, nil, err
	}
	initial, err := s.statistics(ctx, quizID)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := s.feed.Subscribe(quizID, initial)
	return ch, cancel, nil
}

// ExportResults renders the results of a quiz as CSV rows, header first.
func (s *ResultService) ExportResults(ctx context.Context, actor domain.Actor, quizID int64) ([][]string, error) {
	if err := s.authorizeQuizOwner(ctx, actor, quizID); err != nil {
		return nil, err
	}
	results, err := s.results.ListResults(ctx, domain.ResultFilter{QuizID: quizID})
	if err != nil {
		return nil, err
	}
	rows := make([][]string, 0, len(results)+1)
	rows = append(rows, []string{
		"Student ID",
		"Score (/20)",
		"Percentage",
		"Correct answers",
		"Total questions",
		"Time spent",
		"Completed at",
		"Status",
	})
	for _, r := range results {
		status := "Failed"
		if r.IsPassed() {
			status = "Passed"
		}
		rows = append(rows, []string{
			strconv.FormatInt(r.StudentID, 10),
			decimal.NewFromFloat(r.Percentage).StringFixed(2),
			outOfHundred(r.Percentage) + "%",
			strconv.Itoa(r.CorrectAnswers),
			strconv.Itoa(r.TotalQuestions),
			r.TimeSpentFormatted(),
			r.CompletedAt.Format("02/01/2006 15:04"),
			status,
		})
	}
	return rows, nil
}

// SubmissionRecorded drops the cached statistics of the quiz and pushes a
// fresh snapshot to live subscribers.
func (s *ResultService) SubmissionRecorded(ctx context.Context, result domain.Result) {
	s.genMu.Lock()
	s.statsGen[result.QuizID]++
	s.genMu.Unlock()
	s.cache.Invalidate(ctx, result.QuizID)
	if !s.feed.HasSubscribers(result.QuizID) {
		return
	}
	stats, err := s.statistics(ctx, result.QuizID)
	if err != nil {
		s.log.WithError(err).WithField("quiz_id", result.QuizID).Warn("refresh live statistics")
		return
	}
	s.feed.Publish(result.QuizID, stats)
}

func (s *ResultService) statistics(ctx context.Context, quizID int64) (domain.Statistics, error) {
	if stats, ok := s.cache.Get(ctx, quizID); ok {
		return stats, nil
	}
	gen := s.generation(quizID)
	results, err := s.results.ListResults(ctx, domain.ResultFilter{QuizID: quizID})
	if err != nil {
		return domain.Statistics{}, fmt.Errorf("list results: %w", err)
	}
	stats := ComputeStatistics(results)
	if s.generation(quizID) == gen {
		s.cache.Set(ctx, quizID, stats)
	}
	return stats, nil
}

func (s *ResultService) generation(quizID int64) uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.statsGen[quizID]
}

func (s *ResultService) authorizeQuizOwner(ctx context.Context, actor domain.Actor, quizID int64) error {
	if !actor.IsTeacher() {
		return domain.ErrPermissionDenied
	}
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return err
	}
	if !actor.Owns(quiz) {
		return domain.ErrPermissionDenied
	}
	return nil
}

func (s *ResultService) authorizeResult(ctx context.Context, actor domain.Actor, result domain.Result) error {
	if actor.IsStudent() {
		return authorizeResultOn(actor, result, domain.Quiz{})
	}
	quiz, err := s.quizzes.GetQuiz(ctx, result.QuizID)
	if err != nil {
		return err
	}
	return authorizeResultOn(actor, result, quiz)
}

func authorizeResultOn(actor domain.Actor, result domain.Result, quiz domain.Quiz) error {
	switch {
	case actor.IsStudent():
		if result.StudentID != actor.ID {
			return domain.ErrPermissionDenied
		}
		return nil
	case actor.IsTeacher():
		if !actor.Owns(quiz) {
			return domain.ErrPermissionDenied
		}
		return nil
	}
	return domain.ErrPermissionDenied
}

func outOfHundred(percentage float64) string {
	return decimal.NewFromFloat(percentage).Div(decimal.NewFromInt(domain.ScoreScale)).
		Mul(decimal.NewFromInt(100)).Round(2).String()
}
