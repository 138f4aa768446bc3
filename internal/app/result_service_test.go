package app_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"qcm-service/internal/app"
	"qcm-service/internal/domain"
	"qcm-service/internal/infra/memory"
)

func TestResultVisibility(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.seedQuiz(t)

	result, err := f.submitSvc.SubmitQuizResponses(ctx, alice, s.quiz.ID, f.submission(pick(s.q1.ID, s.q1Right)))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if _, err := f.resultSvc.GetResult(ctx, alice, result.ID); err != nil {
		t.Fatalf("owner get result: %v", err)
	}
	if _, err := f.resultSvc.GetResult(ctx, teacher, result.ID); err != nil {
		t.Fatalf("quiz owner get result: %v", err)
	}
	if _, err := f.resultSvc.GetResult(ctx, bob, result.ID); err != domain.ErrPermissionDenied {
		t.Fatalf("expected other student to be refused, got %v", err)
	}
	if _, err := f.resultSvc.GetResult(ctx, otherTeacher, result.ID); err != domain.ErrPermissionDenied {
		t.Fatalf("expected other teacher to be refused, got %v", err)
	}
	if _, err := f.resultSvc.GetResult(ctx, alice, 4242); err != domain.ErrResultNotFound {
		t.Fatalf("expected result not found, got %v", err)
	}

	mine, _ := f.resultSvc.ListResults(ctx, alice)
	theirs, _ := f.resultSvc.ListResults(ctx, bob)
	owned, _ := f.resultSvc.ListResults(ctx, teacher)
	if len(mine) != 1 || len(theirs) != 0 || len(owned) != 1 {
		t.Fatalf("unexpected listings: %d %d %d", len(mine), len(theirs), len(owned))
	}
}

func TestResultDetail(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.seedQuiz(t)

	result, err := f.submitSvc.SubmitQuizResponses(ctx, alice, s.quiz.ID,
		f.submission(pick(s.q1.ID, s.q1Right), pick(s.q2.ID, s.q2Wrong)))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	got, details, err := f.resultSvc.ResultDetail(ctx, alice, result.ID)
	if err != nil {
		t.Fatalf("detail: %v", err)
	}
	if got.ID != result.ID || len(details) != 2 {
		t.Fatalf("unexpected detail: %+v %d", got, len(details))
	}
	if !details[0].IsCorrect || details[1].IsCorrect || details[0].PointsEarned != 3 {
		t.Fatalf("unexpected review: %+v", details)
	}
	if _, _, err := f.resultSvc.ResultDetail(ctx, bob, result.ID); err != domain.ErrPermissionDenied {
		t.Fatalf("expected other student to be refused, got %v", err)
	}
}

func TestStatisticsFollowSubmissions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.seedQuiz(t)

	if _, err := f.resultSvc.Statistics(ctx, alice, s.quiz.ID); err != domain.ErrPermissionDenied {
		t.Fatalf("expected students to be refused, got %v", err)
	}
	if _, err := f.resultSvc.Statistics(ctx, otherTeacher, s.quiz.ID); err != domain.ErrPermissionDenied {
		t.Fatalf("expected other teacher to be refused, got %v", err)
	}

	empty, err := f.resultSvc.Statistics(ctx, teacher, s.quiz.ID)
	if err != nil {
		t.Fatalf("statistics: %v", err)
	}
	if empty.TotalAttempts != 0 {
		t.Fatalf("expected no attempts, got %+v", empty)
	}

	live, cancel, err := f.resultSvc.SubscribeStatistics(ctx, teacher, s.quiz.ID)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()
	<-live // initial snapshot

	if _, err := f.submitSvc.SubmitQuizResponses(ctx, alice, s.quiz.ID,
		f.submission(pick(s.q1.ID, s.q1Right), pick(s.q2.ID, s.q2Right))); err != nil {
		t.Fatalf("submit alice: %v", err)
	}
	if update := <-live; update.TotalAttempts != 1 || update.BestScore != 20 {
		t.Fatalf("unexpected live update: %+v", update)
	}

	if _, err := f.submitSvc.SubmitQuizResponses(ctx, bob, s.quiz.ID,
		f.submission(pick(s.q1.ID, s.q1Wrong), pick(s.q2.ID, s.q2Wrong))); err != nil {
		t.Fatalf("submit bob: %v", err)
	}
	stats, err := f.resultSvc.Statistics(ctx, teacher, s.quiz.ID)
	if err != nil {
		t.Fatalf("statistics: %v", err)
	}
	if stats.TotalAttempts != 2 || stats.AverageScore != 10 || stats.PassRate != 50 {
		t.Fatalf("expected cached statistics to be refreshed, got %+v", stats)
	}
	if stats.Distribution.Excellent != 1 || stats.Distribution.Insufficient != 1 {
		t.Fatalf("unexpected distribution: %+v", stats.Distribution)
	}
}

func TestStatisticsComputedBeforeSubmissionAreNotCached(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.seedQuiz(t)

	stalled := &stalledResults{ResultStore: f.store, entered: make(chan struct{}, 1), release: make(chan struct{})}
	results := app.NewResultService(f.quizzes, stalled, memory.NewStatisticsCache(time.Minute), nil, nil)
	submit := app.NewSubmissionService(f.quizzes, f.store, f.store, nil, results).
		WithClock(func() time.Time { return f.now })

	before := make(chan domain.Statistics, 1)
	go func() {
		stats, _ := results.Statistics(ctx, teacher, s.quiz.ID)
		before <- stats
	}()
	<-stalled.entered
	if _, err := submit.SubmitQuizResponses(ctx, alice, s.quiz.ID,
		f.submission(pick(s.q1.ID, s.q1Right), pick(s.q2.ID, s.q2Right))); err != nil {
		t.Fatalf("submit: %v", err)
	}
	close(stalled.release)
	if stats := <-before; stats.TotalAttempts != 0 {
		t.Fatalf("expected the in-flight read to see no attempts, got %+v", stats)
	}

	after, err := results.Statistics(ctx, teacher, s.quiz.ID)
	if err != nil {
		t.Fatalf("statistics: %v", err)
	}
	if after.TotalAttempts != 1 || after.BestScore != 20 {
		t.Fatalf("expected statistics with the new attempt, got %+v", after)
	}
}

// stalledResults holds its first ListResults call after reading, until released.
type stalledResults struct {
	app.ResultStore
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (r *stalledResults) ListResults(ctx context.Context, filter domain.ResultFilter) ([]domain.Result, error) {
	out, err := r.ResultStore.ListResults(ctx, filter)
	r.once.Do(func() {
		r.entered <- struct{}{}
		<-r.release
	})
	return out, err
}

func TestExportResults(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.seedQuiz(t)

	if _, err := f.submitSvc.SubmitQuizResponses(ctx, alice, s.quiz.ID,
		f.submission(pick(s.q1.ID, s.q1Right), pick(s.q2.ID, s.q2Wrong))); err != nil {
		t.Fatalf("submit: %v", err)
	}

	rows, err := f.resultSvc.ExportResults(ctx, teacher, s.quiz.ID)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header and one row, got %d", len(rows))
	}
	if rows[0][0] != "Student ID" || len(rows[0]) != 8 {
		t.Fatalf("unexpected header: %v", rows[0])
	}
	want := []string{"21", "12.00", "60%", "1", "2", "00:01:30", "23/09/2025 10:00", "Passed"}
	for i := range want {
		if rows[1][i] != want[i] {
			t.Fatalf("column %d: got %q, want %q", i, rows[1][i], want[i])
		}
	}

	if _, err := f.resultSvc.ExportResults(ctx, otherTeacher, s.quiz.ID); err != domain.ErrPermissionDenied {
		t.Fatalf("expected other teacher to be refused, got %v", err)
	}
}
