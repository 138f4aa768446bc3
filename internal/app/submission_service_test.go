package app_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"qcm-service/internal/app"
	"qcm-service/internal/domain"
)

func TestSubmitScoresWeightedPoints(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.seedQuiz(t)

	result, err := f.submitSvc.SubmitQuizResponses(ctx, alice, s.quiz.ID,
		f.submission(pick(s.q1.ID, s.q1Right), pick(s.q2.ID, s.q2Wrong)))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.ID == 0 {
		t.Fatalf("expected result id to be assigned")
	}
	if result.CorrectAnswers != 1 || result.PointsEarned != 3 || result.TotalPoints != 5 || result.TotalQuestions != 2 {
		t.Fatalf("unexpected counts: %+v", result)
	}
	if result.Percentage != 12 {
		t.Fatalf("expected 12/20, got %v", result.Percentage)
	}
	if !result.IsPassed() || result.Grade() != domain.GradeGood {
		t.Fatalf("expected passed good result, got %v / %s", result.IsPassed(), result.Grade())
	}
	if result.ElapsedSeconds != 90 || result.TimeSpentFormatted() != "00:01:30" {
		t.Fatalf("unexpected elapsed time: %d", result.ElapsedSeconds)
	}
	if !strings.HasPrefix(result.Feedback, "1 correct answer(s) out of 2 questions.") {
		t.Fatalf("unexpected feedback: %q", result.Feedback)
	}

	responses, err := f.submitSvc.StudentResponses(ctx, alice, s.quiz.ID)
	if err != nil {
		t.Fatalf("student responses: %v", err)
	}
	if len(responses) != 2 {
		t.Fatalf("expected 2 stored responses, got %d", len(responses))
	}
}

func TestSubmitOnlyOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.seedQuiz(t)
	sub := f.submission(pick(s.q1.ID, s.q1Right), pick(s.q2.ID, s.q2Right))

	if _, err := f.submitSvc.SubmitQuizResponses(ctx, alice, s.quiz.ID, sub); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	_, err := f.submitSvc.SubmitQuizResponses(ctx, alice, s.quiz.ID, sub)
	if !errors.Is(err, domain.ErrAlreadySubmitted) {
		t.Fatalf("expected already submitted, got %v", err)
	}
	if domain.KindOf(err) != domain.KindConflict {
		t.Fatalf("expected conflict kind, got %s", domain.KindOf(err))
	}
	results, _ := f.store.ListResults(ctx, domain.ResultFilter{QuizID: s.quiz.ID})
	if len(results) != 1 {
		t.Fatalf("expected exactly one result, got %d", len(results))
	}
}

func TestSubmitLosingConcurrentAttemptIsAlreadySubmitted(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.seedQuiz(t)

	if _, err := f.submitSvc.SubmitQuizResponses(ctx, alice, s.quiz.ID,
		f.submission(pick(s.q1.ID, s.q1Right), pick(s.q2.ID, s.q2Wrong))); err != nil {
		t.Fatalf("first submit: %v", err)
	}

	// The pre-check saw no result, as a concurrent attempt would.
	late := app.NewSubmissionService(f.quizzes, f.store, unseenResults{f.store}, nil).
		WithClock(func() time.Time { return f.now })
	_, err := late.SubmitQuizResponses(ctx, alice, s.quiz.ID,
		f.submission(pick(s.q1.ID, s.q1Wrong), pick(s.q2.ID, s.q2Right)))
	if !errors.Is(err, domain.ErrAlreadySubmitted) {
		t.Fatalf("expected already submitted, got %v", err)
	}
	if domain.KindOf(err) != domain.KindConflict {
		t.Fatalf("expected conflict kind, got %s", domain.KindOf(err))
	}
	responses, _ := f.store.ListResponses(ctx, alice.ID, s.quiz.ID)
	if len(responses) != 2 || *responses[0].AnswerID != s.q1Right {
		t.Fatalf("expected the first attempt's responses untouched, got %+v", responses)
	}
}

func TestSubmitRejectsInvalidReferences(t *testing.T) {
	f := newFixture(t)
	s := f.seedQuiz(t)

	cases := map[string]domain.Submission{
		"answer of another question": f.submission(pick(s.q1.ID, s.q2Right)),
		"unknown answer":             f.submission(pick(s.q1.ID, 99999)),
		"unknown question":           f.submission(pick(99999, s.q1Right)),
	}
	for name, sub := range cases {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, err := f.submitSvc.SubmitQuizResponses(ctx, alice, s.quiz.ID, sub)
			if !errors.Is(err, domain.ErrInvalidReference) {
				t.Fatalf("expected invalid reference, got %v", err)
			}
			if exists, _ := f.store.ResultExists(ctx, alice.ID, s.quiz.ID); exists {
				t.Fatalf("expected nothing to be recorded")
			}
		})
	}
}

func TestSubmitSkipsQuestionsOfAnotherQuiz(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.seedQuiz(t)
	other := f.seedQuiz(t)

	result, err := f.submitSvc.SubmitQuizResponses(ctx, alice, s.quiz.ID,
		f.submission(pick(s.q1.ID, s.q1Right), pick(other.q2.ID, other.q2Right)))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.TotalPoints != 3 || result.PointsEarned != 3 || result.Percentage != 20 {
		t.Fatalf("expected foreign question to be ignored for points, got %+v", result)
	}
	if result.TotalQuestions != 2 {
		t.Fatalf("expected every submitted item to be counted, got %d", result.TotalQuestions)
	}
	responses, _ := f.store.ListResponses(ctx, alice.ID, s.quiz.ID)
	if len(responses) != 1 {
		t.Fatalf("expected only the in-quiz response to be stored, got %d", len(responses))
	}
}

func TestSubmitRejectsDuplicateQuestion(t *testing.T) {
	f := newFixture(t)
	s := f.seedQuiz(t)

	_, err := f.submitSvc.SubmitQuizResponses(context.Background(), alice, s.quiz.ID,
		f.submission(pick(s.q1.ID, s.q1Right), pick(s.q1.ID, s.q1Wrong)))
	if !errors.Is(err, domain.ErrDuplicateResponse) {
		t.Fatalf("expected duplicate response, got %v", err)
	}
}

func TestSubmitFreeTextIsNeverCorrect(t *testing.T) {
	f := newFixture(t)
	s := f.seedQuiz(t)
	text := "Paris"

	result, err := f.submitSvc.SubmitQuizResponses(context.Background(), alice, s.quiz.ID,
		f.submission(domain.SubmissionItem{QuestionID: s.q1.ID, ResponseText: &text}))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.CorrectAnswers != 0 || result.Percentage != 0 || result.TotalPoints != 3 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestSubmitGuards(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.seedQuiz(t)
	sub := f.submission(pick(s.q1.ID, s.q1Right))

	if _, err := f.submitSvc.SubmitQuizResponses(ctx, teacher, s.quiz.ID, sub); err != domain.ErrPermissionDenied {
		t.Fatalf("expected permission denied for teacher, got %v", err)
	}
	if _, err := f.submitSvc.SubmitQuizResponses(ctx, alice, 4242, sub); err != domain.ErrQuizNotFound {
		t.Fatalf("expected quiz not found, got %v", err)
	}
	if _, err := f.submitSvc.SubmitQuizResponses(ctx, alice, s.quiz.ID, domain.Submission{StartedAt: f.now}); domain.KindOf(err) != domain.KindValidation {
		t.Fatalf("expected validation error for empty submission, got %v", err)
	}

	closeAt := f.now.Add(-time.Minute)
	if _, err := f.quizSvc.UpdateQuiz(ctx, teacher, s.quiz.ID, app.QuizPatch{CloseAt: &closeAt}); err != nil {
		t.Fatalf("close quiz: %v", err)
	}
	if _, err := f.submitSvc.SubmitQuizResponses(ctx, alice, s.quiz.ID, sub); err != domain.ErrQuizUnavailable {
		t.Fatalf("expected unavailable, got %v", err)
	}
}

func TestSubmitRollsBackOnWriteFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.seedQuiz(t)
	observer := &recordingObserver{}
	failing := &failingResults{ResultStore: f.store, err: errors.New("disk full")}
	svc := app.NewSubmissionService(f.quizzes, f.store, failing, nil, observer).WithClock(func() time.Time { return f.now })

	_, err := svc.SubmitQuizResponses(ctx, alice, s.quiz.ID,
		f.submission(pick(s.q1.ID, s.q1Right), pick(s.q2.ID, s.q2Right)))
	if !errors.Is(err, domain.ErrTransactionFailed) {
		t.Fatalf("expected transaction failure, got %v", err)
	}
	if domain.KindOf(err) != domain.KindTransaction {
		t.Fatalf("expected transaction kind, got %s", domain.KindOf(err))
	}
	responses, _ := f.store.ListResponses(ctx, alice.ID, s.quiz.ID)
	if len(responses) != 0 {
		t.Fatalf("expected no stored responses, got %d", len(responses))
	}
	if exists, _ := f.store.ResultExists(ctx, alice.ID, s.quiz.ID); exists {
		t.Fatalf("expected no stored result")
	}
	if len(observer.results) != 0 {
		t.Fatalf("observers must not hear about rolled back submissions")
	}
}

func TestSubmitNotifiesObservers(t *testing.T) {
	observer := &recordingObserver{}
	f := newFixture(t, observer)
	s := f.seedQuiz(t)

	result, err := f.submitSvc.SubmitQuizResponses(context.Background(), alice, s.quiz.ID,
		f.submission(pick(s.q1.ID, s.q1Right)))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(observer.results) != 1 || observer.results[0].ID != result.ID {
		t.Fatalf("expected observer to see result %d, got %+v", result.ID, observer.results)
	}
}

func TestStudentResponsesRequiresSubmission(t *testing.T) {
	f := newFixture(t)
	s := f.seedQuiz(t)
	if _, err := f.submitSvc.StudentResponses(context.Background(), alice, s.quiz.ID); err != domain.ErrResponsesNotFound {
		t.Fatalf("expected responses not found, got %v", err)
	}
}

type recordingObserver struct {
	results []domain.Result
}

func (o *recordingObserver) SubmissionRecorded(_ context.Context, result domain.Result) {
	o.results = append(o.results, result)
}

// failingResults lets the result and the first response through, then fails.
type failingResults struct {
	app.ResultStore
	err error
}

func (r *failingResults) WithinTx(ctx context.Context, fn func(ctx context.Context, tx app.SubmissionTx) error) error {
	return r.ResultStore.WithinTx(ctx, func(ctx context.Context, tx app.SubmissionTx) error {
		return fn(ctx, &failingTx{SubmissionTx: tx, err: r.err})
	})
}

type failingTx struct {
	app.SubmissionTx
	err       error
	responses int
}

func (tx *failingTx) InsertResponse(ctx context.Context, response *domain.StudentResponse) error {
	tx.responses++
	if tx.responses > 1 {
		return tx.err
	}
	return tx.SubmissionTx.InsertResponse(ctx, response)
}

// unseenResults hides stored results from the pre-write check.
type unseenResults struct {
	app.ResultStore
}

func (unseenResults) ResultExists(context.Context, int64, int64) (bool, error) {
	return false, nil
}
