package app_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"qcm-service/internal/app"
	"qcm-service/internal/domain"
	"qcm-service/internal/infra/memory"
)

var (
	teacher      = domain.Actor{ID: 1, Role: domain.RoleTeacher}
	otherTeacher = domain.Actor{ID: 2, Role: domain.RoleTeacher}
	alice        = domain.Actor{ID: 21, Role: domain.RoleStudent}
	bob          = domain.Actor{ID: 22, Role: domain.RoleStudent}
)

type fixture struct {
	now     time.Time
	store   *memory.Store
	quizzes *memory.QuizRepository
	feed    *app.StatisticsFeed

	quizSvc   *app.QuizService
	submitSvc *app.SubmissionService
	resultSvc *app.ResultService
}

func newFixture(t *testing.T, observers ...app.SubmissionObserver) *fixture {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	f := &fixture{
		now:   time.Date(2025, 9, 23, 10, 0, 0, 0, time.UTC),
		store: memory.NewStore(),
		feed:  app.NewStatisticsFeed(),
	}
	clock := func() time.Time { return f.now }
	stats := memory.NewStatisticsCache(time.Minute)
	f.quizzes = memory.NewQuizRepository(f.store, time.Minute)
	f.quizSvc = app.NewQuizService(f.store, f.quizzes, stats).WithClock(clock)
	f.resultSvc = app.NewResultService(f.quizzes, f.store, stats, f.feed, log)
	observers = append([]app.SubmissionObserver{f.resultSvc}, observers...)
	f.submitSvc = app.NewSubmissionService(f.quizzes, f.store, f.store, log, observers...).WithClock(clock)
	return f
}

// seededQuiz is a published quiz with a 3 point and a 2 point question.
type seededQuiz struct {
	quiz             domain.Quiz
	q1, q2           domain.Question
	q1Right, q1Wrong int64
	q2Right, q2Wrong int64
}

func (f *fixture) seedQuiz(t *testing.T) seededQuiz {
	t.Helper()
	ctx := context.Background()

	quiz, err := f.quizSvc.CreateQuiz(ctx, teacher, app.QuizInput{Title: "Capitals", DurationMinutes: 15})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	q1, err := f.quizSvc.AddQuestion(ctx, teacher, quiz.ID, app.QuestionInput{
		Text:   "Capital of France?",
		Type:   domain.QuestionSingleChoice,
		Points: 3,
		Answers: []app.AnswerInput{
			{Text: "Paris", Correct: true},
			{Text: "Lyon"},
		},
	})
	if err != nil {
		t.Fatalf("add question 1: %v", err)
	}
	q2, err := f.quizSvc.AddQuestion(ctx, teacher, quiz.ID, app.QuestionInput{
		Text:   "Capital of Italy?",
		Type:   domain.QuestionSingleChoice,
		Points: 2,
		Answers: []app.AnswerInput{
			{Text: "Rome", Correct: true},
			{Text: "Milan"},
		},
	})
	if err != nil {
		t.Fatalf("add question 2: %v", err)
	}
	published := true
	quiz, err = f.quizSvc.UpdateQuiz(ctx, teacher, quiz.ID, app.QuizPatch{Published: &published})
	if err != nil {
		t.Fatalf("publish quiz: %v", err)
	}
	return seededQuiz{
		quiz:    quiz,
		q1:      q1,
		q2:      q2,
		q1Right: q1.Answers[0].ID,
		q1Wrong: q1.Answers[1].ID,
		q2Right: q2.Answers[0].ID,
		q2Wrong: q2.Answers[1].ID,
	}
}

// submission answers the questions with the given answer ids, started 90s ago.
func (f *fixture) submission(items ...domain.SubmissionItem) domain.Submission {
	return domain.Submission{StartedAt: f.now.Add(-90 * time.Second), Items: items}
}

func pick(questionID, answerID int64) domain.SubmissionItem {
	return domain.SubmissionItem{QuestionID: questionID, AnswerID: &answerID}
}
