package memory

import (
	"context"
	"testing"
	"time"

	"qcm-service/internal/domain"
)

func TestQuizRepositoryCaches(t *testing.T) {
	loader := &countingLoader{quiz: sampleQuiz()}
	repo := NewQuizRepository(loader, time.Minute)

	if _, err := repo.GetQuiz(context.Background(), 1); err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := repo.GetQuiz(context.Background(), 1); err != nil {
		t.Fatalf("get quiz 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestQuizRepositoryInvalidateReloads(t *testing.T) {
	loader := &countingLoader{quiz: sampleQuiz()}
	repo := NewQuizRepository(loader, time.Minute)
	ctx := context.Background()

	_, _ = repo.GetQuiz(ctx, 1)
	repo.Invalidate(ctx, 1)
	_, _ = repo.GetQuiz(ctx, 1)
	if loader.calls != 2 {
		t.Fatalf("expected reload after invalidate, loader calls %d", loader.calls)
	}
}

func TestQuizRepositoryExpires(t *testing.T) {
	loader := &countingLoader{quiz: sampleQuiz()}
	repo := NewQuizRepository(loader, time.Minute)
	now := time.Date(2025, 9, 23, 9, 0, 0, 0, time.UTC)
	repo.clock = func() time.Time { return now }
	ctx := context.Background()

	_, _ = repo.GetQuiz(ctx, 1)
	now = now.Add(2 * time.Minute)
	_, _ = repo.GetQuiz(ctx, 1)
	if loader.calls != 2 {
		t.Fatalf("expected reload after ttl, loader calls %d", loader.calls)
	}
}

func TestQuizRepositoryPropagatesNotFound(t *testing.T) {
	repo := NewQuizRepository(NewStore(), time.Minute)
	if _, err := repo.GetQuiz(context.Background(), 42); err != domain.ErrQuizNotFound {
		t.Fatalf("expected quiz not found, got %v", err)
	}
}

func TestQuizRepositoryDropsLoadRacingInvalidate(t *testing.T) {
	loader := newGatedLoader(sampleQuiz())
	repo := NewQuizRepository(loader, time.Minute)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := repo.GetQuiz(ctx, 1)
		done <- err
	}()
	<-loader.entered
	repo.Invalidate(ctx, 1)
	close(loader.release)
	if err := <-done; err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	repo.mu.RLock()
	_, cached := repo.cache[1]
	repo.mu.RUnlock()
	if cached {
		t.Fatalf("graph loaded before the invalidation was cached")
	}
}

// gatedLoader blocks inside LoadQuiz until released.
type gatedLoader struct {
	quiz    domain.Quiz
	entered chan struct{}
	release chan struct{}
}

func newGatedLoader(quiz domain.Quiz) *gatedLoader {
	return &gatedLoader{quiz: quiz, entered: make(chan struct{}, 1), release: make(chan struct{})}
}

func (l *gatedLoader) LoadQuiz(_ context.Context, _ int64) (domain.Quiz, error) {
	l.entered <- struct{}{}
	<-l.release
	return l.quiz, nil
}

type countingLoader struct {
	quiz  domain.Quiz
	calls int
}

func (l *countingLoader) LoadQuiz(_ context.Context, quizID int64) (domain.Quiz, error) {
	l.calls++
	if quizID != l.quiz.ID {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return l.quiz, nil
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID:        1,
		TeacherID: 7,
		Title:     "Arithmetic",
		Published: true,
		Questions: []domain.Question{
			{
				ID:     10,
				QuizID: 1,
				Text:   "What is 2 + 2?",
				Type:   domain.QuestionSingleChoice,
				Points: 1,
				Order:  1,
				Answers: []domain.Answer{
					{ID: 100, QuestionID: 10, Text: "3", Order: 1},
					{ID: 101, QuestionID: 10, Text: "4", Correct: true, Order: 2},
				},
			},
		},
	}
}
