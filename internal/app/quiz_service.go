package app

import (
	"context"
	"strings"
	"time"

	"qcm-service/internal/domain"
)

// QuizInput carries the fields of a new quiz.
type QuizInput struct {
	Title           string
	Description     string
	DurationMinutes int
	OpenFrom        *time.Time
	CloseAt         *time.Time
}

// QuizPatch carries a partial quiz update. Nil fields are left untouched.
type QuizPatch struct {
	Title           *string
	Description     *string
	DurationMinutes *int
	Published       *bool
	OpenFrom        *time.Time
	CloseAt         *time.Time
}

// AnswerInput is one option of a new question.
type AnswerInput struct {
	Text    string
	Correct bool
}

// QuestionInput carries the fields of a new question and its answers.
type QuestionInput struct {
	Text        string
	Type        domain.QuestionType
	Points      int
	Explanation string
	Answers     []AnswerInput
}

// QuestionPatch carries a partial question update.
type QuestionPatch struct {
	Text        *string
	Type        *domain.QuestionType
	Points      *int
	Explanation *string
}

const maxTitleLength = 255

// QuizService contains quiz and question authoring use cases.
type QuizService struct {
	store   QuizStore
	quizzes QuizRepository
	stats   StatisticsCache
	clock   func() time.Time
}

func NewQuizService(store QuizStore, quizzes QuizRepository, stats StatisticsCache) *QuizService {
	if stats == nil {
		stats = noopStatisticsCache{}
	}
	return &QuizService{store: store, quizzes: quizzes, stats: stats, clock: time.Now}
}

// WithClock overrides the time source; tests use it for deterministic windows.
func (s *QuizService) WithClock(now func() time.Time) *QuizService {
	s.clock = now
	return s
}

// CreateQuiz stores a new, unpublished quiz owned by the acting teacher.
func (s *QuizService) CreateQuiz(ctx context.Context, actor domain.Actor, in QuizInput) (domain.Quiz, error) {
	if !actor.IsTeacher() {
		return domain.Quiz{}, domain.ErrPermissionDenied
	}
	quiz := domain.Quiz{
		TeacherID:       actor.ID,
		Title:           strings.TrimSpace(in.Title),
		Description:     in.Description,
		DurationMinutes: in.DurationMinutes,
		OpenFrom:        in.OpenFrom,
		CloseAt:         in.CloseAt,
	}
	if err := validateQuiz(quiz); err != nil {
		return domain.Quiz{}, err
	}
	now := s.clock()
	quiz.CreatedAt, quiz.UpdatedAt = now, now
	if err := s.store.CreateQuiz(ctx, &quiz); err != nil {
		return domain.Quiz{}, err
	}
	return quiz, nil
}

// UpdateQuiz applies a partial update, including the publish toggle.
func (s *QuizService) UpdateQuiz(ctx context.Context, actor domain.Actor, quizID int64, patch QuizPatch) (domain.Quiz, error) {
	quiz, err := s.ownedQuiz(ctx, actor, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if patch.Title != nil {
		quiz.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		quiz.Description = *patch.Description
	}
	if patch.DurationMinutes != nil {
		quiz.DurationMinutes = *patch.DurationMinutes
	}
	if patch.Published != nil {
		quiz.Published = *patch.Published
	}
	if patch.OpenFrom != nil {
		quiz.OpenFrom = patch.OpenFrom
	}
	if patch.CloseAt != nil {
		quiz.CloseAt = patch.CloseAt
	}
	if err := validateQuiz(quiz); err != nil {
		return domain.Quiz{}, err
	}
	quiz.UpdatedAt = s.clock()
	quiz.Questions = nil
	if err := s.store.UpdateQuiz(ctx, &quiz); err != nil {
		return domain.Quiz{}, err
	}
	s.quizzes.Invalidate(ctx, quizID)
	return quiz, nil
}

// DeleteQuiz removes the quiz and, by cascade, everything recorded against it.
func (s *QuizService) DeleteQuiz(ctx context.Context, actor domain.Actor, quizID int64) error {
	if _, err := s.ownedQuiz(ctx, actor, quizID); err != nil {
		return err
	}
	if err := s.store.DeleteQuiz(ctx, quizID); err != nil {
		return err
	}
	s.quizzes.Invalidate(ctx, quizID)
	s.stats.Invalidate(ctx, quizID)
	return nil
}

// GetQuiz returns the full quiz graph. Teachers only see their own quizzes,
// students only available ones.
func (s *QuizService) GetQuiz(ctx context.Context, actor domain.Actor, quizID int64) (domain.Quiz, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	switch {
	case actor.IsTeacher():
		if !actor.Owns(quiz) {
			return domain.Quiz{}, domain.ErrPermissionDenied
		}
	case actor.IsStudent():
		if !quiz.IsAvailable(s.clock()) {
			return domain.Quiz{}, domain.ErrQuizUnavailable
		}
	default:
		return domain.Quiz{}, domain.ErrPermissionDenied
	}
	return quiz, nil
}

// ListQuizzes lists a teacher's own quizzes, or the quizzes currently open to students.
func (s *QuizService) ListQuizzes(ctx context.Context, actor domain.Actor) ([]domain.Quiz, error) {
	switch {
	case actor.IsTeacher():
		return s.store.ListQuizzes(ctx, domain.QuizFilter{TeacherID: actor.ID})
	case actor.IsStudent():
		published, err := s.store.ListQuizzes(ctx, domain.QuizFilter{PublishedOnly: true})
		if err != nil {
			return nil, err
		}
		now := s.clock()
		open := make([]domain.Quiz, 0, len(published))
		for _, q := range published {
			if q.IsAvailable(now) {
				open = append(open, q)
			}
		}
		return open, nil
	}
	return nil, domain.ErrPermissionDenied
}

// ListQuestions returns the questions of a quiz in display order.
func (s *QuizService) ListQuestions(ctx context.Context, actor domain.Actor, quizID int64) ([]domain.Question, error) {
	quiz, err := s.GetQuiz(ctx, actor, quizID)
	if err != nil {
		return nil, err
	}
	return quiz.Questions, nil
}

// GetQuestion returns one question of a quiz.
func (s *QuizService) GetQuestion(ctx context.Context, actor domain.Actor, quizID, questionID int64) (domain.Question, error) {
	quiz, err := s.GetQuiz(ctx, actor, quizID)
	if err != nil {
		return domain.Question{}, err
	}
	question, ok := quiz.Question(questionID)
	if !ok {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return question, nil
}

// AddQuestion appends a question with its answers to a quiz.
func (s *QuizService) AddQuestion(ctx context.Context, actor domain.Actor, quizID int64, in QuestionInput) (domain.Question, error) {
	if _, err := s.ownedQuiz(ctx, actor, quizID); err != nil {
		return domain.Question{}, err
	}
	question := domain.Question{
		QuizID:      quizID,
		Text:        strings.TrimSpace(in.Text),
		Type:        in.Type,
		Points:      in.Points,
		Explanation: in.Explanation,
	}
	if err := validateQuestion(question); err != nil {
		return domain.Question{}, err
	}
	if len(in.Answers) < 2 {
		return domain.Question{}, domain.Validation("a question needs at least two answers")
	}
	hasCorrect := false
	for i, a := range in.Answers {
		text := strings.TrimSpace(a.Text)
		if text == "" {
			return domain.Question{}, domain.Validation("answer text is required")
		}
		hasCorrect = hasCorrect || a.Correct
		question.Answers = append(question.Answers, domain.Answer{
			Text:    text,
			Correct: a.Correct,
			Order:   i + 1,
		})
	}
	if !hasCorrect {
		return domain.Question{}, domain.Validation("at least one answer must be correct")
	}
	if err := s.store.CreateQuestion(ctx, &question); err != nil {
		return domain.Question{}, err
	}
	s.quizzes.Invalidate(ctx, quizID)
	return question, nil
}

// UpdateQuestion applies a partial update to a question. Stored results are
// never recomputed.
func (s *QuizService) UpdateQuestion(ctx context.Context, actor domain.Actor, quizID, questionID int64, patch QuestionPatch) (domain.Question, error) {
	quiz, err := s.ownedQuiz(ctx, actor, quizID)
	if err != nil {
		return domain.Question{}, err
	}
	question, ok := quiz.Question(questionID)
	if !ok {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	if patch.Text != nil {
		question.Text = strings.TrimSpace(*patch.Text)
	}
	if patch.Type != nil {
		question.Type = *patch.Type
	}
	if patch.Points != nil {
		question.Points = *patch.Points
	}
	if patch.Explanation != nil {
		question.Explanation = *patch.Explanation
	}
	if err := validateQuestion(question); err != nil {
		return domain.Question{}, err
	}
	if err := s.store.UpdateQuestion(ctx, &question); err != nil {
		return domain.Question{}, err
	}
	s.quizzes.Invalidate(ctx, quizID)
	return question, nil
}

// DeleteQuestion removes a question and its answers.
func (s *QuizService) DeleteQuestion(ctx context.Context, actor domain.Actor, quizID, questionID int64) error {
	quiz, err := s.ownedQuiz(ctx, actor, quizID)
	if err != nil {
		return err
	}
	if _, ok := quiz.Question(questionID); !ok {
		return domain.ErrQuestionNotFound
	}
	if err := s.store.DeleteQuestion(ctx, quizID, questionID); err != nil {
		return err
	}
	s.quizzes.Invalidate(ctx, quizID)
	return nil
}

func (s *QuizService) ownedQuiz(ctx context.Context, actor domain.Actor, quizID int64) (domain.Quiz, error) {
	if !actor.IsTeacher() {
		return domain.Quiz{}, domain.ErrPermissionDenied
	}
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if !actor.Owns(quiz) {
		return domain.Quiz{}, domain.ErrPermissionDenied
	}
	return quiz, nil
}

func validateQuiz(q domain.Quiz) error {
	switch {
	case q.Title == "":
		return domain.Validation("title is required")
	case len(q.Title) > maxTitleLength:
		return domain.Validation("title must be at most 255 characters")
	case q.DurationMinutes < 1:
		return domain.Validation("duration must be at least one minute")
	case q.OpenFrom != nil && q.CloseAt != nil && !q.CloseAt.After(*q.OpenFrom):
		return domain.Validation("available_until must be after available_from")
	}
	return nil
}

func validateQuestion(q domain.Question) error {
	switch {
	case q.Text == "":
		return domain.Validation("question text is required")
	case !q.Type.Valid():
		return domain.Validation("question type must be multiple_choice, single_choice or true_false")
	case q.Points < 1:
		return domain.Validation("points must be at least 1")
	}
	return nil
}
