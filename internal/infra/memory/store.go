package memory

import (
	"context"
	"sort"
	"sync"

	"qcm-service/internal/app"
	"qcm-service/internal/domain"
)

// Store is an in-memory implementation of app.QuizStore, app.ResultStore and
// app.QuizLoader. Deleting a quiz cascades to everything recorded against it.
type Store struct {
	mu sync.RWMutex

	seq       int64
	quizzes   map[int64]domain.Quiz
	questions map[int64]domain.Question
	answers   map[int64]domain.Answer
	responses map[int64]domain.StudentResponse
	results   map[int64]domain.Result
}

func NewStore() *Store {
	return &Store{
		quizzes:   make(map[int64]domain.Quiz),
		questions: make(map[int64]domain.Question),
		answers:   make(map[int64]domain.Answer),
		responses: make(map[int64]domain.StudentResponse),
		results:   make(map[int64]domain.Result),
	}
}

func (s *Store) nextID() int64 {
	s.seq++
	return s.seq
}

func (s *Store) CreateQuiz(_ context.Context, quiz *domain.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	quiz.ID = s.nextID()
	stored := *quiz
	stored.Questions = nil
	s.quizzes[quiz.ID] = stored
	return nil
}

func (s *Store) UpdateQuiz(_ context.Context, quiz *domain.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[quiz.ID]; !ok {
		return domain.ErrQuizNotFound
	}
	stored := *quiz
	stored.Questions = nil
	s.quizzes[quiz.ID] = stored
	return nil
}

func (s *Store) DeleteQuiz(_ context.Context, quizID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[quizID]; !ok {
		return domain.ErrQuizNotFound
	}
	delete(s.quizzes, quizID)
	for id, q := range s.questions {
		if q.QuizID == quizID {
			s.deleteQuestionLocked(id)
		}
	}
	for id, r := range s.responses {
		if r.QuizID == quizID {
			delete(s.responses, id)
		}
	}
	for id, r := range s.results {
		if r.QuizID == quizID {
			delete(s.results, id)
		}
	}
	return nil
}

func (s *Store) ListQuizzes(_ context.Context, filter domain.QuizFilter) ([]domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Quiz, 0)
	for _, q := range s.quizzes {
		if filter.TeacherID != 0 && q.TeacherID != filter.TeacherID {
			continue
		}
		if filter.PublishedOnly && !q.Published {
			continue
		}
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) CreateQuestion(_ context.Context, question *domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[question.QuizID]; !ok {
		return domain.ErrQuizNotFound
	}
	maxOrder := 0
	for _, q := range s.questions {
		if q.QuizID == question.QuizID && q.Order > maxOrder {
			maxOrder = q.Order
		}
	}
	question.ID = s.nextID()
	question.Order = maxOrder + 1
	for i := range question.Answers {
		question.Answers[i].ID = s.nextID()
		question.Answers[i].QuestionID = question.ID
		s.answers[question.Answers[i].ID] = question.Answers[i]
	}
	stored := *question
	stored.Answers = nil
	s.questions[question.ID] = stored
	return nil
}

func (s *Store) UpdateQuestion(_ context.Context, question *domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.questions[question.ID]
	if !ok || current.QuizID != question.QuizID {
		return domain.ErrQuestionNotFound
	}
	current.Text = question.Text
	current.Type = question.Type
	current.Points = question.Points
	current.Explanation = question.Explanation
	s.questions[question.ID] = current
	return nil
}

func (s *Store) DeleteQuestion(_ context.Context, quizID, questionID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.questions[questionID]
	if !ok || current.QuizID != quizID {
		return domain.ErrQuestionNotFound
	}
	s.deleteQuestionLocked(questionID)
	return nil
}

func (s *Store) deleteQuestionLocked(questionID int64) {
	delete(s.questions, questionID)
	for id, a := range s.answers {
		if a.QuestionID == questionID {
			delete(s.answers, id)
		}
	}
}

func (s *Store) QuestionExists(_ context.Context, questionID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.questions[questionID]
	return ok, nil
}

// LoadQuiz assembles the quiz graph with questions and answers in display order.
func (s *Store) LoadQuiz(_ context.Context, quizID int64) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	quiz, ok := s.quizzes[quizID]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	quiz.Questions = make([]domain.Question, 0)
	for _, q := range s.questions {
		if q.QuizID != quizID {
			continue
		}
		q.Answers = make([]domain.Answer, 0)
		for _, a := range s.answers {
			if a.QuestionID == q.ID {
				q.Answers = append(q.Answers, a)
			}
		}
		sort.Slice(q.Answers, func(i, j int) bool { return q.Answers[i].Order < q.Answers[j].Order })
		quiz.Questions = append(quiz.Questions, q)
	}
	sort.Slice(quiz.Questions, func(i, j int) bool { return quiz.Questions[i].Order < quiz.Questions[j].Order })
	return quiz, nil
}

func (s *Store) ResultExists(_ context.Context, studentID, quizID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.results {
		if r.StudentID == studentID && r.QuizID == quizID {
			return true, nil
		}
	}
	return false, nil
}

// WithinTx stages writes and applies them only when fn succeeds. The store
// lock is held for the whole scope, so fn must only write through tx.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx app.SubmissionTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{store: s, seq: s.seq}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	for _, r := range tx.responses {
		s.responses[r.ID] = r
	}
	for _, r := range tx.results {
		s.results[r.ID] = r
	}
	s.seq = tx.seq
	return nil
}

func (s *Store) GetResult(_ context.Context, resultID int64) (domain.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.results[resultID]
	if !ok {
		return domain.Result{}, domain.ErrResultNotFound
	}
	return r, nil
}

// ListResults returns matching results, most recently completed first.
func (s *Store) ListResults(_ context.Context, filter domain.ResultFilter) ([]domain.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Result, 0)
	for _, r := range s.results {
		if filter.QuizID != 0 && r.QuizID != filter.QuizID {
			continue
		}
		if filter.StudentID != 0 && r.StudentID != filter.StudentID {
			continue
		}
		if filter.TeacherID != 0 {
			quiz, ok := s.quizzes[r.QuizID]
			if !ok || quiz.TeacherID != filter.TeacherID {
				continue
			}
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CompletedAt.Equal(out[j].CompletedAt) {
			return out[i].CompletedAt.After(out[j].CompletedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) ListResponses(_ context.Context, studentID, quizID int64) ([]domain.StudentResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.StudentResponse, 0)
	for _, r := range s.responses {
		if r.StudentID == studentID && r.QuizID == quizID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memTx struct {
	store     *Store
	seq       int64
	responses []domain.StudentResponse
	results   []domain.Result
}

func (tx *memTx) InsertResponse(_ context.Context, response *domain.StudentResponse) error {
	same := func(r domain.StudentResponse) bool {
		return r.StudentID == response.StudentID && r.QuizID == response.QuizID && r.QuestionID == response.QuestionID
	}
	for _, r := range tx.store.responses {
		if same(r) {
			return domain.ErrDuplicateResponse
		}
	}
	for _, r := range tx.responses {
		if same(r) {
			return domain.ErrDuplicateResponse
		}
	}
	tx.seq++
	response.ID = tx.seq
	tx.responses = append(tx.responses, *response)
	return nil
}

func (tx *memTx) InsertResult(_ context.Context, result *domain.Result) error {
	if _, ok := tx.store.quizzes[result.QuizID]; !ok {
		return domain.ErrQuizNotFound
	}
	same := func(r domain.Result) bool {
		return r.StudentID == result.StudentID && r.QuizID == result.QuizID
	}
	for _, r := range tx.store.results {
		if same(r) {
			return domain.ErrAlreadySubmitted
		}
	}
	for _, r := range tx.results {
		if same(r) {
			return domain.ErrAlreadySubmitted
		}
	}
	tx.seq++
	result.ID = tx.seq
	tx.results = append(tx.results, *result)
	return nil
}
