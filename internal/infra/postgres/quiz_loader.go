package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"qcm-service/internal/domain"
)

// QuizLoader loads quiz graphs straight from Postgres with pgx, bypassing the ORM
// on the hot read path.
type QuizLoader struct {
	pool *pgxpool.Pool
}

func NewQuizLoader(pool *pgxpool.Pool) *QuizLoader {
	return &QuizLoader{pool: pool}
}

func (l *QuizLoader) LoadQuiz(ctx context.Context, quizID int64) (domain.Quiz, error) {
	var quiz domain.Quiz
	err := l.pool.QueryRow(ctx, `
		SELECT id, teacher_id, title, COALESCE(description, ''), duration_minutes, is_published,
		       available_from, available_until, created_at, updated_at
		FROM quizzes WHERE id = $1`, quizID).
		Scan(&quiz.ID, &quiz.TeacherID, &quiz.Title, &quiz.Description, &quiz.DurationMinutes,
			&quiz.Published, &quiz.OpenFrom, &quiz.CloseAt, &quiz.CreatedAt, &quiz.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}

	questions, err := l.loadQuestions(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	answers, err := l.loadAnswers(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	for i := range questions {
		questions[i].Answers = answers[questions[i].ID]
		if questions[i].Answers == nil {
			questions[i].Answers = make([]domain.Answer, 0)
		}
	}
	quiz.Questions = questions
	return quiz, nil
}

func (l *QuizLoader) loadQuestions(ctx context.Context, quizID int64) ([]domain.Question, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT id, quiz_id, question_text, question_type, points, display_order, COALESCE(explanation, '')
		FROM questions WHERE quiz_id = $1
		ORDER BY display_order, id`, quizID)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	questions := make([]domain.Question, 0)
	for rows.Next() {
		var q domain.Question
		var qtype string
		if err := rows.Scan(&q.ID, &q.QuizID, &q.Text, &qtype, &q.Points, &q.Order, &q.Explanation); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		q.Type = domain.QuestionType(qtype)
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

func (l *QuizLoader) loadAnswers(ctx context.Context, quizID int64) (map[int64][]domain.Answer, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT a.id, a.question_id, a.answer_text, a.is_correct, a.display_order
		FROM answers a JOIN questions q ON q.id = a.question_id
		WHERE q.quiz_id = $1
		ORDER BY a.question_id, a.display_order, a.id`, quizID)
	if err != nil {
		return nil, fmt.Errorf("load answers: %w", err)
	}
	defer rows.Close()

	byQuestion := make(map[int64][]domain.Answer)
	for rows.Next() {
		var a domain.Answer
		if err := rows.Scan(&a.ID, &a.QuestionID, &a.Text, &a.Correct, &a.Order); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		byQuestion[a.QuestionID] = append(byQuestion[a.QuestionID], a)
	}
	return byQuestion, rows.Err()
}
