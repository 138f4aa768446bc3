package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"qcm-service/internal/app"
	"qcm-service/internal/domain"
)

// Store persists quizzes, questions, answers, responses and results with bun.
// It implements app.QuizStore, app.ResultStore and app.QuizLoader.
type Store struct {
	db *bun.DB
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CreateQuiz(ctx context.Context, quiz *domain.Quiz) error {
	row := newQuizRow(quiz)
	if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("insert quiz: %w", err)
	}
	quiz.ID = row.ID
	return nil
}

func (s *Store) UpdateQuiz(ctx context.Context, quiz *domain.Quiz) error {
	res, err := s.db.NewUpdate().
		Model(newQuizRow(quiz)).
		ExcludeColumn("id", "teacher_id", "created_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update quiz: %w", err)
	}
	return expectRow(res, domain.ErrQuizNotFound)
}

// DeleteQuiz relies on ON DELETE CASCADE for everything recorded against the quiz.
func (s *Store) DeleteQuiz(ctx context.Context, quizID int64) error {
	res, err := s.db.NewDelete().
		Model((*quizRow)(nil)).
		Where("id = ?", quizID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete quiz: %w", err)
	}
	return expectRow(res, domain.ErrQuizNotFound)
}

func (s *Store) ListQuizzes(ctx context.Context, filter domain.QuizFilter) ([]domain.Quiz, error) {
	var rows []quizRow
	q := s.db.NewSelect().Model(&rows).OrderExpr("qz.id ASC")
	if filter.TeacherID != 0 {
		q = q.Where("qz.teacher_id = ?", filter.TeacherID)
	}
	if filter.PublishedOnly {
		q = q.Where("qz.is_published = ?", true)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	out := make([]domain.Quiz, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

// CreateQuestion appends the question after the last one of its quiz and
// stores the answers in one transaction.
func (s *Store) CreateQuestion(ctx context.Context, question *domain.Question) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.NewSelect().Model((*quizRow)(nil)).Where("id = ?", question.QuizID).Exists(ctx)
		if err != nil {
			return fmt.Errorf("check quiz: %w", err)
		}
		if !exists {
			return domain.ErrQuizNotFound
		}

		var maxOrder int
		err = tx.NewSelect().
			Model((*questionRow)(nil)).
			ColumnExpr("COALESCE(MAX(display_order), 0)").
			Where("quiz_id = ?", question.QuizID).
			Scan(ctx, &maxOrder)
		if err != nil {
			return fmt.Errorf("next question order: %w", err)
		}
		question.Order = maxOrder + 1

		row := newQuestionRow(question)
		if _, err := tx.NewInsert().Model(row).Exec(ctx); err != nil {
			return fmt.Errorf("insert question: %w", err)
		}
		question.ID = row.ID

		for i := range question.Answers {
			a := &question.Answers[i]
			a.QuestionID = question.ID
			arow := &answerRow{QuestionID: a.QuestionID, Text: a.Text, Correct: a.Correct, Order: a.Order}
			if _, err := tx.NewInsert().Model(arow).Exec(ctx); err != nil {
				return fmt.Errorf("insert answer: %w", err)
			}
			a.ID = arow.ID
		}
		return nil
	})
}

func (s *Store) UpdateQuestion(ctx context.Context, question *domain.Question) error {
	res, err := s.db.NewUpdate().
		Model(newQuestionRow(question)).
		Column("question_text", "question_type", "points", "explanation").
		Where("id = ?", question.ID).
		Where("quiz_id = ?", question.QuizID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update question: %w", err)
	}
	return expectRow(res, domain.ErrQuestionNotFound)
}

func (s *Store) DeleteQuestion(ctx context.Context, quizID, questionID int64) error {
	res, err := s.db.NewDelete().
		Model((*questionRow)(nil)).
		Where("id = ?", questionID).
		Where("quiz_id = ?", quizID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete question: %w", err)
	}
	return expectRow(res, domain.ErrQuestionNotFound)
}

func (s *Store) QuestionExists(ctx context.Context, questionID int64) (bool, error) {
	exists, err := s.db.NewSelect().Model((*questionRow)(nil)).Where("id = ?", questionID).Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("check question: %w", err)
	}
	return exists, nil
}

// LoadQuiz fetches the quiz with its questions and answers in display order.
func (s *Store) LoadQuiz(ctx context.Context, quizID int64) (domain.Quiz, error) {
	row := new(quizRow)
	err := s.db.NewSelect().
		Model(row).
		Where("qz.id = ?", quizID).
		Relation("Questions", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.OrderExpr("qs.display_order ASC")
		}).
		Relation("Questions.Answers", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.OrderExpr("an.display_order ASC")
		}).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}
	quiz := row.toDomain()
	if quiz.Questions == nil {
		quiz.Questions = make([]domain.Question, 0)
	}
	return quiz, nil
}

func (s *Store) ResultExists(ctx context.Context, studentID, quizID int64) (bool, error) {
	exists, err := s.db.NewSelect().
		Model((*resultRow)(nil)).
		Where("student_id = ?", studentID).
		Where("quiz_id = ?", quizID).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("check result: %w", err)
	}
	return exists, nil
}

// WithinTx runs fn inside a database transaction committed only when fn
// returns nil.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx app.SubmissionTx) error) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, submissionTx{tx: tx})
	})
}

func (s *Store) GetResult(ctx context.Context, resultID int64) (domain.Result, error) {
	row := new(resultRow)
	err := s.db.NewSelect().Model(row).Where("rs.id = ?", resultID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Result{}, domain.ErrResultNotFound
	}
	if err != nil {
		return domain.Result{}, fmt.Errorf("get result: %w", err)
	}
	return row.toDomain(), nil
}

func (s *Store) ListResults(ctx context.Context, filter domain.ResultFilter) ([]domain.Result, error) {
	var rows []resultRow
	q := s.db.NewSelect().Model(&rows).OrderExpr("rs.completed_at DESC, rs.id DESC")
	if filter.QuizID != 0 {
		q = q.Where("rs.quiz_id = ?", filter.QuizID)
	}
	if filter.StudentID != 0 {
		q = q.Where("rs.student_id = ?", filter.StudentID)
	}
	if filter.TeacherID != 0 {
		q = q.Join("JOIN quizzes AS qz ON qz.id = rs.quiz_id").Where("qz.teacher_id = ?", filter.TeacherID)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	out := make([]domain.Result, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

func (s *Store) ListResponses(ctx context.Context, studentID, quizID int64) ([]domain.StudentResponse, error) {
	var rows []responseRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("sr.student_id = ?", studentID).
		Where("sr.quiz_id = ?", quizID).
		OrderExpr("sr.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	out := make([]domain.StudentResponse, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

type submissionTx struct {
	tx bun.Tx
}

func (t submissionTx) InsertResponse(ctx context.Context, response *domain.StudentResponse) error {
	row := newResponseRow(response)
	if _, err := t.tx.NewInsert().Model(row).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateResponse
		}
		return fmt.Errorf("insert response: %w", err)
	}
	response.ID = row.ID
	return nil
}

func (t submissionTx) InsertResult(ctx context.Context, result *domain.Result) error {
	row := newResultRow(result)
	if _, err := t.tx.NewInsert().Model(row).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadySubmitted
		}
		return fmt.Errorf("insert result: %w", err)
	}
	result.ID = row.ID
	return nil
}

func expectRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
