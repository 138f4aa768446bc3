package sqlstore

import (
	"time"

	"github.com/uptrace/bun"

	"qcm-service/internal/domain"
)

type quizRow struct {
	bun.BaseModel `bun:"table:quizzes,alias:qz"`

	ID              int64          `bun:"id,pk,autoincrement"`
	TeacherID       int64          `bun:"teacher_id,notnull"`
	Title           string         `bun:"title,notnull"`
	Description     string         `bun:"description"`
	DurationMinutes int            `bun:"duration_minutes,notnull"`
	Published       bool           `bun:"is_published,notnull"`
	OpenFrom        *time.Time     `bun:"available_from"`
	CloseAt         *time.Time     `bun:"available_until"`
	CreatedAt       time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt       time.Time      `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
	Questions       []*questionRow `bun:"rel:has-many,join:id=quiz_id"`
}

type questionRow struct {
	bun.BaseModel `bun:"table:questions,alias:qs"`

	ID          int64        `bun:"id,pk,autoincrement"`
	QuizID      int64        `bun:"quiz_id,notnull"`
	Text        string       `bun:"question_text,notnull"`
	Type        string       `bun:"question_type,notnull"`
	Points      int          `bun:"points,notnull"`
	Order       int          `bun:"display_order,notnull"`
	Explanation string       `bun:"explanation"`
	Answers     []*answerRow `bun:"rel:has-many,join:id=question_id"`
}

type answerRow struct {
	bun.BaseModel `bun:"table:answers,alias:an"`

	ID         int64  `bun:"id,pk,autoincrement"`
	QuestionID int64  `bun:"question_id,notnull"`
	Text       string `bun:"answer_text,notnull"`
	Correct    bool   `bun:"is_correct,notnull"`
	Order      int    `bun:"display_order,notnull"`
}

// responseRow only references its question and answer weakly; deleting a
// question keeps the stored choice for the record.
type responseRow struct {
	bun.BaseModel `bun:"table:student_responses,alias:sr"`

	ID           int64     `bun:"id,pk,autoincrement"`
	StudentID    int64     `bun:"student_id,notnull,unique:student_quiz_question"`
	QuizID       int64     `bun:"quiz_id,notnull,unique:student_quiz_question"`
	QuestionID   int64     `bun:"question_id,notnull,unique:student_quiz_question"`
	AnswerID     *int64    `bun:"answer_id"`
	ResponseText *string   `bun:"response_text"`
	AnsweredAt   time.Time `bun:"answered_at,nullzero,notnull,default:current_timestamp"`
}

type resultRow struct {
	bun.BaseModel `bun:"table:results,alias:rs"`

	ID             int64     `bun:"id,pk,autoincrement"`
	StudentID      int64     `bun:"student_id,notnull,unique:student_quiz"`
	QuizID         int64     `bun:"quiz_id,notnull,unique:student_quiz"`
	TotalQuestions int       `bun:"total_questions,notnull"`
	CorrectAnswers int       `bun:"correct_answers,notnull"`
	PointsEarned   int       `bun:"points_earned,notnull"`
	TotalPoints    int       `bun:"total_points,notnull"`
	Percentage     float64   `bun:"percentage,notnull"`
	StartedAt      time.Time `bun:"started_at,notnull"`
	CompletedAt    time.Time `bun:"completed_at,notnull"`
	ElapsedSeconds int64     `bun:"time_spent_seconds,notnull"`
	Feedback       string    `bun:"feedback"`
}

func newQuizRow(q *domain.Quiz) *quizRow {
	return &quizRow{
		ID:              q.ID,
		TeacherID:       q.TeacherID,
		Title:           q.Title,
		Description:     q.Description,
		DurationMinutes: q.DurationMinutes,
		Published:       q.Published,
		OpenFrom:        q.OpenFrom,
		CloseAt:         q.CloseAt,
		CreatedAt:       q.CreatedAt,
		UpdatedAt:       q.UpdatedAt,
	}
}

func (r *quizRow) toDomain() domain.Quiz {
	quiz := domain.Quiz{
		ID:              r.ID,
		TeacherID:       r.TeacherID,
		Title:           r.Title,
		Description:     r.Description,
		DurationMinutes: r.DurationMinutes,
		Published:       r.Published,
		OpenFrom:        r.OpenFrom,
		CloseAt:         r.CloseAt,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
	if r.Questions != nil {
		quiz.Questions = make([]domain.Question, 0, len(r.Questions))
		for _, q := range r.Questions {
			quiz.Questions = append(quiz.Questions, q.toDomain())
		}
	}
	return quiz
}

func newQuestionRow(q *domain.Question) *questionRow {
	return &questionRow{
		ID:          q.ID,
		QuizID:      q.QuizID,
		Text:        q.Text,
		Type:        string(q.Type),
		Points:      q.Points,
		Order:       q.Order,
		Explanation: q.Explanation,
	}
}

func (r *questionRow) toDomain() domain.Question {
	q := domain.Question{
		ID:          r.ID,
		QuizID:      r.QuizID,
		Text:        r.Text,
		Type:        domain.QuestionType(r.Type),
		Points:      r.Points,
		Order:       r.Order,
		Explanation: r.Explanation,
		Answers:     make([]domain.Answer, 0, len(r.Answers)),
	}
	for _, a := range r.Answers {
		q.Answers = append(q.Answers, a.toDomain())
	}
	return q
}

func (r *answerRow) toDomain() domain.Answer {
	return domain.Answer{
		ID:         r.ID,
		QuestionID: r.QuestionID,
		Text:       r.Text,
		Correct:    r.Correct,
		Order:      r.Order,
	}
}

func newResponseRow(r *domain.StudentResponse) *responseRow {
	return &responseRow{
		StudentID:    r.StudentID,
		QuizID:       r.QuizID,
		QuestionID:   r.QuestionID,
		AnswerID:     r.AnswerID,
		ResponseText: r.ResponseText,
		AnsweredAt:   r.AnsweredAt,
	}
}

func (r *responseRow) toDomain() domain.StudentResponse {
	return domain.StudentResponse{
		ID:           r.ID,
		StudentID:    r.StudentID,
		QuizID:       r.QuizID,
		QuestionID:   r.QuestionID,
		AnswerID:     r.AnswerID,
		ResponseText: r.ResponseText,
		AnsweredAt:   r.AnsweredAt,
	}
}

func newResultRow(r *domain.Result) *resultRow {
	return &resultRow{
		StudentID:      r.StudentID,
		QuizID:         r.QuizID,
		TotalQuestions: r.TotalQuestions,
		CorrectAnswers: r.CorrectAnswers,
		PointsEarned:   r.PointsEarned,
		TotalPoints:    r.TotalPoints,
		Percentage:     r.Percentage,
		StartedAt:      r.StartedAt,
		CompletedAt:    r.CompletedAt,
		ElapsedSeconds: r.ElapsedSeconds,
		Feedback:       r.Feedback,
	}
}

func (r *resultRow) toDomain() domain.Result {
	return domain.Result{
		ID:             r.ID,
		StudentID:      r.StudentID,
		QuizID:         r.QuizID,
		TotalQuestions: r.TotalQuestions,
		CorrectAnswers: r.CorrectAnswers,
		PointsEarned:   r.PointsEarned,
		TotalPoints:    r.TotalPoints,
		Percentage:     r.Percentage,
		StartedAt:      r.StartedAt,
		CompletedAt:    r.CompletedAt,
		ElapsedSeconds: r.ElapsedSeconds,
		Feedback:       r.Feedback,
	}
}
