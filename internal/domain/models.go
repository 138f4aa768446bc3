package domain

import "time"

// QuestionType enumerates the supported question kinds.
type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionSingleChoice   QuestionType = "single_choice"
	QuestionTrueFalse      QuestionType = "true_false"
)

// Valid reports whether t is one of the known question types.
func (t QuestionType) Valid() bool {
	switch t {
	case QuestionMultipleChoice, QuestionSingleChoice, QuestionTrueFalse:
		return true
	}
	return false
}

// Quiz is a QCM owned by a teacher. Questions are only populated when the
// full graph was loaded.
type Quiz struct {
	ID              int64      `json:"id"`
	TeacherID       int64      `json:"teacher_id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	DurationMinutes int        `json:"duration_minutes"`
	Published       bool       `json:"is_published"`
	OpenFrom        *time.Time `json:"available_from,omitempty"`
	CloseAt         *time.Time `json:"available_until,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	Questions       []Question `json:"questions,omitempty"`
}

// IsAvailable reports whether students may see and submit the quiz at now.
// Both window bounds are inclusive.
func (q Quiz) IsAvailable(now time.Time) bool {
	if !q.Published {
		return false
	}
	if q.OpenFrom != nil && now.Before(*q.OpenFrom) {
		return false
	}
	if q.CloseAt != nil && now.After(*q.CloseAt) {
		return false
	}
	return true
}

// Question looks up a question of the loaded graph by id.
func (q Quiz) Question(id int64) (Question, bool) {
	for _, question := range q.Questions {
		if question.ID == id {
			return question, true
		}
	}
	return Question{}, false
}

// TotalPoints sums the point value of every loaded question.
func (q Quiz) TotalPoints() int {
	total := 0
	for _, question := range q.Questions {
		total += question.Points
	}
	return total
}

// Question is a gradable prompt belonging to one quiz.
type Question struct {
	ID          int64        `json:"id"`
	QuizID      int64        `json:"qcm_id"`
	Text        string       `json:"question_text"`
	Type        QuestionType `json:"question_type"`
	Points      int          `json:"points"`
	Order       int          `json:"order"`
	Explanation string       `json:"explanation,omitempty"`
	Answers     []Answer     `json:"answers,omitempty"`
}

// CorrectAnswers returns every answer flagged correct, in display order.
func (q Question) CorrectAnswers() []Answer {
	correct := make([]Answer, 0, 1)
	for _, a := range q.Answers {
		if a.Correct {
			correct = append(correct, a)
		}
	}
	return correct
}

// HasMultipleCorrectAnswers reports whether more than one answer is flagged correct.
func (q Question) HasMultipleCorrectAnswers() bool {
	return len(q.CorrectAnswers()) > 1
}

// Answer is one selectable option of a question.
type Answer struct {
	ID         int64  `json:"id"`
	QuestionID int64  `json:"question_id"`
	Text       string `json:"answer_text"`
	Correct    bool   `json:"is_correct"`
	Order      int    `json:"order"`
}

// StudentResponse is the recorded choice of one student for one question.
// Correctness is derived from the referenced answer, never stored.
type StudentResponse struct {
	ID           int64     `json:"id"`
	StudentID    int64     `json:"student_id"`
	QuizID       int64     `json:"qcm_id"`
	QuestionID   int64     `json:"question_id"`
	AnswerID     *int64    `json:"answer_id,omitempty"`
	ResponseText *string   `json:"response_text,omitempty"`
	AnsweredAt   time.Time `json:"answered_at"`
}

// Result is the immutable scored outcome of one student's attempt at one quiz.
type Result struct {
	ID             int64     `json:"id"`
	StudentID      int64     `json:"student_id"`
	QuizID         int64     `json:"qcm_id"`
	TotalQuestions int       `json:"total_questions"`
	CorrectAnswers int       `json:"correct_answers"`
	PointsEarned   int       `json:"points_earned"`
	TotalPoints    int       `json:"total_points"`
	Percentage     float64   `json:"percentage"`
	StartedAt      time.Time `json:"started_at"`
	CompletedAt    time.Time `json:"completed_at"`
	ElapsedSeconds int64     `json:"time_spent_seconds"`
	Feedback       string    `json:"feedback"`
}

// IsPassed reports whether the result reaches the pass threshold (10/20).
func (r Result) IsPassed() bool {
	return r.Percentage >= PassThreshold
}

// Grade returns the grade band of the result.
func (r Result) Grade() Grade {
	return GradeFor(r.Percentage)
}

// TimeSpentFormatted renders the elapsed time as HH:MM:SS.
func (r Result) TimeSpentFormatted() string {
	return FormatDuration(r.ElapsedSeconds)
}

// SubmissionItem pairs a question with the student's optional selected answer
// and/or free text.
type SubmissionItem struct {
	QuestionID   int64
	AnswerID     *int64
	ResponseText *string
}

// Submission is a student's full response set for one quiz.
type Submission struct {
	StartedAt time.Time
	Items     []SubmissionItem
}

// ScoreDistribution counts results per grade band.
type ScoreDistribution struct {
	Excellent    int `json:"excellent"`
	VeryGood     int `json:"very_good"`
	Good         int `json:"good"`
	Passable     int `json:"passable"`
	Insufficient int `json:"insufficient"`
}

// Statistics aggregates every result of one quiz.
type Statistics struct {
	TotalAttempts        int               `json:"total_attempts"`
	AverageScore         float64           `json:"average_score"`
	PassRate             float64           `json:"success_rate"`
	AverageTimeSeconds   int64             `json:"average_time_seconds"`
	AverageTimeFormatted string            `json:"average_time_formatted"`
	Distribution         ScoreDistribution `json:"score_distribution"`
	BestScore            float64           `json:"best_score"`
	WorstScore           float64           `json:"worst_score"`
}

// QuestionSummary is the part of a question shown in a result review.
type QuestionSummary struct {
	ID          int64  `json:"id"`
	Text        string `json:"question_text"`
	Points      int    `json:"points"`
	Explanation string `json:"explanation,omitempty"`
}

// DetailedResponse is the per-question breakdown of a result.
type DetailedResponse struct {
	Question       QuestionSummary `json:"question"`
	AllAnswers     []Answer        `json:"all_answers"`
	StudentAnswer  *Answer         `json:"student_answer"`
	ResponseText   *string         `json:"response_text,omitempty"`
	CorrectAnswers []Answer        `json:"correct_answers"`
	IsCorrect      bool            `json:"is_correct"`
	PointsEarned   int             `json:"points_earned"`
}

// QuizFilter narrows quiz listings.
type QuizFilter struct {
	TeacherID     int64
	PublishedOnly bool
}

// ResultFilter narrows result listings. Zero fields are ignored.
type ResultFilter struct {
	QuizID    int64
	StudentID int64
	TeacherID int64
}
