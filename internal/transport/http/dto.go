package http

import (
	"encoding/json"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"qcm-service/internal/app"
	"qcm-service/internal/domain"
)

type quizRequest struct {
	Title           string     `json:"title" validate:"required,max=255"`
	Description     string     `json:"description"`
	DurationMinutes int        `json:"duration_minutes" validate:"required,min=1"`
	AvailableFrom   *time.Time `json:"available_from"`
	AvailableUntil  *time.Time `json:"available_until"`
}

func (req quizRequest) input() app.QuizInput {
	return app.QuizInput{
		Title:           req.Title,
		Description:     req.Description,
		DurationMinutes: req.DurationMinutes,
		OpenFrom:        req.AvailableFrom,
		CloseAt:         req.AvailableUntil,
	}
}

type quizPatchRequest struct {
	Title           *string    `json:"title" validate:"omitempty,min=1,max=255"`
	Description     *string    `json:"description"`
	DurationMinutes *int       `json:"duration_minutes" validate:"omitempty,min=1"`
	IsPublished     *bool      `json:"is_published"`
	AvailableFrom   *time.Time `json:"available_from"`
	AvailableUntil  *time.Time `json:"available_until"`
}

func (req quizPatchRequest) patch() app.QuizPatch {
	return app.QuizPatch{
		Title:           req.Title,
		Description:     req.Description,
		DurationMinutes: req.DurationMinutes,
		Published:       req.IsPublished,
		OpenFrom:        req.AvailableFrom,
		CloseAt:         req.AvailableUntil,
	}
}

type answerRequest struct {
	Text      string `json:"answer_text" validate:"required"`
	IsCorrect bool   `json:"is_correct"`
}

type questionRequest struct {
	Text        string          `json:"question_text" validate:"required"`
	Type        string          `json:"question_type" validate:"required,oneof=multiple_choice single_choice true_false"`
	Points      int             `json:"points" validate:"required,min=1"`
	Explanation string          `json:"explanation"`
	Answers     []answerRequest `json:"answers" validate:"required,min=2,dive"`
}

func (req questionRequest) input() app.QuestionInput {
	in := app.QuestionInput{
		Text:        req.Text,
		Type:        domain.QuestionType(req.Type),
		Points:      req.Points,
		Explanation: req.Explanation,
	}
	for _, a := range req.Answers {
		in.Answers = append(in.Answers, app.AnswerInput{Text: a.Text, Correct: a.IsCorrect})
	}
	return in
}

type questionPatchRequest struct {
	Text        *string `json:"question_text" validate:"omitempty,min=1"`
	Type        *string `json:"question_type" validate:"omitempty,oneof=multiple_choice single_choice true_false"`
	Points      *int    `json:"points" validate:"omitempty,min=1"`
	Explanation *string `json:"explanation"`
}

func (req questionPatchRequest) patch() app.QuestionPatch {
	p := app.QuestionPatch{Text: req.Text, Points: req.Points, Explanation: req.Explanation}
	if req.Type != nil {
		t := domain.QuestionType(*req.Type)
		p.Type = &t
	}
	return p
}

type responseItem struct {
	QuestionID   int64   `json:"question_id" validate:"required,min=1"`
	AnswerID     *int64  `json:"answer_id" validate:"omitempty,min=1"`
	ResponseText *string `json:"response_text" validate:"omitempty,max=1000"`
}

type submitRequest struct {
	StartedAt *time.Time     `json:"started_at" validate:"required"`
	Responses []responseItem `json:"responses" validate:"required,min=1,dive"`
}

func (req submitRequest) submission() domain.Submission {
	sub := domain.Submission{StartedAt: *req.StartedAt}
	for _, item := range req.Responses {
		sub.Items = append(sub.Items, domain.SubmissionItem{
			QuestionID:   item.QuestionID,
			AnswerID:     item.AnswerID,
			ResponseText: item.ResponseText,
		})
	}
	return sub
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decode reads a JSON body into dst and validates it.
func decode(r *http.Request, v *validator.Validate, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domain.Validation("request body must be valid JSON")
	}
	return v.Struct(dst)
}

type answerView struct {
	ID        int64  `json:"id"`
	Text      string `json:"answer_text"`
	IsCorrect *bool  `json:"is_correct,omitempty"`
	Order     int    `json:"order"`
}

type questionView struct {
	ID          int64        `json:"id"`
	QuizID      int64        `json:"qcm_id"`
	Text        string       `json:"question_text"`
	Type        string       `json:"question_type"`
	Points      int          `json:"points"`
	Order       int          `json:"order"`
	Explanation string       `json:"explanation,omitempty"`
	Answers     []answerView `json:"answers"`
}

type quizView struct {
	ID              int64          `json:"id"`
	TeacherID       int64          `json:"teacher_id"`
	Title           string         `json:"title"`
	Description     string         `json:"description"`
	DurationMinutes int            `json:"duration_minutes"`
	Published       bool           `json:"is_published"`
	AvailableFrom   *time.Time     `json:"available_from,omitempty"`
	AvailableUntil  *time.Time     `json:"available_until,omitempty"`
	TotalPoints     int            `json:"total_points"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	Questions       []questionView `json:"questions,omitempty"`
}

// newQuestionView exposes correctness flags only when reveal is set.
func newQuestionView(q domain.Question, reveal bool) questionView {
	view := questionView{
		ID:          q.ID,
		QuizID:      q.QuizID,
		Text:        q.Text,
		Type:        string(q.Type),
		Points:      q.Points,
		Order:       q.Order,
		Explanation: q.Explanation,
		Answers:     make([]answerView, 0, len(q.Answers)),
	}
	if !reveal {
		view.Explanation = ""
	}
	for _, a := range q.Answers {
		av := answerView{ID: a.ID, Text: a.Text, Order: a.Order}
		if reveal {
			correct := a.Correct
			av.IsCorrect = &correct
		}
		view.Answers = append(view.Answers, av)
	}
	return view
}

func newQuizView(q domain.Quiz, reveal bool) quizView {
	view := quizView{
		ID:              q.ID,
		TeacherID:       q.TeacherID,
		Title:           q.Title,
		Description:     q.Description,
		DurationMinutes: q.DurationMinutes,
		Published:       q.Published,
		AvailableFrom:   q.OpenFrom,
		AvailableUntil:  q.CloseAt,
		TotalPoints:     q.TotalPoints(),
		CreatedAt:       q.CreatedAt,
		UpdatedAt:       q.UpdatedAt,
	}
	for _, question := range q.Questions {
		view.Questions = append(view.Questions, newQuestionView(question, reveal))
	}
	return view
}

type resultView struct {
	domain.Result
	Grade              string `json:"grade"`
	Passed             bool   `json:"is_passed"`
	TimeSpentFormatted string `json:"time_spent_formatted"`
}

func newResultView(r domain.Result) resultView {
	return resultView{
		Result:             r,
		Grade:              r.Grade().Label(),
		Passed:             r.IsPassed(),
		TimeSpentFormatted: r.TimeSpentFormatted(),
	}
}

type resultDetailView struct {
	Result  resultView                `json:"result"`
	Details []domain.DetailedResponse `json:"details"`
}
