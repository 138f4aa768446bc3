package app

import (
	"fmt"
	"time"

	"qcm-service/internal/domain"
)

// scoredSubmission is the outcome of scoring before anything is persisted.
type scoredSubmission struct {
	responses []domain.StudentResponse
	result    domain.Result
}

// scoreSubmission validates a submission against the quiz graph and computes
// the result. Items whose question belongs to another quiz are skipped; the
// caller has already rejected ids unknown to the store.
func scoreSubmission(quiz domain.Quiz, studentID int64, sub domain.Submission, completedAt time.Time) (scoredSubmission, error) {
	answers := domain.NewAnswerIndex(quiz)
	seen := make(map[int64]struct{}, len(sub.Items))

	var (
		out          scoredSubmission
		correctCount int
		pointsEarned int
		totalPoints  int
	)
	out.responses = make([]domain.StudentResponse, 0, len(sub.Items))

	for _, item := range sub.Items {
		question, ok := quiz.Question(item.QuestionID)
		if !ok {
			continue
		}
		if _, dup := seen[question.ID]; dup {
			return scoredSubmission{}, fmt.Errorf("%w: question %d", domain.ErrDuplicateResponse, question.ID)
		}
		seen[question.ID] = struct{}{}

		if item.AnswerID != nil {
			answer, ok := answers.Answer(*item.AnswerID)
			if !ok || answer.QuestionID != question.ID {
				return scoredSubmission{}, fmt.Errorf("%w: answer %d is not an option of question %d",
					domain.ErrInvalidReference, *item.AnswerID, question.ID)
			}
		}

		totalPoints += question.Points
		response := domain.StudentResponse{
			StudentID:    studentID,
			QuizID:       quiz.ID,
			QuestionID:   question.ID,
			AnswerID:     item.AnswerID,
			ResponseText: item.ResponseText,
			AnsweredAt:   completedAt,
		}
		out.responses = append(out.responses, response)

		if domain.IsCorrect(response, answers) {
			correctCount++
			pointsEarned += question.Points
		}
	}

	percentage := domain.ScorePercentage(pointsEarned, totalPoints)
	totalQuestions := len(sub.Items)
	out.result = domain.Result{
		StudentID:      studentID,
		QuizID:         quiz.ID,
		TotalQuestions: totalQuestions,
		CorrectAnswers: correctCount,
		PointsEarned:   pointsEarned,
		TotalPoints:    totalPoints,
		Percentage:     percentage,
		StartedAt:      sub.StartedAt,
		CompletedAt:    completedAt,
		ElapsedSeconds: completedAt.Unix() - sub.StartedAt.Unix(),
		Feedback:       domain.Feedback(percentage, correctCount, totalQuestions),
	}
	return out, nil
}
