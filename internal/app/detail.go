package app

import (
	"sort"

	"qcm-service/internal/domain"
)

// ComposeResultDetail rebuilds the per-question review of a result from the
// quiz graph and the student's stored responses. Questions follow display
// order; unanswered questions yield a nil student answer and no points.
func ComposeResultDetail(result domain.Result, quiz domain.Quiz, responses []domain.StudentResponse) []domain.DetailedResponse {
	byQuestion := make(map[int64]domain.StudentResponse, len(responses))
	for _, r := range responses {
		if r.StudentID != result.StudentID || r.QuizID != result.QuizID {
			continue
		}
		byQuestion[r.QuestionID] = r
	}

	questions := make([]domain.Question, len(quiz.Questions))
	copy(questions, quiz.Questions)
	sort.SliceStable(questions, func(i, j int) bool {
		return questions[i].Order < questions[j].Order
	})

	answers := domain.NewAnswerIndex(quiz)
	out := make([]domain.DetailedResponse, 0, len(questions))
	for _, q := range questions {
		detail := domain.DetailedResponse{
			Question: domain.QuestionSummary{
				ID:          q.ID,
				Text:        q.Text,
				Points:      q.Points,
				Explanation: q.Explanation,
			},
			AllAnswers:     append([]domain.Answer(nil), q.Answers...),
			CorrectAnswers: q.CorrectAnswers(),
		}
		if resp, ok := byQuestion[q.ID]; ok {
			if resp.AnswerID != nil {
				if a, found := answers.Answer(*resp.AnswerID); found {
					chosen := a
					detail.StudentAnswer = &chosen
				}
			}
			detail.ResponseText = resp.ResponseText
			detail.IsCorrect = domain.IsCorrect(resp, answers)
		}
		if detail.IsCorrect {
			detail.PointsEarned = q.Points
		}
		out = append(out, detail)
	}
	return out
}
