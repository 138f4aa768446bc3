package domain

// AnswerLookup resolves an answer by id.
type AnswerLookup interface {
	Answer(id int64) (Answer, bool)
}

// AnswerIndex is an id-keyed view over every answer of a quiz graph.
type AnswerIndex map[int64]Answer

// NewAnswerIndex indexes the answers of every loaded question of quiz.
func NewAnswerIndex(quiz Quiz) AnswerIndex {
	idx := make(AnswerIndex)
	for _, q := range quiz.Questions {
		for _, a := range q.Answers {
			idx[a.ID] = a
		}
	}
	return idx
}

func (idx AnswerIndex) Answer(id int64) (Answer, bool) {
	a, ok := idx[id]
	return a, ok
}

// IsCorrect derives correctness of a response: true only when it selects an
// answer that resolves and is flagged correct. Free text is never correct.
func IsCorrect(r StudentResponse, answers AnswerLookup) bool {
	if r.AnswerID == nil || answers == nil {
		return false
	}
	a, ok := answers.Answer(*r.AnswerID)
	if !ok {
		return false
	}
	return a.Correct
}
