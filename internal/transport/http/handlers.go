package http

import (
	"encoding/csv"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"qcm-service/internal/app"
	"qcm-service/internal/auth"
	"qcm-service/internal/domain"
)

// Handler serves the REST API on top of the quiz, submission and result use cases.
type Handler struct {
	quizzes     *app.QuizService
	submissions *app.SubmissionService
	results     *app.ResultService
	log         logrus.FieldLogger
	validate    *validator.Validate
}

func NewHandler(quizzes *app.QuizService, submissions *app.SubmissionService, results *app.ResultService, log logrus.FieldLogger) *Handler {
	return &Handler{
		quizzes:     quizzes,
		submissions: submissions,
		results:     results,
		log:         log,
		validate:    newValidator(),
	}
}

func actorOf(r *http.Request) domain.Actor {
	actor, _ := auth.ActorFromContext(r.Context())
	return actor
}

func (h *Handler) listQuizzes(w http.ResponseWriter, r *http.Request) {
	actor := actorOf(r)
	quizzes, err := h.quizzes.ListQuizzes(r.Context(), actor)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	views := make([]quizView, 0, len(quizzes))
	for _, q := range quizzes {
		views = append(views, newQuizView(q, actor.IsTeacher()))
	}
	ok(w, http.StatusOK, views, "")
}

func (h *Handler) createQuiz(w http.ResponseWriter, r *http.Request) {
	var req quizRequest
	if err := decode(r, h.validate, &req); err != nil {
		fail(w, r, h.log, err)
		return
	}
	quiz, err := h.quizzes.CreateQuiz(r.Context(), actorOf(r), req.input())
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	ok(w, http.StatusCreated, newQuizView(quiz, true), "QCM created")
}

func (h *Handler) getQuiz(w http.ResponseWriter, r *http.Request) {
	quizID, err := pathID(r, "qcmID", domain.ErrQuizNotFound)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	actor := actorOf(r)
	quiz, err := h.quizzes.GetQuiz(r.Context(), actor, quizID)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	ok(w, http.StatusOK, newQuizView(quiz, actor.IsTeacher()), "")
}

func (h *Handler) updateQuiz(w http.ResponseWriter, r *http.Request) {
	quizID, err := pathID(r, "qcmID", domain.ErrQuizNotFound)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	var req quizPatchRequest
	if err := decode(r, h.validate, &req); err != nil {
		fail(w, r, h.log, err)
		return
	}
	quiz, err := h.quizzes.UpdateQuiz(r.Context(), actorOf(r), quizID, req.patch())
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	ok(w, http.StatusOK, newQuizView(quiz, true), "QCM updated")
}

func (h *Handler) deleteQuiz(w http.ResponseWriter, r *http.Request) {
	quizID, err := pathID(r, "qcmID", domain.ErrQuizNotFound)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	if err := h.quizzes.DeleteQuiz(r.Context(), actorOf(r), quizID); err != nil {
		fail(w, r, h.log, err)
		return
	}
	ok(w, http.StatusOK, nil, "QCM deleted")
}

func (h *Handler) listQuestions(w http.ResponseWriter, r *http.Request) {
	quizID, err := pathID(r, "qcmID", domain.ErrQuizNotFound)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	actor := actorOf(r)
	questions, err := h.quizzes.ListQuestions(r.Context(), actor, quizID)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	views := make([]questionView, 0, len(questions))
	for _, q := range questions {
		views = append(views, newQuestionView(q, actor.IsTeacher()))
	}
	ok(w, http.StatusOK, views, "")
}

func (h *Handler) createQuestion(w http.ResponseWriter, r *http.Request) {
	quizID, err := pathID(r, "qcmID", domain.ErrQuizNotFound)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	var req questionRequest
	if err := decode(r, h.validate, &req); err != nil {
		fail(w, r, h.log, err)
		return
	}
	question, err := h.quizzes.AddQuestion(r.Context(), actorOf(r), quizID, req.input())
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	ok(w, http.StatusCreated, newQuestionView(question, true), "Question created")
}

func (h *Handler) getQuestion(w http.ResponseWriter, r *http.Request) {
	quizID, questionID, err := questionPath(r)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	actor := actorOf(r)
	question, err := h.quizzes.GetQuestion(r.Context(), actor, quizID, questionID)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	ok(w, http.StatusOK, newQuestionView(question, actor.IsTeacher()), "")
}

func (h *Handler) updateQuestion(w http.ResponseWriter, r *http.Request) {
	quizID, questionID, err := questionPath(r)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	var req questionPatchRequest
	if err := decode(r, h.validate, &req); err != nil {
		fail(w, r, h.log, err)
		return
	}
	question, err := h.quizzes.UpdateQuestion(r.Context(), actorOf(r), quizID, questionID, req.patch())
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	ok(w, http.StatusOK, newQuestionView(question, true), "Question updated")
}

func (h *Handler) deleteQuestion(w http.ResponseWriter, r *http.Request) {
	quizID, questionID, err := questionPath(r)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	if err := h.quizzes.DeleteQuestion(r.Context(), actorOf(r), quizID, questionID); err != nil {
		fail(w, r, h.log, err)
		return
	}
	ok(w, http.StatusOK, nil, "Question deleted")
}

func questionPath(r *http.Request) (int64, int64, error) {
	quizID, err := pathID(r, "qcmID", domain.ErrQuizNotFound)
	if err != nil {
		return 0, 0, err
	}
	questionID, err := pathID(r, "questionID", domain.ErrQuestionNotFound)
	if err != nil {
		return 0, 0, err
	}
	return quizID, questionID, nil
}

func (h *Handler) submitResponses(w http.ResponseWriter, r *http.Request) {
	quizID, err := pathID(r, "qcmID", domain.ErrQuizNotFound)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	var req submitRequest
	if err := decode(r, h.validate, &req); err != nil {
		fail(w, r, h.log, err)
		return
	}
	result, err := h.submissions.SubmitQuizResponses(r.Context(), actorOf(r), quizID, req.submission())
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	ok(w, http.StatusCreated, newResultView(result), "Responses submitted")
}

func (h *Handler) myResponses(w http.ResponseWriter, r *http.Request) {
	quizID, err := pathID(r, "qcmID", domain.ErrQuizNotFound)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	responses, err := h.submissions.StudentResponses(r.Context(), actorOf(r), quizID)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	ok(w, http.StatusOK, responses, "")
}

func (h *Handler) statistics(w http.ResponseWriter, r *http.Request) {
	quizID, err := pathID(r, "qcmID", domain.ErrQuizNotFound)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	stats, err := h.results.Statistics(r.Context(), actorOf(r), quizID)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	ok(w, http.StatusOK, stats, "")
}

func (h *Handler) exportResults(w http.ResponseWriter, r *http.Request) {
	quizID, err := pathID(r, "qcmID", domain.ErrQuizNotFound)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	rows, err := h.results.ExportResults(r.Context(), actorOf(r), quizID)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="qcm_%d_results.csv"`, quizID))
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(rows); err != nil {
		h.log.WithError(err).WithField("quiz_id", quizID).Warn("write csv export")
	}
}

func (h *Handler) listResults(w http.ResponseWriter, r *http.Request) {
	results, err := h.results.ListResults(r.Context(), actorOf(r))
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	views := make([]resultView, 0, len(results))
	for _, res := range results {
		views = append(views, newResultView(res))
	}
	ok(w, http.StatusOK, views, "")
}

func (h *Handler) getResult(w http.ResponseWriter, r *http.Request) {
	resultID, err := pathID(r, "resultID", domain.ErrResultNotFound)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	result, err := h.results.GetResult(r.Context(), actorOf(r), resultID)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	ok(w, http.StatusOK, newResultView(result), "")
}

func (h *Handler) resultDetails(w http.ResponseWriter, r *http.Request) {
	resultID, err := pathID(r, "resultID", domain.ErrResultNotFound)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	result, details, err := h.results.ResultDetail(r.Context(), actorOf(r), resultID)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	ok(w, http.StatusOK, resultDetailView{Result: newResultView(result), Details: details}, "")
}
