package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"qcm-service/internal/domain"
)

// SubmissionService scores and records a student's single attempt at a quiz.
type SubmissionService struct {
	quizzes   QuizRepository
	questions QuizStore
	results   ResultStore
	observers []SubmissionObserver
	log       logrus.FieldLogger
	clock     func() time.Time
}

func NewSubmissionService(quizzes QuizRepository, questions QuizStore, results ResultStore, log logrus.FieldLogger, observers ...SubmissionObserver) *SubmissionService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &SubmissionService{
		quizzes:   quizzes,
		questions: questions,
		results:   results,
		observers: observers,
		log:       log,
		clock:     time.Now,
	}
}

// WithClock overrides the time source; tests use it for deterministic timestamps.
func (s *SubmissionService) WithClock(now func() time.Time) *SubmissionService {
	s.clock = now
	return s
}

// SubmitQuizResponses scores the submission and stores every response plus
// the result atomically. Domain rules are checked before the write starts.
func (s *SubmissionService) SubmitQuizResponses(ctx context.Context, actor domain.Actor, quizID int64, sub domain.Submission) (domain.Result, error) {
	if !actor.IsStudent() {
		return domain.Result{}, domain.ErrPermissionDenied
	}
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Result{}, err
	}
	now := s.clock()
	if !quiz.IsAvailable(now) {
		return domain.Result{}, domain.ErrQuizUnavailable
	}

	exists, err := s.results.ResultExists(ctx, actor.ID, quizID)
	if err != nil {
		return domain.Result{}, err
	}
	if exists {
		return domain.Result{}, domain.ErrAlreadySubmitted
	}

	if err := validateSubmission(sub); err != nil {
		return domain.Result{}, err
	}
	if err := s.checkForeignQuestions(ctx, quiz, sub); err != nil {
		return domain.Result{}, err
	}

	scored, err := scoreSubmission(quiz, actor.ID, sub, now)
	if err != nil {
		return domain.Result{}, err
	}

	// The result row goes first so a concurrent second attempt trips the
	// (student, quiz) constraint before any per-question one.
	result := scored.result
	err = s.results.WithinTx(ctx, func(ctx context.Context, tx SubmissionTx) error {
		if err := tx.InsertResult(ctx, &result); err != nil {
			return err
		}
		for i := range scored.responses {
			if err := tx.InsertResponse(ctx, &scored.responses[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		// Repeated questions were rejected before the write, so a duplicate
		// response here means another attempt was stored meanwhile.
		if errors.Is(err, domain.ErrAlreadySubmitted) || errors.Is(err, domain.ErrDuplicateResponse) {
			return domain.Result{}, domain.ErrAlreadySubmitted
		}
		s.log.WithError(err).WithFields(logrus.Fields{
			"student_id": actor.ID,
			"quiz_id":    quizID,
		}).Error("submission rolled back")
		return domain.Result{}, fmt.Errorf("%w: %v", domain.ErrTransactionFailed, err)
	}

	s.log.WithFields(logrus.Fields{
		"student_id": actor.ID,
		"quiz_id":    quizID,
		"result_id":  result.ID,
		"percentage": result.Percentage,
	}).Info("submission recorded")

	for _, o := range s.observers {
		o.SubmissionRecorded(ctx, result)
	}
	return result, nil
}

// StudentResponses lists the acting student's stored responses for a quiz.
func (s *SubmissionService) StudentResponses(ctx context.Context, actor domain.Actor, quizID int64) ([]domain.StudentResponse, error) {
	if !actor.IsStudent() {
		return nil, domain.ErrPermissionDenied
	}
	responses, err := s.results.ListResponses(ctx, actor.ID, quizID)
	if err != nil {
		return nil, err
	}
	if len(responses) == 0 {
		return nil, domain.ErrResponsesNotFound
	}
	return responses, nil
}

// checkForeignQuestions rejects question ids the store does not know at all.
// Ids belonging to another quiz are left for the scorer to skip.
func (s *SubmissionService) checkForeignQuestions(ctx context.Context, quiz domain.Quiz, sub domain.Submission) error {
	for _, item := range sub.Items {
		if _, ok := quiz.Question(item.QuestionID); ok {
			continue
		}
		exists, err := s.questions.QuestionExists(ctx, item.QuestionID)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: question %d", domain.ErrInvalidReference, item.QuestionID)
		}
	}
	return nil
}

func validateSubmission(sub domain.Submission) error {
	if sub.StartedAt.IsZero() {
		return domain.Validation("started_at is required")
	}
	if len(sub.Items) == 0 {
		return domain.Validation("responses are required")
	}
	for _, item := range sub.Items {
		if item.QuestionID <= 0 {
			return domain.Validation("every response needs a question_id")
		}
	}
	return nil
}
