package domain

import "errors"

// Kind classifies failures into a stable, caller-visible taxonomy.
type Kind string

const (
	KindValidation  Kind = "validation_error"
	KindPermission  Kind = "permission_denied"
	KindNotFound    Kind = "not_found"
	KindConflict    Kind = "conflict"
	KindUnavailable Kind = "unavailable"
	KindTransaction Kind = "transaction_failure"
)

// Error is a domain failure with a human-readable message.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

var (
	// ErrQuizNotFound indicates the quiz does not exist.
	ErrQuizNotFound = &Error{Kind: KindNotFound, Message: "quiz not found"}
	// ErrQuestionNotFound indicates the question does not exist in the quiz.
	ErrQuestionNotFound = &Error{Kind: KindNotFound, Message: "question not found"}
	// ErrResultNotFound indicates the result does not exist.
	ErrResultNotFound = &Error{Kind: KindNotFound, Message: "result not found"}
	// ErrResponsesNotFound is returned when a student has no stored responses for a quiz.
	ErrResponsesNotFound = &Error{Kind: KindNotFound, Message: "no responses found for this quiz"}

	// ErrAlreadySubmitted is returned when a result already exists for (student, quiz).
	ErrAlreadySubmitted = &Error{Kind: KindConflict, Message: "responses already submitted for this quiz"}
	// ErrDuplicateResponse is returned when a question is answered twice in one attempt.
	ErrDuplicateResponse = &Error{Kind: KindConflict, Message: "question answered more than once"}

	// ErrQuizUnavailable is returned when the quiz is unpublished or outside its window.
	ErrQuizUnavailable = &Error{Kind: KindUnavailable, Message: "quiz is not available"}

	// ErrInvalidReference is returned when a response names an unknown question or
	// an answer that does not belong to the declared question.
	ErrInvalidReference = &Error{Kind: KindValidation, Message: "response references an unknown question or answer"}

	// ErrPermissionDenied is returned on role or ownership mismatch.
	ErrPermissionDenied = &Error{Kind: KindPermission, Message: "permission denied"}

	// ErrTransactionFailed is returned when the atomic submission write was rolled back.
	ErrTransactionFailed = &Error{Kind: KindTransaction, Message: "could not record submission"}
)

// Validation builds a caller-fixable input error.
func Validation(msg string) error {
	return &Error{Kind: KindValidation, Message: msg}
}

// KindOf returns the kind of the first domain error in err's chain, or "".
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}
