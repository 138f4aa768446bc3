package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"qcm-service/internal/domain"
)

type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

type errorBody struct {
	Success bool              `json:"success"`
	Kind    string            `json:"kind"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func ok(w http.ResponseWriter, status int, data interface{}, msg string) {
	writeJSON(w, status, envelope{Success: true, Data: data, Message: msg})
}

// statusFor maps error kinds onto HTTP statuses.
func statusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusUnprocessableEntity
	case domain.KindPermission, domain.KindUnavailable:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// fail writes the error envelope. Causes behind transaction and unknown
// failures are logged, never returned.
func fail(w http.ResponseWriter, r *http.Request, log logrus.FieldLogger, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{
			Kind:    string(domain.KindValidation),
			Message: "request validation failed",
			Fields:  fields,
		})
		return
	}

	// Only the domain error's own message goes out, never what wraps it.
	kind := domain.KindOf(err)
	status := statusFor(kind)
	body := errorBody{Kind: "internal_error", Message: "internal server error"}
	var de *domain.Error
	if errors.As(err, &de) {
		body.Kind, body.Message = string(de.Kind), de.Message
	}
	if status >= http.StatusInternalServerError {
		log.WithError(err).WithFields(logrus.Fields{
			"request_id": middleware.GetReqID(r.Context()),
			"path":       r.URL.Path,
		}).Error("request failed")
	}
	writeJSON(w, status, body)
}

// pathID parses a numeric route parameter; malformed ids resolve to notFound.
func pathID(r *http.Request, name string, notFound error) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, notFound
	}
	return id, nil
}
