package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	"qcm-service/internal/auth"
)

// RouterConfig carries what NewRouter needs besides the handlers.
type RouterConfig struct {
	Auth           *auth.Service
	Log            logrus.FieldLogger
	AllowedOrigins []string
}

// NewRouter mounts the REST API and the live statistics websocket.
func NewRouter(h *Handler, ws *WSHandler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(cfg.Log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.Middleware(cfg.Auth))

		r.Route("/qcms", func(r chi.Router) {
			r.Get("/", h.listQuizzes)
			r.Post("/", h.createQuiz)

			r.Route("/{qcmID}", func(r chi.Router) {
				r.Get("/", h.getQuiz)
				r.Put("/", h.updateQuiz)
				r.Delete("/", h.deleteQuiz)

				r.Get("/questions", h.listQuestions)
				r.Post("/questions", h.createQuestion)
				r.Get("/questions/{questionID}", h.getQuestion)
				r.Put("/questions/{questionID}", h.updateQuestion)
				r.Delete("/questions/{questionID}", h.deleteQuestion)

				r.Post("/submit-responses", h.submitResponses)
				r.Get("/my-responses", h.myResponses)
				r.Get("/statistics", h.statistics)
				r.Get("/statistics/live", ws.ServeWS)
				r.Get("/export-results", h.exportResults)
			})
		})

		r.Get("/results", h.listResults)
		r.Get("/results/{resultID}", h.getResult)
		r.Get("/results/{resultID}/details", h.resultDetails)
	})
	return r
}

// requestLogger writes one line per request. The query string is left out
// since it may carry a bearer token.
func requestLogger(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.WithFields(logrus.Fields{
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     ww.Status(),
				"bytes":      ww.BytesWritten(),
				"latency":    time.Since(start).String(),
				"request_id": middleware.GetReqID(r.Context()),
			}).Info("request")
		})
	}
}
