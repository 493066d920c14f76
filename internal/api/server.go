// File path: internal/api/server.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"expvar"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	chi "github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/eslamabdelmogood/v0-loan-json-ai-dashboard/internal/common"
	"github.com/eslamabdelmogood/v0-loan-json-ai-dashboard/internal/config"
	"github.com/eslamabdelmogood/v0-loan-json-ai-dashboard/internal/insight"
	"github.com/eslamabdelmogood/v0-loan-json-ai-dashboard/internal/normalize"
	"github.com/eslamabdelmogood/v0-loan-json-ai-dashboard/internal/speech"
	"github.com/eslamabdelmogood/v0-loan-json-ai-dashboard/internal/sqlite"
)

// Catalog is the persistence the API needs for uploaded loans.
type Catalog interface {
	SaveLoan(ctx context.Context, upload sqlite.Upload) (*sqlite.LoanRow, error)
	GetLoan(ctx context.Context, loanID string) (*sqlite.LoanRow, error)
	ListLoans(ctx context.Context, opts sqlite.ListOptions) ([]sqlite.LoanRow, error)
	RecordAudit(ctx context.Context, loanID, action, detail string) error
	AuditTrail(ctx context.Context, loanID string) ([]sqlite.AuditRow, error)
}

// Deps wires the pipeline components into the HTTP server. Speech and
// Catalog are optional.
type Deps struct {
	Normalizer *normalize.Normalizer
	Insights   *insight.Orchestrator
	Speech     speech.Synthesizer
	Catalog    Catalog
	Server     config.ServerConfig
}

type Server struct {
	router     chi.Router
	normalizer *normalize.Normalizer
	insights   *insight.Orchestrator
	speech     speech.Synthesizer
	catalog    Catalog
	validate   *validator.Validate
	cfg        config.ServerConfig
}

func NewServer(deps Deps) (*Server, error) {
	logger := common.Logger()
	if deps.Normalizer == nil {
		return nil, fmt.Errorf("normalizer required")
	}
	if deps.Insights == nil {
		return nil, fmt.Errorf("insight orchestrator required")
	}
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	srv := &Server{
		router:     chi.NewRouter(),
		normalizer: deps.Normalizer,
		insights:   deps.Insights,
		speech:     deps.Speech,
		catalog:    deps.Catalog,
		validate:   validate,
		cfg:        deps.Server,
	}
	srv.routes()
	logger.Info("api: server ready",
		"speech_available", deps.Speech != nil,
		"catalog_available", deps.Catalog != nil)
	return srv, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	common.Logger().Info("api: configuring routes")
	s.router.Use(middleware.Recoverer)
	s.router.Use(requestID)
	s.router.Use(requestLogger)
	if s.cfg.MaxBodyBytes > 0 {
		s.router.Use(middleware.RequestSize(s.cfg.MaxBodyBytes))
	}

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	s.router.Method(http.MethodGet, "/debug/vars", expvar.Handler())

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/convert-loan", s.handleConvertLoan)
		r.Post("/generate-insight", s.handleGenerateInsight)
		r.Post("/voice-summary", s.handleVoiceSummary)
		r.Post("/tts", s.handleTTS)
	})

	s.router.Route("/v1", func(r chi.Router) {
		r.Get("/loans", s.handleListLoans)
		r.Get("/loans/{loanID}", s.handleGetLoan)
		r.Get("/loans/{loanID}/overview", s.handleLoanOverview)
		r.Get("/loans/{loanID}/download", s.handleLoanDownload)
		r.Get("/logs", s.handleLogs)
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	logFailure(r, status, err)
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// writeFailure answers with a stable public message while logging the cause.
func writeFailure(w http.ResponseWriter, r *http.Request, status int, cause error, payload interface{}) {
	logFailure(r, status, cause)
	writeJSON(w, status, payload)
}

func logFailure(r *http.Request, status int, err error) {
	logger := loggerFor(r)
	if status >= http.StatusInternalServerError {
		logger.Error("api: request failed", "status", status, "error", err)
	} else {
		logger.Warn("api: request failed", "status", status, "error", err)
	}
}

// decodeJSON reads a single JSON body into dst and runs struct validation.
func (s *Server) decodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("%w: %v", errBodyTooLarge, err)
		}
		return fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	return nil
}

func (s *Server) validateStruct(dst interface{}) error {
	if err := s.validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %s", errInvalidBody, describeValidation(err))
	}
	return nil
}

var (
	errInvalidBody  = errors.New("invalid request body")
	errBodyTooLarge = errors.New("request body too large")
)

func decodeStatus(err error) int {
	if errors.Is(err, errBodyTooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "max":
		return fmt.Sprintf("%s exceeds %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
	}
}
