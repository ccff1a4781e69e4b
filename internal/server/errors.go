package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/recruit-reach/internal/config"
	"github.com/jonathan/recruit-reach/internal/fetch"
	"github.com/jonathan/recruit-reach/internal/llm"
	"github.com/jonathan/recruit-reach/internal/mailer"
	"github.com/jonathan/recruit-reach/internal/pipeline"
	"github.com/jonathan/recruit-reach/internal/research"
	"github.com/jonathan/recruit-reach/internal/resume"
	"github.com/jonathan/recruit-reach/internal/search"
	"github.com/jonathan/recruit-reach/internal/session"
	"github.com/jonathan/recruit-reach/internal/validation"
)

// ErrValidation indicates a malformed request body or parameter
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		requestErr  *ErrValidation
		inputErr    *validation.InputError
		structErr   *validation.StructError
		parseDocErr *resume.ParseError
		missingErr  *config.MissingSettingError
		apiErr      *llm.APICallError
		llmParseErr *llm.ParseError
		sendErr     *mailer.SendError
		searchErr   *search.Error
		fetchErr    *fetch.Error
		strategyErr *research.StrategyError
	)

	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, pipeline.ErrSessionBusy):
		return http.StatusConflict
	case errors.Is(err, session.ErrNotFound), errors.Is(err, resume.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &requestErr), errors.As(err, &inputErr), errors.As(err, &structErr),
		errors.Is(err, resume.ErrUnsupportedFormat):
		return http.StatusBadRequest
	case errors.As(err, &parseDocErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &missingErr):
		return http.StatusPreconditionFailed
	case errors.As(err, &apiErr), errors.As(err, &llmParseErr), errors.As(err, &sendErr),
		errors.As(err, &searchErr), errors.As(err, &fetchErr), errors.As(err, &strategyErr):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// isUpstreamFailure reports whether err came from a model, search or mail provider.
func isUpstreamFailure(err error) bool {
	return HTTPStatus(err) == http.StatusBadGateway
}
