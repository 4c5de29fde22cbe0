package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Devprenuer/ai-tutor/internal/answers"
	"github.com/Devprenuer/ai-tutor/internal/grader"
	"github.com/Devprenuer/ai-tutor/internal/lessons"
	"github.com/Devprenuer/ai-tutor/internal/llm"
	"github.com/Devprenuer/ai-tutor/internal/prompt"
	"github.com/Devprenuer/ai-tutor/internal/questions"
	"github.com/Devprenuer/ai-tutor/internal/selector"
	"github.com/Devprenuer/ai-tutor/internal/store"
)

// statusFor maps a service error to an HTTP status and error code.
func statusFor(err error) (int, string) {
	var (
		malformed   *prompt.MalformedResponseError
		missing     *prompt.MissingParameterError
		invalid     *prompt.InvalidParameterError
		rateLimited *llm.ErrRateLimit
		unavailable *llm.ErrProviderUnavailable
		truncated   *llm.ErrMaxTokensExceeded
	)

	switch {
	case errors.Is(err, selector.ErrInvalidPage),
		errors.Is(err, lessons.ErrInvalidDirection),
		errors.Is(err, lessons.ErrInvalidSortDirection),
		errors.Is(err, lessons.ErrInvalidQuestionIDs),
		errors.Is(err, lessons.ErrInvalidSearch),
		errors.Is(err, lessons.ErrInvalidRequest),
		errors.Is(err, questions.ErrInvalidRequest),
		errors.Is(err, answers.ErrEmptyAnswer):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, answers.ErrPriorViewRequired):
		return http.StatusForbidden, "prior_view_required"
	case errors.Is(err, grader.ErrUnsupported):
		return http.StatusForbidden, "unsupported"
	case errors.As(err, &malformed), errors.As(err, &truncated):
		return http.StatusBadGateway, "malformed_model_response"
	case errors.As(err, &rateLimited):
		return http.StatusServiceUnavailable, "model_rate_limited"
	case errors.As(err, &unavailable):
		return http.StatusServiceUnavailable, "model_unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	case errors.As(err, &missing), errors.As(err, &invalid), errors.Is(err, llm.ErrEmptyPrompt):
		return http.StatusInternalServerError, "prompt_error"
	}
	return http.StatusInternalServerError, "internal"
}

func errorBody(status int, code, message string) gin.H {
	return gin.H{"error": gin.H{"message": message, "code": code, "status": status}}
}

// fail writes err as a JSON error response. Server errors are logged and
// their details withheld from the client.
func (s *Server) fail(c *gin.Context, err error) {
	status, code := statusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed",
			zap.String("request_id", requestID(c)),
			zap.String("path", c.FullPath()),
			zap.Int("status", status),
			zap.Error(err),
		)
		if status == http.StatusInternalServerError {
			msg = http.StatusText(status)
		}
	}
	c.AbortWithStatusJSON(status, errorBody(status, code, msg))
}

func (s *Server) badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorBody(http.StatusBadRequest, "invalid_request", err.Error()))
}
