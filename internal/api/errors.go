package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"ideaforge/internal/ideas"
	"ideaforge/internal/llm"
	"ideaforge/internal/scheduler"
	"ideaforge/internal/store"
	"ideaforge/internal/validate"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields,omitempty"`
}

// statusFor maps domain errors to HTTP status codes and client-facing messages.
func statusFor(err error) (int, string) {
	var (
		verr *validate.Error
		herr *echo.HTTPError
		gerr *llm.GatewayError
		terr *llm.TransportError
	)
	switch {
	case errors.As(err, &herr):
		if msg, ok := herr.Message.(string); ok {
			return herr.Code, msg
		}
		return herr.Code, http.StatusText(herr.Code)
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Error()
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, ideas.ErrInsufficientData):
		return http.StatusBadRequest, ideas.ErrInsufficientData.Error()
	case errors.Is(err, scheduler.ErrJobRunning):
		return http.StatusConflict, err.Error()
	case llm.IsRateLimited(err):
		return http.StatusTooManyRequests, "AI gateway is rate limiting requests, try again later"
	case errors.As(err, &gerr), errors.As(err, &terr), errors.Is(err, llm.ErrEmptyResponse):
		return http.StatusBadGateway, err.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// errorHandler writes {"detail": ...} for every error a handler returns.
func errorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status, msg := statusFor(err)
		body := errorBody{Detail: msg}
		var verr *validate.Error
		if errors.As(err, &verr) {
			body.Fields = verr.Fields
		}
		if status >= http.StatusInternalServerError {
			logger.Error("request error", "method", c.Request().Method, "path", c.Path(), "status", status, "error", err)
		}
		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, body)
		}
		if werr != nil {
			logger.Error("write error response", "error", werr)
		}
	}
}
