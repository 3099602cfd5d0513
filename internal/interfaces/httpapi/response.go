package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/riskibarqy/best-odds/internal/usecase"
)

const contentTypeJSON = "application/json; charset=utf-8"

type errorBody struct {
	Error string `json:"error"`
}

type mappedError struct {
	HTTPStatus int
	Message    string
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	ctx, span := startSpan(ctx, "httpapi.writeJSON")
	defer span.End()

	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = sonic.ConfigDefault.NewEncoder(w).Encode(payload)
}

// writeRaw sends an already encoded JSON body unchanged.
func writeRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeSuccess(ctx context.Context, w http.ResponseWriter, status int, data any) {
	ctx, span := startSpan(ctx, "httpapi.writeSuccess")
	defer span.End()

	writeJSON(ctx, w, status, data)
}

func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	ctx, span := startSpan(ctx, "httpapi.writeError")
	defer span.End()

	mapped := mapError(ctx, err)
	recordSpanError(ctx, mapped.HTTPStatus, mapped.Message)
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(ctx, w, mapped.HTTPStatus, errorBody{Error: mapped.Message})
}

func writeInternalError(ctx context.Context, w http.ResponseWriter) {
	ctx, span := startSpan(ctx, "httpapi.writeInternalError")
	defer span.End()

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(ctx, w, http.StatusInternalServerError, errorBody{Error: "internal server error"})
}

func mapError(ctx context.Context, err error) mappedError {
	_, span := startSpan(ctx, "httpapi.mapError")
	defer span.End()

	switch {
	case errors.Is(err, usecase.ErrInvalidInput):
		return mappedError{HTTPStatus: http.StatusBadRequest, Message: "invalid date"}
	case errors.Is(err, usecase.ErrMissingCredential):
		return mappedError{HTTPStatus: http.StatusInternalServerError, Message: usecase.ErrMissingCredential.Error()}
	case errors.Is(err, usecase.ErrDependencyUnavailable):
		return mappedError{HTTPStatus: http.StatusServiceUnavailable, Message: "odds provider unavailable"}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return mappedError{HTTPStatus: http.StatusServiceUnavailable, Message: "request cancelled"}
	default:
		return mappedError{HTTPStatus: http.StatusInternalServerError, Message: "internal server error"}
	}
}

func sharedCacheControl(ttl time.Duration) string {
	return "public, max-age=0, s-maxage=" + strconv.FormatInt(int64(ttl/time.Second), 10)
}
