package httpapi

import (
	"net/http"

	"github.com/riskibarqy/best-odds/internal/platform/id"
	"github.com/riskibarqy/best-odds/internal/platform/logging"
)

// NewRouter wires routes and the middleware chain. metricsHandler may be
// nil to leave /metrics unregistered.
func NewRouter(
	handler *Handler,
	logger *logging.Logger,
	corsAllowedOrigins []string,
	ids id.Generator,
	metricsHandler http.Handler,
) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}
	if ids == nil {
		ids = id.NewUUIDGenerator()
	}

	mux := http.NewServeMux()
	registerSystemRoutes(mux, handler, metricsHandler)
	registerPublicRoutes(mux, handler)

	return RequestTracing(RequestID(ids, RequestLogging(logger, CORS(corsAllowedOrigins, recoverPanic(logger, mux)))))
}

func recoverPanic(logger *logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := startSpan(r.Context(), "httpapi.recoverPanic")
		defer span.End()

		defer func() {
			if rec := recover(); rec != nil {
				logger.ErrorContext(ctx, "panic recovered", "panic", rec)
				writeInternalError(ctx, w)
			}
		}()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
