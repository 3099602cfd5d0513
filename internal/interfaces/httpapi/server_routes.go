package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler, metricsHandler http.Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
	mux.HandleFunc("GET /openapi.yaml", handler.OpenAPI)
	mux.HandleFunc("GET /docs", handler.SwaggerUI)
	if metricsHandler == nil {
		return
	}

	mux.Handle("GET /metrics", metricsHandler)
}

func registerPublicRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /leagues", handler.ListLeagues)
	mux.HandleFunc("GET /matches/{date}", handler.GetMatchday)
	// An empty date is answered as an invalid one, not as an unknown route.
	mux.HandleFunc("GET /matches/{$}", handler.GetMatchday)
}
