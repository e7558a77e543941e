package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"climate-api/internal/models"
	"climate-api/internal/services"
	"climate-api/pkg/logging"
	"climate-api/pkg/metrics"
)

// Route templates, also used as the endpoint metric label
const (
	routeIndex         = "/"
	routePrecipitation = "/api/v1.0/precipitation"
	routeStations      = "/api/v1.0/stations"
	routeCatalog       = "/api/v1.0/stations/catalog"
	routeTobs          = "/api/v1.0/tobs"
	routeStart         = "/api/v1.0/{start}"
	routeStartEnd      = "/api/v1.0/{start}/{end}"
	routeHealth        = "/health"
	routeDocs          = "/api/docs"
	routeOpenAPI       = "/api/docs/openapi.json"
)

// ClimateHandler handles climate API endpoints
type ClimateHandler struct {
	queries *services.QueryService
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewClimateHandler creates a new climate handler
func NewClimateHandler(
	queries *services.QueryService,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *ClimateHandler {
	return &ClimateHandler{
		queries: queries,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// GetPrecipitation handles GET /api/v1.0/precipitation
func (h *ClimateHandler) GetPrecipitation(w http.ResponseWriter, r *http.Request) {
	h.runQuery(w, r, routePrecipitation, services.PrecipitationQuery())
}

// GetStations handles GET /api/v1.0/stations
func (h *ClimateHandler) GetStations(w http.ResponseWriter, r *http.Request) {
	h.runQuery(w, r, routeStations, services.StationsQuery())
}

// GetTemperatureObservations handles GET /api/v1.0/tobs
func (h *ClimateHandler) GetTemperatureObservations(w http.ResponseWriter, r *http.Request) {
	h.runQuery(w, r, routeTobs, services.TemperatureReportQuery())
}

// GetTemperatureStats handles GET /api/v1.0/{start} and /api/v1.0/{start}/{end}
func (h *ClimateHandler) GetTemperatureStats(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	endpoint := routeStart
	var end *string
	if v, ok := vars["end"]; ok {
		endpoint = routeStartEnd
		end = &v
	}

	h.runQuery(w, r, endpoint, services.TemperatureStatsQuery(vars["start"], end))
}

// GetStationCatalog handles GET /api/v1.0/stations/catalog
func (h *ClimateHandler) GetStationCatalog(w http.ResponseWriter, r *http.Request) {
	defer h.observe(routeCatalog, time.Now())

	stations, err := h.queries.StationCatalog(r.Context())
	if err != nil {
		h.handleError(w, r, routeCatalog, err)
		return
	}

	h.metrics.RecordAPIRequest(routeCatalog, r.Method, "200")
	h.sendJSON(w, stations, http.StatusOK)
}

// HealthCheck handles GET /health
func (h *ClimateHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	code := http.StatusOK

	if err := h.queries.Health(ctx); err != nil {
		h.logger.Warn(ctx, "[HEALTH_CHECK] Observation store unreachable", logging.Fields{
			"error": err.Error(),
		})
		status["status"] = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	h.logger.Debug(ctx, "[HEALTH_CHECK] Health check requested", logging.Fields{})
	h.sendJSON(w, status, code)
}

func (h *ClimateHandler) runQuery(w http.ResponseWriter, r *http.Request, endpoint string, q services.Query) {
	defer h.observe(endpoint, time.Now())

	result, err := h.queries.Execute(r.Context(), q)
	if err != nil {
		h.handleError(w, r, endpoint, err)
		return
	}

	h.metrics.RecordAPIRequest(endpoint, r.Method, "200")
	h.sendJSON(w, result.Value(), http.StatusOK)
}

func (h *ClimateHandler) observe(endpoint string, start time.Time) {
	h.metrics.APIRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

// handleError maps a service error onto an HTTP status
func (h *ClimateHandler) handleError(w http.ResponseWriter, r *http.Request, endpoint string, err error) {
	code, errorType := statusFor(err)

	fields := logging.Fields{
		"endpoint": endpoint,
		"status":   code,
	}
	if code >= http.StatusInternalServerError {
		h.logger.Error(r.Context(), "[API_QUERY_ERROR] Query failed", fields, err)
	} else {
		fields["error"] = err.Error()
		h.logger.Info(r.Context(), "[API_QUERY_REJECTED] Query rejected", fields)
	}

	message := err.Error()
	if code == http.StatusInternalServerError {
		message = "failed to process request"
	}

	h.metrics.RecordAPIError(errorType, endpoint)
	h.sendError(w, r, endpoint, message, code)
}

func statusFor(err error) (int, string) {
	var (
		dateErr  *models.InvalidDateError
		emptyErr *models.EmptyDatasetError
		storeErr *models.StoreUnavailableError
	)

	switch {
	case errors.As(err, &dateErr):
		return http.StatusBadRequest, "invalid_date"
	case errors.As(err, &emptyErr):
		return http.StatusNotFound, "empty_dataset"
	case errors.As(err, &storeErr):
		return http.StatusServiceUnavailable, "store_unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// sendJSON sends a JSON response
func (h *ClimateHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// sendError sends an error response
func (h *ClimateHandler) sendError(w http.ResponseWriter, r *http.Request, endpoint, message string, statusCode int) {
	h.metrics.RecordAPIRequest(endpoint, r.Method, strconv.Itoa(statusCode))

	response := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}

	h.sendJSON(w, response, statusCode)
}

// RegisterRoutes registers all climate API routes. Fixed paths are
// registered before the {start} patterns so they take precedence.
func (h *ClimateHandler) RegisterRoutes(router *mux.Router) {
	router.Use(RequestID(h.logger))

	router.HandleFunc(routeIndex, h.Index).Methods("GET")
	router.HandleFunc(routeHealth, h.HealthCheck).Methods("GET")
	router.HandleFunc(routeDocs, SwaggerUI).Methods("GET")
	router.HandleFunc(routeOpenAPI, OpenAPISpec).Methods("GET")

	router.HandleFunc(routePrecipitation, h.GetPrecipitation).Methods("GET")
	router.HandleFunc(routeStations, h.GetStations).Methods("GET")
	router.HandleFunc(routeCatalog, h.GetStationCatalog).Methods("GET")
	router.HandleFunc(routeTobs, h.GetTemperatureObservations).Methods("GET")
	router.HandleFunc(routeStart, h.GetTemperatureStats).Methods("GET")
	router.HandleFunc(routeStartEnd, h.GetTemperatureStats).Methods("GET")
}
