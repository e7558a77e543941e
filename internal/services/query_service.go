package services

import (
	"context"
	"fmt"

	"climate-api/internal/models"
	"climate-api/internal/repository"
	"climate-api/pkg/logging"
	"climate-api/pkg/metrics"
)

// Operation identifies one of the report queries served by QueryService
type Operation int

const (
	OpPrecipitation Operation = iota
	OpStations
	OpTemperatureReport
	OpTemperatureStats
)

// String returns the metric/log label of the operation
func (o Operation) String() string {
	switch o {
	case OpPrecipitation:
		return "precipitation"
	case OpStations:
		return "stations"
	case OpTemperatureReport:
		return "temperature_report"
	case OpTemperatureStats:
		return "temperature_stats"
	default:
		return "unknown"
	}
}

// Query is a typed report request. Start and End only apply to
// OpTemperatureStats; dates are raw caller input validated by Execute.
type Query struct {
	Op    Operation
	Start string
	End   *string
}

// PrecipitationQuery requests the last year precipitation report
func PrecipitationQuery() Query { return Query{Op: OpPrecipitation} }

// StationsQuery requests the distinct station list
func StationsQuery() Query { return Query{Op: OpStations} }

// TemperatureReportQuery requests the last year temperature observations
func TemperatureReportQuery() Query { return Query{Op: OpTemperatureReport} }

// TemperatureStatsQuery requests per-date temperature statistics from start,
// through end when it is non-nil
func TemperatureStatsQuery(start string, end *string) Query {
	return Query{Op: OpTemperatureStats, Start: start, End: end}
}

// Result holds the payload of the executed operation; only the field
// matching Op is set
type Result struct {
	Op            Operation
	Precipitation map[string]float64
	Stations      []string
	Temperatures  []models.TemperatureReading
	Stats         []models.AggregateRow
}

// Value returns the payload of the executed operation
func (r Result) Value() interface{} {
	switch r.Op {
	case OpPrecipitation:
		return r.Precipitation
	case OpStations:
		return r.Stations
	case OpTemperatureReport:
		return r.Temperatures
	case OpTemperatureStats:
		return r.Stats
	default:
		return nil
	}
}

// QueryService is the entry point used by the request layer. It validates
// caller parameters and dispatches to the aggregation engine.
type QueryService struct {
	repo    repository.ObservationStore
	engine  *AggregationEngine
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewQueryService creates a query service over the given store handle
func NewQueryService(repo repository.ObservationStore, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *QueryService {
	window := NewWindowResolver(repo, logger, metricsCollector)

	return &QueryService{
		repo:    repo,
		engine:  NewAggregationEngine(repo, window, logger, metricsCollector),
		logger:  logger,
		metrics: metricsCollector,
	}
}

// Execute validates and runs q
func (s *QueryService) Execute(ctx context.Context, q Query) (Result, error) {
	timer := s.metrics.NewTimer(s.metrics.QueryDuration.WithLabelValues(q.Op.String()))

	result, err := s.execute(ctx, q)

	duration := timer.ObserveDuration()
	s.metrics.RecordQuery(q.Op.String(), err)

	if err != nil {
		s.logger.Warn(ctx, "[QUERY_FAILED] Report query failed", logging.Fields{
			"operation": q.Op.String(),
			"error":     err.Error(),
		})
		return Result{}, err
	}

	s.logger.Debug(ctx, "[QUERY_COMPLETE] Report query completed", logging.Fields{
		"operation":   q.Op.String(),
		"duration_ms": duration.Milliseconds(),
	})

	return result, nil
}

func (s *QueryService) execute(ctx context.Context, q Query) (Result, error) {
	result := Result{Op: q.Op}
	var err error

	switch q.Op {
	case OpPrecipitation:
		result.Precipitation, err = s.engine.PrecipitationReport(ctx)
	case OpStations:
		result.Stations, err = s.engine.StationList(ctx)
	case OpTemperatureReport:
		result.Temperatures, err = s.engine.TemperatureReport(ctx)
	case OpTemperatureStats:
		if err = validateRange(q.Start, q.End); err != nil {
			return Result{}, err
		}
		result.Stats, err = s.engine.TemperatureStats(ctx, q.Start, q.End)
	default:
		return Result{}, fmt.Errorf("unknown operation %d", int(q.Op))
	}

	if err != nil {
		return Result{}, err
	}
	return result, nil
}

// Precipitation returns the last year date -> precipitation report
func (s *QueryService) Precipitation(ctx context.Context) (map[string]float64, error) {
	result, err := s.Execute(ctx, PrecipitationQuery())
	if err != nil {
		return nil, err
	}
	return result.Precipitation, nil
}

// Stations returns the distinct station IDs
func (s *QueryService) Stations(ctx context.Context) ([]string, error) {
	result, err := s.Execute(ctx, StationsQuery())
	if err != nil {
		return nil, err
	}
	return result.Stations, nil
}

// TemperatureObservations returns the last year temperature observations
func (s *QueryService) TemperatureObservations(ctx context.Context) ([]models.TemperatureReading, error) {
	result, err := s.Execute(ctx, TemperatureReportQuery())
	if err != nil {
		return nil, err
	}
	return result.Temperatures, nil
}

// TemperatureStats returns per-date min/avg/max temperatures
func (s *QueryService) TemperatureStats(ctx context.Context, start string, end *string) ([]models.AggregateRow, error) {
	result, err := s.Execute(ctx, TemperatureStatsQuery(start, end))
	if err != nil {
		return nil, err
	}
	return result.Stats, nil
}

// StationCatalog returns the station reference rows
func (s *QueryService) StationCatalog(ctx context.Context) ([]*models.Station, error) {
	return s.repo.ListStations(ctx)
}

// Health reports whether the observation store is reachable
func (s *QueryService) Health(ctx context.Context) error {
	return s.repo.HealthCheck(ctx)
}

// validateRange checks that start is present and both dates are YYYY-MM-DD.
// start <= end is not required.
func validateRange(start string, end *string) error {
	if start == "" {
		return &models.InvalidDateError{Field: "start"}
	}
	if _, err := models.ParseDate("start", start); err != nil {
		return err
	}
	if end != nil {
		if _, err := models.ParseDate("end", *end); err != nil {
			return err
		}
	}
	return nil
}
