package repository

import (
	"context"
	"database/sql"

	"climate-api/internal/models"
	"climate-api/pkg/database"
	"climate-api/pkg/logging"
	"climate-api/pkg/metrics"
)

// ObservationStore provides read-only access to the measurement and station
// relations. Implementations must be safe for concurrent use.
type ObservationStore interface {
	// MaxDate returns the latest measurement date, or *models.EmptyDatasetError
	MaxDate(ctx context.Context) (string, error)

	// PrecipitationSince returns non-null precipitation rows with date >= since
	PrecipitationSince(ctx context.Context, since string) ([]models.PrecipitationReading, error)

	// TemperatureSince returns non-null temperature rows with date >= since
	TemperatureSince(ctx context.Context, since string) ([]models.TemperatureReading, error)

	// DistinctStationIDs returns every station with at least one measurement
	DistinctStationIDs(ctx context.Context) ([]string, error)

	// TemperatureInRange returns non-null temperature rows with
	// start <= date <= end. A nil end leaves the range open.
	TemperatureInRange(ctx context.Context, start string, end *string) ([]models.TemperatureReading, error)

	// ListStations returns the station reference rows ordered by station ID
	ListStations(ctx context.Context) ([]*models.Station, error)

	HealthCheck(ctx context.Context) error
}

const measurementRelation = "measurement"

// observationRepository implements ObservationStore over SQLite or PostgreSQL.
// Queries use '?' placeholders rebound for the active driver, and dates are
// cast to text so both backends return YYYY-MM-DD.
type observationRepository struct {
	db      *database.DB
	logger  *logging.ContextLogger
	metrics *metrics.Collector
}

// NewObservationRepository creates a new SQL-backed observation store
func NewObservationRepository(db *database.DB, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) ObservationStore {
	return &observationRepository{
		db:      db,
		logger:  logger.WithFields(logging.Fields{"component": "observation_repository"}),
		metrics: metricsCollector,
	}
}

// MaxDate returns the latest date in the measurement relation
func (r *observationRepository) MaxDate(ctx context.Context) (string, error) {
	query := `SELECT CAST(MAX(date) AS TEXT) FROM measurement`

	var maxDate sql.NullString
	if err := r.db.GetContext(ctx, "max_date", &maxDate, r.db.Rebind(query)); err != nil {
		return "", r.fail(ctx, "max_date", err)
	}

	if !maxDate.Valid {
		return "", &models.EmptyDatasetError{Relation: measurementRelation}
	}

	r.logger.Debug(ctx, "[REPO_MAX_DATE] Latest measurement date resolved", logging.Fields{
		"max_date": maxDate.String,
	})

	return maxDate.String, nil
}

// PrecipitationSince retrieves precipitation readings on or after since
func (r *observationRepository) PrecipitationSince(ctx context.Context, since string) ([]models.PrecipitationReading, error) {
	query := `
		SELECT station, CAST(date AS TEXT) AS date, prcp
		FROM measurement
		WHERE date >= ?
		  AND prcp IS NOT NULL
	`

	readings := []models.PrecipitationReading{}
	if err := r.db.SelectContext(ctx, "precipitation_since", &readings, r.db.Rebind(query), since); err != nil {
		return nil, r.fail(ctx, "precipitation_since", err)
	}

	return readings, nil
}

// TemperatureSince retrieves temperature observations on or after since
func (r *observationRepository) TemperatureSince(ctx context.Context, since string) ([]models.TemperatureReading, error) {
	query := `
		SELECT station, CAST(date AS TEXT) AS date, tobs
		FROM measurement
		WHERE date >= ?
		  AND tobs IS NOT NULL
	`

	readings := []models.TemperatureReading{}
	if err := r.db.SelectContext(ctx, "temperature_since", &readings, r.db.Rebind(query), since); err != nil {
		return nil, r.fail(ctx, "temperature_since", err)
	}

	return readings, nil
}

// DistinctStationIDs lists the stations that appear in measurement
func (r *observationRepository) DistinctStationIDs(ctx context.Context) ([]string, error) {
	query := `
		SELECT station
		FROM measurement
		GROUP BY station
		ORDER BY station
	`

	stationIDs := []string{}
	if err := r.db.SelectContext(ctx, "distinct_stations", &stationIDs, r.db.Rebind(query)); err != nil {
		return nil, r.fail(ctx, "distinct_stations", err)
	}

	return stationIDs, nil
}

// TemperatureInRange retrieves temperature observations in an inclusive range
func (r *observationRepository) TemperatureInRange(ctx context.Context, start string, end *string) ([]models.TemperatureReading, error) {
	query := `
		SELECT station, CAST(date AS TEXT) AS date, tobs
		FROM measurement
		WHERE date >= ?
		  AND tobs IS NOT NULL
	`
	args := []interface{}{start}

	if end != nil {
		query += " AND date <= ?"
		args = append(args, *end)
	}

	readings := []models.TemperatureReading{}
	if err := r.db.SelectContext(ctx, "temperature_in_range", &readings, r.db.Rebind(query), args...); err != nil {
		return nil, r.fail(ctx, "temperature_in_range", err)
	}

	return readings, nil
}

// ListStations retrieves the station reference table
func (r *observationRepository) ListStations(ctx context.Context) ([]*models.Station, error) {
	query := `
		SELECT station, name, latitude, longitude, elevation
		FROM station
		ORDER BY station
	`

	stations := []*models.Station{}
	if err := r.db.SelectContext(ctx, "list_stations", &stations, r.db.Rebind(query)); err != nil {
		return nil, r.fail(ctx, "list_stations", err)
	}

	return stations, nil
}

// HealthCheck performs a repository health check
func (r *observationRepository) HealthCheck(ctx context.Context) error {
	if err := r.db.HealthCheck(ctx); err != nil {
		return r.fail(ctx, "health_check", err)
	}
	return nil
}

// fail logs a failed read and wraps it as a StoreUnavailableError
func (r *observationRepository) fail(ctx context.Context, op string, err error) error {
	r.logger.Warn(ctx, "[REPO_READ_FAILED] Observation store read failed", logging.Fields{
		"op":    op,
		"error": err.Error(),
	})
	return unavailable(op, err)
}

func unavailable(op string, err error) error {
	return &models.StoreUnavailableError{Op: op, Err: err}
}
