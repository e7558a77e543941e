package services

import (
	"context"
	"sort"

	"climate-api/internal/models"
	"climate-api/internal/repository"
	"climate-api/pkg/logging"
	"climate-api/pkg/metrics"
)

// AggregationEngine builds the precipitation, station and temperature
// reports from observation store reads
type AggregationEngine struct {
	repo    repository.ObservationStore
	window  *WindowResolver
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewAggregationEngine creates a new aggregation engine
func NewAggregationEngine(repo repository.ObservationStore, window *WindowResolver, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *AggregationEngine {
	return &AggregationEngine{
		repo:    repo,
		window:  window,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// PrecipitationReport maps each date of the last year window to one
// precipitation reading. See FoldPrecipitation for the collision policy.
func (e *AggregationEngine) PrecipitationReport(ctx context.Context) (map[string]float64, error) {
	window, err := e.window.LastYearWindow(ctx)
	if err != nil {
		return nil, err
	}

	readings, err := e.repo.PrecipitationSince(ctx, window.StartDate())
	if err != nil {
		return nil, err
	}

	report := FoldPrecipitation(readings)

	e.logger.Debug(ctx, "[PRCP_REPORT] Precipitation report built", logging.Fields{
		"window_start": window.StartDate(),
		"window_end":   window.EndDate(),
		"rows":         len(readings),
		"dates":        len(report),
	})

	return report, nil
}

// StationList returns the distinct stations with observations, sorted
func (e *AggregationEngine) StationList(ctx context.Context) ([]string, error) {
	ids, err := e.repo.DistinctStationIDs(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(ids))
	stations := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		stations = append(stations, id)
	}
	sort.Strings(stations)

	return stations, nil
}

// TemperatureReport returns the raw temperature observations of the last
// year window ordered by date then station
func (e *AggregationEngine) TemperatureReport(ctx context.Context) ([]models.TemperatureReading, error) {
	window, err := e.window.LastYearWindow(ctx)
	if err != nil {
		return nil, err
	}

	readings, err := e.repo.TemperatureSince(ctx, window.StartDate())
	if err != nil {
		return nil, err
	}

	sortTemperatureReadings(readings)
	return readings, nil
}

// TemperatureStats returns min/avg/max temperature per date for
// start <= date <= end, or date >= start when end is nil. Dates must
// already be validated. A reversed range yields no rows.
func (e *AggregationEngine) TemperatureStats(ctx context.Context, start string, end *string) ([]models.AggregateRow, error) {
	readings, err := e.repo.TemperatureInRange(ctx, start, end)
	if err != nil {
		return nil, err
	}

	rows := AggregateTemperatures(readings)
	e.metrics.AggregateRowsCount.Observe(float64(len(rows)))

	fields := logging.Fields{
		"start":    start,
		"readings": len(readings),
		"rows":     len(rows),
	}
	if end != nil {
		fields["end"] = *end
	}
	e.logger.Debug(ctx, "[TOBS_STATS] Temperature statistics aggregated", fields)

	return rows, nil
}

// FoldPrecipitation collapses readings into one value per date. When several
// stations report the same date the reading of the lowest station ID wins,
// so the result does not depend on the order rows come back from storage.
func FoldPrecipitation(readings []models.PrecipitationReading) map[string]float64 {
	ordered := append([]models.PrecipitationReading(nil), readings...)
	sort.Slice(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.StationID != b.StationID {
			return a.StationID < b.StationID
		}
		return a.Precipitation < b.Precipitation
	})

	report := make(map[string]float64, len(ordered))
	for _, r := range ordered {
		if _, ok := report[r.Date]; ok {
			continue
		}
		report[r.Date] = r.Precipitation
	}
	return report
}

// AggregateTemperatures groups readings by date and computes min, mean and
// max for each, sorted ascending by date. It never returns nil.
func AggregateTemperatures(readings []models.TemperatureReading) []models.AggregateRow {
	type accumulator struct {
		min, max, sum float64
		count         int
	}

	byDate := make(map[string]*accumulator)
	for _, r := range readings {
		acc, ok := byDate[r.Date]
		if !ok {
			byDate[r.Date] = &accumulator{min: r.Temperature, max: r.Temperature, sum: r.Temperature, count: 1}
			continue
		}
		if r.Temperature < acc.min {
			acc.min = r.Temperature
		}
		if r.Temperature > acc.max {
			acc.max = r.Temperature
		}
		acc.sum += r.Temperature
		acc.count++
	}

	rows := make([]models.AggregateRow, 0, len(byDate))
	for date, acc := range byDate {
		avg := acc.sum / float64(acc.count)
		// rounding in the sum can push the mean just outside [min, max]
		if avg < acc.min {
			avg = acc.min
		}
		if avg > acc.max {
			avg = acc.max
		}
		rows = append(rows, models.AggregateRow{
			Date: date,
			Min:  acc.min,
			Avg:  avg,
			Max:  acc.max,
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Date < rows[j].Date
	})
	return rows
}

func sortTemperatureReadings(readings []models.TemperatureReading) {
	sort.Slice(readings, func(i, j int) bool {
		a, b := readings[i], readings[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.StationID != b.StationID {
			return a.StationID < b.StationID
		}
		return a.Temperature < b.Temperature
	})
}
