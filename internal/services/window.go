package services

import (
	"context"
	"fmt"
	"time"

	"climate-api/internal/models"
	"climate-api/internal/repository"
	"climate-api/pkg/logging"
	"climate-api/pkg/metrics"
)

// WindowResolver computes the trailing report window anchored at the
// latest date present in the dataset rather than at wall-clock time
type WindowResolver struct {
	repo    repository.ObservationStore
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewWindowResolver creates a new window resolver
func NewWindowResolver(repo repository.ObservationStore, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *WindowResolver {
	return &WindowResolver{
		repo:    repo,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// LastYearWindow returns [max date - 365 days, max date]. The max date is
// looked up on every call.
func (w *WindowResolver) LastYearWindow(ctx context.Context) (models.DateWindow, error) {
	maxDate, err := w.repo.MaxDate(ctx)
	if err != nil {
		return models.DateWindow{}, err
	}

	end, err := time.Parse(models.DateLayout, maxDate)
	if err != nil {
		return models.DateWindow{}, &models.StoreUnavailableError{
			Op:  "max_date",
			Err: fmt.Errorf("malformed measurement date %q: %w", maxDate, err),
		}
	}

	window := models.NewLastYearWindow(end)
	w.metrics.WindowStartUnix.Set(float64(window.Start.Unix()))

	w.logger.Debug(ctx, "[WINDOW_RESOLVED] Last year window resolved", logging.Fields{
		"start": window.StartDate(),
		"end":   window.EndDate(),
	})

	return window, nil
}
