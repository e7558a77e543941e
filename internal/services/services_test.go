package services

import (
	"context"
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"climate-api/internal/models"
	"climate-api/internal/repository"
	"climate-api/pkg/logging"
	"climate-api/pkg/metrics"
)

func f64(v float64) *float64 { return &v }

func str(s string) *string { return &s }

func newTestCollector() *metrics.Collector {
	return metrics.NewCollectorWithRegistry("services_test", prometheus.NewRegistry())
}

// recordingStore wraps an ObservationStore, counting calls and optionally
// failing every read or overriding the max date
type recordingStore struct {
	repository.ObservationStore

	mu      sync.Mutex
	calls   map[string]int
	err     error
	maxDate string
	ids     []string
}

func newRecordingStore(inner repository.ObservationStore) *recordingStore {
	return &recordingStore{ObservationStore: inner, calls: make(map[string]int)}
}

func (s *recordingStore) record(op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[op]++
	if s.err != nil {
		return &models.StoreUnavailableError{Op: op, Err: s.err}
	}
	return nil
}

func (s *recordingStore) count(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

func (s *recordingStore) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

func (s *recordingStore) MaxDate(ctx context.Context) (string, error) {
	if err := s.record("max_date"); err != nil {
		return "", err
	}
	if s.maxDate != "" {
		return s.maxDate, nil
	}
	return s.ObservationStore.MaxDate(ctx)
}

func (s *recordingStore) PrecipitationSince(ctx context.Context, since string) ([]models.PrecipitationReading, error) {
	if err := s.record("precipitation_since"); err != nil {
		return nil, err
	}
	return s.ObservationStore.PrecipitationSince(ctx, since)
}

func (s *recordingStore) TemperatureSince(ctx context.Context, since string) ([]models.TemperatureReading, error) {
	if err := s.record("temperature_since"); err != nil {
		return nil, err
	}
	return s.ObservationStore.TemperatureSince(ctx, since)
}

func (s *recordingStore) DistinctStationIDs(ctx context.Context) ([]string, error) {
	if err := s.record("distinct_stations"); err != nil {
		return nil, err
	}
	if s.ids != nil {
		return s.ids, nil
	}
	return s.ObservationStore.DistinctStationIDs(ctx)
}

func (s *recordingStore) TemperatureInRange(ctx context.Context, start string, end *string) ([]models.TemperatureReading, error) {
	if err := s.record("temperature_in_range"); err != nil {
		return nil, err
	}
	return s.ObservationStore.TemperatureInRange(ctx, start, end)
}

var errDiskGone = errors.New("disk I/O error")

// hawaiiObservations is a small slice of the Hawaii dataset around the
// latest date, 2017-08-23
func hawaiiObservations() []models.Observation {
	return []models.Observation{
		{StationID: "USC00519397", Date: "2016-08-22", Precipitation: f64(0.40), Temperature: f64(78)},
		{StationID: "USC00519397", Date: "2016-08-23", Precipitation: f64(0.00), Temperature: f64(81)},
		{StationID: "USC00513117", Date: "2016-08-23", Precipitation: f64(0.15), Temperature: f64(76)},
		{StationID: "USC00519281", Date: "2016-08-23", Precipitation: nil, Temperature: f64(77)},
		{StationID: "USC00516128", Date: "2017-08-22", Precipitation: f64(0.50), Temperature: f64(76)},
		{StationID: "USC00519397", Date: "2017-08-22", Precipitation: nil, Temperature: f64(82)},
		{StationID: "USC00519397", Date: "2017-08-23", Precipitation: f64(0.00), Temperature: f64(81)},
		{StationID: "USC00514830", Date: "2017-08-23", Precipitation: f64(0.00), Temperature: f64(82)},
		{StationID: "USC00516128", Date: "2017-08-23", Precipitation: f64(0.45), Temperature: nil},
	}
}

func newTestQueryService(store repository.ObservationStore) (*QueryService, *metrics.Collector) {
	collector := newTestCollector()
	return NewQueryService(store, logging.Discard(), collector), collector
}
