package repository

import (
	"context"
	"sort"
	"sync"

	"climate-api/internal/models"
)

// MemoryStore is a concurrency-safe in-memory ObservationStore. Rows are
// returned in insertion order.
type MemoryStore struct {
	mu           sync.RWMutex
	observations []models.Observation
	stations     map[string]*models.Station
}

// NewMemoryStore creates a MemoryStore holding copies of the given rows
func NewMemoryStore(observations []models.Observation, stations []*models.Station) *MemoryStore {
	s := &MemoryStore{
		observations: append([]models.Observation(nil), observations...),
		stations:     make(map[string]*models.Station, len(stations)),
	}
	for _, st := range stations {
		copied := *st
		s.stations[st.StationID] = &copied
	}
	return s
}

// MaxDate returns the latest observation date
func (s *MemoryStore) MaxDate(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.observations) == 0 {
		return "", &models.EmptyDatasetError{Relation: measurementRelation}
	}

	maxDate := s.observations[0].Date
	for _, o := range s.observations[1:] {
		if o.Date > maxDate {
			maxDate = o.Date
		}
	}
	return maxDate, nil
}

// PrecipitationSince returns non-null precipitation rows on or after since
func (s *MemoryStore) PrecipitationSince(ctx context.Context, since string) ([]models.PrecipitationReading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	readings := []models.PrecipitationReading{}
	for _, o := range s.observations {
		if o.Date < since || o.Precipitation == nil {
			continue
		}
		readings = append(readings, models.PrecipitationReading{
			StationID:     o.StationID,
			Date:          o.Date,
			Precipitation: *o.Precipitation,
		})
	}
	return readings, nil
}

// TemperatureSince returns non-null temperature rows on or after since
func (s *MemoryStore) TemperatureSince(ctx context.Context, since string) ([]models.TemperatureReading, error) {
	return s.TemperatureInRange(ctx, since, nil)
}

// DistinctStationIDs returns each observed station once, sorted
func (s *MemoryStore) DistinctStationIDs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	stationIDs := []string{}
	for _, o := range s.observations {
		if _, ok := seen[o.StationID]; ok {
			continue
		}
		seen[o.StationID] = struct{}{}
		stationIDs = append(stationIDs, o.StationID)
	}
	sort.Strings(stationIDs)
	return stationIDs, nil
}

// TemperatureInRange returns non-null temperature rows in [start, end]
func (s *MemoryStore) TemperatureInRange(ctx context.Context, start string, end *string) ([]models.TemperatureReading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	readings := []models.TemperatureReading{}
	for _, o := range s.observations {
		if o.Temperature == nil || o.Date < start {
			continue
		}
		if end != nil && o.Date > *end {
			continue
		}
		readings = append(readings, models.TemperatureReading{
			StationID:   o.StationID,
			Date:        o.Date,
			Temperature: *o.Temperature,
		})
	}
	return readings, nil
}

// ListStations returns the station reference rows ordered by ID
func (s *MemoryStore) ListStations(ctx context.Context) ([]*models.Station, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stations := make([]*models.Station, 0, len(s.stations))
	for _, st := range s.stations {
		copied := *st
		stations = append(stations, &copied)
	}
	sort.Slice(stations, func(i, j int) bool {
		return stations[i].StationID < stations[j].StationID
	})
	return stations, nil
}

// HealthCheck always succeeds
func (s *MemoryStore) HealthCheck(ctx context.Context) error {
	return nil
}
