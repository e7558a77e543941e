package services

import (
	"context"
	"errors"
	"math/rand"
	"reflect"
	"sort"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"climate-api/internal/models"
	"climate-api/internal/repository"
	"climate-api/pkg/logging"
)

func newTestEngine(store repository.ObservationStore) *AggregationEngine {
	collector := newTestCollector()
	logger := logging.Discard()
	return NewAggregationEngine(store, NewWindowResolver(store, logger, collector), logger, collector)
}

func TestAggregateTemperatures(t *testing.T) {
	tests := []struct {
		name     string
		readings []models.TemperatureReading
		want     []models.AggregateRow
	}{
		{
			name: "reference example",
			readings: []models.TemperatureReading{
				{StationID: "S1", Date: "2017-01-01", Temperature: 10},
				{StationID: "S1", Date: "2017-01-02", Temperature: 20},
				{StationID: "S2", Date: "2017-01-02", Temperature: 30},
			},
			want: []models.AggregateRow{
				{Date: "2017-01-01", Min: 10, Avg: 10, Max: 10},
				{Date: "2017-01-02", Min: 20, Avg: 25, Max: 30},
			},
		},
		{
			name: "unordered input is sorted by date",
			readings: []models.TemperatureReading{
				{StationID: "S2", Date: "2017-03-01", Temperature: 70},
				{StationID: "S1", Date: "2017-01-15", Temperature: 60},
				{StationID: "S1", Date: "2017-03-01", Temperature: 74},
				{StationID: "S3", Date: "2017-02-10", Temperature: 65},
			},
			want: []models.AggregateRow{
				{Date: "2017-01-15", Min: 60, Avg: 60, Max: 60},
				{Date: "2017-02-10", Min: 65, Avg: 65, Max: 65},
				{Date: "2017-03-01", Min: 70, Avg: 72, Max: 74},
			},
		},
		{
			name: "negative temperatures",
			readings: []models.TemperatureReading{
				{StationID: "S1", Date: "2017-01-01", Temperature: -5},
				{StationID: "S2", Date: "2017-01-01", Temperature: -10},
				{StationID: "S3", Date: "2017-01-01", Temperature: 0},
			},
			want: []models.AggregateRow{
				{Date: "2017-01-01", Min: -10, Avg: -5, Max: 0},
			},
		},
		{
			name:     "no readings",
			readings: nil,
			want:     []models.AggregateRow{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AggregateTemperatures(tt.readings)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("AggregateTemperatures() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestAggregateTemperatures_Invariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	dates := []string{"2017-01-01", "2017-01-02", "2017-01-03", "2017-02-28", "2017-03-01"}

	for iter := 0; iter < 200; iter++ {
		readings := make([]models.TemperatureReading, rng.Intn(40))
		for i := range readings {
			readings[i] = models.TemperatureReading{
				StationID:   "S" + string(rune('A'+rng.Intn(9))),
				Date:        dates[rng.Intn(len(dates))],
				Temperature: float64(rng.Intn(1000))/10 - 20,
			}
		}

		rows := AggregateTemperatures(readings)

		distinct := make(map[string]bool)
		for _, r := range readings {
			distinct[r.Date] = true
		}
		if len(rows) != len(distinct) {
			t.Fatalf("iteration %d: %d rows for %d distinct dates", iter, len(rows), len(distinct))
		}

		if !sort.SliceIsSorted(rows, func(i, j int) bool { return rows[i].Date < rows[j].Date }) {
			t.Fatalf("iteration %d: rows not sorted by date: %+v", iter, rows)
		}
		for _, row := range rows {
			if !(row.Min <= row.Avg && row.Avg <= row.Max) {
				t.Fatalf("iteration %d: min <= avg <= max violated: %+v", iter, row)
			}
		}

		// order of input rows must not matter
		shuffled := append([]models.TemperatureReading(nil), readings...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		again := AggregateTemperatures(shuffled)
		for i := range rows {
			if rows[i].Date != again[i].Date || rows[i].Min != again[i].Min || rows[i].Max != again[i].Max {
				t.Fatalf("iteration %d: result depends on input order", iter)
			}
		}
	}
}

func TestAggregateTemperatures_MeanStaysInBounds(t *testing.T) {
	// 0.1 + 0.1 + 0.1 sums to 0.30000000000000004
	readings := []models.TemperatureReading{
		{StationID: "S1", Date: "2017-01-01", Temperature: 0.1},
		{StationID: "S2", Date: "2017-01-01", Temperature: 0.1},
		{StationID: "S3", Date: "2017-01-01", Temperature: 0.1},
	}

	rows := AggregateTemperatures(readings)
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0].Avg != 0.1 {
		t.Errorf("Avg = %v, want 0.1", rows[0].Avg)
	}
}

func TestFoldPrecipitation(t *testing.T) {
	readings := []models.PrecipitationReading{
		{StationID: "USC00519397", Date: "2017-08-23", Precipitation: 0.00},
		{StationID: "USC00516128", Date: "2017-08-23", Precipitation: 0.45},
		{StationID: "USC00514830", Date: "2017-08-23", Precipitation: 0.10},
		{StationID: "USC00519397", Date: "2017-08-22", Precipitation: 0.00},
	}
	want := map[string]float64{
		"2017-08-22": 0.00,
		// lowest station ID reporting that day wins
		"2017-08-23": 0.10,
	}

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		rng.Shuffle(len(readings), func(a, b int) { readings[a], readings[b] = readings[b], readings[a] })

		got := FoldPrecipitation(readings)
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("FoldPrecipitation() = %v, want %v", got, want)
		}
	}
}

func TestFoldPrecipitation_DoesNotReorderInput(t *testing.T) {
	readings := []models.PrecipitationReading{
		{StationID: "B", Date: "2017-01-02", Precipitation: 1},
		{StationID: "A", Date: "2017-01-01", Precipitation: 2},
	}
	FoldPrecipitation(readings)
	if readings[0].StationID != "B" {
		t.Error("FoldPrecipitation should not mutate its input")
	}
}

func TestAggregationEngine_PrecipitationReport(t *testing.T) {
	engine := newTestEngine(repository.NewMemoryStore(hawaiiObservations(), nil))

	got, err := engine.PrecipitationReport(context.Background())
	if err != nil {
		t.Fatalf("PrecipitationReport() error = %v", err)
	}

	// window is [2016-08-23, 2017-08-23]; 2016-08-22 falls outside and the
	// 2017-08-22 null from USC00519397 does not hide USC00516128's reading
	want := map[string]float64{
		"2016-08-23": 0.15,
		"2017-08-22": 0.50,
		"2017-08-23": 0.00,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("PrecipitationReport() = %v, want %v", got, want)
	}
}

func TestAggregationEngine_StationList(t *testing.T) {
	store := newRecordingStore(repository.NewMemoryStore(hawaiiObservations(), nil))
	store.ids = []string{"USC00519397", "USC00513117", "USC00519397", "USC00516128", "USC00513117"}
	engine := newTestEngine(store)

	got, err := engine.StationList(context.Background())
	if err != nil {
		t.Fatalf("StationList() error = %v", err)
	}

	want := []string{"USC00513117", "USC00516128", "USC00519397"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("StationList() = %v, want %v", got, want)
	}
}

func TestAggregationEngine_StationListMatchesObservations(t *testing.T) {
	engine := newTestEngine(repository.NewMemoryStore(hawaiiObservations(), nil))

	got, err := engine.StationList(context.Background())
	if err != nil {
		t.Fatalf("StationList() error = %v", err)
	}

	want := []string{"USC00513117", "USC00514830", "USC00516128", "USC00519281", "USC00519397"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("StationList() = %v, want %v", got, want)
	}
}

func TestAggregationEngine_TemperatureReport(t *testing.T) {
	engine := newTestEngine(repository.NewMemoryStore(hawaiiObservations(), nil))

	got, err := engine.TemperatureReport(context.Background())
	if err != nil {
		t.Fatalf("TemperatureReport() error = %v", err)
	}

	want := []models.TemperatureReading{
		{StationID: "USC00513117", Date: "2016-08-23", Temperature: 76},
		{StationID: "USC00519281", Date: "2016-08-23", Temperature: 77},
		{StationID: "USC00519397", Date: "2016-08-23", Temperature: 81},
		{StationID: "USC00516128", Date: "2017-08-22", Temperature: 76},
		{StationID: "USC00519397", Date: "2017-08-22", Temperature: 82},
		{StationID: "USC00514830", Date: "2017-08-23", Temperature: 82},
		{StationID: "USC00519397", Date: "2017-08-23", Temperature: 81},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("TemperatureReport() = %+v, want %+v", got, want)
	}
}

func TestAggregationEngine_TemperatureStats(t *testing.T) {
	tests := []struct {
		name  string
		start string
		end   *string
		want  []models.AggregateRow
	}{
		{
			name:  "start only",
			start: "2017-08-22",
			want: []models.AggregateRow{
				{Date: "2017-08-22", Min: 76, Avg: 79, Max: 82},
				{Date: "2017-08-23", Min: 81, Avg: 81.5, Max: 82},
			},
		},
		{
			name:  "inclusive range",
			start: "2016-08-22",
			end:   str("2016-08-23"),
			want: []models.AggregateRow{
				{Date: "2016-08-22", Min: 78, Avg: 78, Max: 78},
				{Date: "2016-08-23", Min: 76, Avg: 78, Max: 81},
			},
		},
		{
			name:  "reversed range",
			start: "2017-08-23",
			end:   str("2016-08-22"),
			want:  []models.AggregateRow{},
		},
		{
			name:  "range with no observations",
			start: "2010-01-01",
			end:   str("2010-12-31"),
			want:  []models.AggregateRow{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newTestEngine(repository.NewMemoryStore(hawaiiObservations(), nil))

			got, err := engine.TemperatureStats(context.Background(), tt.start, tt.end)
			if err != nil {
				t.Fatalf("TemperatureStats() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("TemperatureStats() = %+v, want %+v", got, tt.want)
			}
			if n := testutil.CollectAndCount(engine.metrics.AggregateRowsCount); n != 1 {
				t.Errorf("aggregate rows histogram series = %d, want 1", n)
			}
		})
	}
}

func TestAggregationEngine_StoreErrorsPropagate(t *testing.T) {
	store := newRecordingStore(repository.NewMemoryStore(hawaiiObservations(), nil))
	store.err = errDiskGone
	engine := newTestEngine(store)
	ctx := context.Background()

	calls := map[string]func() error{
		"precipitation": func() error { _, err := engine.PrecipitationReport(ctx); return err },
		"stations":      func() error { _, err := engine.StationList(ctx); return err },
		"tobs":          func() error { _, err := engine.TemperatureReport(ctx); return err },
		"stats":         func() error { _, err := engine.TemperatureStats(ctx, "2017-01-01", nil); return err },
	}

	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			err := call()
			var storeErr *models.StoreUnavailableError
			if !errors.As(err, &storeErr) {
				t.Fatalf("error = %v, want *StoreUnavailableError", err)
			}
			if !errors.Is(err, errDiskGone) {
				t.Errorf("error should carry the store cause, got %v", err)
			}
		})
	}
}

func TestAggregationEngine_EmptyDataset(t *testing.T) {
	engine := newTestEngine(repository.NewMemoryStore(nil, nil))
	ctx := context.Background()

	var emptyErr *models.EmptyDatasetError
	if _, err := engine.PrecipitationReport(ctx); !errors.As(err, &emptyErr) {
		t.Errorf("PrecipitationReport() error = %v, want *EmptyDatasetError", err)
	}
	if _, err := engine.TemperatureReport(ctx); !errors.As(err, &emptyErr) {
		t.Errorf("TemperatureReport() error = %v, want *EmptyDatasetError", err)
	}

	// the station list and range statistics do not depend on the window
	stations, err := engine.StationList(ctx)
	if err != nil || len(stations) != 0 {
		t.Errorf("StationList() = %v, %v; want empty, nil", stations, err)
	}
	rows, err := engine.TemperatureStats(ctx, "2017-01-01", nil)
	if err != nil || len(rows) != 0 {
		t.Errorf("TemperatureStats() = %v, %v; want empty, nil", rows, err)
	}
}
