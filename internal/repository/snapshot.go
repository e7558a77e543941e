package repository

import (
	"context"

	"climate-api/internal/models"
	"climate-api/pkg/database"
)

// Snapshot copies both relations out of db into a MemoryStore. The returned
// store does not reference db, which may be closed afterwards.
func Snapshot(ctx context.Context, db *database.DB) (*MemoryStore, error) {
	query := `
		SELECT station, CAST(date AS TEXT) AS date, prcp, tobs
		FROM measurement
		ORDER BY id
	`

	observations := []models.Observation{}
	if err := db.SelectContext(ctx, "snapshot_measurement", &observations, db.Rebind(query)); err != nil {
		return nil, unavailable("snapshot_measurement", err)
	}

	stations := []*models.Station{}
	stationQuery := `SELECT station, name, latitude, longitude, elevation FROM station`
	if err := db.SelectContext(ctx, "snapshot_station", &stations, db.Rebind(stationQuery)); err != nil {
		return nil, unavailable("snapshot_station", err)
	}

	return NewMemoryStore(observations, stations), nil
}
