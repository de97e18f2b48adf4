package waittime

import (
	"context"
	"database/sql"
	"fmt"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// ListLocations returns active locations ordered by name.
func (s *Store) ListLocations(ctx context.Context) ([]Location, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, avg_wait_minutes
		FROM wait_locations
		WHERE active = TRUE
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query wait locations: %w", err)
	}
	defer rows.Close()

	locations := make([]Location, 0)
	for rows.Next() {
		var loc Location
		if err := rows.Scan(&loc.ID, &loc.Name, &loc.AvgWaitMinutes); err != nil {
			return nil, fmt.Errorf("scan wait location: %w", err)
		}
		locations = append(locations, loc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate wait locations: %w", err)
	}
	return locations, nil
}

// Estimator builds an estimator over the currently active locations.
func (s *Store) Estimator(ctx context.Context) (*Estimator, error) {
	locations, err := s.ListLocations(ctx)
	if err != nil {
		return nil, err
	}
	return NewEstimator(locations), nil
}
