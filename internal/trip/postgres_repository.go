package trip

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
// Reports are stored as a JSONB payload next to the columns used for listing.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL trip repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// SaveReport stores an evaluated trip.
func (r *PostgresRepository) SaveReport(ctx context.Context, report *Report) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	query := `
		INSERT INTO route_reports (
			id, origin, destination, stops,
			departure_at, has_severe, payload, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			payload = EXCLUDED.payload,
			has_severe = EXCLUDED.has_severe
	`

	_, err = r.pool.Exec(ctx, query,
		report.ID,
		report.Origin,
		report.Destination,
		nonNilStops(report.Stops),
		report.Departure,
		report.Analysis.HasSevereWeather,
		payload,
		report.CreatedAt,
	)
	return err
}

// GetReport retrieves a report by ID.
func (r *PostgresRepository) GetReport(ctx context.Context, id string) (*Report, error) {
	query := `
		SELECT payload
		FROM route_reports
		WHERE id = $1
	`

	var payload []byte
	if err := r.pool.QueryRow(ctx, query, id).Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReportNotFound
		}
		return nil, err
	}

	var report Report
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", id, err)
	}
	return &report, nil
}

// ListReports returns the most recent reports, newest first.
func (r *PostgresRepository) ListReports(ctx context.Context, limit int) ([]ReportSummary, error) {
	if limit <= 0 {
		limit = HistoryLimit
	}

	query := `
		SELECT id, origin, destination, stops, created_at
		FROM route_reports
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]ReportSummary, 0, limit)
	for rows.Next() {
		var item ReportSummary
		if err := rows.Scan(
			&item.ID,
			&item.Origin,
			&item.Destination,
			&item.Stops,
			&item.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// SaveFavorite stores a favorite route.
func (r *PostgresRepository) SaveFavorite(ctx context.Context, fav *Favorite) error {
	query := `
		INSERT INTO favorite_routes (
			id, name, origin, destination, stops, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.pool.Exec(ctx, query,
		fav.ID,
		fav.Name,
		fav.Origin,
		fav.Destination,
		nonNilStops(fav.Stops),
		fav.CreatedAt,
	)
	return err
}

// ListFavorites returns the most recent favorites, newest first.
func (r *PostgresRepository) ListFavorites(ctx context.Context, limit int) ([]*Favorite, error) {
	if limit <= 0 {
		limit = FavoritesLimit
	}

	query := `
		SELECT id, name, origin, destination, stops, created_at
		FROM favorite_routes
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var favorites []*Favorite
	for rows.Next() {
		var fav Favorite
		if err := rows.Scan(
			&fav.ID,
			&fav.Name,
			&fav.Origin,
			&fav.Destination,
			&fav.Stops,
			&fav.CreatedAt,
		); err != nil {
			return nil, err
		}
		favorites = append(favorites, &fav)
	}
	return favorites, rows.Err()
}

// DeleteFavorite removes a favorite.
func (r *PostgresRepository) DeleteFavorite(ctx context.Context, id string) error {
	query := `DELETE FROM favorite_routes WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return ErrFavoriteNotFound
	}
	return nil
}

// text[] columns are NOT NULL.
func nonNilStops(stops []string) []string {
	if stops == nil {
		return []string{}
	}
	return stops
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
