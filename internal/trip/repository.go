package trip

import "context"

// Repository defines the interface for trip persistence.
type Repository interface {
	// SaveReport stores an evaluated trip.
	SaveReport(ctx context.Context, report *Report) error

	// GetReport retrieves a report by ID.
	// Returns ErrReportNotFound if it doesn't exist.
	GetReport(ctx context.Context, id string) (*Report, error)

	// ListReports returns the most recent reports, newest first.
	ListReports(ctx context.Context, limit int) ([]ReportSummary, error)

	// SaveFavorite stores a favorite route.
	SaveFavorite(ctx context.Context, fav *Favorite) error

	// ListFavorites returns the most recent favorites, newest first.
	ListFavorites(ctx context.Context, limit int) ([]*Favorite, error)

	// DeleteFavorite removes a favorite.
	// Returns ErrFavoriteNotFound if it doesn't exist.
	DeleteFavorite(ctx context.Context, id string) error
}
