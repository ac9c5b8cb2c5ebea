package trip

import (
	"context"
	"sort"
	"sync"
)

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing and local runs. Production should use PostgresRepository.
type InMemoryRepository struct {
	mu        sync.RWMutex
	reports   map[string]*Report
	favorites map[string]*Favorite
}

// NewInMemoryRepository creates a new in-memory trip repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		reports:   make(map[string]*Report),
		favorites: make(map[string]*Favorite),
	}
}

// SaveReport stores an evaluated trip.
func (r *InMemoryRepository) SaveReport(_ context.Context, report *Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cpy := *report
	r.reports[report.ID] = &cpy
	return nil
}

// GetReport retrieves a report by ID.
func (r *InMemoryRepository) GetReport(_ context.Context, id string) (*Report, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	report, ok := r.reports[id]
	if !ok {
		return nil, ErrReportNotFound
	}

	cpy := *report
	return &cpy, nil
}

// ListReports returns the most recent reports, newest first.
func (r *InMemoryRepository) ListReports(_ context.Context, limit int) ([]ReportSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]ReportSummary, 0, len(r.reports))
	for _, rep := range r.reports {
		items = append(items, ReportSummary{
			ID:          rep.ID,
			Origin:      rep.Origin,
			Destination: rep.Destination,
			Stops:       rep.Stops,
			CreatedAt:   rep.CreatedAt,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// SaveFavorite stores a favorite route.
func (r *InMemoryRepository) SaveFavorite(_ context.Context, fav *Favorite) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cpy := *fav
	r.favorites[fav.ID] = &cpy
	return nil
}

// ListFavorites returns the most recent favorites, newest first.
func (r *InMemoryRepository) ListFavorites(_ context.Context, limit int) ([]*Favorite, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]*Favorite, 0, len(r.favorites))
	for _, f := range r.favorites {
		cpy := *f
		items = append(items, &cpy)
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// DeleteFavorite removes a favorite.
func (r *InMemoryRepository) DeleteFavorite(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.favorites[id]; !ok {
		return ErrFavoriteNotFound
	}
	delete(r.favorites, id)
	return nil
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
