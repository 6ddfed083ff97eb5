package comic

import (
	"context"

	"comicapi/internal/platform/marvel"
)

// Store is the key-value cache the fetcher reads through. Implementations
// must make concurrent writes to the same (year, page) key safe; writes are
// idempotent replacements, so two racing cache misses doing duplicate
// upstream work is tolerated.
type Store interface {
	AddPage(ctx context.Context, page Page, knownIDsWithImages map[string]bool) error
	GetPage(ctx context.Context, year, index int) (Page, bool, error)
	YearTotal(ctx context.Context, year int) (int, bool, error)
	SetYearTotal(ctx context.Context, year, total int) error
	SampleYearRange(ctx context.Context, startYear, endYear int, seed int64) ([]Comic, error)
	SampleAny(ctx context.Context) ([]Comic, error)
}

// UpstreamClient is the slice of the Marvel client the fetcher needs.
type UpstreamClient interface {
	GetComics(ctx context.Context, year, limit, offset int) (*marvel.ComicsResponse, error)
}
