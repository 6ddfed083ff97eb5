package comic

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"comicapi/internal/platform/marvel"
)

// PageSize is the upstream maximum page size; offsets are multiples of it.
const PageSize = 100

// Fetcher serves paginated year data and year totals with at most one
// upstream round trip per cache miss. It has no retry policy of its own;
// callers apply their own timeout and backoff around each call.
type Fetcher struct {
	client UpstreamClient
	store  Store
}

func NewFetcher(client UpstreamClient, store Store) *Fetcher {
	return &Fetcher{client: client, store: store}
}

// GetPage returns the page at index for the given year. cached is the
// caller-supplied lookup of already-known pages for this year; a hit there
// short-circuits with no network call. On a miss the page is fetched
// upstream and, only when the response code signals success, persisted
// along with knownIDsWithImages (image-availability bookkeeping the store
// interprets on its own). The parsed page is returned regardless of its
// code so the caller can inspect it.
func (f *Fetcher) GetPage(ctx context.Context, year, index int, cached map[int]Page, knownIDsWithImages map[string]bool) (Page, error) {
	if p, ok := cached[index]; ok {
		return p, nil
	}

	res, err := f.client.GetComics(ctx, year, PageSize, index*PageSize)
	if err != nil {
		return Page{}, fmt.Errorf("fetch comics year=%d page=%d: %w", year, index, err)
	}

	page := Page{
		Year:   year,
		Index:  index,
		Code:   res.Code,
		Total:  res.Data.Total,
		Comics: mapResults(res.Data.Results),
	}

	if res.Code == http.StatusOK {
		if err := f.store.AddPage(ctx, page, knownIDsWithImages); err != nil {
			// The data is already in hand; a failed write only costs a
			// refetch next time.
			log.Printf("fetcher: persist page year=%d page=%d failed: %v", year, index, err)
		}
	}

	return page, nil
}

// GetYearTotal resolves the authoritative record count for a year. A cached
// total wins unless bypassCache is set. A well-formed upstream response with
// a non-success code yields -1 and is never cached, so a later call retries.
func (f *Fetcher) GetYearTotal(ctx context.Context, year int, bypassCache bool) (int, error) {
	if !bypassCache {
		total, ok, err := f.store.YearTotal(ctx, year)
		if err != nil {
			return 0, fmt.Errorf("read year total year=%d: %w", year, err)
		}
		if ok {
			return total, nil
		}
	}

	res, err := f.client.GetComics(ctx, year, 1, 0)
	if err != nil {
		return 0, fmt.Errorf("fetch year total year=%d: %w", year, err)
	}
	if res.Code != http.StatusOK {
		return -1, nil
	}

	if err := f.store.SetYearTotal(ctx, year, res.Data.Total); err != nil {
		log.Printf("fetcher: cache year total year=%d failed: %v", year, err)
	}
	return res.Data.Total, nil
}

// RandomRange returns a deduplicated random sample of comics published
// between startYear and endYear inclusive. The seed is derived once per
// call, so the sample is repeatable within the scope of one request.
func (f *Fetcher) RandomRange(ctx context.Context, startYear, endYear int) ([]Comic, error) {
	seed := time.Now().UnixNano()
	comics, err := f.store.SampleYearRange(ctx, startYear, endYear, seed)
	if err != nil {
		return nil, fmt.Errorf("sample years %d-%d: %w", startYear, endYear, err)
	}
	return dedupeByID(comics), nil
}

// Random returns a deduplicated sample drawn across the whole catalog; the
// fairness policy is the store's.
func (f *Fetcher) Random(ctx context.Context) ([]Comic, error) {
	comics, err := f.store.SampleAny(ctx)
	if err != nil {
		return nil, fmt.Errorf("sample catalog: %w", err)
	}
	return dedupeByID(comics), nil
}

// dedupeByID keeps the first occurrence of each id, preserving order.
func dedupeByID(comics []Comic) []Comic {
	seen := make(map[string]bool, len(comics))
	out := make([]Comic, 0, len(comics))
	for _, c := range comics {
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		out = append(out, c)
	}
	return out
}

func mapResults(results []marvel.ComicResult) []Comic {
	comics := make([]Comic, 0, len(results))
	for _, r := range results {
		c := Comic{
			ID:            fmt.Sprintf("%d", r.ID),
			Title:         r.Title,
			Series:        r.Series.Name,
			PublishDate:   r.DateOf(marvel.DateOnsale),
			UnlimitedDate: r.DateOf(marvel.DateUnlimited),
			HasImage:      r.HasImage(),
		}
		for _, item := range r.Creators.Items {
			c.Creators = append(c.Creators, item.Name)
		}
		for _, item := range r.Events.Items {
			c.Events = append(c.Events, item.Name)
		}
		comics = append(comics, c)
	}
	return comics
}
