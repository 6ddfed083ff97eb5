package store

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"comicapi/internal/comic"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/viccon/sturdyc"
)

const (
	totalsCapacity = 1024
	totalsShards   = 16
	totalsEviction = 10
)

type memRecord struct {
	c    comic.Comic
	year int
}

// Memory is an in-process Store. Pages and records live in concurrent maps
// for the life of the process; year totals sit behind a TTL cache so a
// stale count is re-fetched from upstream rather than served forever.
type Memory struct {
	pages   *xsync.MapOf[string, comic.Page]
	records *xsync.MapOf[string, memRecord]
	totals  *sturdyc.Client[int]
}

func NewMemory(totalTTL time.Duration) *Memory {
	return &Memory{
		pages:   xsync.NewMapOf[string, comic.Page](),
		records: xsync.NewMapOf[string, memRecord](),
		totals:  sturdyc.New[int](totalsCapacity, totalsShards, totalTTL, totalsEviction),
	}
}

func pageKey(year, index int) string {
	return fmt.Sprintf("%d:%d", year, index)
}

func (m *Memory) AddPage(_ context.Context, page comic.Page, knownIDsWithImages map[string]bool) error {
	stored := page
	stored.Comics = make([]comic.Comic, len(page.Comics))
	for i, c := range page.Comics {
		c.HasImage = c.HasImage || knownIDsWithImages[c.ID]
		stored.Comics[i] = c
		m.records.Store(c.ID, memRecord{c: c, year: page.Year})
	}
	m.pages.Store(pageKey(page.Year, page.Index), stored)
	return nil
}

func (m *Memory) GetPage(_ context.Context, year, index int) (comic.Page, bool, error) {
	page, ok := m.pages.Load(pageKey(year, index))
	return page, ok, nil
}

func (m *Memory) YearTotal(_ context.Context, year int) (int, bool, error) {
	total, ok := m.totals.Get(totalKey(year))
	return total, ok, nil
}

func (m *Memory) SetYearTotal(_ context.Context, year, total int) error {
	m.totals.Set(totalKey(year), total)
	return nil
}

func totalKey(year int) string {
	return fmt.Sprintf("total:%d", year)
}

// SampleYearRange draws up to SampleSize records from the year span. The
// candidate list is sorted by id before shuffling so the same seed always
// produces the same sample regardless of map iteration order.
func (m *Memory) SampleYearRange(_ context.Context, startYear, endYear int, seed int64) ([]comic.Comic, error) {
	var candidates []comic.Comic
	m.records.Range(func(_ string, rec memRecord) bool {
		if rec.year >= startYear && rec.year <= endYear {
			candidates = append(candidates, rec.c)
		}
		return true
	})
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].ID < candidates[j].ID })

	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	if len(candidates) > SampleSize {
		candidates = candidates[:SampleSize]
	}
	return candidates, nil
}

func (m *Memory) SampleAny(_ context.Context) ([]comic.Comic, error) {
	var candidates []comic.Comic
	m.records.Range(func(_ string, rec memRecord) bool {
		candidates = append(candidates, rec.c)
		return true
	})
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].ID < candidates[j].ID })

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	if len(candidates) > SampleSize {
		candidates = candidates[:SampleSize]
	}
	return candidates, nil
}
