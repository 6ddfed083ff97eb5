package http

import (
	"log"
	"net/http"
	"strconv"
	"strings"

	"comicapi/internal/comic"
	"comicapi/internal/httpx"
)

type ComicHandler struct {
	fetcher *comic.Fetcher
	store   comic.Store
}

func NewComicHandler(fetcher *comic.Fetcher, store comic.Store) *ComicHandler {
	return &ComicHandler{fetcher: fetcher, store: store}
}

// GetPage handles GET /comics?year=&page=. The cache lookup handed to the
// fetcher is built from the store's read path, so a cached page never
// costs an upstream call.
func (h *ComicHandler) GetPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	year, ok := yearParam(w, r)
	if !ok {
		return
	}
	pageIndex, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if pageIndex < 0 {
		pageIndex = 0
	}

	cached := make(map[int]comic.Page, 1)
	if p, found, err := h.store.GetPage(ctx, year, pageIndex); err != nil {
		log.Printf("comics: store read year=%d page=%d failed: %v", year, pageIndex, err)
	} else if found {
		cached[pageIndex] = p
	}

	page, err := h.fetcher.GetPage(ctx, year, pageIndex, cached, nil)
	if err != nil {
		httpx.JSONErrorWithRequest(r, w, http.StatusBadGateway, "upstream_error", "Failed to fetch comics")
		return
	}

	httpx.JSONSuccessWithRequest(r, w, page, nil)
}

// GetYearTotal handles GET /comics/total?year=&refresh=. A total of -1
// means the upstream reported a non-success status; it is data, not an
// error, and is never cached.
func (h *ComicHandler) GetYearTotal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	year, ok := yearParam(w, r)
	if !ok {
		return
	}
	bypass := r.URL.Query().Get("refresh") == "true"

	total, err := h.fetcher.GetYearTotal(ctx, year, bypass)
	if err != nil {
		httpx.JSONErrorWithRequest(r, w, http.StatusBadGateway, "upstream_error", "Failed to fetch year total")
		return
	}

	httpx.JSONSuccessWithRequest(r, w, map[string]int{"year": year, "total": total}, nil)
}

// Random handles GET /comics/random?start=&end=. With both bounds it draws
// a seeded sample from the year range; without bounds the store picks.
func (h *ComicHandler) Random(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	var (
		comics []comic.Comic
		err    error
	)
	if q.Get("start") != "" && q.Get("end") != "" {
		start, sErr := strconv.Atoi(q.Get("start"))
		end, eErr := strconv.Atoi(q.Get("end"))
		if sErr != nil || eErr != nil || start > end {
			httpx.JSONErrorWithRequest(r, w, http.StatusBadRequest, "invalid_range", "start and end must be a valid year range")
			return
		}
		comics, err = h.fetcher.RandomRange(ctx, start, end)
	} else {
		comics, err = h.fetcher.Random(ctx)
	}
	if err != nil {
		httpx.JSONErrorWithRequest(r, w, http.StatusInternalServerError, "sample_failed", "Failed to sample comics")
		return
	}

	httpx.JSONSuccessWithRequest(r, w, comics, nil)
}

// Search handles GET /comics/search. It assembles the year's record set
// through the cache-through fetcher, then runs the pure filter/rank/sort
// pipeline over it. Image availability learned from earlier pages is
// passed along to later page writes.
func (h *ComicHandler) Search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	year, ok := yearParam(w, r)
	if !ok {
		return
	}

	total, err := h.fetcher.GetYearTotal(ctx, year, false)
	if err != nil {
		httpx.JSONErrorWithRequest(r, w, http.StatusBadGateway, "upstream_error", "Failed to fetch year total")
		return
	}
	if total < 0 {
		httpx.JSONErrorWithRequest(r, w, http.StatusBadGateway, "upstream_unavailable", "No data available for year")
		return
	}

	pages := (total + comic.PageSize - 1) / comic.PageSize
	var all []comic.Comic
	knownIDsWithImages := make(map[string]bool)
	for i := 0; i < pages; i++ {
		cached := make(map[int]comic.Page, 1)
		if p, found, err := h.store.GetPage(ctx, year, i); err != nil {
			log.Printf("comics: store read year=%d page=%d failed: %v", year, i, err)
		} else if found {
			cached[i] = p
		}

		page, err := h.fetcher.GetPage(ctx, year, i, cached, knownIDsWithImages)
		if err != nil {
			httpx.JSONErrorWithRequest(r, w, http.StatusBadGateway, "upstream_error", "Failed to fetch comics")
			return
		}
		if page.Code != http.StatusOK {
			// Partial data; the remaining pages are retried on a later call.
			continue
		}
		for _, c := range page.Comics {
			if c.HasImage {
				knownIDsWithImages[c.ID] = true
			}
		}
		all = append(all, page.Comics...)
	}

	sel := parseSelection(q.Get("month"), q.Get("series"), q.Get("creators"), q.Get("events"), all)
	key := comic.SortBestMatch
	if s := q.Get("sort"); s != "" {
		key = comic.SortKey(s)
	}
	results := comic.Search(all, sel, q.Get("q"), key, q.Get("desc") == "true")

	httpx.JSONSuccessWithRequest(r, w, results, map[string]interface{}{
		"year":  year,
		"total": total,
		"count": len(results),
	})
}

// parseSelection turns CSV query parameters into a Selection. An absent
// category parameter means every available value is switched on, which the
// pipeline treats as no filter for that category.
func parseSelection(month, series, creators, events string, all []comic.Comic) comic.Selection {
	sel := comic.NewSelection(all)
	if month != "" {
		if m, err := strconv.Atoi(month); err == nil && m >= 1 && m <= 12 {
			sel.Month = m
		}
	}
	if series != "" {
		sel.Series = csvSet(series)
	}
	if creators != "" {
		sel.Creators = csvSet(creators)
	}
	if events != "" {
		sel.Events = csvSet(events)
	}
	return sel
}

func csvSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			set[v] = true
		}
	}
	return set
}

func yearParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil || year < 1939 {
		httpx.JSONErrorWithRequest(r, w, http.StatusBadRequest, "invalid_year", "year must be a valid catalog year")
		return 0, false
	}
	return year, true
}
