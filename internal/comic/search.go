package comic

import "sort"

// SortKey selects the tie-break comparator used among records of equal
// match rank.
type SortKey string

const (
	SortBestMatch     SortKey = "bestMatch"
	SortTitle         SortKey = "title"
	SortPublishDate   SortKey = "publishDate"
	SortUnlimitedDate SortKey = "unlimitedDate"
)

// Selection is the query-time view of which category values are switched
// on. Month is 1-12, or -1 for no month filter. A category whose selected
// set covers every value present in the record set is treated as "no filter
// applied" — that is decided by comparing sizes against the universe of
// values derivable from the input, never by the set being empty.
type Selection struct {
	Series   map[string]bool
	Creators map[string]bool
	Events   map[string]bool
	Month    int
}

// NewSelection returns a Selection with every category fully selected for
// the given record set and no month filter.
func NewSelection(comics []Comic) Selection {
	series, creators, events := Universe(comics)
	return Selection{Series: series, Creators: creators, Events: events, Month: -1}
}

// Universe collects the full sets of series, creator and event values
// present in the record set.
func Universe(comics []Comic) (series, creators, events map[string]bool) {
	series = make(map[string]bool)
	creators = make(map[string]bool)
	events = make(map[string]bool)
	for _, c := range comics {
		series[c.Series] = true
		for _, name := range c.Creators {
			creators[name] = true
		}
		for _, name := range c.Events {
			events[name] = true
		}
	}
	return series, creators, events
}

// Search produces an ordered, deduplicated view of comics under the
// combined filter, fuzzy-search and sort criteria. It never mutates its
// input and is order-stable across repeated calls with identical inputs.
func Search(comics []Comic, sel Selection, text string, key SortKey, descending bool) []Comic {
	universeSeries, universeCreators, universeEvents := Universe(comics)
	filterSeries := len(sel.Series) != len(universeSeries)
	filterCreators := len(sel.Creators) != len(universeCreators)
	filterEvents := len(sel.Events) != len(universeEvents)

	type scored struct {
		c    Comic
		rank matchRank
	}

	searching := text != ""
	seen := make(map[string]bool, len(comics))
	kept := make([]scored, 0, len(comics))
	for _, c := range comics {
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true

		if sel.Month != -1 && int(c.PublishDate.Month()) != sel.Month {
			continue
		}
		if filterSeries && !sel.Series[c.Series] {
			continue
		}
		if filterCreators && !anySelected(c.Creators, sel.Creators) {
			continue
		}
		if filterEvents && !anySelected(c.Events, sel.Events) {
			continue
		}

		rank := rankEqual
		if searching {
			rank = rankMatch(c.Title, text)
			if rank == rankNone {
				continue
			}
		}
		kept = append(kept, scored{c: c, rank: rank})
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].rank != kept[j].rank {
			return kept[i].rank > kept[j].rank
		}
		return tieLess(key, searching, kept[i].c, kept[j].c)
	})

	out := make([]Comic, len(kept))
	for i, s := range kept {
		out[i] = s.c
	}
	if descending {
		// Reverse the final sequence as a whole so the rank/tie-break
		// composition is fully inverted, not reordered per group.
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out
}

// tieLess is the comparator among records of equal match rank. bestMatch
// has no meaning without a query, so the searching flag switches its
// fallback between title order and publish-date order.
func tieLess(key SortKey, searching bool, a, b Comic) bool {
	switch key {
	case SortTitle:
		return a.Title < b.Title
	case SortPublishDate:
		return a.PublishDate.Before(b.PublishDate)
	case SortUnlimitedDate:
		return a.UnlimitedDate.Before(b.UnlimitedDate)
	default:
		if searching {
			return a.Title < b.Title
		}
		return a.PublishDate.Before(b.PublishDate)
	}
}

func anySelected(values []string, selected map[string]bool) bool {
	for _, v := range values {
		if selected[v] {
			return true
		}
	}
	return false
}
