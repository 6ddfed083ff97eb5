package comic

import "time"

// Comic represents one catalog record. Immutable once fetched.
type Comic struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Series        string    `json:"series"`
	Creators      []string  `json:"creators,omitempty"`
	Events        []string  `json:"events,omitempty"`
	PublishDate   time.Time `json:"publish_date"`
	UnlimitedDate time.Time `json:"unlimited_date"`
	HasImage      bool      `json:"has_image"`
}

// Page is one fetched batch of comics for a (year, page index) pair.
// Total is the upstream's declared total for the whole year, Code the
// application-level status code of the response that produced the page.
type Page struct {
	Year   int     `json:"year"`
	Index  int     `json:"index"`
	Code   int     `json:"code"`
	Total  int     `json:"total"`
	Comics []Comic `json:"comics"`
}
