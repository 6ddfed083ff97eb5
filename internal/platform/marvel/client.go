package marvel

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DateOnsale and DateUnlimited are the date types carried on each
	// comic result.
	DateOnsale    = "onsaleDate"
	DateUnlimited = "unlimitedDate"

	notAvailablePath = "image_not_available"
)

type Client struct {
	httpClient *http.Client
	baseURL    string
	publicKey  string
	signer     Signer
	limiter    *rate.Limiter
}

func NewClient(baseURL, publicKey string, signer Signer, rps int) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		baseURL:   baseURL,
		publicKey: publicKey,
		signer:    signer,
		limiter:   rate.NewLimiter(rate.Every(time.Second/time.Duration(rps)), 1),
	}
}

// ComicsResponse matches the /v1/public/comics envelope.
type ComicsResponse struct {
	Code   int    `json:"code"`
	Status string `json:"status"`
	Data   struct {
		Total   int           `json:"total"`
		Count   int           `json:"count"`
		Offset  int           `json:"offset"`
		Limit   int           `json:"limit"`
		Results []ComicResult `json:"results"`
	} `json:"data"`
}

type ComicResult struct {
	ID     int    `json:"id"`
	Title  string `json:"title"`
	Series struct {
		Name string `json:"name"`
	} `json:"series"`
	Dates []ComicDate `json:"dates"`
	Creators struct {
		Items []SummaryItem `json:"items"`
	} `json:"creators"`
	Events struct {
		Items []SummaryItem `json:"items"`
	} `json:"events"`
	Thumbnail struct {
		Path      string `json:"path"`
		Extension string `json:"extension"`
	} `json:"thumbnail"`
}

type SummaryItem struct {
	Name string `json:"name"`
}

type ComicDate struct {
	Type string `json:"type"`
	Date string `json:"date"`
}

// DateOf returns the date of the given type, zero when absent or
// unparseable. The gateway formats dates as 2006-01-02T15:04:05-0700.
func (r ComicResult) DateOf(dateType string) time.Time {
	for _, d := range r.Dates {
		if d.Type != dateType {
			continue
		}
		t, err := time.Parse("2006-01-02T15:04:05-0700", d.Date)
		if err != nil {
			return time.Time{}
		}
		return t
	}
	return time.Time{}
}

// HasImage reports whether the result carries a real cover image rather
// than the gateway's placeholder.
func (r ComicResult) HasImage() bool {
	return r.Thumbnail.Path != "" && !strings.Contains(r.Thumbnail.Path, notAvailablePath)
}

// GetComics fetches one page of digital comics released in the given year.
// Results are ordered by last-modified; that ordering is a hard upstream
// constraint (other orderings drop or duplicate records across pages).
// A decoded envelope is returned whatever its application code; only
// transport and decode failures are errors.
func (c *Client) GetComics(ctx context.Context, year, limit, offset int) (*ComicsResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	ts := strconv.FormatInt(time.Now().UnixNano(), 10)
	params := url.Values{}
	params.Set("formatType", "comic")
	params.Set("noVariants", "true")
	params.Set("dateRange", fmt.Sprintf("%d-01-01,%d-12-31", year, year))
	params.Set("hasDigitalIssue", "true")
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))
	params.Set("orderBy", "modified")
	params.Set("apikey", c.publicKey)
	params.Set("ts", ts)
	params.Set("hash", c.signer.Sign(ts))

	u := fmt.Sprintf("%s/v1/public/comics?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var res ComicsResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, fmt.Errorf("decode comics response (http %d): %w", resp.StatusCode, err)
	}
	return &res, nil
}
