package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"time"

	"comicapi/internal/comic"
)

// TestComics is a small fixed record set for handler and pipeline tests.
var TestComics = []comic.Comic{
	{
		ID:            "1",
		Title:         "Amazing Spider-Man",
		Series:        "ASM",
		Creators:      []string{"Stan Lee", "Steve Ditko"},
		Events:        []string{"Secret Wars"},
		PublishDate:   time.Date(2019, 3, 1, 0, 0, 0, 0, time.UTC),
		UnlimitedDate: time.Date(2019, 9, 1, 0, 0, 0, 0, time.UTC),
		HasImage:      true,
	},
	{
		ID:            "2",
		Title:         "Astonishing Spider-Man",
		Series:        "ASM",
		Creators:      []string{"Jack Kirby"},
		Events:        []string{"Civil War"},
		PublishDate:   time.Date(2019, 5, 1, 0, 0, 0, 0, time.UTC),
		UnlimitedDate: time.Date(2019, 11, 1, 0, 0, 0, 0, time.UTC),
		HasImage:      false,
	},
	{
		ID:            "3",
		Title:         "Uncanny X-Men",
		Series:        "X-Men",
		Creators:      []string{"Chris Claremont"},
		Events:        []string{"House of M"},
		PublishDate:   time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC),
		UnlimitedDate: time.Date(2019, 7, 1, 0, 0, 0, 0, time.UTC),
		HasImage:      true,
	},
}

// NewRequest creates a new HTTP request for testing
func NewRequest(method, path string, body interface{}) *http.Request {
	var bodyBytes []byte
	if body != nil {
		bodyBytes, _ = json.Marshal(body)
	}
	var r *http.Request
	if bodyBytes != nil {
		r = httptest.NewRequest(method, path, bytes.NewReader(bodyBytes))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	return r
}

// RecordResponse records the HTTP response for testing
type RecordResponse struct {
	Code   int
	Header http.Header
	Body   map[string]interface{}
}

// RecordHTTPResponse records the HTTP response
func RecordHTTPResponse(w *httptest.ResponseRecorder) RecordResponse {
	result := w.Result()
	defer result.Body.Close()

	bodyBytes, _ := io.ReadAll(result.Body)

	var bodyMap map[string]interface{}
	if len(bodyBytes) > 0 {
		json.NewDecoder(bytes.NewReader(bodyBytes)).Decode(&bodyMap)
	}

	return RecordResponse{
		Code:   result.StatusCode,
		Header: result.Header,
		Body:   bodyMap,
	}
}
