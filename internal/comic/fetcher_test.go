package comic

import (
	"context"
	"errors"
	"testing"
	"time"

	"comicapi/internal/platform/marvel"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockClient struct {
	mock.Mock
}

func (m *mockClient) GetComics(ctx context.Context, year, limit, offset int) (*marvel.ComicsResponse, error) {
	args := m.Called(ctx, year, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*marvel.ComicsResponse), args.Error(1)
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) AddPage(ctx context.Context, page Page, knownIDsWithImages map[string]bool) error {
	args := m.Called(ctx, page, knownIDsWithImages)
	return args.Error(0)
}

func (m *mockStore) GetPage(ctx context.Context, year, index int) (Page, bool, error) {
	args := m.Called(ctx, year, index)
	return args.Get(0).(Page), args.Bool(1), args.Error(2)
}

func (m *mockStore) YearTotal(ctx context.Context, year int) (int, bool, error) {
	args := m.Called(ctx, year)
	return args.Int(0), args.Bool(1), args.Error(2)
}

func (m *mockStore) SetYearTotal(ctx context.Context, year, total int) error {
	args := m.Called(ctx, year, total)
	return args.Error(0)
}

func (m *mockStore) SampleYearRange(ctx context.Context, startYear, endYear int, seed int64) ([]Comic, error) {
	args := m.Called(ctx, startYear, endYear, seed)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Comic), args.Error(1)
}

func (m *mockStore) SampleAny(ctx context.Context) ([]Comic, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Comic), args.Error(1)
}

func comicsResponse(code, total int, results ...marvel.ComicResult) *marvel.ComicsResponse {
	res := &marvel.ComicsResponse{Code: code}
	res.Data.Total = total
	res.Data.Count = len(results)
	res.Data.Results = results
	return res
}

func comicResult(id int, title string) marvel.ComicResult {
	var r marvel.ComicResult
	r.ID = id
	r.Title = title
	r.Series.Name = "ASM"
	r.Dates = []marvel.ComicDate{
		{Type: marvel.DateOnsale, Date: "2019-03-01T00:00:00-0500"},
		{Type: marvel.DateUnlimited, Date: "2019-09-01T00:00:00-0500"},
	}
	r.Creators.Items = []marvel.SummaryItem{{Name: "Stan Lee"}}
	r.Events.Items = []marvel.SummaryItem{{Name: "Secret Wars"}}
	r.Thumbnail.Path = "http://i.example/covers/abc"
	r.Thumbnail.Extension = "jpg"
	return r
}

func TestGetPage(t *testing.T) {
	ctx := context.Background()

	t.Run("cached page short-circuits without upstream call", func(t *testing.T) {
		client := new(mockClient)
		store := new(mockStore)
		f := NewFetcher(client, store)

		want := Page{Year: 2019, Index: 2, Code: 200, Total: 450}
		cached := map[int]Page{2: want}

		got, err := f.GetPage(ctx, 2019, 2, cached, nil)
		assert.NoError(t, err)
		assert.Equal(t, want, got)

		// Second call with the same lookup is identical, still no upstream.
		again, err := f.GetPage(ctx, 2019, 2, cached, nil)
		assert.NoError(t, err)
		assert.Equal(t, got, again)

		client.AssertNotCalled(t, "GetComics")
		store.AssertNotCalled(t, "AddPage")
	})

	t.Run("cache miss fetches and persists on success", func(t *testing.T) {
		client := new(mockClient)
		store := new(mockStore)
		f := NewFetcher(client, store)

		client.On("GetComics", ctx, 2019, PageSize, 3*PageSize).
			Return(comicsResponse(200, 450, comicResult(1009, "Amazing Spider-Man")), nil)
		known := map[string]bool{"42": true}
		store.On("AddPage", ctx, mock.AnythingOfType("comic.Page"), known).Return(nil)

		page, err := f.GetPage(ctx, 2019, 3, nil, known)
		assert.NoError(t, err)
		assert.Equal(t, 2019, page.Year)
		assert.Equal(t, 3, page.Index)
		assert.Equal(t, 200, page.Code)
		assert.Equal(t, 450, page.Total)
		assert.Len(t, page.Comics, 1)

		c := page.Comics[0]
		assert.Equal(t, "1009", c.ID)
		assert.Equal(t, "Amazing Spider-Man", c.Title)
		assert.Equal(t, "ASM", c.Series)
		assert.Equal(t, []string{"Stan Lee"}, c.Creators)
		assert.Equal(t, []string{"Secret Wars"}, c.Events)
		assert.Equal(t, time.March, c.PublishDate.Month())
		assert.True(t, c.HasImage)

		store.AssertExpectations(t)
		client.AssertExpectations(t)
	})

	t.Run("non-success code is returned as data, never cached", func(t *testing.T) {
		client := new(mockClient)
		store := new(mockStore)
		f := NewFetcher(client, store)

		client.On("GetComics", ctx, 2019, PageSize, 0).
			Return(comicsResponse(409, 0), nil)

		page, err := f.GetPage(ctx, 2019, 0, nil, nil)
		assert.NoError(t, err)
		assert.Equal(t, 409, page.Code)
		store.AssertNotCalled(t, "AddPage")
	})

	t.Run("transport failure propagates", func(t *testing.T) {
		client := new(mockClient)
		store := new(mockStore)
		f := NewFetcher(client, store)

		client.On("GetComics", ctx, 2019, PageSize, 0).
			Return(nil, errors.New("connection reset"))

		_, err := f.GetPage(ctx, 2019, 0, nil, nil)
		assert.Error(t, err)
		store.AssertNotCalled(t, "AddPage")
	})

	t.Run("persist failure still returns the page", func(t *testing.T) {
		client := new(mockClient)
		store := new(mockStore)
		f := NewFetcher(client, store)

		client.On("GetComics", ctx, 2019, PageSize, 0).
			Return(comicsResponse(200, 1, comicResult(7, "Thor")), nil)
		store.On("AddPage", ctx, mock.Anything, mock.Anything).Return(errors.New("disk full"))

		page, err := f.GetPage(ctx, 2019, 0, nil, nil)
		assert.NoError(t, err)
		assert.Equal(t, 200, page.Code)
		assert.Len(t, page.Comics, 1)
	})
}

func TestGetYearTotal(t *testing.T) {
	ctx := context.Background()

	t.Run("cached total wins", func(t *testing.T) {
		client := new(mockClient)
		store := new(mockStore)
		f := NewFetcher(client, store)

		store.On("YearTotal", ctx, 2019).Return(450, true, nil)

		total, err := f.GetYearTotal(ctx, 2019, false)
		assert.NoError(t, err)
		assert.Equal(t, 450, total)
		client.AssertNotCalled(t, "GetComics")
	})

	t.Run("bypass skips the cache", func(t *testing.T) {
		client := new(mockClient)
		store := new(mockStore)
		f := NewFetcher(client, store)

		client.On("GetComics", ctx, 2019, 1, 0).Return(comicsResponse(200, 480), nil)
		store.On("SetYearTotal", ctx, 2019, 480).Return(nil)

		total, err := f.GetYearTotal(ctx, 2019, true)
		assert.NoError(t, err)
		assert.Equal(t, 480, total)
		store.AssertNotCalled(t, "YearTotal")
		store.AssertExpectations(t)
	})

	t.Run("miss fetches limit=1 and caches the total", func(t *testing.T) {
		client := new(mockClient)
		store := new(mockStore)
		f := NewFetcher(client, store)

		store.On("YearTotal", ctx, 2019).Return(0, false, nil)
		client.On("GetComics", ctx, 2019, 1, 0).Return(comicsResponse(200, 450), nil)
		store.On("SetYearTotal", ctx, 2019, 450).Return(nil)

		total, err := f.GetYearTotal(ctx, 2019, false)
		assert.NoError(t, err)
		assert.Equal(t, 450, total)
		store.AssertExpectations(t)
	})

	t.Run("non-success status yields -1 and is never cached", func(t *testing.T) {
		client := new(mockClient)
		store := new(mockStore)
		f := NewFetcher(client, store)

		store.On("YearTotal", ctx, 2019).Return(0, false, nil)
		client.On("GetComics", ctx, 2019, 1, 0).Return(comicsResponse(429, 0), nil)

		total, err := f.GetYearTotal(ctx, 2019, false)
		assert.NoError(t, err)
		assert.Equal(t, -1, total)
		store.AssertNotCalled(t, "SetYearTotal")

		// A later call retries upstream instead of serving the failure.
		total, err = f.GetYearTotal(ctx, 2019, false)
		assert.NoError(t, err)
		assert.Equal(t, -1, total)
		client.AssertNumberOfCalls(t, "GetComics", 2)
	})

	t.Run("transport failure propagates", func(t *testing.T) {
		client := new(mockClient)
		store := new(mockStore)
		f := NewFetcher(client, store)

		store.On("YearTotal", ctx, 2019).Return(0, false, nil)
		client.On("GetComics", ctx, 2019, 1, 0).Return(nil, errors.New("timeout"))

		_, err := f.GetYearTotal(ctx, 2019, false)
		assert.Error(t, err)
	})
}

func TestRandom(t *testing.T) {
	ctx := context.Background()

	t.Run("range sample is deduplicated by id, first occurrence wins", func(t *testing.T) {
		client := new(mockClient)
		store := new(mockStore)
		f := NewFetcher(client, store)

		sample := []Comic{
			{ID: "1", Title: "first"},
			{ID: "2", Title: "second"},
			{ID: "1", Title: "duplicate of first"},
			{ID: "3", Title: "third"},
			{ID: "2", Title: "duplicate of second"},
		}
		store.On("SampleYearRange", ctx, 2010, 2020, mock.AnythingOfType("int64")).Return(sample, nil)

		got, err := f.RandomRange(ctx, 2010, 2020)
		assert.NoError(t, err)
		assert.Equal(t, []string{"1", "2", "3"}, ids(got))
		assert.Equal(t, "first", got[0].Title)
	})

	t.Run("unbounded sample delegates to the store", func(t *testing.T) {
		client := new(mockClient)
		store := new(mockStore)
		f := NewFetcher(client, store)

		store.On("SampleAny", ctx).Return([]Comic{{ID: "9"}, {ID: "9"}}, nil)

		got, err := f.Random(ctx)
		assert.NoError(t, err)
		assert.Equal(t, []string{"9"}, ids(got))
		store.AssertNotCalled(t, "SampleYearRange")
	})

	t.Run("store failure propagates", func(t *testing.T) {
		client := new(mockClient)
		store := new(mockStore)
		f := NewFetcher(client, store)

		store.On("SampleYearRange", ctx, 2010, 2020, mock.AnythingOfType("int64")).
			Return(nil, errors.New("store down"))

		_, err := f.RandomRange(ctx, 2010, 2020)
		assert.Error(t, err)
	})
}

func ids(comics []Comic) []string {
	out := make([]string, len(comics))
	for i, c := range comics {
		out[i] = c.ID
	}
	return out
}
