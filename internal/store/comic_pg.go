package store

// Store implementation (Postgres)

import (
	"context"
	"fmt"
	"strconv"

	"comicapi/internal/comic"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SampleSize is how many records a sampling query returns at most.
const SampleSize = 20

type ComicPG struct {
	db *pgxpool.Pool
}

func NewComicPG(db *pgxpool.Pool) *ComicPG {
	return &ComicPG{db: db}
}

// AddPage upserts the page row and its records in one transaction. Writes
// are idempotent replacements, so concurrent misses racing on the same
// (year, page) key are harmless. A record's image flag is ORed with
// membership in knownIDsWithImages, which carries image availability
// learned outside this page.
func (s *ComicPG) AddPage(ctx context.Context, page comic.Page, knownIDsWithImages map[string]bool) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
	INSERT INTO comic_pages (year, page_index, code, total, fetched_at)
	VALUES ($1, $2, $3, $4, now())
	ON CONFLICT (year, page_index) DO UPDATE SET
	  code = excluded.code,
	  total = excluded.total,
	  fetched_at = excluded.fetched_at
	`, page.Year, page.Index, page.Code, page.Total)
	if err != nil {
		return fmt.Errorf("upsert page %d/%d: %w", page.Year, page.Index, err)
	}

	for pos, c := range page.Comics {
		hasImage := c.HasImage || knownIDsWithImages[c.ID]
		_, err := tx.Exec(ctx, `
		INSERT INTO comics (id, year, page_index, position, title, series, creators, events, publish_date, unlimited_date, has_image)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
		  year = excluded.year,
		  page_index = excluded.page_index,
		  position = excluded.position,
		  title = excluded.title,
		  series = excluded.series,
		  creators = excluded.creators,
		  events = excluded.events,
		  publish_date = excluded.publish_date,
		  unlimited_date = excluded.unlimited_date,
		  has_image = excluded.has_image
		`, c.ID, page.Year, page.Index, pos, c.Title, c.Series, c.Creators, c.Events, c.PublishDate, c.UnlimitedDate, hasImage)
		if err != nil {
			return fmt.Errorf("upsert comic %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *ComicPG) GetPage(ctx context.Context, year, index int) (comic.Page, bool, error) {
	page := comic.Page{Year: year, Index: index}
	err := s.db.QueryRow(ctx, `
	SELECT code, total FROM comic_pages WHERE year = $1 AND page_index = $2
	`, year, index).Scan(&page.Code, &page.Total)
	if err == pgx.ErrNoRows {
		return comic.Page{}, false, nil
	}
	if err != nil {
		return comic.Page{}, false, err
	}

	rows, err := s.db.Query(ctx, `
	SELECT id, title, series, creators, events, publish_date, unlimited_date, has_image
	FROM comics
	WHERE year = $1 AND page_index = $2
	ORDER BY position
	`, year, index)
	if err != nil {
		return comic.Page{}, false, err
	}
	defer rows.Close()

	comics, err := scanComics(rows)
	if err != nil {
		return comic.Page{}, false, err
	}
	page.Comics = comics
	return page, true, nil
}

func (s *ComicPG) YearTotal(ctx context.Context, year int) (int, bool, error) {
	var total int
	err := s.db.QueryRow(ctx, `SELECT total FROM year_totals WHERE year = $1`, year).Scan(&total)
	if err == pgx.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return total, true, nil
}

func (s *ComicPG) SetYearTotal(ctx context.Context, year, total int) error {
	_, err := s.db.Exec(ctx, `
	INSERT INTO year_totals (year, total, updated_at)
	VALUES ($1, $2, now())
	ON CONFLICT (year) DO UPDATE SET total = excluded.total, updated_at = excluded.updated_at
	`, year, total)
	return err
}

// SampleYearRange orders the year span by a seeded hash of each id, which
// makes the sample deterministic for a given seed without server-side
// random state.
func (s *ComicPG) SampleYearRange(ctx context.Context, startYear, endYear int, seed int64) ([]comic.Comic, error) {
	rows, err := s.db.Query(ctx, `
	SELECT id, title, series, creators, events, publish_date, unlimited_date, has_image
	FROM comics
	WHERE year BETWEEN $1 AND $2
	ORDER BY md5(id || $3)
	LIMIT $4
	`, startYear, endYear, strconv.FormatInt(seed, 10), SampleSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanComics(rows)
}

func (s *ComicPG) SampleAny(ctx context.Context) ([]comic.Comic, error) {
	rows, err := s.db.Query(ctx, `
	SELECT id, title, series, creators, events, publish_date, unlimited_date, has_image
	FROM comics
	ORDER BY random()
	LIMIT $1
	`, SampleSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanComics(rows)
}

func scanComics(rows pgx.Rows) ([]comic.Comic, error) {
	var comics []comic.Comic
	for rows.Next() {
		var c comic.Comic
		if err := rows.Scan(&c.ID, &c.Title, &c.Series, &c.Creators, &c.Events, &c.PublishDate, &c.UnlimitedDate, &c.HasImage); err != nil {
			return nil, err
		}
		comics = append(comics, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return comics, nil
}
