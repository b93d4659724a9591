package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/bduran04/festival-finder/internal/model"
)

const festivalColumns = `id, name, venue, city, state, date, price, url, description,
	 category, ai_summary, sentiment_score, popularity_score, created_at, updated_at`

// CreateFestival inserts a festival with its enrichment outputs and
// returns the stored record with server-assigned fields populated.
func (db *DB) CreateFestival(ctx context.Context, in model.FestivalInput, enr model.Enrichment) (model.Festival, error) {
	row := db.pool.QueryRow(ctx,
		`INSERT INTO festivals (name, venue, city, state, date, price, url, description,
		 category, ai_summary, sentiment_score, popularity_score)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''), $11, $12)
		 RETURNING `+festivalColumns,
		in.Name, in.Venue, in.City, in.State, in.Date, in.Price, in.URL, in.Description,
		enr.Category, enr.Summary, enr.SentimentScore, enr.PopularityScore,
	)

	f, err := scanFestival(row)
	if err != nil {
		return model.Festival{}, fmt.Errorf("storage: create festival: %w", err)
	}
	return f, nil
}

// GetFestival retrieves a festival by ID. Returns ErrNotFound when the
// ID does not exist.
func (db *DB) GetFestival(ctx context.Context, id int64) (model.Festival, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+festivalColumns+` FROM festivals WHERE id = $1`, id)

	f, err := scanFestival(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return model.Festival{}, ErrNotFound
		}
		return model.Festival{}, fmt.Errorf("storage: get festival: %w", err)
	}
	return f, nil
}

// UpdateFestival replaces the caller-supplied fields and enrichment
// outputs of an existing festival. Returns ErrNotFound when the ID does
// not exist. updated_at is maintained by a trigger.
func (db *DB) UpdateFestival(ctx context.Context, id int64, in model.FestivalInput, enr model.Enrichment) (model.Festival, error) {
	row := db.pool.QueryRow(ctx,
		`UPDATE festivals SET name = $2, venue = $3, city = $4, state = $5, date = $6,
		 price = $7, url = $8, description = $9, category = $10,
		 ai_summary = NULLIF($11, ''), sentiment_score = $12, popularity_score = $13
		 WHERE id = $1
		 RETURNING `+festivalColumns,
		id, in.Name, in.Venue, in.City, in.State, in.Date, in.Price, in.URL, in.Description,
		enr.Category, enr.Summary, enr.SentimentScore, enr.PopularityScore,
	)

	f, err := scanFestival(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return model.Festival{}, ErrNotFound
		}
		return model.Festival{}, fmt.Errorf("storage: update festival: %w", err)
	}
	return f, nil
}

// UpdateEnrichment rewrites only the enrichment outputs of a festival.
// Used by the admin re-enrichment pass.
func (db *DB) UpdateEnrichment(ctx context.Context, id int64, enr model.Enrichment) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE festivals SET category = $2, ai_summary = NULLIF($3, ''),
		 sentiment_score = $4, popularity_score = $5
		 WHERE id = $1`,
		id, enr.Category, enr.Summary, enr.SentimentScore, enr.PopularityScore,
	)
	if err != nil {
		return fmt.Errorf("storage: update enrichment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListFestivals returns festivals matching the filters, newest first,
// along with the total match count before pagination.
func (db *DB) ListFestivals(ctx context.Context, f model.ListFilters) ([]model.Festival, int, error) {
	where, args := buildFestivalWhereClause(f)

	var total int
	if err := db.pool.QueryRow(ctx, "SELECT COUNT(*) FROM festivals"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("storage: count festivals: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(
		`SELECT `+festivalColumns+` FROM festivals%s ORDER BY created_at DESC, id DESC LIMIT %d OFFSET %d`,
		where, limit, offset,
	)

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("storage: list festivals: %w", err)
	}
	defer rows.Close()

	festivals, err := scanFestivals(rows)
	if err != nil {
		return nil, 0, err
	}
	return festivals, total, nil
}

// ListFestivalsAfter returns up to limit festivals with IDs greater
// than afterID, in ID order. Used for keyset pagination by the admin
// re-enrichment pass.
func (db *DB) ListFestivalsAfter(ctx context.Context, afterID int64, limit int) ([]model.Festival, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.pool.Query(ctx,
		`SELECT `+festivalColumns+` FROM festivals WHERE id > $1 ORDER BY id LIMIT $2`,
		afterID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: list festivals after %d: %w", afterID, err)
	}
	defer rows.Close()

	return scanFestivals(rows)
}

// SearchFestivals delegates to the search_festivals SQL function:
// full-text ts_rank with an ILIKE substring fallback, ordered by rank
// descending then recency descending.
func (db *DB) SearchFestivals(ctx context.Context, query string, limit int) ([]model.SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 50 {
		limit = 50
	}

	rows, err := db.pool.Query(ctx, `SELECT * FROM search_festivals($1, $2)`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("storage: search festivals: %w", err)
	}
	defer rows.Close()

	var results []model.SearchResult
	for rows.Next() {
		var f model.Festival
		var rank float32
		if err := rows.Scan(
			&f.ID, &f.Name, &f.Venue, &f.City, &f.State, &f.Date, &f.Price, &f.URL,
			&f.Description, &f.Category, &f.AISummary, &f.SentimentScore,
			&f.PopularityScore, &f.CreatedAt, &f.UpdatedAt, &rank,
		); err != nil {
			return nil, fmt.Errorf("storage: scan search result: %w", err)
		}
		results = append(results, model.SearchResult{Festival: f, Rank: rank})
	}
	return results, rows.Err()
}

// ListCategories returns the distinct categories present in the table,
// sorted ascending.
func (db *DB) ListCategories(ctx context.Context) ([]string, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT DISTINCT category FROM festivals ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("storage: list categories: %w", err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("storage: scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// Stats delegates to the festival_stats SQL function and assembles the
// aggregate response.
func (db *DB) Stats(ctx context.Context) (model.Stats, error) {
	rows, err := db.pool.Query(ctx, `SELECT * FROM festival_stats()`)
	if err != nil {
		return model.Stats{}, fmt.Errorf("storage: festival stats: %w", err)
	}
	defer rows.Close()

	stats := model.Stats{Categories: map[string]int64{}}
	for rows.Next() {
		var cc model.CategoryCount
		if err := rows.Scan(&cc.Category, &cc.Total); err != nil {
			return model.Stats{}, fmt.Errorf("storage: scan stats row: %w", err)
		}
		stats.Categories[string(cc.Category)] = cc.Total
		stats.TotalFestivals += cc.Total
	}
	return stats, rows.Err()
}

func buildFestivalWhereClause(f model.ListFilters) (string, []any) {
	var conditions []string
	var args []any
	idx := 1

	if f.City != "" {
		conditions = append(conditions, fmt.Sprintf("city ILIKE $%d", idx))
		args = append(args, "%"+f.City+"%")
		idx++
	}
	if f.Category != "" {
		conditions = append(conditions, fmt.Sprintf("category = $%d", idx))
		args = append(args, f.Category)
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func scanFestival(row pgx.Row) (model.Festival, error) {
	var f model.Festival
	err := row.Scan(
		&f.ID, &f.Name, &f.Venue, &f.City, &f.State, &f.Date, &f.Price, &f.URL,
		&f.Description, &f.Category, &f.AISummary, &f.SentimentScore,
		&f.PopularityScore, &f.CreatedAt, &f.UpdatedAt,
	)
	return f, err
}

func scanFestivals(rows pgx.Rows) ([]model.Festival, error) {
	var festivals []model.Festival
	for rows.Next() {
		var f model.Festival
		if err := rows.Scan(
			&f.ID, &f.Name, &f.Venue, &f.City, &f.State, &f.Date, &f.Price, &f.URL,
			&f.Description, &f.Category, &f.AISummary, &f.SentimentScore,
			&f.PopularityScore, &f.CreatedAt, &f.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("storage: scan festival: %w", err)
		}
		festivals = append(festivals, f)
	}
	return festivals, rows.Err()
}
