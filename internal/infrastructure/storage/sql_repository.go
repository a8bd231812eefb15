package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq" // PostgreSQL driver
	_ "modernc.org/sqlite" // SQLite driver

	"DailyKnowledge/internal/domain"
	"DailyKnowledge/internal/ports"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// SQLRepository persists the daily feed, bookmarks, notes and reviews in
// SQLite or Postgres.
type SQLRepository struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

var _ ports.Store = (*SQLRepository)(nil)

// Open connects to the database and applies the schema.
func Open(ctx context.Context, driver, dsn string) (*SQLRepository, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
		for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON", "PRAGMA busy_timeout=5000"} {
			if _, err := db.ExecContext(ctx, pragma); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("%s: %w", pragma, err)
			}
		}
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return NewSQLRepository(db, driver), nil
}

// NewSQLRepository wires an open sql.DB; the driver picks the placeholder style.
func NewSQLRepository(db *sql.DB, driver string) *SQLRepository {
	format := sq.PlaceholderFormat(sq.Question)
	if driver == DriverPostgres {
		format = sq.Dollar
	}
	return &SQLRepository{db: db, sb: sq.StatementBuilder.PlaceholderFormat(format)}
}

// Close releases the connection pool.
func (r *SQLRepository) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

var insightColumns = []string{"id", "date", "category", "title", "summary", "score", "url", "source_name", "created_at"}

// SaveDailyInsights replaces the stored feed in one transaction.
func (r *SQLRepository) SaveDailyInsights(ctx context.Context, insights []domain.CuratedInsight) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		if err := r.exec(ctx, tx, r.sb.Delete("daily_insights")); err != nil {
			return fmt.Errorf("clear daily insights: %w", err)
		}
		if len(insights) == 0 {
			return nil
		}

		insert := r.sb.Insert("daily_insights").Columns(append([]string{"position"}, insightColumns...)...)
		for i, in := range insights {
			insert = insert.Values(i, in.ID, in.Date, string(in.Category), in.Title, in.Summary, in.Score, in.URL, in.SourceName, toMillis(in.CreatedAt))
		}
		if err := r.exec(ctx, tx, insert); err != nil {
			return fmt.Errorf("insert daily insights: %w", err)
		}
		return nil
	})
}

// DailyInsights returns the stored feed in the order it was saved.
func (r *SQLRepository) DailyInsights(ctx context.Context) ([]domain.CuratedInsight, error) {
	query := r.sb.Select(insightColumns...).From("daily_insights").OrderBy("position")
	rows, err := r.query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query daily insights: %w", err)
	}

	result := []domain.CuratedInsight{}
	for rows.Next() {
		in, err := scanInsight(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		result = append(result, in)
	}
	return result, closeRows(rows)
}

// Insight looks up one insight of the current feed.
func (r *SQLRepository) Insight(ctx context.Context, id string) (domain.CuratedInsight, error) {
	query := r.sb.Select(insightColumns...).From("daily_insights").Where(sq.Eq{"id": id})
	row, err := r.queryRow(ctx, query)
	if err != nil {
		return domain.CuratedInsight{}, err
	}
	in, err := scanInsight(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CuratedInsight{}, domain.ErrNotFound
	}
	return in, err
}

var collectionColumns = []string{"id", "insight_id", "title", "summary", "url", "category", "source_name", "tags", "created_at"}

// AddBookmark stores a snapshot collection item.
func (r *SQLRepository) AddBookmark(ctx context.Context, item domain.CollectionItem) error {
	tags := item.Tags
	if tags == nil {
		tags = []string{}
	}
	rawTags, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}

	insert := r.sb.Insert("collections").Columns(collectionColumns...).Values(
		item.ID, item.InsightID, item.Title, item.Summary, item.URL,
		string(item.Category), item.SourceName, string(rawTags), toMillis(item.CreatedAt),
	)
	if err := r.exec(ctx, r.db, insert); err != nil {
		return fmt.Errorf("insert bookmark: %w", err)
	}
	return nil
}

// RemoveBookmark deletes a collection item and its note together.
func (r *SQLRepository) RemoveBookmark(ctx context.Context, id string) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		if err := r.exec(ctx, tx, r.sb.Delete("notes").Where(sq.Eq{"collection_id": id})); err != nil {
			return fmt.Errorf("delete note: %w", err)
		}

		sqlStr, args, err := r.sb.Delete("collections").Where(sq.Eq{"id": id}).ToSql()
		if err != nil {
			return fmt.Errorf("build delete: %w", err)
		}
		res, err := tx.ExecContext(ctx, sqlStr, args...)
		if err != nil {
			return fmt.Errorf("delete bookmark: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if n == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
}

// BookmarkByInsight finds the bookmark taken from an insight.
func (r *SQLRepository) BookmarkByInsight(ctx context.Context, insightID string) (domain.CollectionItem, error) {
	query := r.sb.Select(collectionColumns...).From("collections").Where(sq.Eq{"insight_id": insightID})
	row, err := r.queryRow(ctx, query)
	if err != nil {
		return domain.CollectionItem{}, err
	}
	item, err := scanCollection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CollectionItem{}, domain.ErrNotFound
	}
	return item, err
}

// Bookmarks lists collection items newest first.
func (r *SQLRepository) Bookmarks(ctx context.Context) ([]domain.CollectionItem, error) {
	query := r.sb.Select(collectionColumns...).From("collections").OrderBy("created_at DESC", "id")
	rows, err := r.query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query bookmarks: %w", err)
	}

	result := []domain.CollectionItem{}
	for rows.Next() {
		item, err := scanCollection(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		result = append(result, item)
	}
	return result, closeRows(rows)
}

// UpsertNote writes the note of a bookmark, replacing any earlier one.
func (r *SQLRepository) UpsertNote(ctx context.Context, collectionID, content string) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		sqlStr, args, err := r.sb.Select("COUNT(*)").From("collections").Where(sq.Eq{"id": collectionID}).ToSql()
		if err != nil {
			return fmt.Errorf("build lookup: %w", err)
		}
		var n int
		if err := tx.QueryRowContext(ctx, sqlStr, args...).Scan(&n); err != nil {
			return fmt.Errorf("lookup bookmark: %w", err)
		}
		if n == 0 {
			return domain.ErrNotFound
		}

		upsert := r.sb.Insert("notes").
			Columns("collection_id", "content", "updated_at").
			Values(collectionID, content, toMillis(time.Now())).
			Suffix("ON CONFLICT (collection_id) DO UPDATE SET content = excluded.content, updated_at = excluded.updated_at")
		if err := r.exec(ctx, tx, upsert); err != nil {
			return fmt.Errorf("upsert note: %w", err)
		}
		return nil
	})
}

// Notes returns every note keyed by collection id.
func (r *SQLRepository) Notes(ctx context.Context) (map[string]domain.Note, error) {
	rows, err := r.query(ctx, r.sb.Select("collection_id", "content", "updated_at").From("notes"))
	if err != nil {
		return nil, fmt.Errorf("query notes: %w", err)
	}

	result := map[string]domain.Note{}
	for rows.Next() {
		var n domain.Note
		var updated int64
		if err := rows.Scan(&n.CollectionID, &n.Content, &updated); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan note: %w", err)
		}
		n.UpdatedAt = fromMillis(updated)
		result[n.CollectionID] = n
	}
	return result, closeRows(rows)
}

var reviewColumns = []string{"id", "week_range", "themes", "insights", "next_week_suggestions", "created_at"}

// SaveReview stores a generated weekly review.
func (r *SQLRepository) SaveReview(ctx context.Context, review domain.WeeklyReview) error {
	insert := r.sb.Insert("weekly_reviews").Columns(reviewColumns...).Values(
		review.ID, review.WeekRange, review.Themes, review.Insights, review.NextWeekSuggestions, toMillis(review.CreatedAt),
	)
	if err := r.exec(ctx, r.db, insert); err != nil {
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

// Reviews lists weekly reviews, most recent first.
func (r *SQLRepository) Reviews(ctx context.Context) ([]domain.WeeklyReview, error) {
	rows, err := r.query(ctx, r.sb.Select(reviewColumns...).From("weekly_reviews").OrderBy("created_at DESC", "id"))
	if err != nil {
		return nil, fmt.Errorf("query reviews: %w", err)
	}

	result := []domain.WeeklyReview{}
	for rows.Next() {
		var rv domain.WeeklyReview
		var created int64
		if err := rows.Scan(&rv.ID, &rv.WeekRange, &rv.Themes, &rv.Insights, &rv.NextWeekSuggestions, &created); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan review: %w", err)
		}
		rv.CreatedAt = fromMillis(created)
		result = append(result, rv)
	}
	return result, closeRows(rows)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type scanner interface {
	Scan(dest ...any) error
}

func (r *SQLRepository) exec(ctx context.Context, db execer, b sq.Sqlizer) error {
	sqlStr, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("build statement: %w", err)
	}
	_, err = db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *SQLRepository) query(ctx context.Context, b sq.SelectBuilder) (*sql.Rows, error) {
	sqlStr, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	return r.db.QueryContext(ctx, sqlStr, args...)
}

func (r *SQLRepository) queryRow(ctx context.Context, b sq.SelectBuilder) (*sql.Row, error) {
	sqlStr, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	return r.db.QueryRowContext(ctx, sqlStr, args...), nil
}

func (r *SQLRepository) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func scanInsight(row scanner) (domain.CuratedInsight, error) {
	var in domain.CuratedInsight
	var category string
	var created int64
	err := row.Scan(&in.ID, &in.Date, &category, &in.Title, &in.Summary, &in.Score, &in.URL, &in.SourceName, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return in, err
	}
	if err != nil {
		return in, fmt.Errorf("scan insight: %w", err)
	}
	in.Category = domain.Category(category)
	in.CreatedAt = fromMillis(created)
	return in, nil
}

func scanCollection(row scanner) (domain.CollectionItem, error) {
	var item domain.CollectionItem
	var category, rawTags string
	var created int64
	err := row.Scan(&item.ID, &item.InsightID, &item.Title, &item.Summary, &item.URL, &category, &item.SourceName, &rawTags, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return item, err
	}
	if err != nil {
		return item, fmt.Errorf("scan bookmark: %w", err)
	}
	item.Category = domain.Category(category)
	item.CreatedAt = fromMillis(created)
	item.Tags = []string{}
	if rawTags != "" {
		if err := json.Unmarshal([]byte(rawTags), &item.Tags); err != nil {
			return item, fmt.Errorf("decode tags: %w", err)
		}
	}
	return item, nil
}

func closeRows(rows *sql.Rows) error {
	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return fmt.Errorf("rows iteration: %w", rowsErr)
	}
	if closeErr := rows.Close(); closeErr != nil {
		return fmt.Errorf("close rows: %w", closeErr)
	}
	return nil
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
