package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/zhoufan91/ZipLink/internal/app/model"
)

const analyticsWindow = 30 * 24 * time.Hour

// AnalyticsRepository aggregates click history per short link. The grouped
// queries bypass the ORM and run on the pgx pool directly.
type AnalyticsRepository interface {
	LinkAnalytics(ctx context.Context, code string) (*model.LinkAnalytics, error)
}

type analyticsRepository struct {
	pool *pgxpool.Pool
}

// NewAnalyticsRepository returns a pgx-backed AnalyticsRepository.
func NewAnalyticsRepository(pool *pgxpool.Pool) AnalyticsRepository {
	return &analyticsRepository{pool: pool}
}

func (r *analyticsRepository) LinkAnalytics(ctx context.Context, code string) (*model.LinkAnalytics, error) {
	since := time.Now().Add(-analyticsWindow)

	overTime, err := r.clicksOverTime(ctx, code, since)
	if err != nil {
		return nil, err
	}

	result := &model.LinkAnalytics{ClicksOverTime: overTime}

	fieldQueries := []struct {
		column string
		limit  int
		dest   *[]model.FieldCount
	}{
		{"country", 10, &result.TopCountries},
		{"device", 0, &result.Devices},
		{"browser", 10, &result.Browsers},
		{"referrer", 10, &result.TopReferrers},
	}
	for _, q := range fieldQueries {
		counts, err := r.countByField(ctx, code, q.column, q.limit)
		if err != nil {
			return nil, err
		}
		*q.dest = counts
	}

	return result, nil
}

func (r *analyticsRepository) clicksOverTime(ctx context.Context, code string, since time.Time) ([]model.DailyClicks, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT date_trunc('day', clicked_at)::date AS day, count(*) AS clicks
		FROM clicks
		WHERE short_code = $1 AND clicked_at >= $2
		GROUP BY day
		ORDER BY day ASC`, code, since)
	if err != nil {
		return nil, fmt.Errorf("analytics: clicks over time: %w", err)
	}
	defer rows.Close()

	var series []model.DailyClicks
	for rows.Next() {
		var bucket model.DailyClicks
		if err := rows.Scan(&bucket.Date, &bucket.Clicks); err != nil {
			return nil, fmt.Errorf("analytics: scan daily clicks: %w", err)
		}
		series = append(series, bucket)
	}
	return series, rows.Err()
}

// countByField groups clicks by a dimension column. The column name comes
// from a fixed internal list, never from request input.
func (r *analyticsRepository) countByField(ctx context.Context, code, column string, limit int) ([]model.FieldCount, error) {
	query := fmt.Sprintf(`
		SELECT %[1]s, count(*) AS clicks
		FROM clicks
		WHERE short_code = $1 AND %[1]s <> ''
		GROUP BY %[1]s
		ORDER BY clicks DESC`, column)
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := r.pool.Query(ctx, query, code)
	if err != nil {
		return nil, fmt.Errorf("analytics: count by %s: %w", column, err)
	}
	defer rows.Close()

	var counts []model.FieldCount
	for rows.Next() {
		var fc model.FieldCount
		if err := rows.Scan(&fc.Value, &fc.Clicks); err != nil {
			return nil, fmt.Errorf("analytics: scan %s count: %w", column, err)
		}
		counts = append(counts, fc)
	}
	return counts, rows.Err()
}
