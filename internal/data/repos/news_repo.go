package repos

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vvnuui/cerisier/internal/contracts"
)

// NewsRepo persists news articles and their sentiment scores.
// SSOT: news rows are written only here.
type NewsRepo struct {
	pool *pgxpool.Pool
}

// NewNewsRepo creates a new news repository.
func NewNewsRepo(pool *pgxpool.Pool) *NewsRepo {
	return &NewsRepo{pool: pool}
}

// SaveArticles upserts articles for one stock, keyed by URL. Existing
// sentiment scores are preserved unless the incoming row carries one.
func (r *NewsRepo) SaveArticles(ctx context.Context, code string, articles []contracts.NewsArticle) error {
	if len(articles) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO quant.news (stock_code, title, content, source, url, sentiment_score, published_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (stock_code, url) DO UPDATE SET
			title = EXCLUDED.title,
			content = EXCLUDED.content,
			sentiment_score = COALESCE(EXCLUDED.sentiment_score, quant.news.sentiment_score)
	`
	for _, a := range articles {
		if _, err := tx.Exec(ctx, query,
			code, a.Title, a.Content, a.Source, a.URL, a.SentimentScore, a.PublishedAt,
		); err != nil {
			return fmt.Errorf("upsert article %s: %w", a.URL, err)
		}
	}
	return tx.Commit(ctx)
}

// Recent returns articles published within the trailing day window,
// newest first.
func (r *NewsRepo) Recent(ctx context.Context, code string, days int) ([]contracts.NewsArticle, error) {
	query := `
		SELECT title, content, source, url, sentiment_score, published_at
		FROM quant.news
		WHERE stock_code = $1
		  AND published_at >= NOW() - ($2 || ' days')::interval
		ORDER BY published_at DESC
	`

	rows, err := r.pool.Query(ctx, query, code, days)
	if err != nil {
		return nil, fmt.Errorf("recent news %s: %w", code, err)
	}
	defer rows.Close()

	var articles []contracts.NewsArticle
	for rows.Next() {
		var a contracts.NewsArticle
		if err := rows.Scan(&a.Title, &a.Content, &a.Source, &a.URL, &a.SentimentScore, &a.PublishedAt); err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

// Unscored returns recent articles still missing a sentiment score,
// oldest first so backfill works through the backlog in order.
func (r *NewsRepo) Unscored(ctx context.Context, code string, limit int) ([]contracts.NewsArticle, error) {
	query := `
		SELECT title, content, source, url, sentiment_score, published_at
		FROM quant.news
		WHERE stock_code = $1 AND sentiment_score IS NULL
		ORDER BY published_at ASC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, code, limit)
	if err != nil {
		return nil, fmt.Errorf("unscored news %s: %w", code, err)
	}
	defer rows.Close()

	var articles []contracts.NewsArticle
	for rows.Next() {
		var a contracts.NewsArticle
		if err := rows.Scan(&a.Title, &a.Content, &a.Source, &a.URL, &a.SentimentScore, &a.PublishedAt); err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

// SetSentiment records the AI-assigned sentiment for one article.
func (r *NewsRepo) SetSentiment(ctx context.Context, code, url string, score float64) error {
	query := `
		UPDATE quant.news
		SET sentiment_score = $3
		WHERE stock_code = $1 AND url = $2
	`

	if _, err := r.pool.Exec(ctx, query, code, url, score); err != nil {
		return fmt.Errorf("set sentiment %s: %w", url, err)
	}
	return nil
}
