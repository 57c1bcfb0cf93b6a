package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/imsulglobal/community-portal/internal/model"
)

const articleColumns = `id, title, subtitle, slug, body, category, author,
	 published, featured, publish_at, created_at, updated_at`

// ArticleRepository handles persistence for news articles.
type ArticleRepository struct {
	db DB
}

// NewArticleRepository constructs an ArticleRepository.
func NewArticleRepository(db DB) *ArticleRepository {
	return &ArticleRepository{db: db}
}

// Create inserts a new article. ID and Slug are assigned by the service.
func (r *ArticleRepository) Create(ctx context.Context, a *model.Article) error {
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	_, err := r.db.Exec(ctx,
		`INSERT INTO articles (id, title, subtitle, slug, body, category, author,
		  published, featured, publish_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		a.ID, a.Title, a.Subtitle, a.Slug, a.Body, a.Category, a.Author,
		a.Published, a.Featured, a.PublishAt, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert article: %w", err)
	}
	return nil
}

func scanArticle(row pgx.Row, a *model.Article) error {
	return row.Scan(
		&a.ID, &a.Title, &a.Subtitle, &a.Slug, &a.Body, &a.Category, &a.Author,
		&a.Published, &a.Featured, &a.PublishAt, &a.CreatedAt, &a.UpdatedAt,
	)
}

func (r *ArticleRepository) list(ctx context.Context, query string, args ...any) ([]model.Article, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	defer rows.Close()

	var articles []model.Article
	for rows.Next() {
		var a model.Article
		if err := scanArticle(rows, &a); err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

// ListPublished returns publicly visible articles, newest publication first.
// Scheduled articles stay hidden until their publish time passes; the filter
// runs at read time so no background job is needed.
func (r *ArticleRepository) ListPublished(ctx context.Context, category model.ArticleCategory) ([]model.Article, error) {
	query := `SELECT ` + articleColumns + ` FROM articles
		 WHERE published = TRUE AND publish_at <= $1`
	args := []any{time.Now().UTC()}
	if category != "" {
		query += ` AND category = $2`
		args = append(args, category)
	}
	query += ` ORDER BY publish_at DESC`
	return r.list(ctx, query, args...)
}

// ListAll returns every article for the staff views, newest first.
func (r *ArticleRepository) ListAll(ctx context.Context) ([]model.Article, error) {
	return r.list(ctx,
		`SELECT ` + articleColumns + ` FROM articles ORDER BY created_at DESC`,
	)
}

// FeaturedLatest returns the most recent featured, visible articles.
func (r *ArticleRepository) FeaturedLatest(ctx context.Context, limit int) ([]model.Article, error) {
	return r.list(ctx,
		`SELECT `+articleColumns+` FROM articles
		 WHERE published = TRUE AND publish_at <= $1 AND featured = TRUE
		 ORDER BY publish_at DESC LIMIT $2`,
		time.Now().UTC(), limit,
	)
}

// GetBySlug returns a publicly visible article or ErrNotFound. Unpublished
// and scheduled articles are not found through this path.
func (r *ArticleRepository) GetBySlug(ctx context.Context, slug string) (*model.Article, error) {
	var a model.Article
	err := scanArticle(r.db.QueryRow(ctx,
		`SELECT `+articleColumns+` FROM articles
		 WHERE slug = $1 AND published = TRUE AND publish_at <= $2`,
		slug, time.Now().UTC(),
	), &a)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get article: %w", err)
	}
	return &a, nil
}

// GetByID returns any article by ID, for the staff views.
func (r *ArticleRepository) GetByID(ctx context.Context, id string) (*model.Article, error) {
	var a model.Article
	err := scanArticle(r.db.QueryRow(ctx,
		`SELECT `+articleColumns+` FROM articles WHERE id = $1`, id,
	), &a)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get article: %w", err)
	}
	return &a, nil
}

// Update edits an article. The slug never changes after creation.
func (r *ArticleRepository) Update(ctx context.Context, a *model.Article) error {
	a.UpdatedAt = time.Now().UTC()
	tag, err := r.db.Exec(ctx,
		`UPDATE articles SET title = $2, subtitle = $3, body = $4, category = $5,
		  author = $6, published = $7, featured = $8, publish_at = $9, updated_at = $10
		 WHERE id = $1`,
		a.ID, a.Title, a.Subtitle, a.Body, a.Category,
		a.Author, a.Published, a.Featured, a.PublishAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update article: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes an article.
func (r *ArticleRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM articles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete article: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
