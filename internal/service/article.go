package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/imsulglobal/community-portal/internal/cache"
	"github.com/imsulglobal/community-portal/internal/model"
	"github.com/imsulglobal/community-portal/internal/repository"
)

type articleRepository interface {
	Create(ctx context.Context, a *model.Article) error
	ListPublished(ctx context.Context, category model.ArticleCategory) ([]model.Article, error)
	ListAll(ctx context.Context) ([]model.Article, error)
	FeaturedLatest(ctx context.Context, limit int) ([]model.Article, error)
	GetBySlug(ctx context.Context, slug string) (*model.Article, error)
	GetByID(ctx context.Context, id string) (*model.Article, error)
	Update(ctx context.Context, a *model.Article) error
	Delete(ctx context.Context, id string) error
}

// ArticleService orchestrates news article operations.
type ArticleService struct {
	repo     articleRepository
	cache    *cache.Cache
	validate *validator.Validate
	log      *zap.Logger
}

// NewArticleService constructs an ArticleService.
func NewArticleService(repo articleRepository, c *cache.Cache, validate *validator.Validate, log *zap.Logger) *ArticleService {
	if validate == nil {
		validate = validator.New()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ArticleService{repo: repo, cache: c, validate: validate, log: log}
}

func (s *ArticleService) invalidateListings(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, cacheKeyArticles, cacheKeyHome)
	}
}

// Slugify renders a URL-safe slug from a title, with a short random suffix
// so retitled duplicates never collide.
func Slugify(title string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteByte('-')
			lastDash = true
		}
	}
	slug := strings.Trim(b.String(), "-")
	suffix := uuid.New().String()[:8]
	if slug == "" {
		return suffix
	}
	return slug + "-" + suffix
}

func parsePublishAt(raw string) (time.Time, error) {
	if raw == "" {
		return time.Now().UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid publish_at: %w", err)
	}
	return t.UTC(), nil
}

// Create validates and persists a new article with a generated slug.
func (s *ArticleService) Create(ctx context.Context, req model.CreateArticleRequest) (*model.Article, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}
	publishAt, err := parsePublishAt(req.PublishAt)
	if err != nil {
		return nil, err
	}

	a := &model.Article{
		ID:        uuid.New().String(),
		Title:     strings.TrimSpace(req.Title),
		Subtitle:  strings.TrimSpace(req.Subtitle),
		Slug:      Slugify(req.Title),
		Body:      req.Body,
		Category:  model.ArticleCategory(req.Category),
		Author:    req.Author,
		Published: req.Published,
		Featured:  req.Featured,
		PublishAt: publishAt,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}
	s.invalidateListings(ctx)
	return a, nil
}

// ListPublic returns publicly visible articles, cached, optionally filtered
// by category. Category filters bypass the cache; the plain listing is the
// hot path.
func (s *ArticleService) ListPublic(ctx context.Context, category string) ([]model.Article, error) {
	if category != "" {
		return s.repo.ListPublished(ctx, model.ArticleCategory(category))
	}
	var cached []model.Article
	if s.cache != nil && s.cache.GetJSON(ctx, cacheKeyArticles, &cached) {
		return cached, nil
	}
	articles, err := s.repo.ListPublished(ctx, "")
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.SetJSON(ctx, cacheKeyArticles, articles)
	}
	return articles, nil
}

// ListAdmin returns every article for the staff views.
func (s *ArticleService) ListAdmin(ctx context.Context) ([]model.Article, error) {
	return s.repo.ListAll(ctx)
}

// GetPublic returns a visible article by slug.
func (s *ArticleService) GetPublic(ctx context.Context, slug string) (*model.Article, error) {
	if slug == "" {
		return nil, repository.ErrNotFound
	}
	return s.repo.GetBySlug(ctx, slug)
}

// Update validates and applies edits to an article. The slug is preserved.
func (s *ArticleService) Update(ctx context.Context, id string, req model.UpdateArticleRequest) (*model.Article, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	publishAt, err := parsePublishAt(req.PublishAt)
	if err != nil {
		return nil, err
	}

	a.Title = strings.TrimSpace(req.Title)
	a.Subtitle = strings.TrimSpace(req.Subtitle)
	a.Body = req.Body
	a.Category = model.ArticleCategory(req.Category)
	a.Author = req.Author
	a.Published = req.Published
	a.Featured = req.Featured
	a.PublishAt = publishAt
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, err
	}
	s.invalidateListings(ctx)
	return a, nil
}

// Delete removes an article.
func (s *ArticleService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidateListings(ctx)
	return nil
}

// Featured returns the latest featured articles for the home page.
func (s *ArticleService) Featured(ctx context.Context, limit int) ([]model.Article, error) {
	return s.repo.FeaturedLatest(ctx, limit)
}
