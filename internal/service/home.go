package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/imsulglobal/community-portal/internal/cache"
	"github.com/imsulglobal/community-portal/internal/model"
)

const homeSectionSize = 3

// HomePage aggregates the public landing page content.
type HomePage struct {
	Workshops []model.Workshop `json:"workshops"`
	Positions []model.Position `json:"positions"`
	Articles  []model.Article  `json:"articles"`
}

// HomeService assembles the landing page from the other services.
type HomeService struct {
	workshops *WorkshopService
	positions *VolunteerService
	articles  *ArticleService
	cache     *cache.Cache
	log       *zap.Logger
}

// NewHomeService constructs a HomeService.
func NewHomeService(w *WorkshopService, p *VolunteerService, a *ArticleService, c *cache.Cache, log *zap.Logger) *HomeService {
	if log == nil {
		log = zap.NewNop()
	}
	return &HomeService{workshops: w, positions: p, articles: a, cache: c, log: log}
}

// Page returns the landing page sections, cached. Any section failing
// fails the whole page; partial pages are confusing to render.
func (s *HomeService) Page(ctx context.Context) (*HomePage, error) {
	var cached HomePage
	if s.cache != nil && s.cache.GetJSON(ctx, cacheKeyHome, &cached) {
		return &cached, nil
	}

	workshops, err := s.workshops.Featured(ctx, homeSectionSize)
	if err != nil {
		return nil, err
	}
	positions, err := s.positions.Featured(ctx, homeSectionSize)
	if err != nil {
		return nil, err
	}
	articles, err := s.articles.Featured(ctx, homeSectionSize)
	if err != nil {
		return nil, err
	}

	page := &HomePage{Workshops: workshops, Positions: positions, Articles: articles}
	if page.Workshops == nil {
		page.Workshops = []model.Workshop{}
	}
	if page.Positions == nil {
		page.Positions = []model.Position{}
	}
	if page.Articles == nil {
		page.Articles = []model.Article{}
	}
	if s.cache != nil {
		s.cache.SetJSON(ctx, cacheKeyHome, page)
	}
	return page, nil
}
