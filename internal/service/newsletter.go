package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/imsulglobal/community-portal/internal/model"
)

type newsletterRepository interface {
	Subscribe(ctx context.Context, email string) (*model.Subscriber, error)
	Unsubscribe(ctx context.Context, email string) error
	List(ctx context.Context, activeOnly bool) ([]model.Subscriber, error)
}

// NewsletterService orchestrates newsletter signups.
type NewsletterService struct {
	repo     newsletterRepository
	validate *validator.Validate
	log      *zap.Logger
}

// NewNewsletterService constructs a NewsletterService.
func NewNewsletterService(repo newsletterRepository, validate *validator.Validate, log *zap.Logger) *NewsletterService {
	if validate == nil {
		validate = validator.New()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &NewsletterService{repo: repo, validate: validate, log: log}
}

// Subscribe signs an email up, get-or-create style. The repository's
// ErrAlreadySubscribed passes through so the handler can phrase it as an
// informational message rather than a failure.
func (s *NewsletterService) Subscribe(ctx context.Context, req model.SubscribeRequest) (*model.Subscriber, error) {
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}
	return s.repo.Subscribe(ctx, req.Email)
}

// Unsubscribe deactivates an email.
func (s *NewsletterService) Unsubscribe(ctx context.Context, req model.SubscribeRequest) error {
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if err := s.validate.Struct(req); err != nil {
		return err
	}
	return s.repo.Unsubscribe(ctx, req.Email)
}

// List returns subscribers for the staff view.
func (s *NewsletterService) List(ctx context.Context, activeOnly bool) ([]model.Subscriber, error) {
	return s.repo.List(ctx, activeOnly)
}
