package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imsulglobal/community-portal/internal/model"
	"github.com/imsulglobal/community-portal/internal/repository"
)

type fakeNewsletterRepo struct {
	byEmail map[string]*model.Subscriber
}

func newFakeNewsletterRepo() *fakeNewsletterRepo {
	return &fakeNewsletterRepo{byEmail: make(map[string]*model.Subscriber)}
}

func (r *fakeNewsletterRepo) Subscribe(_ context.Context, email string) (*model.Subscriber, error) {
	if s, ok := r.byEmail[email]; ok {
		if s.Active {
			cp := *s
			return &cp, repository.ErrAlreadySubscribed
		}
		s.Active = true
		cp := *s
		return &cp, nil
	}
	s := &model.Subscriber{ID: uuid.New().String(), Email: email, Active: true, SubscribedAt: time.Now()}
	r.byEmail[email] = s
	cp := *s
	return &cp, nil
}

func (r *fakeNewsletterRepo) Unsubscribe(_ context.Context, email string) error {
	s, ok := r.byEmail[email]
	if !ok {
		return repository.ErrNotFound
	}
	s.Active = false
	return nil
}

func (r *fakeNewsletterRepo) List(_ context.Context, activeOnly bool) ([]model.Subscriber, error) {
	var out []model.Subscriber
	for _, s := range r.byEmail {
		if !activeOnly || s.Active {
			out = append(out, *s)
		}
	}
	return out, nil
}

func TestSubscribe(t *testing.T) {
	svc := NewNewsletterService(newFakeNewsletterRepo(), nil, nil)

	s, err := svc.Subscribe(context.Background(), model.SubscribeRequest{Email: " Maria@Example.com "})
	require.NoError(t, err)
	assert.Equal(t, "maria@example.com", s.Email)
	assert.True(t, s.Active)

	_, err = svc.Subscribe(context.Background(), model.SubscribeRequest{Email: "maria@example.com"})
	require.ErrorIs(t, err, repository.ErrAlreadySubscribed)

	_, err = svc.Subscribe(context.Background(), model.SubscribeRequest{Email: "not-an-email"})
	require.Error(t, err)
}

func TestUnsubscribeAndResubscribe(t *testing.T) {
	svc := NewNewsletterService(newFakeNewsletterRepo(), nil, nil)

	_, err := svc.Subscribe(context.Background(), model.SubscribeRequest{Email: "maria@example.com"})
	require.NoError(t, err)

	require.NoError(t, svc.Unsubscribe(context.Background(), model.SubscribeRequest{Email: "maria@example.com"}))

	active, err := svc.List(context.Background(), true)
	require.NoError(t, err)
	assert.Empty(t, active)

	// Resubscribing reactivates the existing row without an error.
	s, err := svc.Subscribe(context.Background(), model.SubscribeRequest{Email: "maria@example.com"})
	require.NoError(t, err)
	assert.True(t, s.Active)

	err = svc.Unsubscribe(context.Background(), model.SubscribeRequest{Email: "never@example.com"})
	require.ErrorIs(t, err, repository.ErrNotFound)
}
