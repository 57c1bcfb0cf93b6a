package model

import "time"

// ArticleCategory classifies a news article.
type ArticleCategory string

const (
	CategoryEvent       ArticleCategory = "event"
	CategoryProject     ArticleCategory = "project"
	CategoryAchievement ArticleCategory = "achievement"
	CategoryPartnership ArticleCategory = "partnership"
	CategoryGeneral     ArticleCategory = "general"
)

// Article is a staff-authored news post. Publication is scheduled: an
// article is publicly visible once Published is set and PublishAt has
// passed. Filtering on publish time happens at read time, not via a
// background job.
type Article struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Subtitle  string          `json:"subtitle,omitempty"`
	Slug      string          `json:"slug"`
	Body      string          `json:"body"`
	Category  ArticleCategory `json:"category"`
	Author    string          `json:"author,omitempty"`
	Published bool            `json:"published"`
	Featured  bool            `json:"featured"`
	PublishAt time.Time       `json:"publish_at"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Visible reports whether the article should appear on public pages at t.
func (a *Article) Visible(t time.Time) bool {
	return a.Published && !a.PublishAt.After(t)
}

// CreateArticleRequest is the staff payload for creating an article.
type CreateArticleRequest struct {
	Title     string `json:"title" validate:"required,max=200"`
	Subtitle  string `json:"subtitle,omitempty" validate:"max=300"`
	Body      string `json:"body" validate:"required"`
	Category  string `json:"category" validate:"required,oneof=event project achievement partnership general"`
	Author    string `json:"author,omitempty" validate:"max=100"`
	Published bool   `json:"published"`
	Featured  bool   `json:"featured"`
	PublishAt string `json:"publish_at,omitempty" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

// UpdateArticleRequest is the staff payload for editing an article. The slug
// is fixed at creation so published links stay stable.
type UpdateArticleRequest struct {
	Title     string `json:"title" validate:"required,max=200"`
	Subtitle  string `json:"subtitle,omitempty" validate:"max=300"`
	Body      string `json:"body" validate:"required"`
	Category  string `json:"category" validate:"required,oneof=event project achievement partnership general"`
	Author    string `json:"author,omitempty" validate:"max=100"`
	Published bool   `json:"published"`
	Featured  bool   `json:"featured"`
	PublishAt string `json:"publish_at,omitempty" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}
