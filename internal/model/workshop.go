// Package model defines the domain types for the community portal: workshops,
// volunteer positions, their applications, news articles, and newsletter
// subscribers.
package model

import (
	"time"

	"github.com/imsulglobal/community-portal/internal/capacity"
)

// WorkshopStatus is the workshop label set over the shared lifecycle machine.
type WorkshopStatus string

const (
	WorkshopAvailable  WorkshopStatus = "available"
	WorkshopSoldOut    WorkshopStatus = "sold_out"
	WorkshopComingSoon WorkshopStatus = "coming_soon"
	WorkshopEnded      WorkshopStatus = "ended"
)

// State maps the label onto the canonical lifecycle state.
func (s WorkshopStatus) State() capacity.State {
	switch s {
	case WorkshopSoldOut:
		return capacity.StateFull
	case WorkshopComingSoon:
		return capacity.StateComingSoon
	case WorkshopEnded:
		return capacity.StateClosed
	}
	return capacity.StateOpen
}

// WorkshopStatusFromState maps a canonical state back to the workshop label.
func WorkshopStatusFromState(st capacity.State) WorkshopStatus {
	switch st {
	case capacity.StateFull:
		return WorkshopSoldOut
	case capacity.StateComingSoon:
		return WorkshopComingSoon
	case capacity.StateClosed:
		return WorkshopEnded
	}
	return WorkshopAvailable
}

// WorkshopLevel describes the audience a workshop targets.
type WorkshopLevel string

const (
	LevelBeginner     WorkshopLevel = "beginner"
	LevelIntermediate WorkshopLevel = "intermediate"
	LevelAdvanced     WorkshopLevel = "advanced"
	LevelAll          WorkshopLevel = "all"
)

// Workshop is a capacity-bounded course offered by the institute.
type Workshop struct {
	ID            string         `json:"id"`
	Title         string         `json:"title"`
	Description   string         `json:"description"`
	Level         WorkshopLevel  `json:"level"`
	StartsOn      time.Time      `json:"starts_on"`
	EndsOn        time.Time      `json:"ends_on"`
	TotalHours    int            `json:"total_hours"`
	SessionCount  int            `json:"session_count"`
	Price         float64        `json:"price"`
	Free          bool           `json:"free"`
	CapacityTotal int            `json:"capacity_total"`
	CapacityUsed  int            `json:"capacity_used"`
	Status        WorkshopStatus `json:"status"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// Remaining returns the number of open seats.
func (w *Workshop) Remaining() int {
	return w.CapacityTotal - w.CapacityUsed
}

// Snapshot exposes the workshop's capacity view for the ledger.
func (w *Workshop) Snapshot() capacity.Snapshot {
	return capacity.Snapshot{Total: w.CapacityTotal, Used: w.CapacityUsed, State: w.Status.State()}
}

// ApplySnapshot writes a mutated capacity view back onto the workshop.
func (w *Workshop) ApplySnapshot(s capacity.Snapshot) {
	w.CapacityUsed = s.Used
	w.Status = WorkshopStatusFromState(s.State)
}

// Experience describes an applicant's prior exposure to the subject.
type Experience string

const (
	ExperienceNone         Experience = "none"
	ExperienceBasic        Experience = "basic"
	ExperienceIntermediate Experience = "intermediate"
	ExperienceAdvanced     Experience = "advanced"
)

// Enrollment is a person's application for one workshop seat. At most one
// enrollment exists per (workshop, email), regardless of status.
type Enrollment struct {
	ID          string                     `json:"id"`
	WorkshopID  string                     `json:"workshop_id"`
	Name        string                     `json:"name"`
	Email       string                     `json:"email"`
	Phone       string                     `json:"phone"`
	Age         *int                       `json:"age,omitempty"`
	Experience  Experience                 `json:"experience"`
	Motivation  string                     `json:"motivation,omitempty"`
	Status      capacity.ApplicationStatus `json:"status"`
	SubmittedAt time.Time                  `json:"submitted_at"`
}

// CreateWorkshopRequest is the staff payload for creating a workshop.
type CreateWorkshopRequest struct {
	Title         string  `json:"title" validate:"required,max=200"`
	Description   string  `json:"description" validate:"required"`
	Level         string  `json:"level" validate:"required,oneof=beginner intermediate advanced all"`
	StartsOn      string  `json:"starts_on" validate:"required,datetime=2006-01-02"`
	EndsOn        string  `json:"ends_on" validate:"required,datetime=2006-01-02"`
	TotalHours    int     `json:"total_hours" validate:"required,min=1"`
	SessionCount  int     `json:"session_count" validate:"required,min=1"`
	Price         float64 `json:"price" validate:"min=0"`
	Free          bool    `json:"free"`
	CapacityTotal int     `json:"capacity_total" validate:"required,min=1,max=100000"`
	ComingSoon    bool    `json:"coming_soon"`
}

// UpdateWorkshopRequest is the staff payload for editing workshop details.
// Capacity counters and status are not editable here; they belong to the
// ledger and the close/reopen endpoints.
type UpdateWorkshopRequest struct {
	Title        string  `json:"title" validate:"required,max=200"`
	Description  string  `json:"description" validate:"required"`
	Level        string  `json:"level" validate:"required,oneof=beginner intermediate advanced all"`
	StartsOn     string  `json:"starts_on" validate:"required,datetime=2006-01-02"`
	EndsOn       string  `json:"ends_on" validate:"required,datetime=2006-01-02"`
	TotalHours   int     `json:"total_hours" validate:"required,min=1"`
	SessionCount int     `json:"session_count" validate:"required,min=1"`
	Price        float64 `json:"price" validate:"min=0"`
	Free         bool    `json:"free"`
}

// EnrollRequest is the public payload for enrolling in a workshop.
type EnrollRequest struct {
	Name       string `json:"name" validate:"required,max=200"`
	Email      string `json:"email" validate:"required,email"`
	Phone      string `json:"phone" validate:"required,max=20"`
	Age        *int   `json:"age,omitempty" validate:"omitempty,min=1,max=120"`
	Experience string `json:"experience" validate:"required,oneof=none basic intermediate advanced"`
	Motivation string `json:"motivation,omitempty"`
}
