package model

import (
	"time"

	"github.com/imsulglobal/community-portal/internal/capacity"
)

// PositionStatus is the volunteer-position label set over the shared
// lifecycle machine. A fully-staffed position shows as "paused"; there is no
// coming-soon label for positions.
type PositionStatus string

const (
	PositionOpen   PositionStatus = "open"
	PositionPaused PositionStatus = "paused"
	PositionClosed PositionStatus = "closed"
)

// State maps the label onto the canonical lifecycle state.
func (s PositionStatus) State() capacity.State {
	switch s {
	case PositionPaused:
		return capacity.StateFull
	case PositionClosed:
		return capacity.StateClosed
	}
	return capacity.StateOpen
}

// PositionStatusFromState maps a canonical state back to the position label.
func PositionStatusFromState(st capacity.State) PositionStatus {
	switch st {
	case capacity.StateFull:
		return PositionPaused
	case capacity.StateClosed:
		return PositionClosed
	}
	return PositionOpen
}

// PositionKind describes where the volunteer work happens.
type PositionKind string

const (
	KindOnsite PositionKind = "onsite"
	KindRemote PositionKind = "remote"
	KindHybrid PositionKind = "hybrid"
)

// Position is a capacity-bounded volunteer opening.
type Position struct {
	ID            string         `json:"id"`
	Title         string         `json:"title"`
	Description   string         `json:"description"`
	Requirements  string         `json:"requirements"`
	Kind          PositionKind   `json:"kind"`
	Location      string         `json:"location,omitempty"`
	WeeklyHours   int            `json:"weekly_hours"`
	MinCommitment string         `json:"min_commitment"`
	CapacityTotal int            `json:"capacity_total"`
	CapacityUsed  int            `json:"capacity_used"`
	Status        PositionStatus `json:"status"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// Remaining returns the number of unfilled slots.
func (p *Position) Remaining() int {
	return p.CapacityTotal - p.CapacityUsed
}

// Snapshot exposes the position's capacity view for the ledger.
func (p *Position) Snapshot() capacity.Snapshot {
	return capacity.Snapshot{Total: p.CapacityTotal, Used: p.CapacityUsed, State: p.Status.State()}
}

// ApplySnapshot writes a mutated capacity view back onto the position.
func (p *Position) ApplySnapshot(s capacity.Snapshot) {
	p.CapacityUsed = s.Used
	p.Status = PositionStatusFromState(s.State)
}

// Application is a person's candidacy for one volunteer slot. At most one
// application exists per (position, email), regardless of status.
type Application struct {
	ID           string                     `json:"id"`
	PositionID   string                     `json:"position_id"`
	Name         string                     `json:"name"`
	Email        string                     `json:"email"`
	Phone        string                     `json:"phone"`
	Age          *int                       `json:"age,omitempty"`
	Profession   string                     `json:"profession,omitempty"`
	Experience   string                     `json:"experience,omitempty"`
	Motivation   string                     `json:"motivation"`
	Availability string                     `json:"availability,omitempty"`
	Status       capacity.ApplicationStatus `json:"status"`
	SubmittedAt  time.Time                  `json:"submitted_at"`
}

// CreatePositionRequest is the staff payload for creating a position.
type CreatePositionRequest struct {
	Title         string `json:"title" validate:"required,max=200"`
	Description   string `json:"description" validate:"required"`
	Requirements  string `json:"requirements" validate:"required"`
	Kind          string `json:"kind" validate:"required,oneof=onsite remote hybrid"`
	Location      string `json:"location,omitempty" validate:"max=200"`
	WeeklyHours   int    `json:"weekly_hours" validate:"required,min=1,max=40"`
	MinCommitment string `json:"min_commitment" validate:"required,max=100"`
	CapacityTotal int    `json:"capacity_total" validate:"required,min=1,max=100000"`
}

// UpdatePositionRequest is the staff payload for editing position details.
type UpdatePositionRequest struct {
	Title         string `json:"title" validate:"required,max=200"`
	Description   string `json:"description" validate:"required"`
	Requirements  string `json:"requirements" validate:"required"`
	Kind          string `json:"kind" validate:"required,oneof=onsite remote hybrid"`
	Location      string `json:"location,omitempty" validate:"max=200"`
	WeeklyHours   int    `json:"weekly_hours" validate:"required,min=1,max=40"`
	MinCommitment string `json:"min_commitment" validate:"required,max=100"`
}

// ApplyRequest is the public payload for applying to a position.
type ApplyRequest struct {
	Name         string `json:"name" validate:"required,max=200"`
	Email        string `json:"email" validate:"required,email"`
	Phone        string `json:"phone" validate:"required,max=20"`
	Age          *int   `json:"age,omitempty" validate:"omitempty,min=1,max=120"`
	Profession   string `json:"profession,omitempty" validate:"max=200"`
	Experience   string `json:"experience,omitempty"`
	Motivation   string `json:"motivation" validate:"required"`
	Availability string `json:"availability,omitempty"`
}
