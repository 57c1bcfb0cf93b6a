package model

import "time"

// Subscriber is a newsletter signup. Email is unique; unsubscribing flips
// Active off rather than deleting the row so a later resubscribe restores it.
type Subscriber struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Active       bool      `json:"active"`
	SubscribedAt time.Time `json:"subscribed_at"`
}

// SubscribeRequest is the public payload for newsletter signup/removal.
type SubscribeRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// LoginRequest is the staff credential payload.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// TransitionRequest asks for an application status change.
type TransitionRequest struct {
	Status string `json:"status" validate:"required,oneof=pending accepted rejected"`
}

// BulkTransitionRequest asks for the same status change across several
// applications. Each record is transitioned individually so capacity rules
// apply per record; outcomes are reported per ID.
type BulkTransitionRequest struct {
	IDs    []string `json:"ids" validate:"required,min=1,dive,required"`
	Status string   `json:"status" validate:"required,oneof=pending accepted rejected"`
}

// BulkTransitionResult reports one record's outcome within a bulk change.
type BulkTransitionResult struct {
	ID    string `json:"id"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
