package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Status is the approval state of a registration.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	default:
		return false
	}
}

// Registration records one user's intent to attend one event.
// Event is populated on reads when the referenced event still exists.
type Registration struct {
	ID        primitive.ObjectID `json:"id"              bson:"_id,omitempty"`
	UserID    string             `json:"userId"          bson:"user_id"`
	UserEmail string             `json:"userEmail"       bson:"user_email"`
	EventID   primitive.ObjectID `json:"eventId"         bson:"event_id"`
	Status    Status             `json:"status"          bson:"status"`
	CreatedAt time.Time          `json:"createdAt"       bson:"created_at"`
	UpdatedAt time.Time          `json:"updatedAt"       bson:"updated_at"`
	Event     *Event             `json:"event,omitempty" bson:"-"`
}
