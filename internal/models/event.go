package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Event is a single event document stored in MongoDB.
type Event struct {
	ID              primitive.ObjectID `json:"id"                        bson:"_id,omitempty"`
	Name            string             `json:"eventName"                 bson:"event_name"`
	Location        string             `json:"location"                  bson:"location"`
	Date            time.Time          `json:"date"                      bson:"date"`
	MaxParticipants *int               `json:"maxParticipants,omitempty" bson:"max_participants,omitempty"`
	ImageKey        string             `json:"-"                         bson:"image_key,omitempty"`
	Image           string             `json:"image,omitempty"           bson:"-"`
	CreatedAt       time.Time          `json:"createdAt"                 bson:"created_at"`
	UpdatedAt       time.Time          `json:"updatedAt"                 bson:"updated_at"`
}

// ImageURL returns where e's image is served under base, or "" when e has
// no image.
func (e Event) ImageURL(base string) string {
	if e.ImageKey == "" {
		return ""
	}
	return strings.TrimRight(base, "/") + "/" + e.ID.Hex() + "/image"
}

// EventRequest is the JSON body for creating or updating an event.
type EventRequest struct {
	Name            string `json:"eventName"`
	Location        string `json:"location"`
	Date            string `json:"date"`
	MaxParticipants *int   `json:"maxParticipants"`
}

func (r EventRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Location, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Date, validation.Required, validation.By(func(v interface{}) error {
			_, err := ParseEventDate(v.(string))
			return err
		})),
		validation.Field(&r.MaxParticipants, validation.By(func(v interface{}) error {
			if n, ok := v.(*int); ok && n != nil && *n < 0 {
				return errors.New("must not be negative")
			}
			return nil
		})),
	)
}

// Apply copies the request fields onto e. The request must have been validated.
func (r EventRequest) Apply(e *Event) {
	e.Name = strings.TrimSpace(r.Name)
	e.Location = strings.TrimSpace(r.Location)
	e.Date, _ = ParseEventDate(r.Date)
	e.MaxParticipants = r.MaxParticipants
}

var eventDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseEventDate accepts RFC 3339 instants as well as the zone-less local
// date-time forms browsers send from datetime-local inputs (read as UTC).
func ParseEventDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range eventDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}
