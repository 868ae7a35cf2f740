package models

import (
	"slices"
	"time"
)

// Event is a capacity-bounded gathering. CurrentCount always equals
// len(Members) and never exceeds MaxPeople.
type Event struct {
	ID           string    `json:"id" bson:"_id"`
	OwnerID      uint      `json:"owner_id" bson:"owner_id"`
	Category     string    `json:"category" bson:"category"`
	Title        string    `json:"title" bson:"title"`
	Description  string    `json:"description" bson:"description"`
	Location     string    `json:"location" bson:"location"`
	StartTime    time.Time `json:"start_time" bson:"start_time"`
	EndTime      time.Time `json:"end_time" bson:"end_time"`
	MaxPeople    int       `json:"max_people" bson:"max_people"`
	Members      []uint    `json:"members" bson:"members"`
	CurrentCount int       `json:"current_count" bson:"current_count"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
}

// Remaining returns the number of free places.
func (e *Event) Remaining() int {
	return e.MaxPeople - e.CurrentCount
}

// IsFull returns true when no places remain.
func (e *Event) IsFull() bool {
	return e.CurrentCount >= e.MaxPeople
}

func (e *Event) HasMember(userID uint) bool {
	return slices.Contains(e.Members, userID)
}

// EventSpec is the validated payload for creating an event
type EventSpec struct {
	Category    string    `json:"category" validate:"required,max=60"`
	Title       string    `json:"title" validate:"required,max=120"`
	Description string    `json:"description" validate:"required,max=2000"`
	Location    string    `json:"location" validate:"required,max=200"`
	StartTime   time.Time `json:"start_time" validate:"required"`
	EndTime     time.Time `json:"end_time" validate:"required,gtfield=StartTime"`
	MaxPeople   int       `json:"max_people" validate:"required,gt=0"`
}
