package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// Event is the central mutable aggregate. Organizers, sub-events and guests
// are stored as JSONB document columns and always written back as a whole.
type Event struct {
	ID                 string        `db:"id" json:"id"`
	ShareCode          string        `db:"share_code" json:"share_code"`
	SharePassword      string        `db:"share_password" json:"share_password,omitempty"`
	Title              string        `db:"title" json:"title"`
	Description        string        `db:"description" json:"description,omitempty"`
	StartDate          *time.Time    `db:"start_date" json:"start_date,omitempty"`
	EndDate            *time.Time    `db:"end_date" json:"end_date,omitempty"`
	IsPeriod           bool          `db:"is_period" json:"is_period"`
	IsDateTBD          bool          `db:"is_date_tbd" json:"is_date_tbd"`
	Location           string        `db:"location" json:"location"`
	Image              string        `db:"image" json:"image,omitempty"`
	CreatorID          string        `db:"creator_id" json:"creator_id"`
	Category           string        `db:"category" json:"category"`
	GeneralGuestsCount int           `db:"general_guests_count" json:"general_guests_count"`
	Budget             float64       `db:"budget" json:"budget"`
	Organizers         OrganizerList `db:"organizers" json:"organizers"`
	SubEvents          SubEventList  `db:"sub_events" json:"sub_events"`
	Guests             GuestList     `db:"guests" json:"guests"`
	IsGuestChatEnabled bool          `db:"is_guest_chat_enabled" json:"is_guest_chat_enabled"`
	CreatedAt          time.Time     `db:"created_at" json:"created_at"`
}

// Event categories accepted by the API.
const (
	CategoryBusiness = "Business"
	CategorySocial   = "Social"
	CategorySport    = "Sport"
	CategoryCulture  = "Culture"
)

// SubEvent is a scheduled segment of the event ("sequence").
type SubEvent struct {
	ID              string      `json:"id"`
	Title           string      `json:"title"`
	Date            *time.Time  `json:"date,omitempty"`
	Location        string      `json:"location,omitempty"`
	EstimatedGuests int         `json:"estimatedGuests"`
	KeyMoments      []KeyMoment `json:"keyMoments"`
}

// KeyMoment is one timeline entry of a sub-event, kept in insertion order.
type KeyMoment struct {
	ID    string `json:"id"`
	Time  string `json:"time"`
	Label string `json:"label"`
}

// GuestStatus is the invitation state of a guest.
type GuestStatus string

const (
	GuestPending   GuestStatus = "pending"
	GuestConfirmed GuestStatus = "confirmed"
	GuestDeclined  GuestStatus = "declined"
)

// Guest is a participant record owned by the event.
type Guest struct {
	ID                string      `json:"id"`
	FirstName         string      `json:"firstName"`
	LastName          string      `json:"lastName"`
	Email             string      `json:"email"`
	Phone             string      `json:"phone,omitempty"`
	Status            GuestStatus `json:"status"`
	LinkedSubEventIDs []string    `json:"linkedSubEventIds"`
	// GuestCount is the party size covered by this invitation, 1..99.
	GuestCount int `json:"guestCount,omitempty"`
	// Attendance maps sub-event id to present count, bounded 0..GuestCount.
	Attendance map[string]int `json:"attendance,omitempty"`
}

// PartySize returns the effective guest count (default 1).
func (g Guest) PartySize() int {
	if g.GuestCount < 1 {
		return 1
	}
	return g.GuestCount
}

type SubEventList []SubEvent

func (l SubEventList) Value() (driver.Value, error) {
	if l == nil {
		l = SubEventList{}
	}
	return json.Marshal(l)
}

func (l *SubEventList) Scan(src interface{}) error {
	return scanJSON(src, l)
}

type GuestList []Guest

func (l GuestList) Value() (driver.Value, error) {
	if l == nil {
		l = GuestList{}
	}
	return json.Marshal(l)
}

func (l *GuestList) Scan(src interface{}) error {
	return scanJSON(src, l)
}
