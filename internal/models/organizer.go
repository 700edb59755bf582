package models

import (
	"database/sql/driver"
	"encoding/json"
)

// Permission is one capability tag granted to an organizer.
type Permission string

const (
	PermEditDetails     Permission = "edit_details"
	PermManageSubEvents Permission = "manage_subevents"
	PermManageGuests    Permission = "manage_guests"
	PermOrganizerChat   Permission = "access_organizer_chat"
	PermViewBudget      Permission = "view_budget"
	// PermAll is a wildcard granting every capability. It is never stored
	// alongside specific tags.
	PermAll Permission = "all"
)

// OrganizerStatus is the lifecycle state of a collaboration grant.
type OrganizerStatus string

const (
	OrganizerPending   OrganizerStatus = "pending"
	OrganizerConfirmed OrganizerStatus = "confirmed"
)

// Organizer is a collaboration grant attached to one event. The JSON keys
// match the document shape stored in the organizers column.
type Organizer struct {
	UserID      string          `json:"userId"`
	FirstName   string          `json:"firstName"`
	LastName    string          `json:"lastName"`
	Status      OrganizerStatus `json:"status"`
	Permissions []Permission    `json:"permissions"`
	// AllowedSubEventIDs scopes all granted permissions to these sub-events.
	// Nil or empty means the permissions apply event-wide.
	AllowedSubEventIDs []string `json:"allowedSubEventIds,omitempty"`
}

type OrganizerList []Organizer

func (l OrganizerList) Value() (driver.Value, error) {
	if l == nil {
		l = OrganizerList{}
	}
	return json.Marshal(l)
}

func (l *OrganizerList) Scan(src interface{}) error {
	return scanJSON(src, l)
}
