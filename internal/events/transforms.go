package events

import (
	"time"

	"event-service/internal/models"
)

// DefaultJoinPermissions is the grant attached to every new pending organizer.
func DefaultJoinPermissions() []models.Permission {
	return []models.Permission{models.PermOrganizerChat}
}

// RequestJoin appends a pending organizer entry for the user. It is a no-op
// for the owner and for users that already have an entry, so re-requesting is
// idempotent.
func RequestJoin(userID, firstName, lastName string) Transform {
	return func(evt models.Event) models.Event {
		if evt.CreatorID == userID {
			return evt
		}
		for _, o := range evt.Organizers {
			if o.UserID == userID {
				return evt
			}
		}
		evt.Organizers = append(evt.Organizers, models.Organizer{
			UserID:      userID,
			FirstName:   firstName,
			LastName:    lastName,
			Status:      models.OrganizerPending,
			Permissions: DefaultJoinPermissions(),
		})
		return evt
	}
}

// ApproveOrganizer resolves a pending request. Approval confirms the entry
// with the provided grant (default chat-only when empty) and scope (nil when
// the list is empty, never an empty non-nil slice). Rejection removes the
// entry entirely.
func ApproveOrganizer(userID string, approve bool, perms []models.Permission, allowedSubEventIDs []string) Transform {
	return func(evt models.Event) models.Event {
		if !approve {
			kept := make(models.OrganizerList, 0, len(evt.Organizers))
			for _, o := range evt.Organizers {
				if o.UserID != userID {
					kept = append(kept, o)
				}
			}
			evt.Organizers = kept
			return evt
		}
		out := make(models.OrganizerList, len(evt.Organizers))
		for i, o := range evt.Organizers {
			if o.UserID == userID {
				o.Status = models.OrganizerConfirmed
				o.Permissions = normalizePermissions(perms)
				o.AllowedSubEventIDs = normalizeScope(allowedSubEventIDs)
			}
			out[i] = o
		}
		evt.Organizers = out
		return evt
	}
}

// EditOrganizerRights replaces the grant and scope on an existing entry
// without touching its status. The provided grant is stored verbatim: an
// empty set revokes every capability, unlike approval where an empty grant
// falls back to the join default.
func EditOrganizerRights(userID string, perms []models.Permission, allowedSubEventIDs []string) Transform {
	return func(evt models.Event) models.Event {
		out := make(models.OrganizerList, len(evt.Organizers))
		for i, o := range evt.Organizers {
			if o.UserID == userID {
				o.Permissions = append([]models.Permission{}, perms...)
				o.AllowedSubEventIDs = normalizeScope(allowedSubEventIDs)
			}
			out[i] = o
		}
		evt.Organizers = out
		return evt
	}
}

// DetailsUpdate carries the optional fields of an edit-details mutation.
// Nil pointers leave the field unchanged.
type DetailsUpdate struct {
	Title              *string
	Description        *string
	Location           *string
	Category           *string
	Image              *string
	Budget             *float64
	GeneralGuestsCount *int
	IsPeriod           *bool
	IsDateTBD          *bool
	StartDate          *time.Time
	EndDate            *time.Time
}

// UpdateDetails applies an edit-details mutation. Marking the date as TBD
// clears both dates.
func UpdateDetails(upd DetailsUpdate) Transform {
	return func(evt models.Event) models.Event {
		if upd.Title != nil {
			evt.Title = *upd.Title
		}
		if upd.Description != nil {
			evt.Description = *upd.Description
		}
		if upd.Location != nil {
			evt.Location = *upd.Location
		}
		if upd.Category != nil {
			evt.Category = *upd.Category
		}
		if upd.Image != nil {
			evt.Image = *upd.Image
		}
		if upd.Budget != nil {
			evt.Budget = *upd.Budget
		}
		if upd.GeneralGuestsCount != nil {
			evt.GeneralGuestsCount = *upd.GeneralGuestsCount
		}
		if upd.IsPeriod != nil {
			evt.IsPeriod = *upd.IsPeriod
		}
		if upd.StartDate != nil {
			evt.StartDate = upd.StartDate
		}
		if upd.EndDate != nil {
			evt.EndDate = upd.EndDate
		}
		if upd.IsDateTBD != nil {
			evt.IsDateTBD = *upd.IsDateTBD
			if evt.IsDateTBD {
				evt.StartDate = nil
				evt.EndDate = nil
			}
		}
		return evt
	}
}

// RotateSharePassword replaces the share password. Pending and confirmed
// organizers keep their entries; only future joins need the new secret.
func RotateSharePassword(password string) Transform {
	return func(evt models.Event) models.Event {
		evt.SharePassword = password
		return evt
	}
}

// AddSubEvent appends a sub-event.
func AddSubEvent(sub models.SubEvent) Transform {
	return func(evt models.Event) models.Event {
		if sub.KeyMoments == nil {
			sub.KeyMoments = []models.KeyMoment{}
		}
		evt.SubEvents = append(evt.SubEvents, sub)
		return evt
	}
}

// SubEventUpdate carries the optional fields of a sub-event settings edit.
type SubEventUpdate struct {
	Title           *string
	Location        *string
	Date            *time.Time
	ClearDate       bool
	EstimatedGuests *int
}

// UpdateSubEvent edits one sub-event's settings.
func UpdateSubEvent(subEventID string, upd SubEventUpdate) Transform {
	return func(evt models.Event) models.Event {
		out := make(models.SubEventList, len(evt.SubEvents))
		for i, s := range evt.SubEvents {
			if s.ID == subEventID {
				if upd.Title != nil && *upd.Title != "" {
					s.Title = *upd.Title
				}
				if upd.Location != nil {
					s.Location = *upd.Location
				}
				if upd.Date != nil {
					s.Date = upd.Date
				}
				if upd.ClearDate {
					s.Date = nil
				}
				if upd.EstimatedGuests != nil {
					s.EstimatedGuests = *upd.EstimatedGuests
				}
			}
			out[i] = s
		}
		evt.SubEvents = out
		return evt
	}
}

// RemoveSubEvent deletes a sub-event and unlinks it from every guest. Guests
// themselves are kept.
func RemoveSubEvent(subEventID string) Transform {
	return func(evt models.Event) models.Event {
		subs := make(models.SubEventList, 0, len(evt.SubEvents))
		for _, s := range evt.SubEvents {
			if s.ID != subEventID {
				subs = append(subs, s)
			}
		}
		evt.SubEvents = subs

		guests := make(models.GuestList, len(evt.Guests))
		for i, g := range evt.Guests {
			linked := make([]string, 0, len(g.LinkedSubEventIDs))
			for _, id := range g.LinkedSubEventIDs {
				if id != subEventID {
					linked = append(linked, id)
				}
			}
			g.LinkedSubEventIDs = linked
			if g.Attendance != nil {
				att := make(map[string]int, len(g.Attendance))
				for id, n := range g.Attendance {
					if id != subEventID {
						att[id] = n
					}
				}
				g.Attendance = att
			}
			guests[i] = g
		}
		evt.Guests = guests
		return evt
	}
}

// AddKeyMoment appends a timeline entry to a sub-event, preserving insertion
// order.
func AddKeyMoment(subEventID string, moment models.KeyMoment) Transform {
	return func(evt models.Event) models.Event {
		out := make(models.SubEventList, len(evt.SubEvents))
		for i, s := range evt.SubEvents {
			if s.ID == subEventID {
				moments := make([]models.KeyMoment, 0, len(s.KeyMoments)+1)
				moments = append(moments, s.KeyMoments...)
				s.KeyMoments = append(moments, moment)
			}
			out[i] = s
		}
		evt.SubEvents = out
		return evt
	}
}

// AddGuest appends a guest record.
func AddGuest(guest models.Guest) Transform {
	return func(evt models.Event) models.Event {
		if guest.Status == "" {
			guest.Status = models.GuestPending
		}
		if guest.LinkedSubEventIDs == nil {
			guest.LinkedSubEventIDs = []string{}
		}
		guest.GuestCount = clampGuestCount(guest.GuestCount)
		evt.Guests = append(evt.Guests, guest)
		return evt
	}
}

// GuestUpdate carries the optional fields of a guest edit.
type GuestUpdate struct {
	FirstName         *string
	LastName          *string
	Email             *string
	Phone             *string
	Status            *models.GuestStatus
	GuestCount        *int
	LinkedSubEventIDs *[]string
}

// UpdateGuest edits one guest record. Shrinking the party size re-clamps the
// recorded attendance counts.
func UpdateGuest(guestID string, upd GuestUpdate) Transform {
	return func(evt models.Event) models.Event {
		out := make(models.GuestList, len(evt.Guests))
		for i, g := range evt.Guests {
			if g.ID == guestID {
				if upd.FirstName != nil {
					g.FirstName = *upd.FirstName
				}
				if upd.LastName != nil {
					g.LastName = *upd.LastName
				}
				if upd.Email != nil {
					g.Email = *upd.Email
				}
				if upd.Phone != nil {
					g.Phone = *upd.Phone
				}
				if upd.Status != nil {
					g.Status = *upd.Status
				}
				if upd.LinkedSubEventIDs != nil {
					g.LinkedSubEventIDs = append([]string{}, (*upd.LinkedSubEventIDs)...)
				}
				if upd.GuestCount != nil {
					g.GuestCount = clampGuestCount(*upd.GuestCount)
					if g.Attendance != nil {
						att := make(map[string]int, len(g.Attendance))
						for id, n := range g.Attendance {
							if n > g.PartySize() {
								n = g.PartySize()
							}
							att[id] = n
						}
						g.Attendance = att
					}
				}
			}
			out[i] = g
		}
		evt.Guests = out
		return evt
	}
}

// RemoveGuest deletes a guest record.
func RemoveGuest(guestID string) Transform {
	return func(evt models.Event) models.Event {
		kept := make(models.GuestList, 0, len(evt.Guests))
		for _, g := range evt.Guests {
			if g.ID != guestID {
				kept = append(kept, g)
			}
		}
		evt.Guests = kept
		return evt
	}
}

// SetAttendance records the present count for a guest at a sub-event,
// clamped to 0..party size.
func SetAttendance(guestID, subEventID string, count int) Transform {
	return func(evt models.Event) models.Event {
		out := make(models.GuestList, len(evt.Guests))
		for i, g := range evt.Guests {
			if g.ID == guestID {
				if count < 0 {
					count = 0
				}
				if count > g.PartySize() {
					count = g.PartySize()
				}
				att := make(map[string]int, len(g.Attendance)+1)
				for id, n := range g.Attendance {
					att[id] = n
				}
				att[subEventID] = count
				g.Attendance = att
			}
			out[i] = g
		}
		evt.Guests = out
		return evt
	}
}

func clampGuestCount(n int) int {
	if n < 1 {
		return 1
	}
	if n > 99 {
		return 99
	}
	return n
}

func normalizePermissions(perms []models.Permission) []models.Permission {
	if len(perms) == 0 {
		return DefaultJoinPermissions()
	}
	return append([]models.Permission{}, perms...)
}

func normalizeScope(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	return append([]string{}, ids...)
}
