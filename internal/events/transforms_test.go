package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"event-service/internal/models"
)

func baseEvent() models.Event {
	return models.Event{
		ID:        "evt-1",
		CreatorID: "owner",
		Title:     "Launch",
		SubEvents: models.SubEventList{
			{ID: "sub-1", Title: "Ceremony"},
			{ID: "sub-2", Title: "Dinner"},
		},
		Guests: models.GuestList{
			{
				ID:                "guest-1",
				FirstName:         "Ada",
				Status:            models.GuestConfirmed,
				LinkedSubEventIDs: []string{"sub-1", "sub-2"},
				GuestCount:        4,
				Attendance:        map[string]int{"sub-1": 3, "sub-2": 4},
			},
		},
	}
}

func TestRequestJoinAppendsPendingWithDefaultGrant(t *testing.T) {
	evt := RequestJoin("alice", "Alice", "Martin")(baseEvent())

	require.Len(t, evt.Organizers, 1)
	org := evt.Organizers[0]
	assert.Equal(t, "alice", org.UserID)
	assert.Equal(t, models.OrganizerPending, org.Status)
	assert.Equal(t, []models.Permission{models.PermOrganizerChat}, org.Permissions)
}

func TestRequestJoinIsIdempotent(t *testing.T) {
	evt := RequestJoin("alice", "Alice", "Martin")(baseEvent())
	evt = RequestJoin("alice", "Alice", "Martin")(evt)

	assert.Len(t, evt.Organizers, 1)
}

func TestRequestJoinSkipsOwner(t *testing.T) {
	evt := RequestJoin("owner", "Olga", "Durand")(baseEvent())
	assert.Empty(t, evt.Organizers)
}

func TestApproveOrganizerConfirmsWithDefaults(t *testing.T) {
	evt := RequestJoin("alice", "Alice", "Martin")(baseEvent())

	evt = ApproveOrganizer("alice", true, nil, nil)(evt)

	require.Len(t, evt.Organizers, 1)
	org := evt.Organizers[0]
	assert.Equal(t, models.OrganizerConfirmed, org.Status)
	assert.Equal(t, []models.Permission{models.PermOrganizerChat}, org.Permissions)
	assert.Nil(t, org.AllowedSubEventIDs)
}

func TestApproveOrganizerWithGrantAndScope(t *testing.T) {
	evt := RequestJoin("alice", "Alice", "Martin")(baseEvent())

	evt = ApproveOrganizer("alice", true,
		[]models.Permission{models.PermManageGuests},
		[]string{"sub-1"},
	)(evt)

	org := evt.Organizers[0]
	assert.Equal(t, []models.Permission{models.PermManageGuests}, org.Permissions)
	assert.Equal(t, []string{"sub-1"}, org.AllowedSubEventIDs)
}

func TestApproveOrganizerScopeNeverEmptyNonNil(t *testing.T) {
	evt := RequestJoin("alice", "Alice", "Martin")(baseEvent())

	evt = ApproveOrganizer("alice", true, nil, []string{})(evt)

	assert.Nil(t, evt.Organizers[0].AllowedSubEventIDs)
}

func TestRejectOrganizerRemovesEntry(t *testing.T) {
	evt := RequestJoin("alice", "Alice", "Martin")(baseEvent())
	evt = RequestJoin("bob", "Bob", "Petit")(evt)

	evt = ApproveOrganizer("alice", false, nil, nil)(evt)

	require.Len(t, evt.Organizers, 1)
	assert.Equal(t, "bob", evt.Organizers[0].UserID)
}

func TestEditOrganizerRightsKeepsStatus(t *testing.T) {
	evt := RequestJoin("alice", "Alice", "Martin")(baseEvent())
	evt = ApproveOrganizer("alice", true, nil, nil)(evt)

	evt = EditOrganizerRights("alice",
		[]models.Permission{models.PermAll},
		[]string{"sub-2"},
	)(evt)

	org := evt.Organizers[0]
	assert.Equal(t, models.OrganizerConfirmed, org.Status)
	assert.Equal(t, []models.Permission{models.PermAll}, org.Permissions)
	assert.Equal(t, []string{"sub-2"}, org.AllowedSubEventIDs)
}

func TestEditOrganizerRightsEmptyGrantRevokesEverything(t *testing.T) {
	evt := RequestJoin("alice", "Alice", "Martin")(baseEvent())
	evt = ApproveOrganizer("alice", true, []models.Permission{models.PermAll}, nil)(evt)

	evt = EditOrganizerRights("alice", []models.Permission{}, nil)(evt)

	org := evt.Organizers[0]
	assert.Equal(t, models.OrganizerConfirmed, org.Status)
	assert.Empty(t, org.Permissions)
}

func TestUpdateDetailsDateTBDClearsDates(t *testing.T) {
	now := time.Now()
	evt := baseEvent()
	evt.StartDate = &now
	evt.EndDate = &now

	tbd := true
	evt = UpdateDetails(DetailsUpdate{IsDateTBD: &tbd})(evt)

	assert.True(t, evt.IsDateTBD)
	assert.Nil(t, evt.StartDate)
	assert.Nil(t, evt.EndDate)
}

func TestUpdateDetailsPartialEdit(t *testing.T) {
	title := "Renamed"
	budget := 2500.0
	evt := UpdateDetails(DetailsUpdate{Title: &title, Budget: &budget})(baseEvent())

	assert.Equal(t, "Renamed", evt.Title)
	assert.Equal(t, 2500.0, evt.Budget)
	// untouched fields survive
	assert.Equal(t, "owner", evt.CreatorID)
	assert.Len(t, evt.SubEvents, 2)
}

func TestRemoveSubEventUnlinksGuests(t *testing.T) {
	evt := RemoveSubEvent("sub-1")(baseEvent())

	require.Len(t, evt.SubEvents, 1)
	assert.Equal(t, "sub-2", evt.SubEvents[0].ID)

	guest := evt.Guests[0]
	assert.Equal(t, []string{"sub-2"}, guest.LinkedSubEventIDs)
	assert.NotContains(t, guest.Attendance, "sub-1")
	assert.Equal(t, 4, guest.Attendance["sub-2"])
}

func TestAddKeyMomentPreservesOrder(t *testing.T) {
	evt := baseEvent()
	evt = AddKeyMoment("sub-1", models.KeyMoment{ID: "m1", Time: "14:00", Label: "Opening"})(evt)
	evt = AddKeyMoment("sub-1", models.KeyMoment{ID: "m2", Time: "09:00", Label: "Setup"})(evt)

	moments := evt.SubEvents[0].KeyMoments
	require.Len(t, moments, 2)
	// insertion order, not time order
	assert.Equal(t, "m1", moments[0].ID)
	assert.Equal(t, "m2", moments[1].ID)
}

func TestAddGuestDefaults(t *testing.T) {
	evt := AddGuest(models.Guest{ID: "guest-2", FirstName: "Bob"})(baseEvent())

	guest := evt.Guests[1]
	assert.Equal(t, models.GuestPending, guest.Status)
	assert.Equal(t, 1, guest.GuestCount)
	assert.NotNil(t, guest.LinkedSubEventIDs)
}

func TestAddGuestClampsPartySize(t *testing.T) {
	evt := AddGuest(models.Guest{ID: "g-big", GuestCount: 150})(baseEvent())
	assert.Equal(t, 99, evt.Guests[1].GuestCount)
}

func TestUpdateGuestShrinkReclampsAttendance(t *testing.T) {
	two := 2
	evt := UpdateGuest("guest-1", GuestUpdate{GuestCount: &two})(baseEvent())

	guest := evt.Guests[0]
	assert.Equal(t, 2, guest.GuestCount)
	assert.Equal(t, 2, guest.Attendance["sub-1"])
	assert.Equal(t, 2, guest.Attendance["sub-2"])
}

func TestRemoveGuest(t *testing.T) {
	evt := RemoveGuest("guest-1")(baseEvent())
	assert.Empty(t, evt.Guests)
}

func TestSetAttendanceClamps(t *testing.T) {
	evt := SetAttendance("guest-1", "sub-1", -3)(baseEvent())
	assert.Equal(t, 0, evt.Guests[0].Attendance["sub-1"])

	evt = SetAttendance("guest-1", "sub-1", 10)(evt)
	assert.Equal(t, 4, evt.Guests[0].Attendance["sub-1"])

	evt = SetAttendance("guest-1", "sub-1", 2)(evt)
	assert.Equal(t, 2, evt.Guests[0].Attendance["sub-1"])
}

func TestSetAttendanceDoesNotMutateInput(t *testing.T) {
	original := baseEvent()
	_ = SetAttendance("guest-1", "sub-1", 0)(original)

	assert.Equal(t, 3, original.Guests[0].Attendance["sub-1"])
}
