// Package permissions evaluates whether a user may perform a mutation class
// against an event. It is a pure predicate module recomputed from the current
// event snapshot on every request; handlers and the websocket layer share this
// single implementation.
package permissions

import "event-service/internal/models"

// IsOwner reports whether the user created the event.
func IsOwner(evt models.Event, userID string) bool {
	return evt.CreatorID == userID
}

// CurrentOrganizer returns the confirmed organizer entry for the user, if any.
// Pending entries grant nothing.
func CurrentOrganizer(evt models.Event, userID string) *models.Organizer {
	for i := range evt.Organizers {
		o := &evt.Organizers[i]
		if o.UserID == userID && o.Status == models.OrganizerConfirmed {
			return o
		}
	}
	return nil
}

// Has reports whether the user holds the permission tag: owner, explicit tag,
// or the "all" wildcard.
func Has(evt models.Event, userID string, perm models.Permission) bool {
	if IsOwner(evt, userID) {
		return true
	}
	org := CurrentOrganizer(evt, userID)
	if org == nil {
		return false
	}
	for _, p := range org.Permissions {
		if p == perm || p == models.PermAll {
			return true
		}
	}
	return false
}

func CanEditDetails(evt models.Event, userID string) bool {
	return Has(evt, userID, models.PermEditDetails)
}

func CanManageProgram(evt models.Event, userID string) bool {
	return Has(evt, userID, models.PermManageSubEvents)
}

func CanManageGuests(evt models.Event, userID string) bool {
	return Has(evt, userID, models.PermManageGuests)
}

func CanChat(evt models.Event, userID string) bool {
	return Has(evt, userID, models.PermOrganizerChat)
}

func CanViewBudget(evt models.Event, userID string) bool {
	return Has(evt, userID, models.PermViewBudget)
}

// CanManageSubEvent applies the organizer's sub-event scope. An empty or
// absent scope means event-wide; the owner is always unscoped.
func CanManageSubEvent(evt models.Event, userID string, subEventID string) bool {
	if IsOwner(evt, userID) {
		return true
	}
	org := CurrentOrganizer(evt, userID)
	if org == nil {
		return false
	}
	if len(org.AllowedSubEventIDs) == 0 {
		return true
	}
	for _, id := range org.AllowedSubEventIDs {
		if id == subEventID {
			return true
		}
	}
	return false
}

// CanManageProgramAt gates program changes in a sub-event context. An empty
// subEventID means the global context, which only needs the base capability.
func CanManageProgramAt(evt models.Event, userID string, subEventID string) bool {
	if !CanManageProgram(evt, userID) {
		return false
	}
	return subEventID == "" || CanManageSubEvent(evt, userID, subEventID)
}

// CanManageGuestsAt gates guest changes in a sub-event context.
func CanManageGuestsAt(evt models.Event, userID string, subEventID string) bool {
	if !CanManageGuests(evt, userID) {
		return false
	}
	return subEventID == "" || CanManageSubEvent(evt, userID, subEventID)
}

// CanUseChannel gates a chat channel. The global channel needs the base chat
// capability. A sub-event channel is stricter: owner, or chat capability AND
// scope to that sub-event.
func CanUseChannel(evt models.Event, userID string, channelID string) bool {
	if channelID == models.GlobalChannelID {
		return CanChat(evt, userID)
	}
	if IsOwner(evt, userID) {
		return true
	}
	return CanChat(evt, userID) && CanManageSubEvent(evt, userID, channelID)
}

// Toggle flips a permission tag in a grant while keeping the "all" wildcard
// exclusive: toggling "all" on yields exactly {all}, toggling it off empties
// the set, and toggling a specific tag while "all" is set drops "all" first.
func Toggle(set []models.Permission, perm models.Permission) []models.Permission {
	if perm == models.PermAll {
		if contains(set, models.PermAll) {
			return []models.Permission{}
		}
		return []models.Permission{models.PermAll}
	}
	if contains(set, models.PermAll) {
		// "all" is exclusive, so the set collapses to the toggled tag alone.
		return []models.Permission{perm}
	}
	if contains(set, perm) {
		return remove(set, perm)
	}
	out := make([]models.Permission, 0, len(set)+1)
	out = append(out, set...)
	return append(out, perm)
}

func contains(set []models.Permission, perm models.Permission) bool {
	for _, p := range set {
		if p == perm {
			return true
		}
	}
	return false
}

func remove(set []models.Permission, perm models.Permission) []models.Permission {
	out := make([]models.Permission, 0, len(set))
	for _, p := range set {
		if p != perm {
			out = append(out, p)
		}
	}
	return out
}
