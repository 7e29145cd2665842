package state

import "github.com/hearth-chat/hearth/internal/models"

// Roster is a room's member list, holding at most one entry per user ID
type Roster struct {
	Scrollable[models.Member]
}

// NewRoster creates a roster from members, dropping repeated user IDs
func NewRoster(members ...models.Member) *Roster {
	r := &Roster{}
	for _, m := range members {
		r.Upsert(m.DisplayName, m.UserID)
	}
	return r
}

// Contains reports whether userID has an entry
func (r *Roster) Contains(userID string) bool {
	return r.index(userID) >= 0
}

// Upsert adds the member unless an entry with the same user ID exists.
// It reports whether an entry was added.
func (r *Roster) Upsert(displayName, userID string) bool {
	if userID == "" || r.Contains(userID) {
		return false
	}
	r.push(models.NewMember(displayName, userID))
	return true
}

// RemoveByUserID removes the member with userID. If that member was
// selected the selection is cleared.
func (r *Roster) RemoveByUserID(userID string) bool {
	i := r.index(userID)
	if i < 0 {
		return false
	}
	r.removeAt(i)
	return true
}

func (r *Roster) index(userID string) int {
	return r.indexFunc(func(m models.Member) bool { return m.UserID == userID })
}
