package models

// Member is one entry in a room's member roster
type Member struct {
	DisplayName string `json:"display_name"`
	UserID      string `json:"user_id"`
}

// NewMember creates a roster entry. When the protocol has no display name
// for the user, the user ID is shown instead.
func NewMember(displayName, userID string) Member {
	if displayName == "" {
		displayName = userID
	}
	return Member{
		DisplayName: displayName,
		UserID:      userID,
	}
}
