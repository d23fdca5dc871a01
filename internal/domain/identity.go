package domain

// Identity is an authenticated caller. It is established by middleware before
// any request reaches the realtime channel.
type Identity struct {
	UserID string `json:"userId"`
	Role   Role   `json:"role"`
	Name   string `json:"name,omitempty"`
}

// IsGym reports whether the identity is the gym-profile account gymID.
func (i Identity) IsGym(gymID string) bool {
	return i.Role == RoleGym && i.UserID != "" && i.UserID == gymID
}
