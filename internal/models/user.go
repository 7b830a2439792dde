package models

// User is the identity attached to a request, either from a bearer token or
// from a stored session.
type User struct {
	ID        string   `json:"id"`
	Username  string   `json:"username"`
	Roles     []string `json:"roles,omitempty"`
	Anonymous bool     `json:"-"`
}

// AnonymousUser stands in for callers without credentials.
var AnonymousUser = &User{Anonymous: true}

// IsAuthenticated returns true for a non-anonymous user with a stable ID.
// Safe on a nil receiver.
func (u *User) IsAuthenticated() bool {
	return u != nil && !u.Anonymous && u.ID != ""
}

// Subject returns the stable user identifier.
func (u *User) Subject() string {
	if u == nil {
		return ""
	}
	return u.ID
}

// DisplayName returns the username shown in logs and the console.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	return u.Username
}
