package model

import (
	"fmt"
	"strings"
	"time"
)

// Role is a user's permission level.
type Role string

// Roles.
const (
	RoleAdmin     Role = "admin"
	RoleAssistant Role = "inventory_assistant"
	RoleStaff     Role = "staff"
)

// Managers are the roles allowed to run stock administration.
var Managers = []Role{RoleAdmin, RoleAssistant}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleAssistant, RoleStaff:
		return true
	}
	return false
}

// User is a team member who can hold equipment.
type User struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Role      Role       `json:"role"`
	PINHash   string     `json:"-"`
	Avatar    string     `json:"avatar"`
	CreatedAt time.Time  `json:"created_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// Actor is the identity on whose behalf an operation runs.
type Actor struct {
	ID   int64
	Name string
	Role Role
}

// Actor returns the user as an acting identity.
func (u *User) Actor() Actor {
	return Actor{ID: u.ID, Name: u.Name, Role: u.Role}
}

// HasRole reports whether the actor holds one of the given roles.
// Unknown roles fail closed.
func (a Actor) HasRole(allowed ...Role) bool {
	if !a.Role.Valid() {
		return false
	}
	for _, r := range allowed {
		if a.Role == r {
			return true
		}
	}
	return false
}

// IsManager reports whether the actor is an admin or inventory assistant.
func (a Actor) IsManager() bool {
	return a.HasRole(Managers...)
}

// Initials derives a two-letter avatar from a display name.
func Initials(name string) string {
	var out []rune
	for _, w := range strings.Fields(name) {
		out = append(out, []rune(strings.ToUpper(w))[0])
		if len(out) == 2 {
			break
		}
	}
	return string(out)
}

// ValidatePIN checks that a PIN is exactly four digits.
func ValidatePIN(pin string) error {
	if len(pin) != 4 {
		return fmt.Errorf("PIN must be exactly 4 digits")
	}
	for _, c := range pin {
		if c < '0' || c > '9' {
			return fmt.Errorf("PIN must be exactly 4 digits")
		}
	}
	return nil
}
