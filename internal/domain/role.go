package domain

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Role is the account type of a participant.
type Role string

const (
	RoleGym     Role = "gym"
	RoleTrainer Role = "trainer"
	RoleMember  Role = "member"
	RoleAdmin   Role = "admin"
)

var titleCaser = cases.Title(language.English)

// ParseRole accepts either the role ("member") or its model name ("Member").
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("%w: unknown role %q", ErrBadRequest, s)
	}
	return r, nil
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleGym, RoleTrainer, RoleMember, RoleAdmin:
		return true
	}
	return false
}

// Model returns the wire name clients use for this role, e.g. "Trainer".
func (r Role) Model() string {
	return titleCaser.String(string(r))
}

func (r Role) String() string { return string(r) }

type rolePair struct{ a, b Role }

// allowedPairs lists who may message whom. The relation is symmetric.
var allowedPairs = map[rolePair]struct{}{
	{RoleGym, RoleTrainer}:    {},
	{RoleTrainer, RoleGym}:    {},
	{RoleTrainer, RoleMember}: {},
	{RoleMember, RoleTrainer}: {},
}

// CanMessage reports whether a sender with role from may message a receiver with role to.
func CanMessage(from, to Role) bool {
	_, ok := allowedPairs[rolePair{from, to}]
	return ok
}

// ContactRoles returns the receiver roles a sender with role r may address.
func ContactRoles(r Role) []Role {
	switch r {
	case RoleGym, RoleMember:
		return []Role{RoleTrainer}
	case RoleTrainer:
		return []Role{RoleGym, RoleMember}
	}
	return nil
}
