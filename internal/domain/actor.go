package domain

import "fmt"

// Role is the caller's role as asserted by the identity provider.
type Role string

const (
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

// ParseRole validates a raw role claim.
func ParseRole(raw string) (Role, error) {
	switch Role(raw) {
	case RoleTeacher, RoleStudent:
		return Role(raw), nil
	}
	return "", fmt.Errorf("unknown role %q", raw)
}

// Actor is an authenticated caller.
type Actor struct {
	ID   int64 `json:"id"`
	Role Role  `json:"role"`
}

func (a Actor) IsTeacher() bool { return a.Role == RoleTeacher }
func (a Actor) IsStudent() bool { return a.Role == RoleStudent }

// Owns reports whether the actor is the teacher owning quiz.
func (a Actor) Owns(quiz Quiz) bool {
	return a.IsTeacher() && quiz.TeacherID == a.ID
}
