package model

import "fmt"

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTrainer Role = "trainer"
	RoleWorker  Role = "worker"
)

// ParseRole accepts only the three known roles.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleTrainer, RoleWorker:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Actor is the authenticated caller as handed over by the identity layer.
type Actor struct {
	UserID uint
	Role   Role
}
