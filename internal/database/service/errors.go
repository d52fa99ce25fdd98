package service

import "errors"

var (
	// ErrTrackedRoleNotFound indicates the referenced tracked entry does not
	// exist or is already deactivated.
	ErrTrackedRoleNotFound = errors.New("tracked role not found")

	// ErrNoActiveBan indicates the member has no ban in force.
	ErrNoActiveBan = errors.New("no active ban for member")
)
