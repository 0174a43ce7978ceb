package repository

import (
	"errors"

	"github.com/lib/pq"
)

// ErrAlreadyMember is returned when a user who already has an organization tries to join another.
var ErrAlreadyMember = errors.New("user already belongs to an organization")

const uniqueViolation = "23505"

func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != uniqueViolation {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}
