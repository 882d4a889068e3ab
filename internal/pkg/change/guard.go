package change

import (
	"github.com/ManuelReschke/contracts/internal/pkg/apperror"
)

// Membership status names the guard knows about.
const (
	StatusNew       = "New"
	StatusCurrent   = "Current"
	StatusGrace     = "Grace"
	StatusPaused    = "Paused"
	StatusCancelled = "Cancelled"
)

// IsLegalFrom reports whether a change of type t may start from a contract
// in the given status.
func IsLegalFrom(status string, t Type) bool {
	if !t.Valid() {
		return false
	}
	for _, s := range t.Variant().StartStatuses() {
		if s == status {
			return true
		}
	}
	return false
}

// CheckTransition returns a ValidationError naming status and action when
// the change is not legal.
func CheckTransition(status string, t Type) error {
	if IsLegalFrom(status, t) {
		return nil
	}
	return apperror.IllegalTransition(status, t.Action())
}
