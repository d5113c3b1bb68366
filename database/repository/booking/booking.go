package bookingRepo

import (
	"errors"
	"time"

	"serenity/models"
)

// Sentinel errors the approval workflow branches on. Anything else
// returned by the repository is a storage-layer fault.
var (
	ErrNotFound          = errors.New("booking not found")
	ErrAlreadyDecided    = errors.New("booking already decided")
	ErrInvalidTransition = errors.New("invalid booking transition")
)

// TransitionFields carries the decision-dependent fields applied
// together with the status change.
type TransitionFields struct {
	ConfirmedDatetime *time.Time
	CoordinatorNote   *string
}

// BookingRepository defines the interface for booking data access.
//
// Transition is the one concurrency-sensitive call: it must behave as a
// compare-and-swap keyed on (ref, status=pending) so that two
// coordinator replies racing on the same booking cannot both succeed.
type BookingRepository interface {
	Create(booking *models.Booking) error
	GetByRef(ref int64) (*models.Booking, error)
	Transition(ref int64, next models.BookingStatus, fields TransitionFields) (*models.Booking, error)
	ListByStatus(status models.BookingStatus) ([]models.Booking, error)
}
