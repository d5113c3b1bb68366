package approval

import "serenity/models"

// Role identifies which side of the conversation an address belongs to.
type Role string

const (
	RoleClient      Role = "client"
	RoleCoordinator Role = "coordinator"
)

// CoordinatorLookup reports whether an inbound origin address belongs
// to a coordinator. Injected so that adding coordinators or moving to a
// role-per-address table is a construction change, not a call-site
// change.
type CoordinatorLookup func(address string) bool

// SenderRouter disambiguates the single inbound phone line: a message
// is either a client talking to the assistant or a coordinator ruling
// on a booking. It also resolves outbound recipient addresses, kept
// separate from message composition so both stay independently
// testable.
type SenderRouter struct {
	isCoordinator      CoordinatorLookup
	coordinatorAddress string
}

// NewSenderRouter builds a router for a configured coordinator address.
// A nil lookup falls back to exact-match against that address.
func NewSenderRouter(coordinatorAddress string, lookup CoordinatorLookup) *SenderRouter {
	if lookup == nil {
		lookup = func(address string) bool {
			return coordinatorAddress != "" && address == coordinatorAddress
		}
	}
	return &SenderRouter{isCoordinator: lookup, coordinatorAddress: coordinatorAddress}
}

// Classify returns the role behind an inbound origin address. Every
// address that is not a known coordinator is client traffic.
func (r *SenderRouter) Classify(originAddress string) Role {
	if r.isCoordinator(originAddress) {
		return RoleCoordinator
	}
	return RoleClient
}

// AddressFor resolves the outbound recipient address for a role.
func (r *SenderRouter) AddressFor(role Role, booking *models.Booking) string {
	if role == RoleClient && booking != nil {
		return booking.ClientAddress
	}
	return r.coordinatorAddress
}
