package models

import "time"

// BookingStatus is the lifecycle state of a booking. A booking starts
// pending and receives exactly one coordinator decision; confirmed and
// declined are terminal, modified is closed awaiting the client's next
// move (which starts a fresh booking).
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingDeclined  BookingStatus = "declined"
	BookingModified  BookingStatus = "modified"
)

// Booking is one client request for a session. Requested fields are
// immutable after creation; a reschedule is a new booking so the audit
// trail survives.
type Booking struct {
	Ref               int64         `bson:"ref" json:"ref"`                                               // Short numeric reference the coordinator types back
	ClientAddress     string        `bson:"client_address" json:"clientAddress"`                          // Normalized client phone
	ClientName        string        `bson:"client_name,omitempty" json:"clientName,omitempty"`            // WhatsApp pushname when known
	RequestedService  string        `bson:"requested_service" json:"requestedService"`                    // e.g. "1 Hour Out-Call Session"
	RequestedDatetime time.Time     `bson:"requested_datetime" json:"requestedDatetime"`                  // Client's preferred slot
	ConfirmedDatetime *time.Time    `bson:"confirmed_datetime,omitempty" json:"confirmedDatetime,omitempty"` // Set only on transition to confirmed
	Status            BookingStatus `bson:"status" json:"status"`
	CoordinatorNote   *string       `bson:"coordinator_note,omitempty" json:"coordinatorNote,omitempty"` // Set only on decline/modify
	CreatedAt         time.Time     `bson:"created_at" json:"createdAt"`
	DecidedAt         *time.Time    `bson:"decided_at,omitempty" json:"decidedAt,omitempty"`
}

// DecisionKind is the coordinator's verdict on a pending booking.
type DecisionKind string

const (
	DecisionApprove DecisionKind = "approve"
	DecisionDecline DecisionKind = "decline"
	DecisionModify  DecisionKind = "modify"
)

// Decision is the parsed form of a coordinator reply. It is transient:
// applying it produces the booking's single status transition.
type Decision struct {
	BookingRef int64
	Kind       DecisionKind
	Reason     string // required for modify, optional for decline, ignored for approve
	Raw        string // original coordinator text, kept for audit logging
}
