package approval

import (
	"context"

	"serenity/models"
)

// ApprovalWorkflow orchestrates the booking lifecycle: client intake,
// coordinator notification, decision application, client notification.
// No client-visible state ever changes without a coordinator decision.
type ApprovalWorkflow interface {
	// HandleInbound routes one inbound message by origin role.
	HandleInbound(ctx context.Context, msg models.InboundMessage) error
	// SubmitBooking creates a pending booking from an extracted intent
	// and notifies both parties.
	SubmitBooking(ctx context.Context, req models.BookingRequest) (*models.Booking, error)
	// ApplyDecision performs the booking's single status transition and
	// fans out the resulting notifications.
	ApplyDecision(ctx context.Context, decision *models.Decision) error
}

// ReminderScheduler queues an appointment reminder for a confirmed
// booking. Delivery happens outside the approval core.
type ReminderScheduler interface {
	ScheduleConfirmation(ctx context.Context, booking *models.Booking) error
}
