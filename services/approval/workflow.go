package approval

import (
	"context"
	"errors"

	bookingRepo "serenity/database/repository/booking"
	"serenity/models"
	ai "serenity/services/intelligence"
	"serenity/services/messaging"

	"go.uber.org/zap"
)

// DefaultApprovalWorkflow is the production implementation of
// ApprovalWorkflow. Each inbound message is one unit of work; units for
// different bookings may run concurrently, and the booking store's
// compare-and-swap transition is the only serialization point needed.
type DefaultApprovalWorkflow struct {
	Repo      bookingRepo.BookingRepository
	Sender    messaging.MessageSender
	Extractor ai.IntentExtractor
	Router    *SenderRouter
	Composer  *Composer
	Reminders ReminderScheduler // optional
	Logger    *zap.Logger
}

// HandleInbound routes one inbound message by origin role.
func (w *DefaultApprovalWorkflow) HandleInbound(ctx context.Context, msg models.InboundMessage) error {
	switch w.Router.Classify(msg.From) {
	case RoleCoordinator:
		return w.handleCoordinatorReply(ctx, msg)
	default:
		return w.handleClientMessage(ctx, msg)
	}
}

// handleClientMessage runs intent extraction and, on a booking intent,
// submits the booking for approval. Extraction failure falls back to
// asking the client to rephrase.
func (w *DefaultApprovalWorkflow) handleClientMessage(ctx context.Context, msg models.InboundMessage) error {
	intent, err := w.Extractor.Extract(ctx, msg.From, msg.Body)
	if err != nil {
		w.Logger.Warn("intent extraction failed, asking client to rephrase",
			zap.String("client", msg.From), zap.Error(err))
		w.send(ctx, msg.From, w.Composer.ClientRephrase())
		return nil
	}

	if intent.Kind != models.IntentBooking {
		reply := intent.Reply
		if reply == "" {
			reply = w.Composer.ClientWelcome(msg.PushName)
		}
		w.send(ctx, msg.From, reply)
		return nil
	}

	_, err = w.SubmitBooking(ctx, models.BookingRequest{
		ClientAddress: msg.From,
		ClientName:    msg.PushName,
		Service:       intent.Service,
		Datetime:      intent.Datetime,
	})
	return err
}

// SubmitBooking creates a pending booking, alerts the coordinator and
// acknowledges the client. The acknowledgement is worded as pending:
// the client is never told a booking succeeded before a coordinator
// decision.
func (w *DefaultApprovalWorkflow) SubmitBooking(ctx context.Context, req models.BookingRequest) (*models.Booking, error) {
	booking := &models.Booking{
		ClientAddress:     req.ClientAddress,
		ClientName:        req.ClientName,
		RequestedService:  req.Service,
		RequestedDatetime: req.Datetime,
	}
	if err := w.Repo.Create(booking); err != nil {
		w.Logger.Error("failed to create booking", zap.String("client", req.ClientAddress), zap.Error(err))
		w.send(ctx, w.Router.AddressFor(RoleCoordinator, nil),
			w.Composer.CoordinatorError("BOOKING INTAKE FAILED", "a client booking request could not be stored"))
		return nil, err
	}

	w.Logger.Info("booking submitted for approval",
		zap.Int64("ref", booking.Ref),
		zap.String("client", booking.ClientAddress),
		zap.String("service", booking.RequestedService))

	w.send(ctx, w.Router.AddressFor(RoleCoordinator, booking), w.Composer.CoordinatorAlert(booking))
	w.send(ctx, booking.ClientAddress, w.Composer.ClientAcknowledgement(booking))
	return booking, nil
}

// handleCoordinatorReply parses the coordinator's text and applies the
// decision. Unparseable text causes no state change and never reaches a
// client; the coordinator gets a usage hint.
func (w *DefaultApprovalWorkflow) handleCoordinatorReply(ctx context.Context, msg models.InboundMessage) error {
	decision, err := ParseDecision(msg.Body)
	if err != nil {
		var perr *ParseError
		if errors.As(err, &perr) {
			w.Logger.Info("ignoring unparseable coordinator reply",
				zap.String("code", string(perr.Code)), zap.String("raw", msg.Body))
			w.send(ctx, w.Router.AddressFor(RoleCoordinator, nil), w.Composer.CoordinatorUsage())
			return nil
		}
		return err
	}
	return w.ApplyDecision(ctx, decision)
}

// ApplyDecision performs the booking's single status transition. A
// decision that references an unknown ref, or loses the race against an
// earlier decision, produces coordinator feedback only — the client is
// never messaged unless the transition succeeded.
func (w *DefaultApprovalWorkflow) ApplyDecision(ctx context.Context, decision *models.Decision) error {
	coordAddr := w.Router.AddressFor(RoleCoordinator, nil)

	var next models.BookingStatus
	var fields bookingRepo.TransitionFields
	switch decision.Kind {
	case models.DecisionApprove:
		current, err := w.Repo.GetByRef(decision.BookingRef)
		if errors.Is(err, bookingRepo.ErrNotFound) {
			w.send(ctx, coordAddr, w.Composer.CoordinatorNotFound(decision.BookingRef))
			return nil
		}
		if err != nil {
			w.Logger.Error("failed to load booking for approval", zap.Int64("ref", decision.BookingRef), zap.Error(err))
			w.send(ctx, coordAddr, w.Composer.CoordinatorError("DECISION FAILED", "the booking could not be loaded"))
			return err
		}
		next = models.BookingConfirmed
		confirmed := current.RequestedDatetime
		fields.ConfirmedDatetime = &confirmed
	case models.DecisionDecline:
		next = models.BookingDeclined
		note := decision.Reason
		fields.CoordinatorNote = &note
	case models.DecisionModify:
		next = models.BookingModified
		note := decision.Reason
		fields.CoordinatorNote = &note
	default:
		return &ParseError{Code: ParseUnrecognized, Raw: decision.Raw}
	}

	updated, err := w.Repo.Transition(decision.BookingRef, next, fields)
	switch {
	case errors.Is(err, bookingRepo.ErrNotFound):
		w.send(ctx, coordAddr, w.Composer.CoordinatorNotFound(decision.BookingRef))
		return nil
	case errors.Is(err, bookingRepo.ErrAlreadyDecided):
		// Idempotent replay: the second delivery of the same reply lands
		// here and only the coordinator hears about it.
		w.send(ctx, coordAddr, w.Composer.CoordinatorAlreadyResolved(decision.BookingRef))
		return nil
	case err != nil:
		w.Logger.Error("failed to apply coordinator decision",
			zap.Int64("ref", decision.BookingRef), zap.String("kind", string(decision.Kind)), zap.Error(err))
		w.send(ctx, coordAddr, w.Composer.CoordinatorError("DECISION FAILED", "the decision could not be stored"))
		return err
	}

	w.Logger.Info("coordinator decision applied",
		zap.Int64("ref", updated.Ref),
		zap.String("kind", string(decision.Kind)),
		zap.String("raw", decision.Raw))

	var clientBody string
	switch decision.Kind {
	case models.DecisionApprove:
		clientBody = w.Composer.ClientApproved(updated)
	case models.DecisionDecline:
		clientBody = w.Composer.ClientDeclined(updated)
	case models.DecisionModify:
		clientBody = w.Composer.ClientModified(updated)
	}
	w.send(ctx, updated.ClientAddress, clientBody)
	w.send(ctx, coordAddr, w.Composer.CoordinatorActionAck(decision.Kind, updated))

	if decision.Kind == models.DecisionApprove && w.Reminders != nil {
		if err := w.Reminders.ScheduleConfirmation(ctx, updated); err != nil {
			// The booking stays confirmed regardless.
			w.Logger.Warn("failed to schedule reminder", zap.Int64("ref", updated.Ref), zap.Error(err))
		}
	}
	return nil
}

// send delivers one outbound message. Delivery failures are logged for
// operator attention; they never roll back a state transition that
// already happened.
func (w *DefaultApprovalWorkflow) send(ctx context.Context, to, body string) {
	if to == "" {
		w.Logger.Warn("dropping outbound message without recipient")
		return
	}
	if _, err := w.Sender.SendMessage(ctx, to, body); err != nil {
		w.Logger.Error("outbound message failed", zap.String("to", to), zap.Error(err))
	}
}
