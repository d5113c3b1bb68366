// File: database/repository/booking/bookingMongoCrud.go
package bookingRepo

import (
	"errors"
	"fmt"
	"time"

	"serenity/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Create inserts a new booking document in the pending state,
// allocating a fresh reference.
func (r *MongoBookingRepo) Create(booking *models.Booking) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	ref, err := r.nextRef(ctx)
	if err != nil {
		return err
	}

	booking.Ref = ref
	booking.Status = models.BookingPending
	booking.CreatedAt = time.Now().UTC()
	booking.ConfirmedDatetime = nil
	booking.CoordinatorNote = nil
	booking.DecidedAt = nil

	if _, err := r.coll.InsertOne(ctx, booking); err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

// GetByRef fetches a booking by its reference.
func (r *MongoBookingRepo) GetByRef(ref int64) (*models.Booking, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	var booking models.Booking
	err := r.coll.FindOne(ctx, bson.M{"ref": ref}).Decode(&booking)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch booking %d: %w", ref, err)
	}
	return &booking, nil
}

// Transition applies the booking's single decision. The filter pins the
// current status to pending, so the update is a compare-and-swap: of
// two racing decisions exactly one matches, the other sees
// ErrAlreadyDecided.
func (r *MongoBookingRepo) Transition(ref int64, next models.BookingStatus, fields TransitionFields) (*models.Booking, error) {
	switch next {
	case models.BookingConfirmed, models.BookingDeclined, models.BookingModified:
	default:
		return nil, fmt.Errorf("%w: pending -> %s", ErrInvalidTransition, next)
	}

	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	set := bson.M{
		"status":     next,
		"decided_at": time.Now().UTC(),
	}
	if fields.ConfirmedDatetime != nil {
		set["confirmed_datetime"] = *fields.ConfirmedDatetime
	}
	if fields.CoordinatorNote != nil {
		set["coordinator_note"] = *fields.CoordinatorNote
	}

	filter := bson.M{"ref": ref, "status": models.BookingPending}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated models.Booking
	err := r.coll.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		// No pending document matched: either the ref is unknown or the
		// booking already left pending. A follow-up read disambiguates.
		if _, gerr := r.GetByRef(ref); gerr != nil {
			return nil, gerr
		}
		return nil, ErrAlreadyDecided
	}
	if err != nil {
		return nil, fmt.Errorf("failed to transition booking %d: %w", ref, err)
	}
	return &updated, nil
}

// ListByStatus returns bookings in the given state, newest first.
func (r *MongoBookingRepo) ListByStatus(status models.BookingStatus) ([]models.Booking, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.coll.Find(ctx, bson.M{"status": status}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s bookings: %w", status, err)
	}
	defer cursor.Close(ctx)

	var bookings []models.Booking
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode %s bookings: %w", status, err)
	}
	return bookings, nil
}
