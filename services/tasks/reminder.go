package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"serenity/models"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const TypeSendReminder = "reminder:send"

func NewReminderTask(payload models.ReminderPayload, fireAt time.Time) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeSendReminder, b)
	opts := []asynq.Option{asynq.ProcessAt(fireAt)}

	return task, opts, nil
}

// AsynqReminderScheduler queues appointment reminders for confirmed
// bookings. It implements approval.ReminderScheduler.
type AsynqReminderScheduler struct {
	client *asynq.Client
	lead   time.Duration
	logger *zap.Logger
}

func NewAsynqReminderScheduler(redisOpt asynq.RedisClientOpt, lead time.Duration, logger *zap.Logger) *AsynqReminderScheduler {
	return &AsynqReminderScheduler{
		client: asynq.NewClient(redisOpt),
		lead:   lead,
		logger: logger,
	}
}

// ScheduleConfirmation enqueues a reminder ahead of the confirmed slot.
// Sessions starting inside the lead window get no reminder.
func (s *AsynqReminderScheduler) ScheduleConfirmation(ctx context.Context, booking *models.Booking) error {
	if booking.ConfirmedDatetime == nil {
		return fmt.Errorf("booking #%d has no confirmed datetime", booking.Ref)
	}

	fireAt := booking.ConfirmedDatetime.Add(-s.lead)
	if !fireAt.After(time.Now()) {
		s.logger.Debug("skipping reminder inside lead window", zap.Int64("ref", booking.Ref))
		return nil
	}

	payload := models.ReminderPayload{
		ReminderID:    uuid.New().String(),
		BookingRef:    booking.Ref,
		ClientAddress: booking.ClientAddress,
		Service:       booking.RequestedService,
		FireDate:      fireAt.Format(time.RFC3339),
		SessionDate:   booking.ConfirmedDatetime.Format(time.RFC3339),
	}

	task, opts, err := NewReminderTask(payload, fireAt)
	if err != nil {
		return fmt.Errorf("failed to build reminder task for booking #%d: %w", booking.Ref, err)
	}
	if _, err := s.client.EnqueueContext(ctx, task, opts...); err != nil {
		return fmt.Errorf("failed to enqueue reminder for booking #%d: %w", booking.Ref, err)
	}

	s.logger.Info("reminder scheduled",
		zap.Int64("ref", booking.Ref), zap.String("fireAt", payload.FireDate))
	return nil
}

// Close releases the underlying asynq client.
func (s *AsynqReminderScheduler) Close() error {
	return s.client.Close()
}
