package approval

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	bookingRepo "serenity/database/repository/booking"
	"serenity/models"

	"go.uber.org/zap"
)

const (
	coordinatorAddr = "97471669569"
	clientAddr      = "97455501234"
)

// memBookingRepo is an in-memory BookingRepository with the same
// compare-and-swap transition contract as the Mongo implementation.
type memBookingRepo struct {
	mu            sync.Mutex
	lastRef       int64
	byRef         map[int64]*models.Booking
	createErr     error
	transitionErr error
}

func newMemBookingRepo() *memBookingRepo {
	return &memBookingRepo{byRef: make(map[int64]*models.Booking)}
}

func (r *memBookingRepo) Create(b *models.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.lastRef++
	b.Ref = r.lastRef
	b.Status = models.BookingPending
	b.CreatedAt = time.Now().UTC()
	cp := *b
	r.byRef[b.Ref] = &cp
	return nil
}

func (r *memBookingRepo) GetByRef(ref int64) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.byRef[ref]
	if !ok {
		return nil, bookingRepo.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (r *memBookingRepo) Transition(ref int64, next models.BookingStatus, fields bookingRepo.TransitionFields) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.transitionErr != nil {
		return nil, r.transitionErr
	}
	b, ok := r.byRef[ref]
	if !ok {
		return nil, bookingRepo.ErrNotFound
	}
	if b.Status != models.BookingPending {
		return nil, bookingRepo.ErrAlreadyDecided
	}
	b.Status = next
	now := time.Now().UTC()
	b.DecidedAt = &now
	if fields.ConfirmedDatetime != nil {
		t := *fields.ConfirmedDatetime
		b.ConfirmedDatetime = &t
	}
	if fields.CoordinatorNote != nil {
		n := *fields.CoordinatorNote
		b.CoordinatorNote = &n
	}
	cp := *b
	return &cp, nil
}

func (r *memBookingRepo) ListByStatus(status models.BookingStatus) ([]models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Booking
	for _, b := range r.byRef {
		if b.Status == status {
			out = append(out, *b)
		}
	}
	return out, nil
}

type sentMessage struct {
	To   string
	Body string
}

type recordingSender struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (s *recordingSender) SendMessage(ctx context.Context, to, body string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.sent = append(s.sent, sentMessage{To: to, Body: body})
	return fmt.Sprintf("msg-%d", len(s.sent)), nil
}

func (s *recordingSender) to(addr string) []sentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []sentMessage
	for _, m := range s.sent {
		if m.To == addr {
			out = append(out, m)
		}
	}
	return out
}

type stubExtractor struct {
	intent *models.Intent
	err    error
}

func (e *stubExtractor) Extract(ctx context.Context, clientAddress, text string) (*models.Intent, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.intent, nil
}

type stubScheduler struct {
	scheduled []int64
	err       error
}

func (s *stubScheduler) ScheduleConfirmation(ctx context.Context, b *models.Booking) error {
	if s.err != nil {
		return s.err
	}
	s.scheduled = append(s.scheduled, b.Ref)
	return nil
}

func newTestWorkflow(repo bookingRepo.BookingRepository, sender *recordingSender, extractor *stubExtractor) *DefaultApprovalWorkflow {
	return &DefaultApprovalWorkflow{
		Repo:      repo,
		Sender:    sender,
		Extractor: extractor,
		Router:    NewSenderRouter(coordinatorAddr, nil),
		Composer:  testComposer(),
		Logger:    zap.NewNop(),
	}
}

func clientMsg(body string) models.InboundMessage {
	return models.InboundMessage{From: clientAddr, Body: body, PushName: "Layla", ReceivedAt: fixedNow}
}

func coordinatorMsg(body string) models.InboundMessage {
	return models.InboundMessage{From: coordinatorAddr, Body: body, ReceivedAt: fixedNow}
}

func bookingIntent() *models.Intent {
	return &models.Intent{
		Kind:     models.IntentBooking,
		Service:  "1 Hour Out-Call Session",
		Datetime: time.Date(2026, 9, 2, 15, 0, 0, 0, time.UTC),
	}
}

func TestClientBookingIntentNotifiesBothParties(t *testing.T) {
	repo := newMemBookingRepo()
	sender := &recordingSender{}
	w := newTestWorkflow(repo, sender, &stubExtractor{intent: bookingIntent()})

	if err := w.HandleInbound(context.Background(), clientMsg("book me tomorrow 3pm")); err != nil {
		t.Fatalf("HandleInbound: %v", err)
	}

	coord := sender.to(coordinatorAddr)
	if len(coord) != 1 {
		t.Fatalf("coordinator received %d messages, want 1 alert", len(coord))
	}
	if !strings.Contains(coord[0].Body, "#1") || !strings.Contains(coord[0].Body, "APPROVE 1") {
		t.Errorf("coordinator alert missing ref or grammar:\n%s", coord[0].Body)
	}

	client := sender.to(clientAddr)
	if len(client) != 1 {
		t.Fatalf("client received %d messages, want 1 acknowledgement", len(client))
	}
	// No premature confirmation: the only client message before a
	// decision is the pending acknowledgement.
	if strings.Contains(strings.ToLower(client[0].Body), "confirmed") {
		t.Errorf("client acknowledgement reads as success:\n%s", client[0].Body)
	}

	b, err := repo.GetByRef(1)
	if err != nil {
		t.Fatalf("GetByRef: %v", err)
	}
	if b.Status != models.BookingPending {
		t.Errorf("status = %q, want pending", b.Status)
	}
	if b.ClientAddress != clientAddr || b.RequestedService != "1 Hour Out-Call Session" {
		t.Errorf("booking fields not taken from the intent: %+v", b)
	}
}

func TestApproveConfirmsRequestedSlot(t *testing.T) {
	repo := newMemBookingRepo()
	sender := &recordingSender{}
	w := newTestWorkflow(repo, sender, &stubExtractor{intent: bookingIntent()})

	if err := w.HandleInbound(context.Background(), clientMsg("book me tomorrow 3pm")); err != nil {
		t.Fatalf("intake: %v", err)
	}
	if err := w.HandleInbound(context.Background(), coordinatorMsg("APPROVE 1")); err != nil {
		t.Fatalf("approve: %v", err)
	}

	b, _ := repo.GetByRef(1)
	if b.Status != models.BookingConfirmed {
		t.Fatalf("status = %q, want confirmed", b.Status)
	}
	if b.ConfirmedDatetime == nil || !b.ConfirmedDatetime.Equal(b.RequestedDatetime) {
		t.Errorf("confirmedDatetime = %v, want requested slot %v", b.ConfirmedDatetime, b.RequestedDatetime)
	}
	if b.CoordinatorNote != nil {
		t.Errorf("approve must not set a coordinator note, got %q", *b.CoordinatorNote)
	}
	if b.DecidedAt == nil {
		t.Error("decidedAt not set")
	}

	client := sender.to(clientAddr)
	if len(client) != 2 {
		t.Fatalf("client received %d messages, want ack + confirmation", len(client))
	}
	confirmation := client[1].Body
	if !strings.Contains(confirmation, "1 Hour Out-Call Session") || !strings.Contains(confirmation, "#1") {
		t.Errorf("confirmation missing service or ref:\n%s", confirmation)
	}

	coord := sender.to(coordinatorAddr)
	if len(coord) != 2 {
		t.Fatalf("coordinator received %d messages, want alert + action ack", len(coord))
	}
}

func TestDeclineStoresNoteAndApologizes(t *testing.T) {
	repo := newMemBookingRepo()
	sender := &recordingSender{}
	w := newTestWorkflow(repo, sender, &stubExtractor{intent: bookingIntent()})

	_ = w.HandleInbound(context.Background(), clientMsg("book me tomorrow 3pm"))
	if err := w.HandleInbound(context.Background(), coordinatorMsg("DECLINE 1 fully booked")); err != nil {
		t.Fatalf("decline: %v", err)
	}

	b, _ := repo.GetByRef(1)
	if b.Status != models.BookingDeclined {
		t.Fatalf("status = %q, want declined", b.Status)
	}
	if b.CoordinatorNote == nil || *b.CoordinatorNote != "fully booked" {
		t.Errorf("coordinatorNote = %v, want %q", b.CoordinatorNote, "fully booked")
	}
	if b.ConfirmedDatetime != nil {
		t.Errorf("declined booking has confirmedDatetime %v", b.ConfirmedDatetime)
	}

	client := sender.to(clientAddr)
	if len(client) != 2 {
		t.Fatalf("client received %d messages, want ack + decline notice", len(client))
	}
	if !strings.Contains(strings.ToLower(client[1].Body), "sorry") {
		t.Errorf("decline notice does not apologize:\n%s", client[1].Body)
	}
}

func TestModifyRelaysProposalVerbatim(t *testing.T) {
	repo := newMemBookingRepo()
	sender := &recordingSender{}
	w := newTestWorkflow(repo, sender, &stubExtractor{intent: bookingIntent()})

	_ = w.HandleInbound(context.Background(), clientMsg("book me tomorrow 3pm"))
	if err := w.HandleInbound(context.Background(), coordinatorMsg("MODIFY 1 how about 4pm instead?")); err != nil {
		t.Fatalf("modify: %v", err)
	}

	b, _ := repo.GetByRef(1)
	if b.Status != models.BookingModified {
		t.Fatalf("status = %q, want modified", b.Status)
	}
	if b.CoordinatorNote == nil || *b.CoordinatorNote != "how about 4pm instead?" {
		t.Errorf("coordinatorNote = %v, want the proposal verbatim", b.CoordinatorNote)
	}

	client := sender.to(clientAddr)
	if len(client) != 2 || !strings.Contains(client[1].Body, "how about 4pm instead?") {
		t.Fatalf("client did not receive the proposal: %+v", client)
	}
}

// Replaying the same coordinator reply must change nothing and produce
// zero additional client-facing sends.
func TestDuplicateDecisionIsIdempotent(t *testing.T) {
	repo := newMemBookingRepo()
	sender := &recordingSender{}
	w := newTestWorkflow(repo, sender, &stubExtractor{intent: bookingIntent()})

	_ = w.HandleInbound(context.Background(), clientMsg("book me tomorrow 3pm"))
	_ = w.HandleInbound(context.Background(), coordinatorMsg("APPROVE 1"))

	clientBefore := len(sender.to(clientAddr))
	if err := w.HandleInbound(context.Background(), coordinatorMsg("APPROVE 1")); err != nil {
		t.Fatalf("replayed approve: %v", err)
	}

	if got := len(sender.to(clientAddr)); got != clientBefore {
		t.Errorf("replay produced %d extra client messages", got-clientBefore)
	}
	coord := sender.to(coordinatorAddr)
	last := coord[len(coord)-1].Body
	if !strings.Contains(last, "already resolved") {
		t.Errorf("coordinator not told about the replay:\n%s", last)
	}

	b, _ := repo.GetByRef(1)
	if b.Status != models.BookingConfirmed {
		t.Errorf("replay changed status to %q", b.Status)
	}
}

// A second, different decision must lose to the first: booking state
// reflects only the decision that won the compare-and-swap.
func TestSecondDecisionRejected(t *testing.T) {
	repo := newMemBookingRepo()
	sender := &recordingSender{}
	w := newTestWorkflow(repo, sender, &stubExtractor{intent: bookingIntent()})

	_ = w.HandleInbound(context.Background(), clientMsg("book me tomorrow 3pm"))
	_ = w.HandleInbound(context.Background(), coordinatorMsg("DECLINE 1 fully booked"))
	_ = w.HandleInbound(context.Background(), coordinatorMsg("APPROVE 1"))

	b, _ := repo.GetByRef(1)
	if b.Status != models.BookingDeclined {
		t.Errorf("status = %q, want declined (first decision)", b.Status)
	}
	if b.ConfirmedDatetime != nil {
		t.Errorf("losing approve still set confirmedDatetime %v", b.ConfirmedDatetime)
	}
	if b.CoordinatorNote == nil || *b.CoordinatorNote != "fully booked" {
		t.Errorf("coordinatorNote = %v, want the first decision's note", b.CoordinatorNote)
	}
}

func TestDecisionForUnknownRef(t *testing.T) {
	repo := newMemBookingRepo()
	sender := &recordingSender{}
	w := newTestWorkflow(repo, sender, &stubExtractor{intent: bookingIntent()})

	if err := w.HandleInbound(context.Background(), coordinatorMsg("APPROVE 999")); err != nil {
		t.Fatalf("unknown ref: %v", err)
	}

	if got := len(sender.to(clientAddr)); got != 0 {
		t.Errorf("client received %d messages for an unknown ref", got)
	}
	coord := sender.to(coordinatorAddr)
	if len(coord) != 1 || !strings.Contains(coord[0].Body, "#999") {
		t.Fatalf("coordinator notice missing or wrong: %+v", coord)
	}
}

func TestUnrecognizedCoordinatorTextIsNoOp(t *testing.T) {
	repo := newMemBookingRepo()
	sender := &recordingSender{}
	w := newTestWorkflow(repo, sender, &stubExtractor{intent: bookingIntent()})

	_ = w.HandleInbound(context.Background(), clientMsg("book me tomorrow 3pm"))
	clientBefore := len(sender.to(clientAddr))

	if err := w.HandleInbound(context.Background(), coordinatorMsg("yes that works")); err != nil {
		t.Fatalf("unrecognized text: %v", err)
	}

	b, _ := repo.GetByRef(1)
	if b.Status != models.BookingPending {
		t.Errorf("unrecognized text changed status to %q", b.Status)
	}
	if got := len(sender.to(clientAddr)); got != clientBefore {
		t.Errorf("unrecognized coordinator text leaked %d messages to the client", got-clientBefore)
	}
}

func TestExtractionFailureAsksClientToRephrase(t *testing.T) {
	repo := newMemBookingRepo()
	sender := &recordingSender{}
	w := newTestWorkflow(repo, sender, &stubExtractor{err: errors.New("model unavailable")})

	if err := w.HandleInbound(context.Background(), clientMsg("book me tomorrow 3pm")); err != nil {
		t.Fatalf("HandleInbound: %v", err)
	}

	if len(repo.byRef) != 0 {
		t.Errorf("extraction failure created %d bookings", len(repo.byRef))
	}
	client := sender.to(clientAddr)
	if len(client) != 1 || !strings.Contains(client[0].Body, "tell me again") {
		t.Fatalf("client was not asked to rephrase: %+v", client)
	}
	if got := len(sender.to(coordinatorAddr)); got != 0 {
		t.Errorf("coordinator received %d messages on extraction failure", got)
	}
}

func TestChatIntentGetsConversationalReply(t *testing.T) {
	repo := newMemBookingRepo()
	sender := &recordingSender{}
	intent := &models.Intent{Kind: models.IntentChat, Reply: "We're open 9am to 7pm every day!"}
	w := newTestWorkflow(repo, sender, &stubExtractor{intent: intent})

	_ = w.HandleInbound(context.Background(), clientMsg("what are your hours?"))

	client := sender.to(clientAddr)
	if len(client) != 1 || client[0].Body != intent.Reply {
		t.Fatalf("client reply = %+v, want the extractor's reply", client)
	}
	if len(repo.byRef) != 0 {
		t.Errorf("chat intent created %d bookings", len(repo.byRef))
	}
}

func TestStorageFaultOnDecisionStaysWithCoordinator(t *testing.T) {
	repo := newMemBookingRepo()
	sender := &recordingSender{}
	w := newTestWorkflow(repo, sender, &stubExtractor{intent: bookingIntent()})

	_ = w.HandleInbound(context.Background(), clientMsg("book me tomorrow 3pm"))
	clientBefore := len(sender.to(clientAddr))

	repo.transitionErr = errors.New("connection reset")
	if err := w.HandleInbound(context.Background(), coordinatorMsg("APPROVE 1")); err == nil {
		t.Fatal("expected the storage fault to surface")
	}

	if got := len(sender.to(clientAddr)); got != clientBefore {
		t.Errorf("storage fault leaked %d messages to the client", got-clientBefore)
	}
	coord := sender.to(coordinatorAddr)
	last := coord[len(coord)-1].Body
	if !strings.Contains(last, "DECISION FAILED") {
		t.Errorf("coordinator not told about the fault:\n%s", last)
	}
}

func TestIntakeStorageFaultNotifiesCoordinatorOnly(t *testing.T) {
	repo := newMemBookingRepo()
	repo.createErr = errors.New("write concern timeout")
	sender := &recordingSender{}
	w := newTestWorkflow(repo, sender, &stubExtractor{intent: bookingIntent()})

	if err := w.HandleInbound(context.Background(), clientMsg("book me tomorrow 3pm")); err == nil {
		t.Fatal("expected the storage fault to surface")
	}

	if got := len(sender.to(clientAddr)); got != 0 {
		t.Errorf("client received %d messages despite intake failure", got)
	}
	coord := sender.to(coordinatorAddr)
	if len(coord) != 1 || !strings.Contains(coord[0].Body, "BOOKING INTAKE FAILED") {
		t.Fatalf("coordinator fault notice missing: %+v", coord)
	}
}

func TestSendFailureDoesNotRollBackDecision(t *testing.T) {
	repo := newMemBookingRepo()
	sender := &recordingSender{}
	w := newTestWorkflow(repo, sender, &stubExtractor{intent: bookingIntent()})

	_ = w.HandleInbound(context.Background(), clientMsg("book me tomorrow 3pm"))

	sender.err = errors.New("gateway unreachable")
	if err := w.HandleInbound(context.Background(), coordinatorMsg("APPROVE 1")); err != nil {
		t.Fatalf("approve with failing sender: %v", err)
	}

	b, _ := repo.GetByRef(1)
	if b.Status != models.BookingConfirmed {
		t.Errorf("send failure rolled back the decision, status = %q", b.Status)
	}
}

func TestApproveSchedulesReminder(t *testing.T) {
	repo := newMemBookingRepo()
	sender := &recordingSender{}
	scheduler := &stubScheduler{}
	w := newTestWorkflow(repo, sender, &stubExtractor{intent: bookingIntent()})
	w.Reminders = scheduler

	_ = w.HandleInbound(context.Background(), clientMsg("book me tomorrow 3pm"))
	_ = w.HandleInbound(context.Background(), coordinatorMsg("APPROVE 1"))

	if len(scheduler.scheduled) != 1 || scheduler.scheduled[0] != 1 {
		t.Errorf("scheduled refs = %v, want [1]", scheduler.scheduled)
	}

	// Declines never schedule reminders.
	_ = w.HandleInbound(context.Background(), clientMsg("book me tomorrow 3pm"))
	_ = w.HandleInbound(context.Background(), coordinatorMsg("DECLINE 2 fully booked"))
	if len(scheduler.scheduled) != 1 {
		t.Errorf("decline scheduled a reminder: %v", scheduler.scheduled)
	}
}

func TestReminderFailureKeepsBookingConfirmed(t *testing.T) {
	repo := newMemBookingRepo()
	sender := &recordingSender{}
	w := newTestWorkflow(repo, sender, &stubExtractor{intent: bookingIntent()})
	w.Reminders = &stubScheduler{err: errors.New("queue down")}

	_ = w.HandleInbound(context.Background(), clientMsg("book me tomorrow 3pm"))
	if err := w.HandleInbound(context.Background(), coordinatorMsg("APPROVE 1")); err != nil {
		t.Fatalf("approve with failing scheduler: %v", err)
	}

	b, _ := repo.GetByRef(1)
	if b.Status != models.BookingConfirmed {
		t.Errorf("reminder failure affected the booking, status = %q", b.Status)
	}
}
