package approval

import (
	"fmt"
	"strings"
	"time"

	"serenity/models"
)

const sessionTimeLayout = "Mon, 02 Jan 2006 at 15:04"

// Composer renders every message body the workflow sends. It does no
// I/O and is deterministic given its inputs; "now" is injected so the
// error notices stay testable. Booking refs appear verbatim wherever
// the coordinator needs to reference them back — the ref is the only
// correlation key across the asynchronous round trip.
type Composer struct {
	ClinicName string
	// Optional override for the client acknowledgement wording.
	// Placeholders: {ref}, {service}, {datetime}.
	AckTemplate string
	Now         func() time.Time
}

func NewComposer(clinicName, ackTemplate string) *Composer {
	return &Composer{
		ClinicName:  clinicName,
		AckTemplate: ackTemplate,
		Now:         time.Now,
	}
}

// CoordinatorAlert asks the coordinator to rule on a fresh booking. It
// spells out the exact command grammar so the reply round-trips through
// the parser.
func (c *Composer) CoordinatorAlert(b *models.Booking) string {
	client := b.ClientAddress
	if b.ClientName != "" {
		client = fmt.Sprintf("%s (%s)", b.ClientName, b.ClientAddress)
	}
	return fmt.Sprintf(`🔔 PENDING APPROVAL REQUIRED #%d

📱 Client: %s
📅 Requested: %s
🏥 Service: %s

⚠️ Client is waiting for confirmation. Reply with one of:
✅ APPROVE %d
❌ DECLINE %d [reason]
📝 MODIFY %d <proposed change>`,
		b.Ref, client, b.RequestedDatetime.Format(sessionTimeLayout), b.RequestedService,
		b.Ref, b.Ref, b.Ref)
}

// ClientAcknowledgement tells the client their request was received.
// The wording is always pending, never success: only a coordinator
// decision confirms a booking.
func (c *Composer) ClientAcknowledgement(b *models.Booking) string {
	if c.AckTemplate != "" {
		body := strings.ReplaceAll(c.AckTemplate, "{ref}", fmt.Sprintf("%d", b.Ref))
		body = strings.ReplaceAll(body, "{service}", b.RequestedService)
		return strings.ReplaceAll(body, "{datetime}", b.RequestedDatetime.Format(sessionTimeLayout))
	}
	return fmt.Sprintf(`Thank you! 💖 I've passed your request for %s on %s to our coordinator.

Nothing is booked yet — I'll message you as soon as our coordinator has reviewed it. Reference #%d`,
		b.RequestedService, b.RequestedDatetime.Format(sessionTimeLayout), b.Ref)
}

// ClientApproved is the confirmation sent after the coordinator approves.
func (c *Composer) ClientApproved(b *models.Booking) string {
	when := b.RequestedDatetime
	if b.ConfirmedDatetime != nil {
		when = *b.ConfirmedDatetime
	}
	return fmt.Sprintf(`All done! ✨ Your appointment is confirmed:

📅 %s
🏥 %s

Everything is arranged — see you then! Reference #%d`,
		when.Format(sessionTimeLayout), b.RequestedService, b.Ref)
}

// ClientDeclined apologizes and invites the client to try another slot.
// The coordinator's internal note is stored for audit but not relayed.
func (c *Composer) ClientDeclined(b *models.Booking) string {
	return fmt.Sprintf(`I'm so sorry — we couldn't arrange your appointment this time. 💔

Would another day or time work for you? Tell me what suits you and I'll check right away. Reference #%d`,
		b.Ref)
}

// ClientModified relays the coordinator's counter-proposal verbatim.
func (c *Composer) ClientModified(b *models.Booking) string {
	note := ""
	if b.CoordinatorNote != nil {
		note = *b.CoordinatorNote
	}
	return fmt.Sprintf(`📝 Our coordinator suggests a change to your appointment #%d:

%s

Would you like to accept, suggest an alternative, or pick another time? Just let me know.`,
		b.Ref, note)
}

// ClientReminder is the message delivered shortly before a confirmed session.
func (c *Composer) ClientReminder(ref int64, service string, at time.Time) string {
	return fmt.Sprintf(`🔔 Appointment Reminder

This is a friendly reminder about your upcoming session:

📅 %s
🏥 %s

If you need to reschedule, please let us know as soon as possible. Reference #%d

%s`,
		at.Format(sessionTimeLayout), service, ref, c.ClinicName)
}

// ClientWelcome greets a client whose message carried no booking intent.
func (c *Composer) ClientWelcome(name string) string {
	greeting := "Hello"
	if name != "" {
		greeting = "Hello " + name
	}
	return fmt.Sprintf(`%s, welcome to %s! 💖

I can help you book therapy sessions, check available times, or answer questions about our services. Just tell me what you'd like to do!`,
		greeting, c.ClinicName)
}

// ClientRephrase is the fallback when intent extraction fails: ask, never guess.
func (c *Composer) ClientRephrase() string {
	return "I'm sorry, I didn't quite catch that. 🙈 Could you tell me again what you'd like to book, including the day and time that suit you?"
}

// CoordinatorActionAck confirms to the coordinator that their decision
// was applied and the client notified.
func (c *Composer) CoordinatorActionAck(kind models.DecisionKind, b *models.Booking) string {
	switch kind {
	case models.DecisionApprove:
		return fmt.Sprintf("✅ APPROVED: booking #%d confirmed.\n\n📤 Confirmation sent to the client.", b.Ref)
	case models.DecisionDecline:
		return fmt.Sprintf("❌ DECLINED: booking #%d cancelled.\n\n📤 Alternative options sent to the client.", b.Ref)
	default:
		return fmt.Sprintf("📝 MODIFY: your proposal for booking #%d was relayed to the client.", b.Ref)
	}
}

// CoordinatorNotFound reports a decision referencing an unknown ref.
func (c *Composer) CoordinatorNotFound(ref int64) string {
	return fmt.Sprintf("⚠️ No such booking #%d. Nothing was changed.", ref)
}

// CoordinatorAlreadyResolved reports a decision that lost the race or
// was delivered twice. The client was not messaged again.
func (c *Composer) CoordinatorAlreadyResolved(ref int64) string {
	return fmt.Sprintf("⚠️ Booking #%d is already resolved. No further decision was applied and the client was not contacted.", ref)
}

// CoordinatorUsage is the hint sent back for unrecognized coordinator text.
func (c *Composer) CoordinatorUsage() string {
	return `I couldn't read that as a booking command. Use one of:
✅ APPROVE <id>
❌ DECLINE <id> [reason]
📝 MODIFY <id> <proposed change>`
}

// CoordinatorError is the generic failure notice for storage faults.
// It goes to the coordinator only; the client hears nothing on any
// fault during decision processing.
func (c *Composer) CoordinatorError(kind, detail string) string {
	return fmt.Sprintf("❌ %s\n\n%s\nTime: %s\n\nPlease investigate and resolve.",
		kind, detail, c.Now().UTC().Format("2006-01-02 15:04:05"))
}
