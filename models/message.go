package models

import "time"

// InboundMessage is the typed form of one WhatsApp message after the
// transport layer has stripped provider framing. Nothing
// provider-specific crosses this boundary.
type InboundMessage struct {
	From              string    `json:"from"` // normalized origin phone
	To                string    `json:"to"`
	Body              string    `json:"body"`
	ProviderMessageID string    `json:"providerMessageId,omitempty"`
	PushName          string    `json:"pushname,omitempty"`
	ReceivedAt        time.Time `json:"receivedAt"`
}

// IntentKind classifies what a client's message is asking for.
type IntentKind string

const (
	IntentBooking IntentKind = "booking"
	IntentChat    IntentKind = "chat"
)

// Intent is the structured result of running a client message through
// the extractor. For a booking intent Service and Datetime are set; for
// a chat intent Reply carries the conversational answer to send back.
type Intent struct {
	Kind     IntentKind `json:"kind"`
	Service  string     `json:"service,omitempty"`
	Datetime time.Time  `json:"datetime,omitempty"`
	Reply    string     `json:"reply,omitempty"`
}

// BookingRequest is the submission produced from a client's booking
// intent, fed to the approval workflow.
type BookingRequest struct {
	ClientAddress string
	ClientName    string
	Service       string
	Datetime      time.Time
}

// ConversationTurn is one exchange stored in the per-client context.
type ConversationTurn struct {
	Role string    `json:"role"` // "client" or "assistant"
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// Conversation is the rolling context the intent extractor sees.
type Conversation struct {
	SessionID string             `json:"sessionId"`
	Turns     []ConversationTurn `json:"turns"`
}

// ReminderPayload is the asynq task body for an appointment reminder.
type ReminderPayload struct {
	ReminderID    string `json:"reminderId"`
	BookingRef    int64  `json:"bookingRef"`
	ClientAddress string `json:"clientAddress"`
	Service       string `json:"service"`
	FireDate      string `json:"fireDate"`
	SessionDate   string `json:"sessionDate"`
}
