package messaging

import "context"

// MessageSender delivers one outbound WhatsApp message and returns the
// provider's message id. Failures are reported to the caller for
// logging; retry and redelivery policy belong to the transport, never
// to the approval core.
type MessageSender interface {
	SendMessage(ctx context.Context, to, body string) (string, error)
}
