// File: services/intelligence/interface.go
package ai

import (
	"context"

	"serenity/models"
)

// IntentExtractor turns a client's conversational message into a
// structured intent. Implementations may be fallible (LLM-backed): on
// error the caller asks the client to rephrase, it never fabricates a
// booking.
type IntentExtractor interface {
	Extract(ctx context.Context, clientAddress, text string) (*models.Intent, error)
}
