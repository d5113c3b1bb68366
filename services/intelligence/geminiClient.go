// File: services/intelligence/geminiClient.go
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"serenity/models"

	genai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiExtractor asks Gemini to classify a client message and pull out
// the booking details. The model is treated as an opaque, fallible
// service: any failure (transport, malformed output) is surfaced to the
// caller or delegated to the fallback extractor — a booking is never
// invented from a guess.
type GeminiExtractor struct {
	model    *genai.GenerativeModel
	ctxStore *RedisContextStore
	fallback IntentExtractor
	now      func() time.Time
}

func NewGeminiExtractor(apiKey string, ctxStore *RedisContextStore, fallback IntentExtractor) (*GeminiExtractor, error) {
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel("models/gemini-1.5-pro")
	return &GeminiExtractor{
		model:    model,
		ctxStore: ctxStore,
		fallback: fallback,
		now:      time.Now,
	}, nil
}

func (g *GeminiExtractor) Extract(ctx context.Context, clientAddress, text string) (*models.Intent, error) {
	conv, err := g.ctxStore.Get(ctx, clientAddress)
	if err != nil {
		// Context is best-effort; extraction proceeds without history.
		conv = &models.Conversation{}
	}

	resp, err := g.model.GenerateContent(ctx, genai.Text(g.buildPrompt(conv, text)))
	if err != nil {
		return g.fallbackExtract(ctx, clientAddress, text, fmt.Errorf("gemini generate error: %w", err))
	}

	var sb strings.Builder
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if textPart, ok := part.(genai.Text); ok {
				sb.WriteString(string(textPart))
			}
		}
	}

	intent, err := parseIntentJSON(sb.String())
	if err != nil {
		return g.fallbackExtract(ctx, clientAddress, text, err)
	}

	g.recordTurn(ctx, clientAddress, text, intent)
	return intent, nil
}

func (g *GeminiExtractor) fallbackExtract(ctx context.Context, clientAddress, text string, cause error) (*models.Intent, error) {
	if g.fallback == nil {
		return nil, cause
	}
	intent, err := g.fallback.Extract(ctx, clientAddress, text)
	if err != nil {
		return nil, cause
	}
	g.recordTurn(ctx, clientAddress, text, intent)
	return intent, nil
}

func (g *GeminiExtractor) recordTurn(ctx context.Context, clientAddress, text string, intent *models.Intent) {
	now := g.now().UTC()
	turns := []models.ConversationTurn{{Role: "client", Text: text, At: now}}
	if intent.Reply != "" {
		turns = append(turns, models.ConversationTurn{Role: "assistant", Text: intent.Reply, At: now})
	}
	_ = g.ctxStore.Append(ctx, clientAddress, turns...)
}

func (g *GeminiExtractor) buildPrompt(conv *models.Conversation, text string) string {
	var sb strings.Builder
	sb.WriteString("You are the booking assistant of a therapy practice. ")
	sb.WriteString("Classify the client's latest WhatsApp message and answer with a single JSON object, no markdown:\n")
	sb.WriteString(`{"kind":"booking"|"chat","service":"...","datetime":"RFC3339","reply":"..."}` + "\n")
	sb.WriteString("Use kind \"booking\" only when the client clearly asks to book a session and names (or has previously named) a service and a date/time. ")
	sb.WriteString("For kind \"chat\", put a short warm answer in \"reply\". ")
	fmt.Fprintf(&sb, "The current time is %s.\n\n", g.now().Format(time.RFC3339))

	for _, turn := range conv.Turns {
		fmt.Fprintf(&sb, "%s: %s\n", turn.Role, turn.Text)
	}
	fmt.Fprintf(&sb, "client: %s\n", text)
	return sb.String()
}

// parseIntentJSON decodes the model's answer. Code fences and leading
// prose are tolerated; a missing or unusable datetime on a booking
// intent is an error, not a default.
func parseIntentJSON(raw string) (*models.Intent, error) {
	raw = strings.TrimSpace(raw)
	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			raw = raw[start : end+1]
		}
	}

	var payload struct {
		Kind     string `json:"kind"`
		Service  string `json:"service"`
		Datetime string `json:"datetime"`
		Reply    string `json:"reply"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("unparseable intent response: %w", err)
	}

	switch payload.Kind {
	case "booking":
		when, err := time.Parse(time.RFC3339, payload.Datetime)
		if err != nil {
			return nil, fmt.Errorf("booking intent without usable datetime: %w", err)
		}
		if payload.Service == "" {
			return nil, fmt.Errorf("booking intent without service")
		}
		return &models.Intent{Kind: models.IntentBooking, Service: payload.Service, Datetime: when}, nil
	case "chat":
		return &models.Intent{Kind: models.IntentChat, Reply: payload.Reply}, nil
	default:
		return nil, fmt.Errorf("unknown intent kind %q", payload.Kind)
	}
}
