// File: services/intelligence/localExtractor.go
package ai

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"serenity/models"
)

var timeOfDayPattern = regexp.MustCompile(`(?i)\b(\d{1,2})(?::(\d{2}))?\s*(am|pm)?\b`)

// KeywordExtractor is the offline fallback when the LLM is down or
// returns garbage. It only recognizes unambiguous requests — a booking
// keyword plus a resolvable day and clock time; everything else is
// chat.
type KeywordExtractor struct {
	Services []string
	Now      func() time.Time
}

func NewKeywordExtractor(services []string) *KeywordExtractor {
	return &KeywordExtractor{Services: services, Now: time.Now}
}

func (e *KeywordExtractor) Extract(ctx context.Context, clientAddress, text string) (*models.Intent, error) {
	lower := strings.ToLower(text)

	if !containsAny(lower, "book", "appointment", "schedule", "session", "reserve") {
		return &models.Intent{Kind: models.IntentChat}, nil
	}

	when, ok := e.resolveDatetime(lower)
	if !ok {
		// A booking-ish message without a usable slot stays conversational;
		// the assistant will ask for the missing details.
		return &models.Intent{
			Kind:  models.IntentChat,
			Reply: "I'd love to book that for you! Which day and time would suit you best?",
		}, nil
	}

	service := "Therapy Session"
	for _, s := range e.Services {
		if strings.Contains(lower, strings.ToLower(s)) {
			service = s
			break
		}
	}

	return &models.Intent{Kind: models.IntentBooking, Service: service, Datetime: when}, nil
}

// resolveDatetime handles the small relative grammar clients actually
// use over WhatsApp: today/tomorrow plus a clock time.
func (e *KeywordExtractor) resolveDatetime(lower string) (time.Time, bool) {
	now := e.Now()

	day := now
	switch {
	case strings.Contains(lower, "tomorrow"):
		day = now.AddDate(0, 0, 1)
	case strings.Contains(lower, "today"):
	default:
		return time.Time{}, false
	}

	matches := timeOfDayPattern.FindAllStringSubmatch(lower, -1)
	if len(matches) == 0 {
		return time.Time{}, false
	}
	// Prefer an explicit clock time ("3pm", "15:30") over bare numbers
	// like the "1" in "1 Hour Out-Call Session".
	m := matches[0]
	for _, cand := range matches {
		if cand[2] != "" || cand[3] != "" {
			m = cand
			break
		}
	}
	hour, err := strconv.Atoi(m[1])
	if err != nil || hour > 23 {
		return time.Time{}, false
	}
	minute := 0
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}
	switch m[3] {
	case "pm":
		if hour < 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	}

	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, now.Location()), true
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
