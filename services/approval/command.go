package approval

import (
	"strconv"
	"strings"
	"unicode"

	"serenity/models"
)

// ParseDecision turns a coordinator's free-text reply into a typed
// Decision. Matching is case-insensitive and tolerant of formatting
// slop ("approve 42.", extra spaces). Text that is not a recognizable
// command is a ParseError, never defaulted to any decision kind.
func ParseDecision(raw string) (*models.Decision, error) {
	verb, rest := splitToken(raw)

	var kind models.DecisionKind
	switch strings.ToUpper(verb) {
	case "APPROVE":
		kind = models.DecisionApprove
	case "DECLINE":
		kind = models.DecisionDecline
	case "MODIFY":
		kind = models.DecisionModify
	default:
		return nil, &ParseError{Code: ParseUnrecognized, Raw: raw}
	}

	refToken, reason := splitToken(rest)
	ref, ok := leadingRef(refToken)
	if !ok {
		return nil, &ParseError{Code: ParseInvalidID, Raw: raw}
	}

	switch kind {
	case models.DecisionApprove:
		// Anything after the ref is trailing noise; the happy path must
		// survive minor slop.
		reason = ""
	case models.DecisionModify:
		if reason == "" {
			return nil, &ParseError{Code: ParseMissingReason, Raw: raw}
		}
	}

	return &models.Decision{
		BookingRef: ref,
		Kind:       kind,
		Reason:     reason,
		Raw:        raw,
	}, nil
}

// splitToken returns the first whitespace-delimited token and the
// trimmed remainder.
func splitToken(s string) (string, string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ""
	}
	if i := strings.IndexFunc(s, unicode.IsSpace); i >= 0 {
		return s[:i], strings.TrimSpace(s[i+1:])
	}
	return s, ""
}

// leadingRef parses the decimal digits at the start of the token.
// Trailing punctuation ("42.", "42,") is slop, not an error; a token
// with no leading digit has no usable ref.
func leadingRef(token string) (int64, bool) {
	i := 0
	for i < len(token) && token[i] >= '0' && token[i] <= '9' {
		i++
	}
	if i == 0 {
		return 0, false
	}
	ref, err := strconv.ParseInt(token[:i], 10, 64)
	if err != nil {
		return 0, false
	}
	return ref, true
}
