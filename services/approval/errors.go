package approval

import "fmt"

// ParseErrorCode identifies why a coordinator reply failed to parse.
type ParseErrorCode string

const (
	ParseInvalidID     ParseErrorCode = "invalidId"
	ParseMissingReason ParseErrorCode = "missingReason"
	ParseUnrecognized  ParseErrorCode = "unrecognized"
)

// ParseError reports malformed coordinator input. It never reaches a
// client: the caller logs it and at most answers the coordinator with a
// usage hint.
type ParseError struct {
	Code ParseErrorCode
	Raw  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("coordinator command %s: %q", e.Code, e.Raw)
}
