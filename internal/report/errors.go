package report

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput = errors.New("invalid file contents provided")
	ErrInvalidID    = errors.New("invalid analysis id")
	ErrNotFound     = errors.New("analysis not found")
	// ErrUnparseable means the model text held no decodable JSON object.
	ErrUnparseable = errors.New("no valid JSON found in the response")
)

const (
	MsgGroundingViolation = "Generated analysis references terms not present in the uploaded documents"
	MsgGroundingUnparsed  = "Failed to produce analysis strictly grounded in uploaded documents"
)

// GroundingError reports that the retried model output still used
// forbidden vocabulary or could not be parsed. Nothing is cached for it.
type GroundingError struct {
	Message      string
	DocumentType DocumentType
	Allowed      []string
	CacheID      string
	Violations   []string
	Err          error
}

func (e *GroundingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if len(e.Violations) > 0 {
		return fmt.Sprintf("%s: %v", e.Message, e.Violations)
	}
	return e.Message
}

func (e *GroundingError) Unwrap() error { return e.Err }
