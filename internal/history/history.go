// Package history records pipeline turns so the chat UI can replay a
// conversation transcript.
package history

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("conversation not found")

// Turn statuses mirror the pipeline's terminal outcomes.
const (
	StatusOK               = "ok"
	StatusModelFailed      = "model_failed"
	StatusExtractionFailed = "extraction_failed"
	StatusValidationFailed = "validation_failed"
	StatusExecutionFailed  = "execution_failed"
	StatusError            = "error"
)

type Turn struct {
	ID             string        `json:"id"`
	ConversationID string        `json:"conversation_id"`
	Question       string        `json:"question"`
	SQL            string        `json:"sql,omitempty"`
	Status         string        `json:"status"`
	Answer         string        `json:"answer,omitempty"`
	Duration       time.Duration `json:"-"`
	CreatedAt      time.Time     `json:"created_at"`
}

type Recorder interface {
	Record(ctx context.Context, turn Turn) error
	ListTurns(ctx context.Context, conversationID string) ([]Turn, error)
}
