package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event types dispatched by the sync consumer.
const (
	EventNotionToJiraCreate = "notion_to_jira_create"
	EventNotionToJiraUpdate = "notion_to_jira_update"
	EventJiraToNotionUpdate = "jira_to_notion_update"
)

// SyncEvent is the payload of a queue message: one change to propagate.
type SyncEvent struct {
	Type      string    `json:"event_type"`
	Source    string    `json:"source,omitempty"`
	Page      Page      `json:"page"`
	IssueKey  string    `json:"issue_key,omitempty"`
	CreatedAt time.Time `json:"created_at,omitzero"`
}

// QueueMessage is the envelope stored on the durable queue. Priority 0 is
// front-of-queue; retried messages carry attempt*10 and go to the back.
type QueueMessage struct {
	ID         string    `json:"id"`
	EnqueuedAt time.Time `json:"timestamp"`
	Priority   int       `json:"priority"`
	RetryCount int       `json:"retry_count"`
	LastError  string    `json:"last_error,omitempty"`
	Event      SyncEvent `json:"data"`
}

// NewQueueMessage wraps an event in a fresh envelope.
func NewQueueMessage(event SyncEvent, priority int) *QueueMessage {
	return &QueueMessage{
		ID:         uuid.NewString(),
		EnqueuedAt: time.Now().UTC(),
		Priority:   priority,
		Event:      event,
	}
}

// Encode serializes the message for queue transport.
func (m *QueueMessage) Encode() ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encoding queue message: %w", err)
	}
	return data, nil
}

// DecodeQueueMessage parses a queue payload back into a message.
func DecodeQueueMessage(data []byte) (*QueueMessage, error) {
	var m QueueMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decoding queue message: %w", err)
	}
	return &m, nil
}
