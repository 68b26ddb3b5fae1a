package models

import "time"

// Item is one entry on the shopping list.
type Item struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"created_at"`
}

// Item event actions published after a successful write.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionToggled = "toggled"
	ActionDeleted = "deleted"
	ActionCleared = "cleared"
)

// ItemEvent is the Kafka message payload describing a list change.
type ItemEvent struct {
	Action     string    `json:"action"`
	ID         int64     `json:"id,omitempty"`
	Name       string    `json:"name,omitempty"`
	Completed  *bool     `json:"completed,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
