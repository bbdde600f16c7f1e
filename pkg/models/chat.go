// Package models contains domain models for moodlens.
package models

// MessageRole identifies who wrote a chat message.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// DateRange is an inclusive range of calendar dates.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// MessageContext references journal entities a message talks about.
type MessageContext struct {
	DateRange   *DateRange `json:"date_range,omitempty"`
	Schedules   []string   `json:"schedules,omitempty"`
	MoodRecords []string   `json:"mood_records,omitempty"`
}

// ChatMessage is one entry of a conversation. Messages are append-only.
type ChatMessage struct {
	Context   *MessageContext `json:"context,omitempty"`
	ID        string          `json:"id"`
	Role      MessageRole     `json:"role"`
	Content   string          `json:"content"`
	Timestamp int64           `json:"timestamp"`
}
