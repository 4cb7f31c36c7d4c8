package domain

import "time"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one stored conversation message. Turns are never mutated once appended.
type Turn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Sequence  int64     `json:"sequence"`
	Timestamp time.Time `json:"timestamp"`
}
