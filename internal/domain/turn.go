package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in the conversation. Turns are append-only, live only
// for the session and are never sent to a storage backend.
type Turn struct {
	ID        string      `json:"id"`
	Role      Role        `json:"role"`
	Text      string      `json:"text"`
	ImageName string      `json:"image_name,omitempty"`
	Records   []Candidate `json:"records,omitempty"`
	At        time.Time   `json:"at"`
}

// NewUserTurn creates a user turn for the given text and optional image name.
func NewUserTurn(text, imageName string) Turn {
	return Turn{
		ID:        uuid.NewString(),
		Role:      RoleUser,
		Text:      text,
		ImageName: imageName,
		At:        time.Now(),
	}
}

// NewAssistantTurn creates an assistant turn carrying the response text and
// any records committed on this pass.
func NewAssistantTurn(text string, records []Candidate) Turn {
	return Turn{
		ID:      uuid.NewString(),
		Role:    RoleAssistant,
		Text:    text,
		Records: records,
		At:      time.Now(),
	}
}
