package models

import "time"

type CallStatus string

const (
	CallStatusActive    CallStatus = "active"
	CallStatusCompleted CallStatus = "completed"
)

type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

// Call is one visitor conversation with a landing page's chatbot. Phone
// number and name are filled in once the extractor captures them.
type Call struct {
	ID            string     `gorm:"primaryKey" json:"id"`
	LandingPageID string     `gorm:"index;not null" json:"landing_page_id"`
	PhoneNumber   string     `json:"phone_number,omitempty"`
	ClientName    string     `json:"client_name,omitempty"`
	Status        CallStatus `gorm:"not null;default:active" json:"status"`
	StartedAt     time.Time  `gorm:"autoCreateTime" json:"started_at"`
	EndedAt       *time.Time `json:"ended_at,omitempty"`

	Messages []CallMessage `gorm:"foreignKey:CallID" json:"messages,omitempty"`
}

// CallMessage is one turn of a call transcript.
type CallMessage struct {
	ID        uint        `gorm:"primaryKey;autoIncrement" json:"id"`
	CallID    string      `gorm:"index;not null" json:"call_id"`
	Role      MessageRole `gorm:"not null" json:"role"`
	Content   string      `gorm:"not null" json:"content"`
	CreatedAt time.Time   `gorm:"autoCreateTime" json:"created_at"`
}
