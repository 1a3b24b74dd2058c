package models

import "time"

type ConversationStatus string

const (
	ConversationOpen   ConversationStatus = "open"
	ConversationClosed ConversationStatus = "closed"
)

// ChatConversation обращение пользователя в поддержку
type ChatConversation struct {
	ID          int64              `json:"id"`
	UserID      int64              `json:"user_id"`
	Subject     string             `json:"subject"`
	Status      ConversationStatus `json:"status"`
	UnreadCount int                `json:"unread_count"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

type ChatMessage struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversation_id"`
	SenderID       int64     `json:"sender_id"`
	Body           string    `json:"body"`
	IsRead         bool      `json:"is_read"`
	CreatedAt      time.Time `json:"created_at"`
}
