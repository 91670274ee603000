package models

import "time"

// Message is one turn of a conversation. UserID is nil for the shared
// anonymous log.
type Message struct {
	ID        int64     `json:"id" db:"id"`
	UserID    *int64    `json:"user_id" db:"user_id"`
	Content   string    `json:"content" db:"content"`
	IsBot     bool      `json:"is_bot" db:"is_bot"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
}
