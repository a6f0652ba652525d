package models

import "time"

// Notification is an append-only record of a task-assignment message sent to
// a user. Nothing reads it back beyond listings; it is a log, not a queue.
type Notification struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	StageID   int64     `json:"stage_id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
