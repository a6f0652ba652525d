// Package models defines the core domain models for process tracking.
package models

import "time"

// Client represents the customer a process is run for. The (name, phone)
// pair is treated as a natural key when deduplicating on upsert.
type Client struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"  validate:"required"`
	Phone     string    `json:"phone" validate:"required"`
	CreatedAt time.Time `json:"created_at"`
}
