package domain

import "time"

// ChatMessage is a record as exchanged with the history store.
// Treated as an immutable value once created.
type ChatMessage struct {
	ID        string    `json:"id,omitempty"`
	Username  string    `json:"username"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}
