package model

import "time"

// Session is one browser session occupying a capacity slot on a node.
// Soft-deleted sessions keep occupying their slot until purged, so a node is
// never handed out against capacity a dying session still holds.
type Session struct {
	ID          string    `json:"id"`
	NodeID      string    `json:"node_id"`
	Browser     string    `json:"browser,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	SoftDeleted bool      `json:"soft_deleted"`
}
