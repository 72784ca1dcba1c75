package model

import "time"

// Classification is one durable audit entry of an inference result.
// Confidence is the maximum probability of the model's output vector,
// Label the corresponding entry of the model's fixed label list.
// UserID is nil when the request carried no token.
type Classification struct {
	ID         string    `json:"id"`
	Category   string    `json:"category"`
	Filename   string    `json:"filename"`
	Label      string    `json:"label"`
	Confidence float64   `json:"confidence"`
	CreatedAt  time.Time `json:"created_at"`
	UserID     *string   `json:"user_id,omitempty"`
}
