package model

import "time"

// Transaction represents a single classified financial event. Once persisted
// it is immutable; reclassification is handled by out-of-band management
// tooling, never by the pipeline itself.
type Transaction struct {
	CreatedAt   time.Time
	ID          string
	UserID      string
	Description string
	Category    string
	Amount      float64
	Confidence  float64
}
