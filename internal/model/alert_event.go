package model

import (
	"fmt"
	"time"
)

// AlertEvent summarizes a threshold breach. Events are not persisted; their
// only consumer is structured logging and whatever notification collaborator
// is wired downstream.
type AlertEvent struct {
	Timestamp  time.Time
	UserID     string
	Category   string
	Message    string
	Threshold  float64
	TotalSpent float64
}

// NewAlertEvent builds an event with the standard human-readable message.
func NewAlertEvent(userID, category string, threshold, totalSpent float64) AlertEvent {
	return AlertEvent{
		Timestamp:  time.Now(),
		UserID:     userID,
		Category:   category,
		Threshold:  threshold,
		TotalSpent: totalSpent,
		Message: fmt.Sprintf("Spending alert: %s total of $%.2f exceeds your $%.2f limit",
			category, totalSpent, threshold),
	}
}
