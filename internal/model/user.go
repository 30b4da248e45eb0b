package model

import "time"

// User anchors transactions and alert rules. Users are provisioned lazily:
// the first transaction ingested for an unknown user id creates the record.
type User struct {
	CreatedAt time.Time
	ID        string
	Email     string
}
