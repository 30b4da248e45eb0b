package model

import "time"

// DeadJob is a queue job whose retries were exhausted. Dead jobs are kept
// around for operator inspection and manual replay; nothing in the pipeline
// touches them again.
type DeadJob struct {
	FailedAt time.Time
	UUID     string
	Payload  string
	Reason   string
	ID       int64
}
