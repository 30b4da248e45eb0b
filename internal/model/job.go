package model

import (
	"encoding/json"
	"fmt"
)

// TransactionCreatedJob is the durable queue payload produced once per
// persisted transaction. It carries everything the alert evaluator needs to
// avoid a transaction re-read on the hot path; the spend total itself is
// always recomputed from storage.
type TransactionCreatedJob struct {
	UserID        string  `json:"userId"`
	TransactionID string  `json:"transactionId"`
	Category      string  `json:"category"`
	Amount        float64 `json:"amount"`
}

// Marshal encodes the job for the wire.
func (j TransactionCreatedJob) Marshal() ([]byte, error) {
	data, err := json.Marshal(j)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job: %w", err)
	}
	return data, nil
}

// UnmarshalJob decodes a queue payload back into a job.
func UnmarshalJob(data []byte) (TransactionCreatedJob, error) {
	var job TransactionCreatedJob
	if err := json.Unmarshal(data, &job); err != nil {
		return TransactionCreatedJob{}, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	if job.UserID == "" || job.TransactionID == "" {
		return TransactionCreatedJob{}, fmt.Errorf("job payload missing required fields")
	}
	return job, nil
}
