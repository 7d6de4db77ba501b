package amqp

import (
	"encoding/json"
	"time"
)

// Job kinds a worker can execute.
const (
	KindProject  = "project"
	KindConvert  = "convert"
	KindOptimize = "optimize"
)

// JobMessage is the lightweight queue payload for a projection job.
// Only the job ID and kind travel on the wire; the worker fetches the
// full inputs from the job store.
type JobMessage struct {
	JobID     int64     `json:"job_id"`
	Kind      string    `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
}

// NewJobMessage creates a queue message for a stored job.
func NewJobMessage(jobID int64, kind string) *JobMessage {
	return &JobMessage{
		JobID:     jobID,
		Kind:      kind,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *JobMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// JobMessageFromJSON creates a message from JSON bytes
func JobMessageFromJSON(data []byte) (*JobMessage, error) {
	var msg JobMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
