package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ScanRequestMessage asks a worker to run one mailbox scan. It carries
// only the job id and session token; the worker owns credentials and
// storage.
type ScanRequestMessage struct {
	JobID       string    `json:"job_id"`
	Session     string    `json:"session"`
	RequestedAt time.Time `json:"requested_at"`
}

// NewScanRequestMessage creates a scan request with a fresh job id
func NewScanRequestMessage(session string) *ScanRequestMessage {
	return &ScanRequestMessage{
		JobID:       uuid.NewString(),
		Session:     session,
		RequestedAt: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ScanRequestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ScanRequestMessageFromJSON creates a message from JSON bytes
func ScanRequestMessageFromJSON(data []byte) (*ScanRequestMessage, error) {
	var msg ScanRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
