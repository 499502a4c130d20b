package mqtt

import (
	"encoding/json"
	"time"
)

// Status reasons published on monome/system/status.
const (
	reasonUnexpected = "unexpected_disconnect"
	reasonGraceful   = "graceful_shutdown"
)

// statusMessage is the retained payload on the system status topic.
// The broker publishes the offline variant as the LWT when the daemon
// dies without disconnecting.
type statusMessage struct {
	Status    string    `json:"status"`
	ClientID  string    `json:"client_id"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func onlinePayload(clientID string) []byte {
	return statusPayload(clientID, "online", "")
}

func offlinePayload(clientID, reason string) []byte {
	return statusPayload(clientID, "offline", reason)
}

func statusPayload(clientID, status, reason string) []byte {
	p, _ := json.Marshal(statusMessage{
		Status:    status,
		ClientID:  clientID,
		Reason:    reason,
		Timestamp: time.Now().UTC(),
	})
	return p
}
