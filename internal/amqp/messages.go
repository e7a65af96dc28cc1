package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"findash/internal/notify"
)

// envelopeVersion is bumped when the wire shape of ChatEnvelope changes.
const envelopeVersion = 1

// ChatEnvelope carries one chat notification from the app to the relay.
type ChatEnvelope struct {
	Version     int            `json:"version"`
	Message     notify.Message `json:"message"`
	PublishedAt time.Time      `json:"published_at"`
}

func NewChatEnvelope(msg notify.Message) *ChatEnvelope {
	return &ChatEnvelope{
		Version:     envelopeVersion,
		Message:     msg,
		PublishedAt: time.Now().UTC(),
	}
}

func (e *ChatEnvelope) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// ChatEnvelopeFromJSON decodes an envelope, rejecting versions this build
// does not know.
func ChatEnvelopeFromJSON(data []byte) (*ChatEnvelope, error) {
	var env ChatEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	if env.Version != envelopeVersion {
		return nil, fmt.Errorf("unsupported envelope version %d", env.Version)
	}
	return &env, nil
}
