// Package wire holds JSON shapes shared by the REST client, the push channel
// client and the in-process test server.
package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// ID accepts string or numeric JSON ids and null.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// Envelope is one push channel frame.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
	TS      string          `json:"ts,omitempty"`
}

// MessageCreated is the payload of a "message.created" frame.
type MessageCreated struct {
	MessageID    ID     `json:"message_id"`
	SenderUserID ID     `json:"sender_user_id"`
	Text         string `json:"text"`
	CreatedAt    string `json:"created_at,omitempty"`
}

// SpeakerChanged is the payload of a "speaker.changed" frame.
type SpeakerChanged struct {
	CurrentSpeakerUserID ID `json:"current_speaker_user_id"`
}

// ParseTime reads server timestamps, with or without a zone. Unparseable
// values yield the zero time.
func ParseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}
