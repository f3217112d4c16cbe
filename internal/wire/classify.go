package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Heartbeat sentinels. The console sends Ping periodically while the
// connection is open; the backend answers with Pong. Neither is JSON.
const (
	HeartbeatPing = "\U0001f493" // 💓
	HeartbeatPong = "\U0001f440" // 👀
)

// Inbound is a classified inbound frame: exactly one of Auth or Msg is set.
type Inbound struct {
	Auth *AuthResponse
	Msg  *Message
}

// Classify parses an inbound frame and matches it against the two disjoint
// message shapes: authentication responses (bare strings or single-key
// objects) and session envelopes (objects carrying a "payload" key). An
// error means the frame is unrecognized; the caller drops it. The server is
// trusted, but its protocol may drift across versions, so dropping is
// deliberate and quiet.
func Classify(frame []byte) (Inbound, error) {
	trimmed := bytes.TrimSpace(frame)
	if len(trimmed) == 0 {
		return Inbound{}, fmt.Errorf("empty frame")
	}

	if trimmed[0] == '"' {
		var auth AuthResponse
		if err := json.Unmarshal(trimmed, &auth); err != nil {
			return Inbound{}, err
		}
		return Inbound{Auth: &auth}, nil
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return Inbound{}, fmt.Errorf("frame is not a JSON object: %w", err)
	}

	if _, ok := probe["payload"]; ok {
		var msg Message
		if err := json.Unmarshal(trimmed, &msg); err != nil {
			return Inbound{}, err
		}
		return Inbound{Msg: &msg}, nil
	}

	var auth AuthResponse
	if err := json.Unmarshal(trimmed, &auth); err != nil {
		return Inbound{}, err
	}
	return Inbound{Auth: &auth}, nil
}
