package pipeline

import (
	"bytes"
	"encoding/json"
)

// CodeOK and CodeUnauthorized are the application codes with special meaning.
const (
	CodeOK           = 200
	CodeUnauthorized = 401
)

// Envelope is the application-level response wrapper every endpoint returns.
type Envelope struct {
	Code    int             `json:"code"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message,omitempty"`
}

// DecodeEnvelope parses body. An empty body or a JSON null yields (nil, nil):
// the server answered without an envelope.
func DecodeEnvelope(body []byte) (*Envelope, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	var env Envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// envelopeMessage extracts message from an error body, if it is an envelope.
func envelopeMessage(body []byte) string {
	env, err := DecodeEnvelope(body)
	if err != nil || env == nil {
		return ""
	}
	return env.Message
}
