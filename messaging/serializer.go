// Package messaging implements the node-to-node control plane described
// in spec.md §4.7-§4.9: a self-describing document serializer, a command
// dispatch queue, function message handlers, an async/coroutine
// execution model, a callback scheduler, and a challenge/response
// authenticator. Link and Listener carry envelopes over TCP connections
// of their own; this package does not use package transport.
package messaging

import "encoding/json"

// Envelope is the self-describing document every message is serialized
// as: a command name plus an opaque payload whose shape is known only to
// handlers registered for that command. JSON plays the role spec.md's
// wire format gives a self-describing document notation, matching how
// the rest of this module already serializes domain types.
type Envelope struct {
	Command string          `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Encode serializes a command and its typed payload into an Envelope.
func Encode(command string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Command: command, Payload: raw})
}

// Decode parses a wire message into its Envelope.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, err
	}
	return env, nil
}

// DecodePayload unmarshals an Envelope's payload into v.
func DecodePayload(env Envelope, v any) error {
	if env.Payload == nil {
		return nil
	}
	return json.Unmarshal(env.Payload, v)
}
