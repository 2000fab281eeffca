package registry

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/matzehuels/modreg/pkg/errors"
)

// envelope is the wire shape shared by every registry response.
// Success is a pointer so a missing discriminant can be told apart from false.
type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message *string         `json:"message"`
}

// Envelope is the typed form of a registry response, used by servers and
// fakes that need to produce the same wire format the client consumes.
type Envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// OK wraps data in a success envelope.
func OK[T any](data T) Envelope[T] {
	return Envelope[T]{Success: true, Data: data}
}

// Fail builds an error envelope carrying message.
func Fail(message string) Envelope[any] {
	return Envelope[any]{Success: false, Message: message}
}

// decodeEnvelope parses body as an envelope and decodes its payload into T.
//
// An error envelope becomes an APPLICATION error whose user message is the
// registry's message, whatever T is. Anything else that does not fit the
// contract is a DECODE error; a zero T is never returned as a success.
func decodeEnvelope[T any](body []byte, status int) (T, error) {
	var zero T

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return zero, errors.Wrap(errors.ErrCodeDecode, err, "response is not a JSON envelope (status %d)", status)
	}
	if env.Success == nil {
		return zero, errors.New(errors.ErrCodeDecode, "response envelope has no success field (status %d)", status)
	}

	if !*env.Success {
		if env.Message == nil {
			return zero, errors.New(errors.ErrCodeDecode, "error envelope has no message (status %d)", status)
		}
		return zero, errors.New(errors.ErrCodeApplication, "%s", *env.Message)
	}

	if len(env.Data) == 0 || bytes.Equal(bytes.TrimSpace(env.Data), []byte("null")) {
		return zero, errors.New(errors.ErrCodeDecode, "success envelope has no data (status %d)", status)
	}
	var v T
	if err := json.Unmarshal(env.Data, &v); err != nil {
		return zero, errors.Wrap(errors.ErrCodeDecode, err, "decode %T", zero)
	}
	if r, ok := any(v).(requirer); ok {
		if err := checkRequired(env.Data, r.requiredFields()); err != nil {
			return zero, errors.Wrap(errors.ErrCodeDecode, err, "decode %T", zero)
		}
	}
	return v, nil
}

// requirer is implemented by payload types whose fields must all be present.
// Fields that may be null or absent are left out of requiredFields.
type requirer interface {
	requiredFields() []string
}

// checkRequired reports the first name in fields that data does not carry
// as a non-null member.
func checkRequired(data json.RawMessage, fields []string) error {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(data, &members); err != nil {
		return err
	}
	for _, f := range fields {
		raw, ok := members[f]
		if !ok || bytes.Equal(raw, []byte("null")) {
			return fmt.Errorf("missing field %q", f)
		}
	}
	return nil
}
