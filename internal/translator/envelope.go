// Package translator splits inbound HTTP request bodies into the pieces the
// router works with: a model name, a payload and caller options.
package translator

import (
	"encoding/json"
	"errors"
	"fmt"

	"modelgate/internal/payload"
)

var (
	errEmptyModel   = errors.New("model must be provided")
	errInvalidModel = errors.New("model must be a string")
	errInvalidRole  = errors.New("invalid role")
)

// payloadKeys are routed to the payload; every other key is an option.
var payloadKeys = map[string]struct{}{
	"messages": {},
	"system":   {},
	"input":    {},
	"prompt":   {},
}

var allowedRoles = map[string]struct{}{
	"system":    {},
	"user":      {},
	"assistant": {},
	"tool":      {},
}

// Envelope is an inbound invoke or preview request.
type Envelope struct {
	Model   string
	Payload payload.Payload
	Options map[string]any
}

// UnmarshalJSON splits a flat request body. "model" names the model and is
// kept verbatim, as on the command line. A string "input" on its own becomes
// a text payload; messages, system, input and prompt otherwise form a
// structured payload; the rest are options.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	if raw == nil {
		return errors.New("request body must be a JSON object")
	}

	modelValue, ok := raw["model"]
	if !ok || modelValue == nil {
		return errEmptyModel
	}
	modelName, ok := modelValue.(string)
	if !ok {
		return errInvalidModel
	}
	e.Model = modelName
	delete(raw, "model")

	fields := make(map[string]any)
	e.Options = make(map[string]any)
	for k, v := range raw {
		if _, isPayload := payloadKeys[k]; isPayload {
			fields[k] = v
			continue
		}
		e.Options[k] = v
	}

	if text, ok := fields["input"].(string); ok && len(fields) == 1 {
		e.Payload = payload.Text(text)
	} else {
		e.Payload = payload.Structured(fields)
	}

	return e.validate(fields)
}

func (e *Envelope) validate(fields map[string]any) error {
	if e.Model == "" {
		return errEmptyModel
	}

	messages, ok := fields["messages"]
	if !ok {
		return nil
	}
	list, ok := messages.([]any)
	if !ok {
		return errors.New("messages must be an array")
	}
	for i, item := range list {
		message, ok := item.(map[string]any)
		if !ok {
			return fmt.Errorf("message[%d]: must be an object", i)
		}
		role, _ := message["role"].(string)
		if _, allowed := allowedRoles[role]; !allowed {
			return fmt.Errorf("message[%d]: %w %q", i, errInvalidRole, role)
		}
	}
	return nil
}
