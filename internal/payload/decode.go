package payload

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/kaptinlin/jsonrepair"
	"github.com/tidwall/jsonc"
)

// Decode parses a payload document. Comments and trailing commas are
// accepted (JSONC). A JSON object becomes a structured payload and a JSON
// string a text payload. Input that is still not valid JSON is run through
// a repair pass before giving up.
func Decode(data []byte) (Payload, error) {
	stripped := jsonc.ToJSON(data)

	var doc any
	if err := json.Unmarshal(stripped, &doc); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(string(data))
		if repairErr != nil {
			return Payload{}, fmt.Errorf("%w: decode: %v (repair failed: %v)", ErrInvalidPayload, err, repairErr)
		}
		if err := json.Unmarshal([]byte(repaired), &doc); err != nil {
			return Payload{}, fmt.Errorf("%w: decode repaired document: %v", ErrInvalidPayload, err)
		}
		slog.Debug("payload document repaired before decoding")
	}

	switch v := doc.(type) {
	case map[string]any:
		return Payload{fields: v}, nil
	case string:
		return Text(v), nil
	default:
		return Payload{}, fmt.Errorf("%w: expected a JSON object or string, got %T", ErrInvalidPayload, doc)
	}
}
