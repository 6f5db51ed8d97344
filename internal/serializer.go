package internal

import (
	"encoding/json"
)

// Marshal converts a payload to bytes, avoiding re-encoding values that are
// already byte oriented.
func Marshal(payload any) ([]byte, error) {
	switch v := payload.(type) {
	case []byte:
		return v, nil
	case json.RawMessage:
		return v.MarshalJSON()
	case string:
		return []byte(v), nil
	default:
		return json.Marshal(payload)
	}
}

// Unmarshal decodes data into holder. Byte oriented holders receive the raw
// payload untouched; everything else goes through JSON.
func Unmarshal(data []byte, holder any) error {
	switch v := holder.(type) {
	case *[]byte:
		*v = data
		return nil
	case *json.RawMessage:
		*v = json.RawMessage(data)
		return nil
	case *string:
		*v = string(data)
		return nil
	default:
		return json.Unmarshal(data, holder)
	}
}
