package cache

import (
	"encoding/json"

	"result-cache/internal/common/errors"
)

// emptyPayload is stored when a value cannot be encoded.
var emptyPayload = []byte("{}")

// encode serializes data. On failure it returns the empty object payload
// together with the error, so callers can log and carry on.
func encode(data Data) ([]byte, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return emptyPayload, errors.SerializationError("failed to serialize value", err)
	}
	if string(payload) == "null" {
		return emptyPayload, nil
	}
	return payload, nil
}

// decode parses a stored payload. On failure it returns an empty, non-nil
// Data together with the error.
func decode(payload []byte) (Data, error) {
	var data Data
	if err := json.Unmarshal(payload, &data); err != nil {
		return Data{}, errors.SerializationError("failed to deserialize value", err).
			WithContext("bytes", len(payload))
	}
	if data == nil {
		data = Data{}
	}
	return data, nil
}
