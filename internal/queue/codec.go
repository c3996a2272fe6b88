package queue

import (
	"encoding/json"
	"fmt"

	"argus/pkg/models"
)

// envelopeStreamField is the single stream entry field carrying the
// JSON-encoded envelope.
const envelopeStreamField = "envelope"

func encodeEnvelope(envelope models.MessageEnvelope) (string, error) {
	buf, err := json.Marshal(envelope)
	if err != nil {
		return "", fmt.Errorf("failed to marshal envelope: %w", err)
	}
	return string(buf), nil
}

func decodeEnvelope(values map[string]interface{}) (models.MessageEnvelope, error) {
	var envelope models.MessageEnvelope

	raw, ok := values[envelopeStreamField]
	if !ok {
		return envelope, fmt.Errorf("stream entry has no %q field", envelopeStreamField)
	}

	payload, ok := raw.(string)
	if !ok {
		return envelope, fmt.Errorf("stream entry field %q is %T, expected string", envelopeStreamField, raw)
	}

	if err := json.Unmarshal([]byte(payload), &envelope); err != nil {
		return envelope, fmt.Errorf("failed to unmarshal envelope: %w", err)
	}

	return envelope, nil
}
