package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"argus/pkg/models"
)

func TestEncodeDecodeEnvelope(t *testing.T) {
	envelope := models.MessageEnvelope{
		SourceID:  "ch1",
		MessageID: 42,
		Text:      "HIMARS delivered to front line",
		MediaRefs: []string{"https://cdn.example.com/photo.jpg"},
		PostedAt:  time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		RawMetadata: map[string]interface{}{
			"views": float64(1500),
		},
		TraceID: "trace-abc",
	}

	payload, err := encodeEnvelope(envelope)
	require.NoError(t, err)

	decoded, err := decodeEnvelope(map[string]interface{}{
		envelopeStreamField: payload,
	})
	require.NoError(t, err)

	assert.Equal(t, envelope, decoded)
	assert.Equal(t, "ch1:42", decoded.Identity())
}

func TestDecodeEnvelopeMissingField(t *testing.T) {
	_, err := decodeEnvelope(map[string]interface{}{
		"other": "value",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), envelopeStreamField)
}

func TestDecodeEnvelopeWrongType(t *testing.T) {
	_, err := decodeEnvelope(map[string]interface{}{
		envelopeStreamField: 12345,
	})
	require.Error(t, err)
}

func TestDecodeEnvelopeInvalidJSON(t *testing.T) {
	_, err := decodeEnvelope(map[string]interface{}{
		envelopeStreamField: "{not json",
	})
	require.Error(t, err)
}
