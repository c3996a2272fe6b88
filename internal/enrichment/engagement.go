package enrichment

import (
	"encoding/json"
	"fmt"
)

// engagementKeys are the producer metadata counters surfaced as engagement
// metrics. Keys absent from the metadata are omitted from the result.
var engagementKeys = []string{"views", "forwards", "replies", "reactions"}

type EngagementExtractor interface {
	Extract(metadata map[string]interface{}) (map[string]float64, error)
}

// MetadataEngagementExtractor reads interaction counters straight from the
// envelope's raw metadata. It runs in-process but joins the concurrent
// fan-out like the remote sub-services, so a corrupt counter degrades to a
// partial record instead of failing the whole stage.
type MetadataEngagementExtractor struct{}

func NewEngagementExtractor() *MetadataEngagementExtractor {
	return &MetadataEngagementExtractor{}
}

func (e *MetadataEngagementExtractor) Extract(metadata map[string]interface{}) (map[string]float64, error) {
	engagement := make(map[string]float64)
	for _, key := range engagementKeys {
		value, ok := metadata[key]
		if !ok {
			continue
		}

		number, err := toFloat(value)
		if err != nil {
			return nil, fmt.Errorf("metadata field %s: %w", key, err)
		}
		engagement[key] = number
	}

	return engagement, nil
}

func toFloat(value interface{}) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	default:
		return 0, fmt.Errorf("unsupported numeric type %T", value)
	}
}
