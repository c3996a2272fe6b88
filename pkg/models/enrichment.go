package models

const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
	SentimentUnknown  = "unknown"
)

// Sub-service names as reported in EnrichmentRecord.FailedServices.
const (
	SubServiceClassification = "classification"
	SubServiceEntities       = "entities"
	SubServiceGeolocation    = "geolocation"
	SubServiceEngagement     = "engagement"
)

type Classification struct {
	OSINTScore int      `json:"osint_score" bson:"osint_score"` // 0..100
	Topics     []string `json:"topics,omitempty" bson:"topics,omitempty"`
	Sentiment  string   `json:"sentiment" bson:"sentiment"`
}

type Entities struct {
	People        []string `json:"people,omitempty" bson:"people,omitempty"`
	Organizations []string `json:"organizations,omitempty" bson:"organizations,omitempty"`
	Locations     []string `json:"locations,omitempty" bson:"locations,omitempty"`
	MilitaryUnits []string `json:"military_units,omitempty" bson:"military_units,omitempty"`
}

// Span is a half-open [Start, End) offset range into the envelope text.
type Span struct {
	Start int `json:"start" bson:"start"`
	End   int `json:"end" bson:"end"`
}

type Geolocation struct {
	Lat        float64 `json:"lat" bson:"lat"`
	Lon        float64 `json:"lon" bson:"lon"`
	SourceSpan Span    `json:"source_span" bson:"source_span"`
}

// EnrichmentRecord aggregates independently produced sub-results. Each
// sub-result is nullable on failure: a sub-service listed in FailedServices
// contributed nothing and its field is nil/empty. A partial record is a
// valid terminal state, not an error.
type EnrichmentRecord struct {
	Classification *Classification    `json:"classification,omitempty" bson:"classification,omitempty"`
	Entities       *Entities          `json:"entities,omitempty" bson:"entities,omitempty"`
	Geolocations   []Geolocation      `json:"geolocations,omitempty" bson:"geolocations,omitempty"`
	Engagement     map[string]float64 `json:"engagement,omitempty" bson:"engagement,omitempty"`
	FailedServices []string           `json:"failed_services,omitempty" bson:"failed_services,omitempty"`
}

// Partial reports whether at least one sub-service failed to contribute.
func (r *EnrichmentRecord) Partial() bool {
	return len(r.FailedServices) > 0
}

// TopicSet returns the classification topics, or nil when classification failed.
func (r *EnrichmentRecord) TopicSet() []string {
	if r.Classification == nil {
		return nil
	}
	return r.Classification.Topics
}
