package routing

import "time"

// Rule is one row of the routing table. Kind selects its role:
//
//	trigger — Triggers holds keywords; a case-insensitive substring hit on
//	          any of them routes to Partition. Lower Priority evaluates
//	          first and a trigger hit always outranks topic matching.
//	topic   — Topic maps one classification topic to Partition.
//	default — Partition catches everything nothing else claimed.
type Rule struct {
	ID        string
	Name      string
	Kind      string
	Priority  int
	Triggers  []string
	Topic     string
	Partition string
	Enabled   bool
	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
}
