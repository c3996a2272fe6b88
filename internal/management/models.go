package management

import "time"

// Rule types as recorded in rule_versions and audit logs.
const (
	RuleTypeSpam    = "spam"
	RuleTypeRouting = "routing"
)

// SpamRule is the management view of one spam detection rule. Kind selects
// how Pattern is interpreted (substring, regex, expression); Weight becomes
// the verdict confidence when the rule matches.
type SpamRule struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Kind      string    `json:"kind" db:"kind"`
	Pattern   string    `json:"pattern" db:"pattern"`
	Weight    float64   `json:"weight" db:"weight"`
	Priority  int       `json:"priority" db:"priority"`
	Enabled   bool      `json:"enabled" db:"enabled"`
	Version   int       `json:"version" db:"version"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type CreateSpamRuleRequest struct {
	Name     string  `json:"name" binding:"required"`
	Kind     string  `json:"kind" binding:"required"`
	Pattern  string  `json:"pattern" binding:"required"`
	Weight   float64 `json:"weight" binding:"required"`
	Priority int     `json:"priority"`
	Enabled  *bool   `json:"enabled"`
}

type UpdateSpamRuleRequest struct {
	Name     *string  `json:"name"`
	Kind     *string  `json:"kind"`
	Pattern  *string  `json:"pattern"`
	Weight   *float64 `json:"weight"`
	Priority *int     `json:"priority"`
	Enabled  *bool    `json:"enabled"`
}

// RoutingRule is one row of the routing table. Trigger rules carry
// Triggers + Partition, topic rules carry Topic + Partition, the default
// rule carries Partition only.
type RoutingRule struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Kind      string    `json:"kind" db:"kind"`
	Priority  int       `json:"priority" db:"priority"`
	Triggers  []string  `json:"triggers,omitempty" db:"triggers"`
	Topic     string    `json:"topic,omitempty" db:"topic"`
	Partition string    `json:"partition" db:"partition"`
	Enabled   bool      `json:"enabled" db:"enabled"`
	Version   int       `json:"version" db:"version"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type CreateRoutingRuleRequest struct {
	Name      string   `json:"name" binding:"required"`
	Kind      string   `json:"kind" binding:"required"`
	Priority  int      `json:"priority"`
	Triggers  []string `json:"triggers"`
	Topic     string   `json:"topic"`
	Partition string   `json:"partition" binding:"required"`
	Enabled   *bool    `json:"enabled"`
}

type UpdateRoutingRuleRequest struct {
	Name      *string   `json:"name"`
	Priority  *int      `json:"priority"`
	Triggers  *[]string `json:"triggers"`
	Topic     *string   `json:"topic"`
	Partition *string   `json:"partition"`
	Enabled   *bool     `json:"enabled"`
}
