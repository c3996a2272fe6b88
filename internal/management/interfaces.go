package management

import (
	"context"

	"argus/pkg/models"
)

type Service interface {
	CreateSpamRule(ctx context.Context, req CreateSpamRuleRequest) (*SpamRule, error)
	ListSpamRules(ctx context.Context) ([]SpamRule, error)
	GetSpamRule(ctx context.Context, id string) (*SpamRule, error)
	UpdateSpamRule(ctx context.Context, id string, req UpdateSpamRuleRequest) (*SpamRule, error)
	DeleteSpamRule(ctx context.Context, id string) error

	CreateRoutingRule(ctx context.Context, req CreateRoutingRuleRequest) (*RoutingRule, error)
	ListRoutingRules(ctx context.Context) ([]RoutingRule, error)
	GetRoutingRule(ctx context.Context, id string) (*RoutingRule, error)
	UpdateRoutingRule(ctx context.Context, id string, req UpdateRoutingRuleRequest) (*RoutingRule, error)
	DeleteRoutingRule(ctx context.Context, id string) error

	GetRuleVersions(ctx context.Context, ruleID string) ([]RuleVersion, error)
	GetAuditLogs(ctx context.Context, ruleID *string, ruleType string, limit int) ([]AuditLog, error)

	ListDeadLetters(ctx context.Context, status string, limit, offset int) ([]models.DeadLetterEntry, error)
	GetDeadLetter(ctx context.Context, id string) (*models.DeadLetterEntry, error)
	ReplayDeadLetter(ctx context.Context, id string) (*models.DeadLetterEntry, error)
	DiscardDeadLetter(ctx context.Context, id string) (*models.DeadLetterEntry, error)
}

// DeadLetterStore is the slice of the dead-letter repository the
// management API needs for operator remediation.
type DeadLetterStore interface {
	List(ctx context.Context, status string, limit, offset int) ([]models.DeadLetterEntry, error)
	Get(ctx context.Context, id string) (*models.DeadLetterEntry, error)
	MarkResolved(ctx context.Context, id, status string) error
}

// Enqueuer re-enqueues a replayed envelope onto the pipeline queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, envelope models.MessageEnvelope) (string, error)
}
