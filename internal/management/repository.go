package management

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	pkgerrors "argus/pkg/errors"
)

var errRuleNotFound = errors.New("rule not found")

type Repository interface {
	CreateSpamRule(ctx context.Context, rule *SpamRule) error
	ListSpamRules(ctx context.Context) ([]SpamRule, error)
	GetSpamRule(ctx context.Context, id string) (*SpamRule, error)
	UpdateSpamRule(ctx context.Context, rule *SpamRule) error
	DeleteSpamRule(ctx context.Context, id string) error

	CreateRoutingRule(ctx context.Context, rule *RoutingRule) error
	ListRoutingRules(ctx context.Context) ([]RoutingRule, error)
	GetRoutingRule(ctx context.Context, id string) (*RoutingRule, error)
	UpdateRoutingRule(ctx context.Context, rule *RoutingRule) error
	DeleteRoutingRule(ctx context.Context, id string) error
}

type PostgresRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) CreateSpamRule(ctx context.Context, rule *SpamRule) error {
	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	now := time.Now()
	rule.CreatedAt = now
	rule.UpdatedAt = now
	rule.Version = 1

	query := `
		INSERT INTO spam_rules (id, name, kind, pattern, weight, priority, enabled, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(ctx, query,
		rule.ID, rule.Name, rule.Kind, rule.Pattern, rule.Weight,
		rule.Priority, rule.Enabled, rule.Version, rule.CreatedAt, rule.UpdatedAt,
	)
	if err != nil {
		return wrapRuleWriteError(err, rule.Name, "spam")
	}

	return nil
}

func (r *PostgresRepository) ListSpamRules(ctx context.Context) ([]SpamRule, error) {
	query := `
		SELECT id, name, kind, pattern, weight, priority, enabled, version, created_at, updated_at
		FROM spam_rules
		ORDER BY priority ASC, created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list spam rules: %w", err)
	}
	defer rows.Close()

	var rules []SpamRule
	for rows.Next() {
		var rule SpamRule
		if err := rows.Scan(
			&rule.ID, &rule.Name, &rule.Kind, &rule.Pattern, &rule.Weight,
			&rule.Priority, &rule.Enabled, &rule.Version, &rule.CreatedAt, &rule.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan spam rule: %w", err)
		}
		rules = append(rules, rule)
	}

	return rules, rows.Err()
}

func (r *PostgresRepository) GetSpamRule(ctx context.Context, id string) (*SpamRule, error) {
	query := `
		SELECT id, name, kind, pattern, weight, priority, enabled, version, created_at, updated_at
		FROM spam_rules
		WHERE id = $1
	`

	var rule SpamRule
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&rule.ID, &rule.Name, &rule.Kind, &rule.Pattern, &rule.Weight,
		&rule.Priority, &rule.Enabled, &rule.Version, &rule.CreatedAt, &rule.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errRuleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get spam rule: %w", err)
	}

	return &rule, nil
}

func (r *PostgresRepository) UpdateSpamRule(ctx context.Context, rule *SpamRule) error {
	rule.UpdatedAt = time.Now()

	query := `
		UPDATE spam_rules
		SET name = $2, kind = $3, pattern = $4, weight = $5, priority = $6,
		    enabled = $7, version = version + 1, updated_at = $8
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		rule.ID, rule.Name, rule.Kind, rule.Pattern, rule.Weight,
		rule.Priority, rule.Enabled, rule.UpdatedAt,
	)
	if err != nil {
		return wrapRuleWriteError(err, rule.Name, "spam")
	}

	if affected, _ := result.RowsAffected(); affected == 0 {
		return errRuleNotFound
	}
	rule.Version++

	return nil
}

func (r *PostgresRepository) DeleteSpamRule(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM spam_rules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete spam rule: %w", err)
	}

	if affected, _ := result.RowsAffected(); affected == 0 {
		return errRuleNotFound
	}

	return nil
}

func (r *PostgresRepository) CreateRoutingRule(ctx context.Context, rule *RoutingRule) error {
	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	now := time.Now()
	rule.CreatedAt = now
	rule.UpdatedAt = now
	rule.Version = 1

	query := `
		INSERT INTO routing_rules (id, name, kind, priority, triggers, topic, partition, enabled, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.ExecContext(ctx, query,
		rule.ID, rule.Name, rule.Kind, rule.Priority, pq.Array(rule.Triggers),
		rule.Topic, rule.Partition, rule.Enabled, rule.Version, rule.CreatedAt, rule.UpdatedAt,
	)
	if err != nil {
		return wrapRuleWriteError(err, rule.Name, "routing")
	}

	return nil
}

func (r *PostgresRepository) ListRoutingRules(ctx context.Context) ([]RoutingRule, error) {
	query := `
		SELECT id, name, kind, priority, triggers, topic, partition, enabled, version, created_at, updated_at
		FROM routing_rules
		ORDER BY priority ASC, created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list routing rules: %w", err)
	}
	defer rows.Close()

	var rules []RoutingRule
	for rows.Next() {
		var rule RoutingRule
		if err := rows.Scan(
			&rule.ID, &rule.Name, &rule.Kind, &rule.Priority, pq.Array(&rule.Triggers),
			&rule.Topic, &rule.Partition, &rule.Enabled, &rule.Version, &rule.CreatedAt, &rule.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan routing rule: %w", err)
		}
		rules = append(rules, rule)
	}

	return rules, rows.Err()
}

func (r *PostgresRepository) GetRoutingRule(ctx context.Context, id string) (*RoutingRule, error) {
	query := `
		SELECT id, name, kind, priority, triggers, topic, partition, enabled, version, created_at, updated_at
		FROM routing_rules
		WHERE id = $1
	`

	var rule RoutingRule
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&rule.ID, &rule.Name, &rule.Kind, &rule.Priority, pq.Array(&rule.Triggers),
		&rule.Topic, &rule.Partition, &rule.Enabled, &rule.Version, &rule.CreatedAt, &rule.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errRuleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get routing rule: %w", err)
	}

	return &rule, nil
}

func (r *PostgresRepository) UpdateRoutingRule(ctx context.Context, rule *RoutingRule) error {
	rule.UpdatedAt = time.Now()

	query := `
		UPDATE routing_rules
		SET name = $2, priority = $3, triggers = $4, topic = $5, partition = $6,
		    enabled = $7, version = version + 1, updated_at = $8
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		rule.ID, rule.Name, rule.Priority, pq.Array(rule.Triggers),
		rule.Topic, rule.Partition, rule.Enabled, rule.UpdatedAt,
	)
	if err != nil {
		return wrapRuleWriteError(err, rule.Name, "routing")
	}

	if affected, _ := result.RowsAffected(); affected == 0 {
		return errRuleNotFound
	}
	rule.Version++

	return nil
}

func (r *PostgresRepository) DeleteRoutingRule(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM routing_rules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete routing rule: %w", err)
	}

	if affected, _ := result.RowsAffected(); affected == 0 {
		return errRuleNotFound
	}

	return nil
}

// wrapRuleWriteError maps a unique-violation on the rule name to a conflict
// the API can report as 409; anything else stays an internal error.
func wrapRuleWriteError(err error, name, ruleType string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return pkgerrors.ErrConflict.WithCause(err).
			WithDetail("message", fmt.Sprintf("%s rule with name '%s' already exists", ruleType, name))
	}
	return fmt.Errorf("failed to write %s rule: %w", ruleType, err)
}
