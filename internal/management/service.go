package management

import (
	"context"
	"encoding/json"
	"errors"

	"argus/internal/constants"
	pkgerrors "argus/pkg/errors"
	"argus/pkg/metrics"
	"argus/pkg/models"
)

type service struct {
	repo                Repository
	versioningRepo      VersioningRepository
	configEventProducer *ConfigEventProducer
	deadLetters         DeadLetterStore
	enqueuer            Enqueuer
}

type ServiceOption func(*service)

// WithVersioning enables rule version snapshots and audit logging.
func WithVersioning(versioningRepo VersioningRepository) ServiceOption {
	return func(s *service) {
		s.versioningRepo = versioningRepo
	}
}

// WithConfigEvents makes every rule mutation publish a config update event
// so running pipeline instances hot-reload their rule snapshots.
func WithConfigEvents(configEventProducer *ConfigEventProducer) ServiceOption {
	return func(s *service) {
		s.configEventProducer = configEventProducer
	}
}

// WithDeadLetters enables the dead-letter remediation endpoints. Replay
// re-enqueues the quarantined envelope through the given enqueuer.
func WithDeadLetters(store DeadLetterStore, enqueuer Enqueuer) ServiceOption {
	return func(s *service) {
		s.deadLetters = store
		s.enqueuer = enqueuer
	}
}

func NewService(repo Repository, opts ...ServiceOption) Service {
	s := &service{repo: repo}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *service) CreateSpamRule(ctx context.Context, req CreateSpamRuleRequest) (*SpamRule, error) {
	if err := ValidateSpamRule(req); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrValidation)
	}

	rule := &SpamRule{
		Name:     req.Name,
		Kind:     req.Kind,
		Pattern:  req.Pattern,
		Weight:   req.Weight,
		Priority: req.Priority,
		Enabled:  getEnabledValue(req.Enabled),
	}

	if err := s.repo.CreateSpamRule(ctx, rule); err != nil {
		return nil, s.wrapRepoError(err, "")
	}

	s.recordChange(ctx, rule.ID, RuleTypeSpam, models.ActionCreate, rule.Version, nil, rule)
	s.publishSpamEvent(ctx, models.ActionCreate, rule.ID)

	return rule, nil
}

func (s *service) ListSpamRules(ctx context.Context) ([]SpamRule, error) {
	rules, err := s.repo.ListSpamRules(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	return rules, nil
}

func (s *service) GetSpamRule(ctx context.Context, id string) (*SpamRule, error) {
	rule, err := s.repo.GetSpamRule(ctx, id)
	if err != nil {
		return nil, s.wrapRepoError(err, id)
	}
	return rule, nil
}

func (s *service) UpdateSpamRule(ctx context.Context, id string, req UpdateSpamRuleRequest) (*SpamRule, error) {
	if err := ValidateUpdateSpamRule(req); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrValidation)
	}

	rule, err := s.repo.GetSpamRule(ctx, id)
	if err != nil {
		return nil, s.wrapRepoError(err, id)
	}

	oldValue, _ := ruleToMap(rule)

	if req.Name != nil {
		rule.Name = *req.Name
	}
	if req.Kind != nil {
		rule.Kind = *req.Kind
	}
	if req.Pattern != nil {
		rule.Pattern = *req.Pattern
	}
	if req.Weight != nil {
		rule.Weight = *req.Weight
	}
	if req.Priority != nil {
		rule.Priority = *req.Priority
	}
	if req.Enabled != nil {
		rule.Enabled = *req.Enabled
	}

	// Kind and pattern must stay compilable as a pair after the merge.
	if err := validateSpamPattern(rule.Kind, rule.Pattern); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrValidation)
	}

	if err := s.repo.UpdateSpamRule(ctx, rule); err != nil {
		return nil, s.wrapRepoError(err, id)
	}

	s.recordChange(ctx, rule.ID, RuleTypeSpam, models.ActionUpdate, rule.Version, oldValue, rule)
	s.publishSpamEvent(ctx, models.ActionUpdate, rule.ID)

	return rule, nil
}

func (s *service) DeleteSpamRule(ctx context.Context, id string) error {
	rule, err := s.repo.GetSpamRule(ctx, id)
	if err != nil {
		return s.wrapRepoError(err, id)
	}

	oldValue, _ := ruleToMap(rule)

	if err := s.repo.DeleteSpamRule(ctx, id); err != nil {
		return s.wrapRepoError(err, id)
	}

	s.auditOnly(ctx, id, RuleTypeSpam, models.ActionDelete, oldValue)
	s.publishSpamEvent(ctx, models.ActionDelete, id)

	return nil
}

func (s *service) CreateRoutingRule(ctx context.Context, req CreateRoutingRuleRequest) (*RoutingRule, error) {
	if err := ValidateRoutingRule(req); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrValidation)
	}

	rule := &RoutingRule{
		Name:      req.Name,
		Kind:      req.Kind,
		Priority:  req.Priority,
		Triggers:  nonEmptyTriggers(req.Triggers),
		Topic:     req.Topic,
		Partition: req.Partition,
		Enabled:   getEnabledValue(req.Enabled),
	}

	if err := s.repo.CreateRoutingRule(ctx, rule); err != nil {
		return nil, s.wrapRepoError(err, "")
	}

	s.recordChange(ctx, rule.ID, RuleTypeRouting, models.ActionCreate, rule.Version, nil, rule)
	s.publishRoutingEvent(ctx, models.ActionCreate, rule.ID)

	return rule, nil
}

func (s *service) ListRoutingRules(ctx context.Context) ([]RoutingRule, error) {
	rules, err := s.repo.ListRoutingRules(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	return rules, nil
}

func (s *service) GetRoutingRule(ctx context.Context, id string) (*RoutingRule, error) {
	rule, err := s.repo.GetRoutingRule(ctx, id)
	if err != nil {
		return nil, s.wrapRepoError(err, id)
	}
	return rule, nil
}

func (s *service) UpdateRoutingRule(ctx context.Context, id string, req UpdateRoutingRuleRequest) (*RoutingRule, error) {
	if err := ValidateUpdateRoutingRule(req); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrValidation)
	}

	rule, err := s.repo.GetRoutingRule(ctx, id)
	if err != nil {
		return nil, s.wrapRepoError(err, id)
	}

	oldValue, _ := ruleToMap(rule)

	if req.Name != nil {
		rule.Name = *req.Name
	}
	if req.Priority != nil {
		rule.Priority = *req.Priority
	}
	if req.Triggers != nil {
		rule.Triggers = nonEmptyTriggers(*req.Triggers)
	}
	if req.Topic != nil {
		rule.Topic = *req.Topic
	}
	if req.Partition != nil {
		rule.Partition = *req.Partition
	}
	if req.Enabled != nil {
		rule.Enabled = *req.Enabled
	}

	// A trigger rule stripped of its last trigger would never match.
	if rule.Kind == constants.RoutingKindTrigger && len(rule.Triggers) == 0 {
		return nil, pkgerrors.ErrValidation.WithDetail("message", "trigger rule requires at least one trigger")
	}

	if err := s.repo.UpdateRoutingRule(ctx, rule); err != nil {
		return nil, s.wrapRepoError(err, id)
	}

	s.recordChange(ctx, rule.ID, RuleTypeRouting, models.ActionUpdate, rule.Version, oldValue, rule)
	s.publishRoutingEvent(ctx, models.ActionUpdate, rule.ID)

	return rule, nil
}

func (s *service) DeleteRoutingRule(ctx context.Context, id string) error {
	rule, err := s.repo.GetRoutingRule(ctx, id)
	if err != nil {
		return s.wrapRepoError(err, id)
	}

	oldValue, _ := ruleToMap(rule)

	if err := s.repo.DeleteRoutingRule(ctx, id); err != nil {
		return s.wrapRepoError(err, id)
	}

	s.auditOnly(ctx, id, RuleTypeRouting, models.ActionDelete, oldValue)
	s.publishRoutingEvent(ctx, models.ActionDelete, id)

	return nil
}

func (s *service) GetRuleVersions(ctx context.Context, ruleID string) ([]RuleVersion, error) {
	if s.versioningRepo == nil {
		return nil, pkgerrors.ErrInternal.WithDetail("message", "versioning not enabled")
	}

	versions, err := s.versioningRepo.GetVersions(ctx, ruleID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	return versions, nil
}

func (s *service) GetAuditLogs(ctx context.Context, ruleID *string, ruleType string, limit int) ([]AuditLog, error) {
	if s.versioningRepo == nil {
		return nil, pkgerrors.ErrInternal.WithDetail("message", "audit logging not enabled")
	}
	if limit <= 0 || limit > constants.MaxLimit {
		limit = constants.DefaultLimit
	}

	logs, err := s.versioningRepo.GetAuditLogs(ctx, ruleID, ruleType, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	return logs, nil
}

func (s *service) ListDeadLetters(ctx context.Context, status string, limit, offset int) ([]models.DeadLetterEntry, error) {
	if s.deadLetters == nil {
		return nil, pkgerrors.ErrInternal.WithDetail("message", "dead-letter store not configured")
	}
	return s.deadLetters.List(ctx, status, limit, offset)
}

func (s *service) GetDeadLetter(ctx context.Context, id string) (*models.DeadLetterEntry, error) {
	if s.deadLetters == nil {
		return nil, pkgerrors.ErrInternal.WithDetail("message", "dead-letter store not configured")
	}
	return s.deadLetters.Get(ctx, id)
}

// ReplayDeadLetter re-enqueues the quarantined envelope and then marks the
// entry replayed. The enqueue comes first: marking is write-once, and a
// failed enqueue after a mark would strand the entry as replayed with nothing
// on the queue. The reverse race (concurrent replays both enqueueing before
// one wins the mark) is harmless, the pipeline's idempotent upsert absorbs
// the double feed.
func (s *service) ReplayDeadLetter(ctx context.Context, id string) (*models.DeadLetterEntry, error) {
	if s.deadLetters == nil || s.enqueuer == nil {
		return nil, pkgerrors.ErrInternal.WithDetail("message", "dead-letter replay not configured")
	}

	entry, err := s.deadLetters.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry.Status != models.DeadLetterStatusPending {
		metrics.IncDeadLetterRemediation("replay", "conflict")
		return nil, pkgerrors.ErrConflict.WithDetail("id", id).WithDetail("status", entry.Status)
	}

	if _, err := s.enqueuer.Enqueue(ctx, entry.Envelope); err != nil {
		metrics.IncDeadLetterRemediation("replay", "error")
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrQueueUnavailable).WithDetail("id", id)
	}

	if err := s.deadLetters.MarkResolved(ctx, id, models.DeadLetterStatusReplayed); err != nil {
		metrics.IncDeadLetterRemediation("replay", "conflict")
		return nil, err
	}

	metrics.IncDeadLetterRemediation("replay", "ok")

	entry.Status = models.DeadLetterStatusReplayed
	return entry, nil
}

func (s *service) DiscardDeadLetter(ctx context.Context, id string) (*models.DeadLetterEntry, error) {
	if s.deadLetters == nil {
		return nil, pkgerrors.ErrInternal.WithDetail("message", "dead-letter store not configured")
	}

	entry, err := s.deadLetters.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.deadLetters.MarkResolved(ctx, id, models.DeadLetterStatusDiscarded); err != nil {
		metrics.IncDeadLetterRemediation("discard", "conflict")
		return nil, err
	}

	metrics.IncDeadLetterRemediation("discard", "ok")

	entry.Status = models.DeadLetterStatusDiscarded
	return entry, nil
}

// recordChange writes a version snapshot plus an audit log entry. Both are
// best-effort: a versioning outage must not fail the mutation that already
// committed.
func (s *service) recordChange(ctx context.Context, ruleID, ruleType, action string, version int, oldValue map[string]interface{}, rule interface{}) {
	if s.versioningRepo == nil {
		return
	}

	newValue, err := ruleToMap(rule)
	if err != nil {
		return
	}

	ruleData, err := json.Marshal(newValue)
	if err != nil {
		return
	}

	_ = s.versioningRepo.CreateVersion(ctx, &RuleVersion{
		RuleID:    ruleID,
		RuleType:  ruleType,
		RuleData:  string(ruleData),
		Version:   version,
		ChangedBy: getChangedBy(ctx),
	})

	_ = s.versioningRepo.CreateAuditLog(ctx, &AuditLog{
		RuleID:    &ruleID,
		RuleType:  ruleType,
		Action:    action,
		OldValue:  oldValue,
		NewValue:  newValue,
		ChangedBy: getChangedBy(ctx),
	})
}

func (s *service) auditOnly(ctx context.Context, ruleID, ruleType, action string, oldValue map[string]interface{}) {
	if s.versioningRepo == nil {
		return
	}

	_ = s.versioningRepo.CreateAuditLog(ctx, &AuditLog{
		RuleID:    &ruleID,
		RuleType:  ruleType,
		Action:    action,
		OldValue:  oldValue,
		ChangedBy: getChangedBy(ctx),
	})
}

func (s *service) publishSpamEvent(ctx context.Context, action, ruleID string) {
	if s.configEventProducer == nil {
		return
	}
	_ = s.configEventProducer.PublishSpamRuleEvent(ctx, action, ruleID, getChangedBy(ctx))
}

func (s *service) publishRoutingEvent(ctx context.Context, action, ruleID string) {
	if s.configEventProducer == nil {
		return
	}
	_ = s.configEventProducer.PublishRoutingRuleEvent(ctx, action, ruleID, getChangedBy(ctx))
}

func (s *service) wrapRepoError(err error, id string) error {
	switch {
	case errors.Is(err, errRuleNotFound):
		return pkgerrors.ErrNotFound.WithDetail("id", id)
	default:
		var appErr *pkgerrors.Error
		if errors.As(err, &appErr) {
			return appErr
		}
		return pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
}

func getEnabledValue(reqEnabled *bool) bool {
	if reqEnabled == nil {
		return true
	}
	return *reqEnabled
}

func getChangedBy(ctx context.Context) string {
	if userID := ctx.Value("user_id"); userID != nil {
		if id, ok := userID.(string); ok {
			return id
		}
	}
	return "system"
}
