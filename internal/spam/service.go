package spam

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"argus/internal/config"
	"argus/internal/constants"
	"argus/internal/logger"
	"argus/pkg/cel"
	"argus/pkg/metrics"
	"argus/pkg/models"
	"argus/pkg/tracing"
)

type errorHandlingStatus int

const (
	errorHandlingSkip errorHandlingStatus = iota
	errorHandlingMatch
	errorHandlingFail
)

// Service classifies message text against an ordered, reloadable rule
// set. Checking never mutates service state; reloads swap an immutable
// compiled snapshot.
type Service struct {
	repo       Repository
	snapshot   *snapshot
	snapshotMu sync.RWMutex
	generation int64
	spamConfig config.SpamConfig
	threshold  float64
	evaluator  *cel.Evaluator
	logger     logger.Logger
}

func NewService(repo Repository, cfg config.SpamConfig, log logger.Logger) (*Service, error) {
	evaluator, err := cel.NewEvaluator()
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL evaluator: %w", err)
	}

	threshold := cfg.Threshold
	if threshold == 0 {
		threshold = constants.DefaultSpamThreshold
	}

	return &Service{
		repo:       repo,
		snapshot:   &snapshot{},
		spamConfig: cfg,
		threshold:  threshold,
		evaluator:  evaluator,
		logger:     log,
	}, nil
}

// Threshold returns the decisive-match weight boundary.
func (s *Service) Threshold() float64 {
	return s.threshold
}

// Check evaluates the envelope against the active rules in order. The
// first match at or above the threshold classifies the message as spam
// with the rule's weight as confidence. If only sub-threshold rules
// match, the message is clean with confidence 1 minus the strongest
// partial match.
func (s *Service) Check(ctx context.Context, msg *models.MessageEnvelope) (models.SpamVerdict, error) {
	ctx, span := tracing.GetTracer("pipeline-service").Start(ctx, "spam.check")
	defer span.End()

	snap := s.currentSnapshot()
	start := time.Now()

	verdict, err := s.evaluate(ctx, snap, msg)
	if err != nil {
		return models.SpamVerdict{}, err
	}

	s.recordMetrics(time.Since(start), verdict)
	return verdict, nil
}

func (s *Service) evaluate(ctx context.Context, snap *snapshot, msg *models.MessageEnvelope) (models.SpamVerdict, error) {
	matched := make([]string, 0, 2)
	maxPartial := 0.0

	for i := range snap.rules {
		rule := &snap.rules[i]

		if err := ctx.Err(); err != nil {
			return models.SpamVerdict{}, err
		}

		ok, err := rule.match(ctx, msg)
		if err != nil {
			switch s.handleEvaluationError(ctx, rule, err) {
			case errorHandlingSkip:
				continue
			case errorHandlingMatch:
				ok = true
			case errorHandlingFail:
				return models.SpamVerdict{}, fmt.Errorf("spam rule %s evaluation failed: %w", rule.ID, err)
			}
		}

		if !ok {
			continue
		}

		decisive := rule.Weight >= s.threshold
		matched = append(matched, rule.Name)
		metrics.IncSpamRuleMatch(rule.ID, rule.Name, decisive)

		if decisive {
			s.logger.DebugwCtx(ctx, "Decisive spam rule match",
				"rule_id", rule.ID,
				"rule_name", rule.Name,
				"weight", rule.Weight,
			)
			return models.SpamVerdict{
				IsSpam:       true,
				Confidence:   rule.Weight,
				MatchedRules: matched,
			}, nil
		}

		if rule.Weight > maxPartial {
			maxPartial = rule.Weight
		}
	}

	return models.SpamVerdict{
		IsSpam:       false,
		Confidence:   1.0 - maxPartial,
		MatchedRules: matched,
	}, nil
}

func (s *Service) handleEvaluationError(ctx context.Context, rule *compiledRule, err error) errorHandlingStatus {
	s.logger.ErrorwCtx(ctx, "Spam rule evaluation error",
		"rule_id", rule.ID,
		"rule_name", rule.Name,
		"error", err,
	)

	switch s.spamConfig.Fallback.OnError {
	case constants.FallbackAllow:
		metrics.FallbackUsageTotal.WithLabelValues("spam", "allow_on_error", "evaluation_error").Inc()
		s.logger.WarnwCtx(ctx, "Evaluation error, skipping rule (fallback: allow)",
			"rule_id", rule.ID,
			"rule_name", rule.Name,
		)
		return errorHandlingSkip
	case constants.FallbackDeny:
		metrics.FallbackUsageTotal.WithLabelValues("spam", "deny_on_error", "evaluation_error").Inc()
		s.logger.WarnwCtx(ctx, "Evaluation error, treating rule as matched (fallback: deny)",
			"rule_id", rule.ID,
			"rule_name", rule.Name,
		)
		return errorHandlingMatch
	default:
		return errorHandlingFail
	}
}

func (s *Service) recordMetrics(duration time.Duration, verdict models.SpamVerdict) {
	label := "clean"
	if verdict.IsSpam {
		label = "spam"
	}
	metrics.IncSpamCheck(label)
	metrics.ObserveSpamCheckDuration(duration)
}

func (s *Service) currentSnapshot() *snapshot {
	s.snapshotMu.RLock()
	defer s.snapshotMu.RUnlock()
	return s.snapshot
}

// ReloadRules loads enabled rules from the repository, compiles them, and
// swaps the active snapshot. Configured jitter staggers the reload so
// replicas do not hit the database in lockstep.
func (s *Service) ReloadRules(ctx context.Context) error {
	if err := s.applyJitter(ctx); err != nil {
		return err
	}

	rules, err := s.repo.GetActiveRules(ctx)
	if err != nil {
		return fmt.Errorf("failed to load spam rules: %w", err)
	}

	s.snapshotMu.Lock()
	s.generation++
	snap := compileSnapshot(s.generation, rules, s.evaluator, s.logger)
	s.snapshot = snap
	s.snapshotMu.Unlock()

	metrics.SetSpamActiveRules(len(snap.rules))
	s.logger.InfowCtx(ctx, "Reloaded spam rules",
		"rules_loaded", len(rules),
		"rules_compiled", len(snap.rules),
		"snapshot_version", snap.version,
	)

	return nil
}

func (s *Service) applyJitter(ctx context.Context) error {
	if s.spamConfig.Reload.JitterMaxMilliseconds <= 0 {
		return nil
	}

	jitter := time.Duration(rand.Intn(s.spamConfig.Reload.JitterMaxMilliseconds)) * time.Millisecond
	s.logger.DebugwCtx(ctx, "Reload scheduled with jitter",
		"jitter_ms", jitter.Milliseconds(),
	)

	select {
	case <-time.After(jitter):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// StartReloader refreshes the snapshot on a fixed interval until the
// context is canceled. Event-driven reloads via the config handler run
// independently of this loop.
func (s *Service) StartReloader(ctx context.Context) error {
	interval := time.Duration(s.spamConfig.Reload.IntervalSeconds) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if err := s.ReloadRules(ctx); err != nil {
		s.logger.ErrorwCtx(ctx, "Failed to reload spam rules",
			"error", err,
		)
	}

	for {
		select {
		case <-ticker.C:
			if err := s.ReloadRules(ctx); err != nil {
				s.logger.ErrorwCtx(ctx, "Failed to reload spam rules",
					"error", err,
				)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
