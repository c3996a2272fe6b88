package routing

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"argus/internal/config"
	"argus/internal/constants"
	"argus/internal/logger"
	"argus/pkg/metrics"
	"argus/pkg/models"
)

type triggerPattern struct {
	original string
	lowered  string
}

type compiledTrigger struct {
	ID        string
	Name      string
	Priority  int
	Partition string
	patterns  []triggerPattern
}

// snapshot is the immutable routing table a Route call works against.
type snapshot struct {
	version          int64
	triggers         []compiledTrigger
	topics           map[string]string
	defaultPartition string
}

// Service maps (text, topics) to a target partition. Routing is pure and
// deterministic for a given snapshot: trigger rules in ascending priority
// first, then the sorted topics against the fallback table, then the
// default partition.
type Service struct {
	repo          Repository
	snapshot      *snapshot
	snapshotMu    sync.RWMutex
	generation    int64
	routingConfig config.RoutingConfig
	logger        logger.Logger
}

func NewService(repo Repository, cfg config.RoutingConfig, log logger.Logger) *Service {
	fallback := cfg.DefaultPartition
	if fallback == "" {
		fallback = constants.PartitionGeneral
	}

	return &Service{
		repo:          repo,
		snapshot:      &snapshot{defaultPartition: fallback},
		routingConfig: cfg,
		logger:        log,
	}
}

// Route decides the target partition. The first trigger rule with any
// matching keyword wins outright; a trigger hit always beats a topic
// match. With no trigger hit, the message's topics are tried in sorted
// order against the fallback table. Everything else lands on the default
// partition.
func (s *Service) Route(text string, topics []string) models.RoutingDecision {
	snap := s.currentSnapshot()
	lowered := strings.ToLower(text)

	for i := range snap.triggers {
		rule := &snap.triggers[i]
		for _, pattern := range rule.patterns {
			if strings.Contains(lowered, pattern.lowered) {
				trigger := pattern.original
				metrics.IncRoutingDecision(rule.Partition, "trigger")
				return models.RoutingDecision{
					TargetPartition: rule.Partition,
					MatchedTrigger:  &trigger,
					DecidedAt:       time.Now().UTC(),
				}
			}
		}
	}

	if len(topics) > 0 && len(snap.topics) > 0 {
		sorted := make([]string, len(topics))
		copy(sorted, topics)
		sort.Strings(sorted)

		for _, topic := range sorted {
			if partition, ok := snap.topics[strings.ToLower(topic)]; ok {
				metrics.IncRoutingDecision(partition, "topic")
				return models.RoutingDecision{
					TargetPartition: partition,
					DecidedAt:       time.Now().UTC(),
				}
			}
		}
	}

	metrics.IncRoutingDecision(snap.defaultPartition, "default")
	return models.RoutingDecision{
		TargetPartition: snap.defaultPartition,
		DecidedAt:       time.Now().UTC(),
	}
}

// DefaultPartition is the partition messages land on when nothing matches.
// It tracks the active snapshot, so a reloaded default rule applies here too.
func (s *Service) DefaultPartition() string {
	return s.currentSnapshot().defaultPartition
}

func (s *Service) currentSnapshot() *snapshot {
	s.snapshotMu.RLock()
	defer s.snapshotMu.RUnlock()
	return s.snapshot
}

// ReloadRules loads the routing table and swaps the active snapshot.
func (s *Service) ReloadRules(ctx context.Context) error {
	if err := s.applyJitter(ctx); err != nil {
		return err
	}

	rules, err := s.repo.GetActiveRules(ctx)
	if err != nil {
		return fmt.Errorf("failed to load routing rules: %w", err)
	}

	s.snapshotMu.Lock()
	s.generation++
	snap := s.compileSnapshot(s.generation, rules)
	s.snapshot = snap
	s.snapshotMu.Unlock()

	metrics.SetRoutingActiveRules(len(snap.triggers) + len(snap.topics))
	s.logger.InfowCtx(ctx, "Reloaded routing rules",
		"trigger_rules", len(snap.triggers),
		"topic_mappings", len(snap.topics),
		"default_partition", snap.defaultPartition,
		"snapshot_version", snap.version,
	)

	return nil
}

func (s *Service) compileSnapshot(version int64, rules []Rule) *snapshot {
	snap := &snapshot{
		version:          version,
		topics:           make(map[string]string),
		defaultPartition: s.routingConfig.DefaultPartition,
	}
	if snap.defaultPartition == "" {
		snap.defaultPartition = constants.PartitionGeneral
	}

	for _, rule := range rules {
		switch rule.Kind {
		case constants.RoutingKindTrigger:
			compiled := compiledTrigger{
				ID:        rule.ID,
				Name:      rule.Name,
				Priority:  rule.Priority,
				Partition: rule.Partition,
			}
			for _, trigger := range rule.Triggers {
				if trigger == "" {
					continue
				}
				compiled.patterns = append(compiled.patterns, triggerPattern{
					original: trigger,
					lowered:  strings.ToLower(trigger),
				})
			}
			if len(compiled.patterns) == 0 {
				s.logger.Warnw("Skipping trigger rule without triggers",
					"rule_id", rule.ID,
					"rule_name", rule.Name,
				)
				continue
			}
			snap.triggers = append(snap.triggers, compiled)

		case constants.RoutingKindTopic:
			if rule.Topic == "" || rule.Partition == "" {
				s.logger.Warnw("Skipping incomplete topic mapping",
					"rule_id", rule.ID,
					"rule_name", rule.Name,
				)
				continue
			}
			snap.topics[strings.ToLower(rule.Topic)] = rule.Partition

		case constants.RoutingKindDefault:
			if rule.Partition != "" {
				snap.defaultPartition = rule.Partition
			}

		default:
			s.logger.Warnw("Skipping routing rule with unknown kind",
				"rule_id", rule.ID,
				"kind", rule.Kind,
			)
		}
	}

	// Repository order already has ascending priority; re-sorting keeps
	// Route deterministic even for rule sets built elsewhere.
	sort.SliceStable(snap.triggers, func(i, j int) bool {
		return snap.triggers[i].Priority < snap.triggers[j].Priority
	})

	return snap
}

func (s *Service) applyJitter(ctx context.Context) error {
	if s.routingConfig.Reload.JitterMaxMilliseconds <= 0 {
		return nil
	}

	jitter := time.Duration(rand.Intn(s.routingConfig.Reload.JitterMaxMilliseconds)) * time.Millisecond
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
// context is canceled.
func (s *Service) StartReloader(ctx context.Context) error {
	interval := time.Duration(s.routingConfig.Reload.IntervalSeconds) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if err := s.ReloadRules(ctx); err != nil {
		s.logger.ErrorwCtx(ctx, "Failed to reload routing rules",
			"error", err,
		)
	}

	for {
		select {
		case <-ticker.C:
			if err := s.ReloadRules(ctx); err != nil {
				s.logger.ErrorwCtx(ctx, "Failed to reload routing rules",
					"error", err,
				)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
