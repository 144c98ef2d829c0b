package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/stic_os/backend/internal/models"
)

// RuleState is the per-rule evaluation outcome. It is recomputed from scratch
// on every run; nothing is persisted between runs besides the orders a rule
// already spawned.
type RuleState string

const (
	StateNotDueToday         RuleState = "NOT_DUE_TODAY"
	StateDueButNotYetTime    RuleState = "DUE_BUT_NOT_YET_TIME"
	StateAlreadyCreatedToday RuleState = "ALREADY_CREATED_TODAY"
	StateEligible            RuleState = "ELIGIBLE"
)

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Store is the slice of the database the scheduler needs. Creation must be
// duplicate-safe under the composite order ID: inserting an ID that already
// exists reports created=false instead of failing, so two concurrent runs
// cannot spawn two orders for the same rule and day.
type Store interface {
	ListActiveRules(ctx context.Context) ([]models.RecurrenceRule, error)
	OrderExists(ctx context.Context, id string) (bool, error)
	CreateRecurringOrder(ctx context.Context, order models.ServiceOrder) (bool, error)
}

type Scheduler struct {
	Store       Store
	Clock       Clock
	Logger      zerolog.Logger
	RuleTimeout time.Duration
}

type RunSummary struct {
	RulesEvaluated  int            `json:"rules_evaluated"`
	Created         int            `json:"created"`
	CreatedOrderIDs []string       `json:"created_order_ids,omitempty"`
	Skipped         map[string]int `json:"skipped"`
	Errors          int            `json:"errors"`
	ElapsedMillis   int64          `json:"elapsed_ms"`
}

// DateString renders t as the locale-independent YYYY-MM-DD key used to scope
// recurring orders to a calendar day.
func DateString(t time.Time) string {
	return t.Format("2006-01-02")
}

// RecurringOrderID is the deterministic composite key for the order a rule
// spawns on a given day. The store's conflict handling on this ID is what
// makes duplicate creation impossible across concurrent runs.
func RecurringOrderID(ruleID, dateString string) string {
	return fmt.Sprintf("REC-%s-%s", ruleID, dateString)
}

// Evaluate classifies one rule against the current wall clock. Pure: the
// AlreadyCreatedToday state is decided separately by the caller, which owns
// the store lookup.
func Evaluate(rule models.RecurrenceRule, now time.Time) RuleState {
	if !containsDay(rule.DaysOfWeek, int(now.Weekday())) {
		return StateNotDueToday
	}
	hour, minute, ok := parseStartTime(rule.StartTime)
	if ok {
		nowMinutes := now.Hour()*60 + now.Minute()
		if nowMinutes < hour*60+minute {
			return StateDueButNotYetTime
		}
	}
	return StateEligible
}

// Run evaluates every active rule once. A failure on one rule is logged and
// counted; the remaining rules are still evaluated. Each store call runs
// under its own timeout.
func (s *Scheduler) Run(ctx context.Context) (RunSummary, error) {
	start := time.Now()
	summary := RunSummary{Skipped: map[string]int{}}

	listCtx, cancel := s.withTimeout(ctx)
	rules, err := s.Store.ListActiveRules(listCtx)
	cancel()
	if err != nil {
		return summary, err
	}

	now := s.clock().Now()
	today := DateString(now)

	for _, rule := range rules {
		summary.RulesEvaluated++

		state := Evaluate(rule, now)
		if state != StateEligible {
			summary.Skipped[string(state)]++
			continue
		}

		orderID := RecurringOrderID(rule.ID, today)

		checkCtx, cancel := s.withTimeout(ctx)
		exists, err := s.Store.OrderExists(checkCtx, orderID)
		cancel()
		if err != nil {
			summary.Errors++
			s.Logger.Error().Err(err).Str("rule_id", rule.ID).Msg("recurrence existence check failed")
			continue
		}
		if exists {
			summary.Skipped[string(StateAlreadyCreatedToday)]++
			continue
		}

		order := orderFromRule(rule, orderID, today, now)
		createCtx, cancel := s.withTimeout(ctx)
		created, err := s.Store.CreateRecurringOrder(createCtx, order)
		cancel()
		if err != nil {
			summary.Errors++
			s.Logger.Error().Err(err).Str("rule_id", rule.ID).Msg("recurring order creation failed")
			continue
		}
		if !created {
			// Lost the race to another run; the composite key held.
			summary.Skipped[string(StateAlreadyCreatedToday)]++
			continue
		}
		summary.Created++
		summary.CreatedOrderIDs = append(summary.CreatedOrderIDs, orderID)
		s.Logger.Info().Str("rule_id", rule.ID).Str("order_id", orderID).Msg("recurring order created")
	}

	summary.ElapsedMillis = time.Since(start).Milliseconds()
	return summary, nil
}

func orderFromRule(rule models.RecurrenceRule, orderID, today string, now time.Time) models.ServiceOrder {
	opened := now.UTC()
	return models.ServiceOrder{
		ID:          orderID,
		Status:      string(models.StatusOpen),
		ServiceType: rule.ServiceType,
		Description: rule.Description,
		Unit:        rule.Unit,
		Priority:    rule.Priority,
		OpenedAt:    &opened,
		RuleID:      rule.ID,
		CreatedDate: today,
		CreatedAt:   opened,
	}
}

func (s *Scheduler) clock() Clock {
	if s.Clock == nil {
		return SystemClock{}
	}
	return s.Clock
}

func (s *Scheduler) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := s.RuleTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}

func containsDay(days []int, day int) bool {
	for _, d := range days {
		if d == day {
			return true
		}
	}
	return false
}

// parseStartTime reads an HH:MM string. Malformed values report ok=false and
// the rule is treated as due for the whole day, matching the permissive
// handling of malformed input elsewhere.
func parseStartTime(value string) (hour, minute int, ok bool) {
	parts := strings.SplitN(strings.TrimSpace(value), ":", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, 0, false
	}
	return h, m, true
}
