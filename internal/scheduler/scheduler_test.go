package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/stic_os/backend/internal/models"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type fakeStore struct {
	rules     []models.RecurrenceRule
	orders    map[string]models.ServiceOrder
	failRules map[string]error
}

func newFakeStore(rules ...models.RecurrenceRule) *fakeStore {
	return &fakeStore{rules: rules, orders: map[string]models.ServiceOrder{}, failRules: map[string]error{}}
}

func (s *fakeStore) ListActiveRules(ctx context.Context) ([]models.RecurrenceRule, error) {
	return s.rules, nil
}

func (s *fakeStore) OrderExists(ctx context.Context, id string) (bool, error) {
	_, ok := s.orders[id]
	return ok, nil
}

func (s *fakeStore) CreateRecurringOrder(ctx context.Context, order models.ServiceOrder) (bool, error) {
	if err := s.failRules[order.RuleID]; err != nil {
		return false, err
	}
	if _, ok := s.orders[order.ID]; ok {
		return false, nil
	}
	s.orders[order.ID] = order
	return true, nil
}

// Tuesday 2025-03-04 08:30 local.
var tuesdayMorning = time.Date(2025, 3, 4, 8, 30, 0, 0, time.UTC)

func weekdayRule(id string) models.RecurrenceRule {
	return models.RecurrenceRule{
		ID:          id,
		Active:      true,
		DaysOfWeek:  []int{1, 2, 3, 4, 5},
		StartTime:   "08:00",
		ServiceType: "Manutenção preventiva",
		Unit:        "STIC",
	}
}

func newScheduler(store Store, clock Clock) *Scheduler {
	return &Scheduler{Store: store, Clock: clock, Logger: zerolog.Nop(), RuleTimeout: time.Second}
}

func TestRunCreatesOnlyDueRules(t *testing.T) {
	r1 := weekdayRule("r1")
	r2 := models.RecurrenceRule{
		ID:         "r2",
		Active:     true,
		DaysOfWeek: []int{0, 6},
		StartTime:  "09:00",
	}
	store := newFakeStore(r1, r2)
	sched := newScheduler(store, fixedClock{tuesdayMorning})

	summary, err := sched.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if summary.Created != 1 {
		t.Fatalf("expected 1 created, got %d", summary.Created)
	}
	if summary.Skipped[string(StateNotDueToday)] != 1 {
		t.Fatalf("expected r2 skipped as not due, got %+v", summary.Skipped)
	}

	wantID := RecurringOrderID("r1", "2025-03-04")
	order, ok := store.orders[wantID]
	if !ok {
		t.Fatalf("expected order %s, have %v", wantID, store.orders)
	}
	if order.RuleID != "r1" || order.CreatedDate != "2025-03-04" {
		t.Fatalf("order not stamped from rule: %+v", order)
	}
	if models.NormalizeStatus(order.Status) != models.StatusOpen {
		t.Fatalf("expected new order to be open, got %s", order.Status)
	}
}

func TestRunTwiceCreatesNoDuplicates(t *testing.T) {
	store := newFakeStore(weekdayRule("r1"))
	sched := newScheduler(store, fixedClock{tuesdayMorning})

	for i := 0; i < 2; i++ {
		if _, err := sched.Run(context.Background()); err != nil {
			t.Fatalf("run %d failed: %v", i, err)
		}
	}
	if len(store.orders) != 1 {
		t.Fatalf("composite key must prevent duplicates, got %d orders", len(store.orders))
	}
}

func TestRunRaceLosesGracefully(t *testing.T) {
	// Simulates a concurrent run that inserted between our existence check
	// and our insert: the conflict is reported as a skip, not an error.
	store := newFakeStore(weekdayRule("r1"))
	id := RecurringOrderID("r1", "2025-03-04")
	sched := newScheduler(raceStore{store, id}, fixedClock{tuesdayMorning})

	summary, err := sched.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if summary.Created != 0 || summary.Errors != 0 {
		t.Fatalf("expected clean skip, got %+v", summary)
	}
	if summary.Skipped[string(StateAlreadyCreatedToday)] != 1 {
		t.Fatalf("expected already-created skip, got %+v", summary.Skipped)
	}
}

// raceStore reports "not created yet" but then loses the insert race.
type raceStore struct {
	*fakeStore
	contested string
}

func (s raceStore) OrderExists(ctx context.Context, id string) (bool, error) {
	return false, nil
}

func (s raceStore) CreateRecurringOrder(ctx context.Context, order models.ServiceOrder) (bool, error) {
	if order.ID == s.contested {
		return false, nil
	}
	return s.fakeStore.CreateRecurringOrder(ctx, order)
}

func TestRunIsolatesRuleFailures(t *testing.T) {
	r1 := weekdayRule("r1")
	r2 := weekdayRule("r2")
	store := newFakeStore(r1, r2)
	store.failRules["r1"] = errors.New("insert refused")
	sched := newScheduler(store, fixedClock{tuesdayMorning})

	summary, err := sched.Run(context.Background())
	if err != nil {
		t.Fatalf("run must not abort on a single rule failure: %v", err)
	}
	if summary.Errors != 1 {
		t.Fatalf("expected 1 error, got %d", summary.Errors)
	}
	if summary.Created != 1 {
		t.Fatalf("expected r2 still created, got %d", summary.Created)
	}
	if _, ok := store.orders[RecurringOrderID("r2", "2025-03-04")]; !ok {
		t.Fatal("expected r2's order despite r1 failing")
	}
}

func TestEvaluateStates(t *testing.T) {
	rule := weekdayRule("r1")

	if state := Evaluate(rule, tuesdayMorning); state != StateEligible {
		t.Fatalf("expected eligible at 08:30, got %s", state)
	}

	early := time.Date(2025, 3, 4, 7, 15, 0, 0, time.UTC)
	if state := Evaluate(rule, early); state != StateDueButNotYetTime {
		t.Fatalf("expected due-but-not-yet-time at 07:15, got %s", state)
	}

	sunday := time.Date(2025, 3, 2, 10, 0, 0, 0, time.UTC)
	if state := Evaluate(rule, sunday); state != StateNotDueToday {
		t.Fatalf("expected not due on Sunday, got %s", state)
	}
}

func TestEvaluateMalformedStartTimeIsAllDay(t *testing.T) {
	rule := weekdayRule("r1")
	rule.StartTime = "whenever"
	midnight := time.Date(2025, 3, 4, 0, 5, 0, 0, time.UTC)
	if state := Evaluate(rule, midnight); state != StateEligible {
		t.Fatalf("malformed start time should mean due all day, got %s", state)
	}
}

func TestDateString(t *testing.T) {
	if got := DateString(tuesdayMorning); got != "2025-03-04" {
		t.Fatalf("expected 2025-03-04, got %s", got)
	}
}

func TestRecurringOrderID(t *testing.T) {
	if got := RecurringOrderID("r9", "2025-03-04"); got != "REC-r9-2025-03-04" {
		t.Fatalf("unexpected composite id: %s", got)
	}
}
