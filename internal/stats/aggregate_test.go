package stats

import (
	"testing"
	"time"

	"github.com/stic_os/backend/internal/models"
)

func TestAggregateEmptyInput(t *testing.T) {
	snap := Aggregate(nil, 15)
	if snap.Total != 0 || snap.Finalized != 0 || snap.Open != 0 {
		t.Fatalf("expected zero counts, got %+v", snap)
	}
	if snap.CompletionRate != 0 || snap.AverageResolutionDays != 0 || snap.SLA.PercentWithin != 0 {
		t.Fatalf("expected zero rates, got %+v", snap)
	}
}

func TestAggregateExample(t *testing.T) {
	day0 := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	day10 := day0.Add(10 * 24 * time.Hour)
	orders := []models.ServiceOrder{
		{ID: "os1", Status: "Finalizada", OpenedAt: &day0, FinalizedAt: &day10},
		{ID: "os2", Status: "Aberta"},
	}

	snap := Aggregate(orders, 15)
	if snap.Total != 2 {
		t.Fatalf("expected total=2, got %d", snap.Total)
	}
	if snap.Finalized != 1 || snap.Open != 1 {
		t.Fatalf("expected finalized=1 open=1, got %+v", snap)
	}
	if snap.CompletionRate != 50.0 {
		t.Fatalf("expected completion rate 50.0, got %v", snap.CompletionRate)
	}
	if snap.SLA.Within != 1 || snap.SLA.Breached != 0 {
		t.Fatalf("expected within=1 breached=0, got %+v", snap.SLA)
	}
	if snap.AverageResolutionDays != 10.0 {
		t.Fatalf("expected avg resolution 10.0, got %v", snap.AverageResolutionDays)
	}
}

func TestAggregateSLAPartition(t *testing.T) {
	open := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	fast := open.Add(2 * 24 * time.Hour)
	slow := open.Add(30 * 24 * time.Hour)
	orders := []models.ServiceOrder{
		{ID: "a", Status: "Finalizada", OpenedAt: &open, FinalizedAt: &fast},
		{ID: "b", Status: "Finalizada", OpenedAt: &open, FinalizedAt: &slow},
		{ID: "c", Status: "Finalizada", OpenedAt: &open},
		{ID: "d", Status: "Aberta"},
	}

	snap := Aggregate(orders, 15)
	withTimestamps := 2
	if snap.SLA.Within+snap.SLA.Breached != withTimestamps {
		t.Fatalf("expected within+breached == %d, got %d", withTimestamps, snap.SLA.Within+snap.SLA.Breached)
	}
	if snap.SLA.Within != 1 || snap.SLA.Breached != 1 {
		t.Fatalf("expected 1 within and 1 breached, got %+v", snap.SLA)
	}
	if snap.SLA.PercentWithin != 50.0 {
		t.Fatalf("expected 50.0 percent within, got %v", snap.SLA.PercentWithin)
	}
}

func TestAggregateInvalidSLATargetFallsBack(t *testing.T) {
	snap := Aggregate(nil, -3)
	if snap.SLA.TargetDays != DefaultSLATargetDays {
		t.Fatalf("expected fallback target %d, got %d", DefaultSLATargetDays, snap.SLA.TargetDays)
	}
}

func TestAggregateUnknownStatusCountsOnlyTowardTotal(t *testing.T) {
	orders := []models.ServiceOrder{
		{ID: "a", Status: "algo estranho"},
		{ID: "b", Status: "Em andamento"},
	}
	snap := Aggregate(orders, 15)
	if snap.Total != 2 {
		t.Fatalf("expected total=2, got %d", snap.Total)
	}
	if got := snap.Open + snap.InProgress + snap.AwaitingParts + snap.SentOut + snap.Finalized; got != 1 {
		t.Fatalf("expected only 1 classified record, got %d", got)
	}
}

func TestAggregateGroupFallbacks(t *testing.T) {
	orders := []models.ServiceOrder{
		{ID: "a", Status: "Aberta", EquipmentType: "Impressora"},
		{ID: "b", Status: "Aberta"},
	}
	snap := Aggregate(orders, 15)
	if len(snap.ByServiceType) != 2 {
		t.Fatalf("expected 2 service-type groups, got %+v", snap.ByServiceType)
	}
	names := map[string]bool{}
	for _, g := range snap.ByServiceType {
		names[g.Name] = true
	}
	if !names["Impressora"] || !names["Other"] {
		t.Fatalf("expected equipment fallback and Other group, got %+v", snap.ByServiceType)
	}
	if snap.ByUnit[0].Name != "Unspecified" {
		t.Fatalf("expected Unspecified unit fallback, got %+v", snap.ByUnit)
	}
}

func TestTopServiceTypesStableTieBreak(t *testing.T) {
	orders := []models.ServiceOrder{
		{ID: "1", Status: "Aberta", ServiceType: "Rede"},
		{ID: "2", Status: "Aberta", ServiceType: "Hardware"},
		{ID: "3", Status: "Aberta", ServiceType: "Rede"},
		{ID: "4", Status: "Aberta", ServiceType: "Hardware"},
		{ID: "5", Status: "Aberta", ServiceType: "Software"},
	}
	snap := Aggregate(orders, 15)
	top := snap.TopServiceTypes(3)
	if len(top) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(top))
	}
	// Rede and Hardware tie at 2; Rede was encountered first.
	if top[0].Name != "Rede" || top[1].Name != "Hardware" || top[2].Name != "Software" {
		t.Fatalf("unexpected tie-break order: %+v", top)
	}
}

func TestAggregateWeekdayBuckets(t *testing.T) {
	sunday := time.Date(2025, 3, 2, 10, 0, 0, 0, time.UTC)
	tuesday := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)
	orders := []models.ServiceOrder{
		{ID: "a", Status: "Aberta", OpenedAt: &sunday},
		{ID: "b", Status: "Aberta", OpenedAt: &tuesday},
		{ID: "c", Status: "Aberta", OpenedAt: &tuesday},
		{ID: "d", Status: "Aberta"},
	}
	snap := Aggregate(orders, 15)
	if snap.OpenedByWeekday[0] != 1 {
		t.Fatalf("expected 1 order on Sunday, got %d", snap.OpenedByWeekday[0])
	}
	if snap.OpenedByWeekday[2] != 2 {
		t.Fatalf("expected 2 orders on Tuesday, got %d", snap.OpenedByWeekday[2])
	}
}
