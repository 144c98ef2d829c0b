package stats

import (
	"math"
	"sort"

	"github.com/stic_os/backend/internal/models"
)

const DefaultSLATargetDays = 15

const dayMillis = 86400000.0

type SLAStats struct {
	TargetDays    int     `json:"target_days"`
	Within        int     `json:"within"`
	Breached      int     `json:"breached"`
	PercentWithin float64 `json:"percent_within"`
}

type GroupCount struct {
	Name      string `json:"name"`
	Count     int    `json:"count"`
	Finalized int    `json:"finalized"`
}

// Snapshot is a fully computed aggregate over one set of service orders.
// It holds no references into the input and is safe to discard and recompute.
// All rates are float64 rounded to one decimal place and are 0 when the
// denominator is 0.
type Snapshot struct {
	Total                 int          `json:"total"`
	Open                  int          `json:"open"`
	InProgress            int          `json:"in_progress"`
	AwaitingParts         int          `json:"awaiting_parts"`
	SentOut               int          `json:"sent_out"`
	Finalized             int          `json:"finalized"`
	CompletionRate        float64      `json:"completion_rate"`
	AverageResolutionDays float64      `json:"average_resolution_days"`
	SLA                   SLAStats     `json:"sla"`
	ByServiceType         []GroupCount `json:"by_service_type"`
	ByUnit                []GroupCount `json:"by_unit"`
	OpenedByWeekday       [7]int       `json:"opened_by_weekday"`
}

// Aggregate computes a Snapshot over the given service orders. A non-positive
// slaTargetDays falls back to DefaultSLATargetDays. Records whose status
// matches no known synonym stay in Total but are excluded from every
// status-based count. Records missing either timestamp are excluded from the
// resolution average and from SLA classification.
func Aggregate(orders []models.ServiceOrder, slaTargetDays int) Snapshot {
	if slaTargetDays <= 0 {
		slaTargetDays = DefaultSLATargetDays
	}

	snap := Snapshot{Total: len(orders), SLA: SLAStats{TargetDays: slaTargetDays}}

	typeIdx := map[string]int{}
	unitIdx := map[string]int{}
	var resolutionTotal float64
	var resolutionCount int

	for _, o := range orders {
		status := models.NormalizeStatus(o.Status)
		switch status {
		case models.StatusOpen:
			snap.Open++
		case models.StatusInProgress:
			snap.InProgress++
		case models.StatusAwaitingParts:
			snap.AwaitingParts++
		case models.StatusSentOut:
			snap.SentOut++
		case models.StatusFinalized:
			snap.Finalized++
		}

		if o.OpenedAt != nil && o.FinalizedAt != nil {
			elapsed := float64(o.FinalizedAt.Sub(*o.OpenedAt).Milliseconds()) / dayMillis
			resolutionTotal += elapsed
			resolutionCount++
			if elapsed <= float64(slaTargetDays) {
				snap.SLA.Within++
			} else {
				snap.SLA.Breached++
			}
		}

		serviceType := models.FirstNonEmpty(o.ServiceType, o.EquipmentType, "Other")
		unit := models.FirstNonEmpty(o.Unit, "Unspecified")
		finalized := 0
		if status == models.StatusFinalized {
			finalized = 1
		}
		bumpGroup(&snap.ByServiceType, typeIdx, serviceType, finalized)
		bumpGroup(&snap.ByUnit, unitIdx, unit, finalized)

		if o.OpenedAt != nil {
			snap.OpenedByWeekday[int(o.OpenedAt.Weekday())]++
		}
	}

	if snap.Total > 0 {
		snap.CompletionRate = round1(float64(snap.Finalized) / float64(snap.Total) * 100)
	}
	if resolutionCount > 0 {
		snap.AverageResolutionDays = round1(resolutionTotal / float64(resolutionCount))
	}
	if slaTotal := snap.SLA.Within + snap.SLA.Breached; slaTotal > 0 {
		snap.SLA.PercentWithin = round1(float64(snap.SLA.Within) / float64(slaTotal) * 100)
	}

	sortGroups(snap.ByServiceType)
	sortGroups(snap.ByUnit)
	return snap
}

// TopServiceTypes returns the n most frequent service-type groups. Ties keep
// encounter order: sortGroups is stable.
func (s Snapshot) TopServiceTypes(n int) []GroupCount {
	if n <= 0 || n > len(s.ByServiceType) {
		n = len(s.ByServiceType)
	}
	out := make([]GroupCount, n)
	copy(out, s.ByServiceType[:n])
	return out
}

func bumpGroup(groups *[]GroupCount, idx map[string]int, name string, finalized int) {
	if pos, ok := idx[name]; ok {
		(*groups)[pos].Count++
		(*groups)[pos].Finalized += finalized
		return
	}
	idx[name] = len(*groups)
	*groups = append(*groups, GroupCount{Name: name, Count: 1, Finalized: finalized})
}

func sortGroups(groups []GroupCount) {
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Count > groups[j].Count
	})
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
