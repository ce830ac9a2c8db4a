package logic

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/pdamit/events-api/internal/models"
)

// assignCandidate is one entity eligible for panel placement.
type assignCandidate struct {
	ID      int64
	Weight  int
	Total   float64
	PanelID *int64
}

// panelSlot tracks a panel's running score sum and load during placement.
type panelSlot struct {
	ID      int64
	PanelNo int
	Sum     float64
	Load    int
}

func roundTo6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

// assignSeed derives the deterministic shuffle seed. Two runs over the same
// event state produce identical placements.
func assignSeed(eventID, roundID int64, entityType models.EntityType, dist models.PanelDistribution,
	onlyUnassigned bool, panels []panelSlot, candidates []assignCandidate) int64 {
	h := sha256.New()
	fmt.Fprintf(h, "%d|%d|%s|%s|%t|", eventID, roundID, entityType, dist, onlyUnassigned)
	for _, p := range panels {
		fmt.Fprintf(h, "%d,", p.ID)
	}
	fmt.Fprint(h, "|")
	for _, c := range candidates {
		fmt.Fprintf(h, "%d:%.6f;", c.ID, c.Total)
	}
	sum := h.Sum(nil)
	return int64(binary.BigEndian.Uint64(sum[:8]))
}

// autoAssign places candidates into panels and returns entity id -> panel id
// for every newly placed entity. Candidates that already hold an assignment
// are kept in place when onlyUnassigned is set; otherwise everyone is placed
// afresh.
//
// Placement walks score buckets from highest to lowest, shuffles each bucket
// with the seeded generator, and drops each entity into the panel with the
// smallest (score sum, load) pair, lowest panel number winning ties.
func autoAssign(seed int64, candidates []assignCandidate, panels []panelSlot, onlyUnassigned bool) map[int64]int64 {
	out := map[int64]int64{}
	if len(panels) == 0 {
		return out
	}

	slots := make([]panelSlot, len(panels))
	copy(slots, panels)
	byID := map[int64]*panelSlot{}
	for i := range slots {
		slots[i].Sum, slots[i].Load = 0, 0
		byID[slots[i].ID] = &slots[i]
	}

	pool := make([]assignCandidate, 0, len(candidates))
	for _, c := range candidates {
		if onlyUnassigned && c.PanelID != nil {
			if slot, ok := byID[*c.PanelID]; ok {
				slot.Sum += c.Total
				slot.Load += c.Weight
			}
			continue
		}
		pool = append(pool, c)
	}

	sort.Slice(pool, func(i, j int) bool {
		ti, tj := roundTo6(pool[i].Total), roundTo6(pool[j].Total)
		if ti != tj {
			return ti > tj
		}
		return pool[i].ID < pool[j].ID
	})

	rng := rand.New(rand.NewSource(seed))
	for start := 0; start < len(pool); {
		end := start + 1
		for end < len(pool) && roundTo6(pool[end].Total) == roundTo6(pool[start].Total) {
			end++
		}
		bucket := pool[start:end]
		rng.Shuffle(len(bucket), func(i, j int) {
			bucket[i], bucket[j] = bucket[j], bucket[i]
		})
		for _, c := range bucket {
			best := 0
			for i := 1; i < len(slots); i++ {
				s, b := &slots[i], &slots[best]
				if s.Sum < b.Sum ||
					(s.Sum == b.Sum && s.Load < b.Load) ||
					(s.Sum == b.Sum && s.Load == b.Load && s.PanelNo < b.PanelNo) {
					best = i
				}
			}
			slots[best].Sum += c.Total
			slots[best].Load += c.Weight
			out[c.ID] = slots[best].ID
		}
		start = end
	}
	return out
}
