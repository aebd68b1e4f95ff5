package sequencing

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/ewilliams-labs/setforge/internal/core/domain"
)

// CandidateTransition links two consecutive positions of a plan.
type CandidateTransition struct {
	FromIndex int
	ToIndex   int
	Scores    TransitionScores
}

// CandidatePlan is one ordered, non-repeating set.
type CandidatePlan struct {
	OrderedIDs  []string
	Transitions []CandidateTransition
}

// MeanComposite averages the transition composites; a single-track plan
// scores 0.
func (p CandidatePlan) MeanComposite() float64 {
	if len(p.Transitions) == 0 {
		return 0
	}
	return stat.Mean(p.composites(), nil)
}

// SetScore is the mean composite on a 0-10 scale, rounded to 3 decimals.
func (p CandidatePlan) SetScore() float64 {
	return Round3(p.MeanComposite() * 10)
}

func (p CandidatePlan) composites() []float64 {
	out := make([]float64, len(p.Transitions))
	for i, t := range p.Transitions {
		out[i] = t.Scores.Composite
	}
	return out
}

func (p CandidatePlan) key() string {
	return joinIDs(p.OrderedIDs)
}

// Pool is the shared, read-only profile table a constructor works over.
// Profiles are held in ascending id order and addressed by index.
type Pool struct {
	profiles []domain.TrackProfile
	index    map[string]int
}

// NewPool copies profiles into an id-ordered table. Later duplicates of an
// id are ignored.
func NewPool(profiles []domain.TrackProfile) *Pool {
	p := &Pool{index: make(map[string]int, len(profiles))}
	for _, prof := range profiles {
		if _, dup := p.index[prof.ID()]; dup {
			continue
		}
		p.index[prof.ID()] = -1
		p.profiles = append(p.profiles, prof)
	}
	sort.Slice(p.profiles, func(i, j int) bool {
		return p.profiles[i].ID() < p.profiles[j].ID()
	})
	for i, prof := range p.profiles {
		p.index[prof.ID()] = i
	}
	return p
}

// Len returns the number of distinct tracks.
func (p *Pool) Len() int {
	return len(p.profiles)
}

// Profile looks up a profile by id.
func (p *Pool) Profile(id string) (domain.TrackProfile, bool) {
	i, ok := p.index[id]
	if !ok {
		return domain.TrackProfile{}, false
	}
	return p.profiles[i], true
}

// Profiles returns the table in id order. Callers must not modify it.
func (p *Pool) Profiles() []domain.TrackProfile {
	return p.profiles
}

func (p *Pool) idsOf(order []int) []string {
	ids := make([]string, len(order))
	for i, idx := range order {
		ids[i] = p.profiles[idx].ID()
	}
	return ids
}

func joinIDs(ids []string) string {
	n := 0
	for _, id := range ids {
		n += len(id) + 1
	}
	b := make([]byte, 0, n)
	for _, id := range ids {
		b = append(b, id...)
		b = append(b, 0)
	}
	return string(b)
}

// compareIDs orders two id sequences lexicographically.
func compareIDs(a, b []string) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return len(a) - len(b)
}

// RankPlans sorts plans by mean composite descending with the id sequence
// as tiebreak, drops repeated sequences and keeps at most limit.
func RankPlans(plans []CandidatePlan, limit int) []CandidatePlan {
	sorted := make([]CandidatePlan, len(plans))
	copy(sorted, plans)
	sort.SliceStable(sorted, func(i, j int) bool {
		mi, mj := sorted[i].MeanComposite(), sorted[j].MeanComposite()
		if mi != mj {
			return mi > mj
		}
		return compareIDs(sorted[i].OrderedIDs, sorted[j].OrderedIDs) < 0
	})
	seen := make(map[string]bool, len(sorted))
	out := make([]CandidatePlan, 0, len(sorted))
	for _, plan := range sorted {
		k := plan.key()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, plan)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
