package sequencing

import (
	"sort"

	"github.com/ewilliams-labs/setforge/internal/core/domain"
)

// SelectStartTracks picks up to count seed ids. A forced opening track wins
// outright. Otherwise sets that open quietly (Warmup or Build) start from the
// lowest-energy tracks and all others from the highest, ties broken by id.
func SelectStartTracks(pool *Pool, firstPhase *domain.EnergyPhase, count int, forcedID string) ([]string, error) {
	if forcedID != "" {
		if _, ok := pool.index[forcedID]; !ok {
			return nil, domain.NewValidationError("opening_track_id '%s' is not in track_ids", forcedID)
		}
		return []string{forcedID}, nil
	}
	if pool.Len() == 0 {
		return nil, domain.NewValidationError("track_ids must include at least one track")
	}

	ascending := firstPhase != nil && (*firstPhase == domain.PhaseWarmup || *firstPhase == domain.PhaseBuild)
	ranked := make([]domain.TrackProfile, pool.Len())
	copy(ranked, pool.profiles)
	// Stable over the id-ordered table, so equal energies keep id order.
	sort.SliceStable(ranked, func(i, j int) bool {
		if ascending {
			return ranked[i].Energy < ranked[j].Energy
		}
		return ranked[i].Energy > ranked[j].Energy
	})

	count = max(1, min(count, len(ranked)))
	ids := make([]string, count)
	for i := range ids {
		ids[i] = ranked[i].ID()
	}
	return ids, nil
}
