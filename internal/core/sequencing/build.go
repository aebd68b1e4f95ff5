package sequencing

import (
	"math"
	"sort"

	"github.com/ewilliams-labs/setforge/internal/core/domain"
)

// driftPenalty scales the composite of a candidate that strays outside the
// tempo-drift budget of its position.
const driftPenalty = 0.7

// variationCadence is how often (in placed tracks) a non-zero variation
// index keeps nudging greedy off the top candidate.
const variationCadence = 4

// BuildConfig is shared by both constructors.
type BuildConfig struct {
	TargetTracks int
	// Phases holds one phase per position; positions past its end have no phase.
	Phases []domain.EnergyPhase
	// Trajectory optionally holds a play tempo per position.
	Trajectory []float64
	// DriftPct is the total tempo-drift allowance, in percent of the seed tempo.
	DriftPct float64
	Options  Options
}

func (c BuildConfig) validate() error {
	if c.TargetTracks < 1 {
		return domain.NewValidationError("target_tracks must be at least 1")
	}
	return nil
}

// walk is a partial plan: profile indexes into the pool plus the state
// needed to score the next step.
type walk struct {
	order       []int
	used        []bool
	genreRun    int
	total       float64
	transitions []CandidateTransition
}

func startWalk(poolSize, seed int) walk {
	w := walk{order: []int{seed}, used: make([]bool, poolSize)}
	w.used[seed] = true
	return w
}

func (w walk) exhausted() bool {
	return len(w.order) == len(w.used)
}

func (w walk) lastComposite() float64 {
	if len(w.transitions) == 0 {
		return 0
	}
	return w.transitions[len(w.transitions)-1].Scores.Composite
}

func (w walk) mean() float64 {
	if len(w.transitions) == 0 {
		return 0
	}
	return w.total / float64(len(w.transitions))
}

// extend returns a new walk with next appended; w itself is left untouched.
func (w walk) extend(pool *Pool, next int, scores TransitionScores) walk {
	step := len(w.order)
	from := pool.profiles[w.order[step-1]]
	to := pool.profiles[next]

	out := walk{
		order:       append(append(make([]int, 0, step+1), w.order...), next),
		used:        append([]bool(nil), w.used...),
		total:       w.total + scores.Composite,
		transitions: append(append(make([]CandidateTransition, 0, step), w.transitions...), CandidateTransition{FromIndex: step - 1, ToIndex: step, Scores: scores}),
	}
	out.used[next] = true
	if to.GenreFamily == from.GenreFamily && from.GenreFamily != domain.FamilyOther {
		out.genreRun = w.genreRun + 1
	}
	return out
}

func (w walk) plan(pool *Pool) CandidatePlan {
	return CandidatePlan{OrderedIDs: pool.idsOf(w.order), Transitions: w.transitions}
}

// scorer evaluates candidate next tracks for a walk under one configuration.
type scorer struct {
	pool    *Pool
	cfg     BuildConfig
	seedBPM float64
}

func (s scorer) score(w walk, next int) TransitionScores {
	step := len(w.order)
	from := s.pool.profiles[w.order[step-1]]
	to := s.pool.profiles[next]

	tc := TransitionContext{
		FromPhase:      phaseAt(s.cfg.Phases, step-1),
		ToPhase:        phaseAt(s.cfg.Phases, step),
		GenreRunLength: w.genreRun,
	}
	if step < len(s.cfg.Trajectory) {
		tc.Play = &PlayTempos{From: s.cfg.Trajectory[step-1], To: s.cfg.Trajectory[step]}
	}
	scores := ScoreTransition(from, to, s.cfg.Options, tc)
	if outsideDriftBudget(to.BPM, s.seedBPM, s.cfg.DriftPct, step, s.cfg.TargetTracks) {
		scores.Composite *= driftPenalty
	}
	return scores
}

// outsideDriftBudget reports whether bpm deviates from the seed tempo by more
// than the budget accrued at the given position.
func outsideDriftBudget(bpm, seedBPM, driftPct float64, position, targetTracks int) bool {
	if seedBPM <= 0 || targetTracks <= 1 {
		return false
	}
	budgetPct := driftPct * float64(position) / float64(targetTracks-1)
	return math.Abs(bpm-seedBPM) > seedBPM*budgetPct/100
}

func phaseAt(phases []domain.EnergyPhase, i int) *domain.EnergyPhase {
	if i < 0 || i >= len(phases) {
		return nil
	}
	p := phases[i]
	return &p
}

type option struct {
	index  int
	scores TransitionScores
}

// BuildGreedy grows a plan from seedID by repeatedly taking a highly ranked
// next track. variation diversifies plans built from the same seed.
func BuildGreedy(pool *Pool, seedID string, cfg BuildConfig, variation int) (CandidatePlan, error) {
	if err := cfg.validate(); err != nil {
		return CandidatePlan{}, err
	}
	seed, ok := pool.index[seedID]
	if !ok {
		return CandidatePlan{}, domain.NotFoundError{Kind: "track", ID: seedID}
	}
	sc := scorer{pool: pool, cfg: cfg, seedBPM: pool.profiles[seed].BPM}

	w := startWalk(pool.Len(), seed)
	for len(w.order) < cfg.TargetTracks && !w.exhausted() {
		options := make([]option, 0, pool.Len()-len(w.order))
		for idx := range pool.profiles {
			if !w.used[idx] {
				options = append(options, option{index: idx, scores: sc.score(w, idx)})
			}
		}
		// Pool indexes follow id order, so a stable sort keeps the id tiebreak.
		sort.SliceStable(options, func(i, j int) bool {
			return options[i].scores.Composite > options[j].scores.Composite
		})
		pick := options[pickRank(variation, len(w.order), len(options))]
		w = w.extend(pool, pick.index, pick.scores)
	}
	return w.plan(pool), nil
}

func pickRank(variation, placed, options int) int {
	rank := 0
	switch {
	case placed == 1:
		rank = variation
	case variation > 0 && placed%variationCadence == 0:
		rank = min(variation, 1)
	}
	return max(0, min(rank, options-1))
}

// BuildBeam keeps the width best partial plans from seedID at every step.
func BuildBeam(pool *Pool, seedID string, cfg BuildConfig, width int) ([]CandidatePlan, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	seed, ok := pool.index[seedID]
	if !ok {
		return nil, domain.NotFoundError{Kind: "track", ID: seedID}
	}
	width = max(width, 1)
	sc := scorer{pool: pool, cfg: cfg, seedBPM: pool.profiles[seed].BPM}

	beams := []walk{startWalk(pool.Len(), seed)}
	for step := 1; step < cfg.TargetTracks; step++ {
		var expanded []walk
		for _, b := range beams {
			if b.exhausted() {
				expanded = append(expanded, b)
				continue
			}
			for idx := range pool.profiles {
				if !b.used[idx] {
					expanded = append(expanded, b.extend(pool, idx, sc.score(b, idx)))
				}
			}
		}
		beams = pruneBeams(pool, expanded, width)
	}

	plans := make([]CandidatePlan, len(beams))
	for i, b := range beams {
		plans[i] = b.plan(pool)
	}
	return plans, nil
}

func pruneBeams(pool *Pool, walks []walk, width int) []walk {
	ids := make([][]string, len(walks))
	for i, w := range walks {
		ids[i] = pool.idsOf(w.order)
	}
	perm := make([]int, len(walks))
	for i := range perm {
		perm[i] = i
	}
	sort.SliceStable(perm, func(x, y int) bool {
		a, b := walks[perm[x]], walks[perm[y]]
		if len(a.transitions) == len(b.transitions) {
			if a.total != b.total {
				return a.total > b.total
			}
			if a.lastComposite() != b.lastComposite() {
				return a.lastComposite() > b.lastComposite()
			}
		} else if a.mean() != b.mean() {
			return a.mean() > b.mean()
		}
		return compareIDs(ids[perm[x]], ids[perm[y]]) < 0
	})

	seen := make(map[string]bool, width)
	out := make([]walk, 0, width)
	for _, i := range perm {
		k := joinIDs(ids[i])
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, walks[i])
		if len(out) == width {
			break
		}
	}
	return out
}

// SetConfig routes a set request to the right constructor.
type SetConfig struct {
	BuildConfig
	BeamWidth      int
	OpeningTrackID string
}

// BuildCandidateSets produces up to BeamWidth distinct plans over the pool.
// Width 1 runs greedy from each start track with an increasing variation
// index; wider beams run a beam search per start track and keep the best.
func BuildCandidateSets(pool *Pool, cfg SetConfig) ([]CandidatePlan, error) {
	if pool.Len() == 0 {
		return nil, domain.NewValidationError("track_ids must include at least one track")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	width := max(cfg.BeamWidth, 1)

	starts := width
	if pool.Len() <= cfg.TargetTracks {
		starts = 1
	}
	seeds, err := SelectStartTracks(pool, phaseAt(cfg.Phases, 0), starts, cfg.OpeningTrackID)
	if err != nil {
		return nil, err
	}

	if width == 1 {
		return BuildGreedyVariants(pool, seeds, cfg.BuildConfig, width)
	}

	var all []CandidatePlan
	for _, seed := range seeds {
		plans, err := BuildBeam(pool, seed, cfg.BuildConfig, width)
		if err != nil {
			return nil, err
		}
		all = append(all, plans...)
	}
	return RankPlans(all, width), nil
}

// BuildGreedyVariants runs greedy once per requested plan, cycling through
// the start tracks and raising the variation index each time.
func BuildGreedyVariants(pool *Pool, seeds []string, cfg BuildConfig, count int) ([]CandidatePlan, error) {
	if len(seeds) == 0 {
		return nil, domain.NewValidationError("track_ids must include at least one track")
	}
	plans := make([]CandidatePlan, 0, count)
	for i := 0; i < count; i++ {
		plan, err := BuildGreedy(pool, seeds[i%len(seeds)], cfg, i)
		if err != nil {
			return nil, err
		}
		plans = append(plans, plan)
	}
	return plans, nil
}
