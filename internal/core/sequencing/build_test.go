package sequencing

import (
	"errors"
	"reflect"
	"testing"

	"github.com/ewilliams-labs/setforge/internal/core/domain"
)

func testPool() *Pool {
	f := domain.FamilyHouse
	tf := domain.FamilyTechno
	return NewPool([]domain.TrackProfile{
		profile("t01", 122, "8A", 0.30, "Deep House", f),
		profile("t02", 124, "9A", 0.42, "House", f),
		profile("t03", 125, "9B", 0.55, "Tech House", f),
		profile("t04", 126, "10A", 0.68, "Techno", tf),
		profile("t05", 127, "10A", 0.72, "Techno", tf),
		profile("t06", 128, "11A", 0.80, "Hard Techno", tf),
		profile("t07", 126, "3B", 0.66, "Acid", tf),
		profile("t08", 124, "8B", 0.50, "Garage", f),
		profile("t09", 120, "7A", 0.35, "Deep House", f),
		profile("t10", 132, "12A", 0.90, "Hard Techno", tf),
	})
}

func checkPlan(t *testing.T, pool *Pool, plan CandidatePlan, wantLen int) {
	t.Helper()
	if len(plan.OrderedIDs) != wantLen {
		t.Fatalf("len = %d, want %d (%v)", len(plan.OrderedIDs), wantLen, plan.OrderedIDs)
	}
	if len(plan.Transitions) != len(plan.OrderedIDs)-1 {
		t.Fatalf("transitions = %d for %d tracks", len(plan.Transitions), len(plan.OrderedIDs))
	}
	seen := map[string]bool{}
	for _, id := range plan.OrderedIDs {
		if seen[id] {
			t.Fatalf("repeated id %s in %v", id, plan.OrderedIDs)
		}
		if _, ok := pool.Profile(id); !ok {
			t.Fatalf("unknown id %s", id)
		}
		seen[id] = true
	}
	for i, tr := range plan.Transitions {
		if tr.FromIndex != i || tr.ToIndex != i+1 {
			t.Fatalf("transition %d indexes %d→%d", i, tr.FromIndex, tr.ToIndex)
		}
		if tr.Scores.Composite < 0 || tr.Scores.Composite > 1 {
			t.Fatalf("composite out of range: %v", tr.Scores.Composite)
		}
	}
}

func arcConfig(n int) BuildConfig {
	phases, _ := domain.ResolveEnergyCurve(nil, n)
	return BuildConfig{
		TargetTracks: n,
		Phases:       phases,
		DriftPct:     6,
		Options:      Options{MasterTempo: true},
	}
}

func TestNewPool_DedupsAndSorts(t *testing.T) {
	pool := NewPool([]domain.TrackProfile{
		profile("b", 120, "1A", 0.1, "", 0),
		profile("a", 121, "1A", 0.1, "", 0),
		profile("b", 999, "1A", 0.1, "", 0),
	})
	if pool.Len() != 2 {
		t.Fatalf("Len = %d", pool.Len())
	}
	if pool.Profiles()[0].ID() != "a" {
		t.Fatalf("not id ordered: %s", pool.Profiles()[0].ID())
	}
	if b, _ := pool.Profile("b"); b.BPM != 120 {
		t.Fatalf("first duplicate must win, got bpm %v", b.BPM)
	}
}

func TestBuildGreedy_PicksBestNext(t *testing.T) {
	pool := NewPool([]domain.TrackProfile{
		profile("a", 124, "8A", 0.5, "", 0),
		profile("b", 124, "9A", 0.5, "", 0),
		profile("c", 124, "8A", 0.5, "", 0),
	})
	cfg := BuildConfig{TargetTracks: 3, Options: Options{MasterTempo: true}}

	plan, err := BuildGreedy(pool, "a", cfg, 0)
	if err != nil {
		t.Fatalf("BuildGreedy: %v", err)
	}
	if want := []string{"a", "c", "b"}; !reflect.DeepEqual(plan.OrderedIDs, want) {
		t.Fatalf("order = %v, want %v", plan.OrderedIDs, want)
	}

	varied, err := BuildGreedy(pool, "a", cfg, 1)
	if err != nil {
		t.Fatalf("BuildGreedy: %v", err)
	}
	if want := []string{"a", "b", "c"}; !reflect.DeepEqual(varied.OrderedIDs, want) {
		t.Fatalf("variation 1 order = %v, want %v", varied.OrderedIDs, want)
	}
}

func TestBuildGreedy_TieBreaksByID(t *testing.T) {
	pool := NewPool([]domain.TrackProfile{
		profile("seed", 124, "8A", 0.5, "", 0),
		profile("z", 124, "8A", 0.5, "", 0),
		profile("m", 124, "8A", 0.5, "", 0),
	})
	plan, err := BuildGreedy(pool, "seed", BuildConfig{TargetTracks: 3, Options: Options{MasterTempo: true}}, 0)
	if err != nil {
		t.Fatalf("BuildGreedy: %v", err)
	}
	if want := []string{"seed", "m", "z"}; !reflect.DeepEqual(plan.OrderedIDs, want) {
		t.Fatalf("order = %v, want %v", plan.OrderedIDs, want)
	}
}

func TestBuildGreedy_Invariants(t *testing.T) {
	pool := testPool()
	tests := []struct {
		name      string
		target    int
		variation int
		wantLen   int
	}{
		{name: "single", target: 1, wantLen: 1},
		{name: "short", target: 4, wantLen: 4},
		{name: "whole pool", target: 10, wantLen: 10},
		{name: "exhausts pool", target: 15, wantLen: 10},
		{name: "varied", target: 8, variation: 3, wantLen: 8},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			cfg := arcConfig(tc.target)
			plan, err := BuildGreedy(pool, "t01", cfg, tc.variation)
			if err != nil {
				t.Fatalf("BuildGreedy: %v", err)
			}
			checkPlan(t, pool, plan, tc.wantLen)
			if plan.OrderedIDs[0] != "t01" {
				t.Fatalf("seed not first: %v", plan.OrderedIDs)
			}
		})
	}
}

func TestBuildGreedy_Errors(t *testing.T) {
	pool := testPool()
	if _, err := BuildGreedy(pool, "nope", arcConfig(3), 0); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := BuildGreedy(pool, "t01", BuildConfig{}, 0); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}

func TestBuildBeam_WidthOneMatchesGreedy(t *testing.T) {
	pool := testPool()
	configs := map[string]BuildConfig{
		"arc master tempo": arcConfig(8),
		"no phases":        {TargetTracks: 6, DriftPct: 6, Options: Options{MasterTempo: true}},
		"pitch shifting": func() BuildConfig {
			c := arcConfig(7)
			c.Options = Options{Priority: PriorityHarmonic, Style: StyleConservative}
			return c
		}(),
		"trajectory": func() BuildConfig {
			c := arcConfig(9)
			c.Trajectory = domain.ComputeBPMTrajectory(c.Phases, 122, 130)
			c.Options.Priority = PriorityEnergy
			return c
		}(),
		"tight drift": func() BuildConfig {
			c := arcConfig(10)
			c.DriftPct = 1
			c.Options.Priority = PriorityGenre
			return c
		}(),
	}

	for name, cfg := range configs {
		cfg := cfg
		t.Run(name, func(t *testing.T) {
			for _, seed := range []string{"t01", "t05", "t10"} {
				greedy, err := BuildGreedy(pool, seed, cfg, 0)
				if err != nil {
					t.Fatalf("BuildGreedy: %v", err)
				}
				beams, err := BuildBeam(pool, seed, cfg, 1)
				if err != nil {
					t.Fatalf("BuildBeam: %v", err)
				}
				if len(beams) != 1 {
					t.Fatalf("beam width 1 returned %d plans", len(beams))
				}
				if !reflect.DeepEqual(beams[0].OrderedIDs, greedy.OrderedIDs) {
					t.Fatalf("seed %s: beam %v, greedy %v", seed, beams[0].OrderedIDs, greedy.OrderedIDs)
				}
			}
		})
	}
}

func TestBuildBeam_RanksDistinctPlans(t *testing.T) {
	pool := testPool()
	cfg := arcConfig(6)

	wide, err := BuildBeam(pool, "t01", cfg, 4)
	if err != nil {
		t.Fatalf("BuildBeam: %v", err)
	}
	if len(wide) == 0 || len(wide) > 4 {
		t.Fatalf("wide beam returned %d plans", len(wide))
	}
	seen := map[string]bool{}
	for i, plan := range wide {
		checkPlan(t, pool, plan, 6)
		if seen[plan.key()] {
			t.Fatalf("duplicate plan %v", plan.OrderedIDs)
		}
		seen[plan.key()] = true
		if i > 0 && plan.MeanComposite() > wide[i-1].MeanComposite()+1e-12 {
			t.Fatalf("plans not ranked by mean composite")
		}
	}
}

func TestBuildBeam_CarriesExhaustedPlans(t *testing.T) {
	pool := NewPool([]domain.TrackProfile{
		profile("a", 124, "8A", 0.5, "", 0),
		profile("b", 125, "9A", 0.6, "", 0),
	})
	plans, err := BuildBeam(pool, "a", BuildConfig{TargetTracks: 5}, 3)
	if err != nil {
		t.Fatalf("BuildBeam: %v", err)
	}
	if len(plans) != 1 || !reflect.DeepEqual(plans[0].OrderedIDs, []string{"a", "b"}) {
		t.Fatalf("plans = %+v", plans)
	}
}

func TestOutsideDriftBudget(t *testing.T) {
	tests := []struct {
		name     string
		bpm      float64
		position int
		want     bool
	}{
		{name: "within first budget", bpm: 122, position: 1, want: false},
		{name: "beyond first budget", bpm: 123, position: 1, want: true},
		{name: "budget accrues", bpm: 127, position: 3, want: false},
		{name: "below seed counts too", bpm: 112, position: 3, want: true},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if got := outsideDriftBudget(tc.bpm, 120, 6, tc.position, 4); got != tc.want {
				t.Fatalf("outsideDriftBudget = %v, want %v", got, tc.want)
			}
		})
	}
	if outsideDriftBudget(200, 0, 6, 1, 4) || outsideDriftBudget(200, 120, 6, 1, 1) {
		t.Fatalf("unknown seed tempo or single-track sets have no budget")
	}
}

func TestBuildGreedy_DriftPenaltyScoresDown(t *testing.T) {
	a := profile("a", 120, "8A", 0.5, "", 0)
	b := profile("b", 140, "8A", 0.5, "", 0)
	pool := NewPool([]domain.TrackProfile{a, b})
	cfg := BuildConfig{TargetTracks: 2, DriftPct: 6, Options: Options{MasterTempo: true}}

	plan, err := BuildGreedy(pool, "a", cfg, 0)
	if err != nil {
		t.Fatalf("BuildGreedy: %v", err)
	}
	raw := ScoreTransition(a, b, cfg.Options, TransitionContext{})
	if got := plan.Transitions[0].Scores.Composite; !approx(got, raw.Composite*0.7) {
		t.Fatalf("composite = %v, want %v", got, raw.Composite*0.7)
	}
}

func TestSelectStartTracks(t *testing.T) {
	pool := testPool()

	low, err := SelectStartTracks(pool, phase(domain.PhaseWarmup), 3, "")
	if err != nil {
		t.Fatalf("SelectStartTracks: %v", err)
	}
	if want := []string{"t01", "t09", "t02"}; !reflect.DeepEqual(low, want) {
		t.Fatalf("warmup starts = %v, want %v", low, want)
	}

	high, err := SelectStartTracks(pool, phase(domain.PhasePeak), 2, "")
	if err != nil {
		t.Fatalf("SelectStartTracks: %v", err)
	}
	if want := []string{"t10", "t06"}; !reflect.DeepEqual(high, want) {
		t.Fatalf("peak starts = %v, want %v", high, want)
	}

	forced, err := SelectStartTracks(pool, nil, 3, "t07")
	if err != nil || !reflect.DeepEqual(forced, []string{"t07"}) {
		t.Fatalf("forced = %v, %v", forced, err)
	}

	if _, err := SelectStartTracks(pool, nil, 3, "missing"); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}

func TestBuildCandidateSets(t *testing.T) {
	pool := testPool()

	t.Run("beam", func(t *testing.T) {
		plans, err := BuildCandidateSets(pool, SetConfig{BuildConfig: arcConfig(6), BeamWidth: 3})
		if err != nil {
			t.Fatalf("BuildCandidateSets: %v", err)
		}
		if len(plans) == 0 || len(plans) > 3 {
			t.Fatalf("got %d plans", len(plans))
		}
		for _, p := range plans {
			checkPlan(t, pool, p, 6)
		}
	})

	t.Run("greedy for width one", func(t *testing.T) {
		cfg := arcConfig(6)
		plans, err := BuildCandidateSets(pool, SetConfig{BuildConfig: cfg, BeamWidth: 1})
		if err != nil {
			t.Fatalf("BuildCandidateSets: %v", err)
		}
		greedy, _ := BuildGreedy(pool, "t01", cfg, 0)
		if len(plans) != 1 || !reflect.DeepEqual(plans[0].OrderedIDs, greedy.OrderedIDs) {
			t.Fatalf("plans = %+v", plans)
		}
	})

	t.Run("opening track", func(t *testing.T) {
		plans, err := BuildCandidateSets(pool, SetConfig{BuildConfig: arcConfig(4), BeamWidth: 2, OpeningTrackID: "t05"})
		if err != nil {
			t.Fatalf("BuildCandidateSets: %v", err)
		}
		for _, p := range plans {
			if p.OrderedIDs[0] != "t05" {
				t.Fatalf("plan does not open with t05: %v", p.OrderedIDs)
			}
		}
	})

	t.Run("empty pool", func(t *testing.T) {
		_, err := BuildCandidateSets(NewPool(nil), SetConfig{BuildConfig: arcConfig(3), BeamWidth: 2})
		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("expected invalid argument, got %v", err)
		}
	})
}

func TestBuildGreedyVariants(t *testing.T) {
	pool := testPool()
	plans, err := BuildGreedyVariants(pool, []string{"t01", "t09"}, arcConfig(5), 3)
	if err != nil {
		t.Fatalf("BuildGreedyVariants: %v", err)
	}
	if len(plans) != 3 {
		t.Fatalf("got %d plans", len(plans))
	}
	if plans[0].OrderedIDs[0] != "t01" || plans[1].OrderedIDs[0] != "t09" || plans[2].OrderedIDs[0] != "t01" {
		t.Fatalf("seeds not cycled: %v %v %v", plans[0].OrderedIDs, plans[1].OrderedIDs, plans[2].OrderedIDs)
	}
	if reflect.DeepEqual(plans[0].OrderedIDs, plans[2].OrderedIDs) {
		t.Fatalf("variation 2 should diverge from variation 0: %v", plans[0].OrderedIDs)
	}
}

func TestRankPlans(t *testing.T) {
	mk := func(ids []string, composites ...float64) CandidatePlan {
		p := CandidatePlan{OrderedIDs: ids}
		for i, c := range composites {
			p.Transitions = append(p.Transitions, CandidateTransition{FromIndex: i, ToIndex: i + 1, Scores: TransitionScores{Composite: c}})
		}
		return p
	}
	plans := []CandidatePlan{
		mk([]string{"b", "a"}, 0.5),
		mk([]string{"a", "b"}, 0.9),
		mk([]string{"a", "c"}, 0.5),
		mk([]string{"a", "b"}, 0.9),
	}
	got := RankPlans(plans, 2)
	if len(got) != 2 {
		t.Fatalf("len = %d", len(got))
	}
	if !reflect.DeepEqual(got[0].OrderedIDs, []string{"a", "b"}) || !reflect.DeepEqual(got[1].OrderedIDs, []string{"a", "c"}) {
		t.Fatalf("ranked = %v, %v", got[0].OrderedIDs, got[1].OrderedIDs)
	}
	if got[0].SetScore() != 9 {
		t.Fatalf("set score = %v", got[0].SetScore())
	}
}
