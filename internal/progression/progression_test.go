package progression

import (
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/claude/liftlog/internal/models"
)

func id(n int) uuid.UUID { return uuid.UUID{15: byte(n)} }

func set(n int, group string, index int, done bool) models.WorkoutSet {
	return models.WorkoutSet{
		ID:           id(n),
		ExerciseName: "Exercise " + group,
		GroupKey:     group,
		SetIndex:     index,
		TargetReps:   8,
		Kind:         models.SetKindWork,
		RestSeconds:  90,
		IsCompleted:  done,
	}
}

// layout returns the group keys and set IDs in grouped order.
func layout(groups []Group) [][]uuid.UUID {
	var out [][]uuid.UUID
	for _, g := range groups {
		var ids []uuid.UUID
		for _, s := range g.Sets {
			ids = append(ids, s.ID)
		}
		out = append(out, ids)
	}
	return out
}

func fixture() []models.WorkoutSet {
	return []models.WorkoutSet{
		set(1, "squat", 0, false),
		set(2, "squat", 1, false),
		set(3, "bench", 2, false),
		set(4, "bench", 3, false),
		set(5, "row", 4, false),
		set(6, "row", 4, false), // same index, ordered by ID
	}
}

// TestGroupSetsOrdering verifies exercise and set ordering.
func TestGroupSetsOrdering(t *testing.T) {
	groups := GroupSets(fixture())

	var keys []string
	for _, g := range groups {
		keys = append(keys, g.Key)
	}
	if diff := cmp.Diff([]string{"squat", "bench", "row"}, keys); diff != "" {
		t.Errorf("group order mismatch (-want +got):\n%s", diff)
	}
	want := [][]uuid.UUID{{id(1), id(2)}, {id(3), id(4)}, {id(5), id(6)}}
	if diff := cmp.Diff(want, layout(groups)); diff != "" {
		t.Errorf("set order mismatch (-want +got):\n%s", diff)
	}
	if groups[1].ExerciseName != "Exercise bench" {
		t.Errorf("ExerciseName = %q, want %q", groups[1].ExerciseName, "Exercise bench")
	}
}

// TestGroupSetsTieOnMinIndex verifies groups with equal minimum index sort by key.
func TestGroupSetsTieOnMinIndex(t *testing.T) {
	groups := GroupSets([]models.WorkoutSet{
		set(1, "zercher", 0, false),
		set(2, "arnold", 0, false),
	})
	if groups[0].Key != "arnold" || groups[1].Key != "zercher" {
		t.Errorf("order = %s, %s, want arnold, zercher", groups[0].Key, groups[1].Key)
	}
}

// TestGroupSetsPermutationStable verifies grouping ignores input order.
func TestGroupSetsPermutationStable(t *testing.T) {
	base := fixture()
	want := layout(GroupSets(base))

	r := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 50; i++ {
		shuffled := append([]models.WorkoutSet(nil), base...)
		r.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		if diff := cmp.Diff(want, layout(GroupSets(shuffled))); diff != "" {
			t.Fatalf("permutation %d changed grouping (-want +got):\n%s", i, diff)
		}
	}
}

// TestGroupSetsEmpty verifies an empty input yields no groups.
func TestGroupSetsEmpty(t *testing.T) {
	if got := GroupSets(nil); len(got) != 0 {
		t.Errorf("len = %d, want 0", len(got))
	}
}

// TestOrdinalPerKind verifies warm-ups and working sets are numbered separately.
func TestOrdinalPerKind(t *testing.T) {
	warm := set(1, "squat", 0, false)
	warm.Kind = models.SetKindWarmup
	groups := GroupSets([]models.WorkoutSet{warm, set(2, "squat", 1, false), set(3, "squat", 2, false)})

	for pos, want := range []int{1, 1, 2} {
		if got := groups[0].Ordinal(pos); got != want {
			t.Errorf("Ordinal(%d) = %d, want %d", pos, got, want)
		}
	}
}

// TestEvaluateAutomatic verifies the lowest-index incomplete set is chosen.
func TestEvaluateAutomatic(t *testing.T) {
	sets := fixture()
	sets[0].IsCompleted = true
	sets[1].IsCompleted = true
	sets[2].IsCompleted = true

	var s Selector
	p := s.Evaluate(GroupSets(sets))

	if p.Status != StatusCurrentSet {
		t.Fatalf("Status = %s, want %s", p.Status, StatusCurrentSet)
	}
	if p.CurrentSet.ID != id(4) {
		t.Errorf("CurrentSet = %v, want %v", p.CurrentSet.ID, id(4))
	}
	if p.GroupKey != "bench" || p.GroupIndex != 1 {
		t.Errorf("group = %s/%d, want bench/1", p.GroupKey, p.GroupIndex)
	}
	if p.SetOrdinal != 2 {
		t.Errorf("SetOrdinal = %d, want 2", p.SetOrdinal)
	}
	if p.CompletedCount != 3 || p.TotalCount != 6 {
		t.Errorf("counts = %d/%d, want 3/6", p.CompletedCount, p.TotalCount)
	}
	if p.Pinned {
		t.Error("Pinned = true in automatic mode")
	}
}

// TestEvaluatePinnedStaysInGroup verifies a pin never returns a set of another group.
func TestEvaluatePinnedStaysInGroup(t *testing.T) {
	sets := fixture()
	groups := GroupSets(sets)

	var s Selector
	if !s.Select("row", groups) {
		t.Fatal("Select(row) = false, want true")
	}

	for i := 0; i < 2; i++ {
		p := s.Evaluate(groups)
		if p.Status != StatusCurrentSet || p.GroupKey != "row" {
			t.Fatalf("step %d: status %s group %s, want current_set in row", i, p.Status, p.GroupKey)
		}
		// Mark it completed for the next round.
		for gi := range groups {
			for si := range groups[gi].Sets {
				if groups[gi].Sets[si].ID == p.CurrentSet.ID {
					groups[gi].Sets[si].IsCompleted = true
				}
			}
		}
	}

	p := s.Evaluate(groups)
	if p.Status != StatusExerciseComplete {
		t.Fatalf("Status = %s, want %s", p.Status, StatusExerciseComplete)
	}
	if p.GroupKey != "row" || p.CurrentSet != nil {
		t.Errorf("ExerciseComplete carries group %q set %v, want row and nil", p.GroupKey, p.CurrentSet)
	}
	if s.Selected() != "row" {
		t.Errorf("Selected = %q, want pin kept", s.Selected())
	}
}

// TestEvaluateWorkoutComplete verifies completion wins over a pin.
func TestEvaluateWorkoutComplete(t *testing.T) {
	sets := fixture()
	for i := range sets {
		sets[i].IsCompleted = true
	}
	groups := GroupSets(sets)

	var s Selector
	s.Select("bench", groups)
	p := s.Evaluate(groups)
	if p.Status != StatusWorkoutComplete {
		t.Errorf("Status = %s, want %s", p.Status, StatusWorkoutComplete)
	}
	if p.CurrentSet != nil {
		t.Errorf("CurrentSet = %v, want nil", p.CurrentSet)
	}
	if p.CompletedCount != 6 || p.TotalCount != 6 {
		t.Errorf("counts = %d/%d, want 6/6", p.CompletedCount, p.TotalCount)
	}
}

// TestEvaluateEmpty verifies an empty workout is complete with zero counts.
func TestEvaluateEmpty(t *testing.T) {
	var s Selector
	got := s.Evaluate(nil)
	want := Progress{Status: StatusWorkoutComplete, GroupIndex: -1}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Evaluate(nil) mismatch (-want +got):\n%s", diff)
	}
}

// TestEvaluateStalePinFallsBack verifies a pin on a removed group is cleared.
func TestEvaluateStalePinFallsBack(t *testing.T) {
	var s Selector
	s.Restore("deadlift")

	p := s.Evaluate(GroupSets(fixture()))
	if p.Status != StatusCurrentSet || p.GroupKey != "squat" {
		t.Errorf("got %s in %s, want current_set in squat", p.Status, p.GroupKey)
	}
	if s.Selected() != "" {
		t.Errorf("Selected = %q, want cleared", s.Selected())
	}
}

// TestSelectUnknownKey verifies selecting a missing group means automatic.
func TestSelectUnknownKey(t *testing.T) {
	groups := GroupSets(fixture())
	var s Selector
	s.Select("bench", groups)

	if s.Select("curl", groups) {
		t.Error("Select(curl) = true, want false")
	}
	if s.Selected() != "" {
		t.Errorf("Selected = %q, want empty", s.Selected())
	}

	s.Select("bench", groups)
	s.Clear()
	if s.Selected() != "" {
		t.Errorf("after Clear Selected = %q, want empty", s.Selected())
	}
}
