package progression

import "github.com/claude/liftlog/internal/models"

// Status is the outcome of evaluating the selection against the sets.
type Status string

const (
	// StatusCurrentSet means Progress.CurrentSet is the set to do next.
	StatusCurrentSet Status = "current_set"
	// StatusExerciseComplete means the pinned exercise has no sets left
	// while other exercises still do.
	StatusExerciseComplete Status = "exercise_complete"
	// StatusWorkoutComplete means no incomplete set remains anywhere.
	StatusWorkoutComplete Status = "workout_complete"
)

// Progress describes where the workout stands.
type Progress struct {
	Status       Status
	CurrentSet   *models.WorkoutSet
	GroupKey     string
	GroupIndex   int
	ExerciseName string
	// SetOrdinal numbers CurrentSet among same-kind sets of its exercise.
	SetOrdinal     int
	Pinned         bool
	CompletedCount int
	TotalCount     int
}

// Selector holds the user's exercise pin. The zero value is automatic mode.
type Selector struct {
	selected string
}

// Selected returns the pinned group key, or "" in automatic mode.
func (s *Selector) Selected() string { return s.selected }

// Select pins key if it names a group. An unknown key (for example from a
// stale snapshot) falls back to automatic mode. It reports whether a pin is
// now set.
func (s *Selector) Select(key string, groups []Group) bool {
	if key == "" || IndexOf(groups, key) < 0 {
		s.selected = ""
		return false
	}
	s.selected = key
	return true
}

// Restore sets the pin without validation. Evaluate drops it later if the
// group no longer exists.
func (s *Selector) Restore(key string) { s.selected = key }

// Clear returns to automatic mode.
func (s *Selector) Clear() { s.selected = "" }

// Evaluate computes the current progress. A pin on a group that no longer
// exists is cleared. A pin on a finished group is kept and reported as
// StatusExerciseComplete; clearing it is up to the caller.
func (s *Selector) Evaluate(groups []Group) Progress {
	p := Progress{GroupIndex: -1}
	for _, g := range groups {
		for _, set := range g.Sets {
			p.TotalCount++
			if set.IsCompleted {
				p.CompletedCount++
			}
		}
	}

	pinned := -1
	if s.selected != "" {
		pinned = IndexOf(groups, s.selected)
		if pinned < 0 {
			s.selected = ""
		}
	}

	if p.CompletedCount == p.TotalCount {
		p.Status = StatusWorkoutComplete
		p.Pinned = pinned >= 0
		return p
	}

	if pinned >= 0 {
		p.Pinned = true
		g := groups[pinned]
		pos := g.FirstIncomplete()
		if pos < 0 {
			p.Status = StatusExerciseComplete
			p.GroupKey = g.Key
			p.GroupIndex = pinned
			p.ExerciseName = g.ExerciseName
			return p
		}
		fill(&p, g, pinned, pos)
		return p
	}

	for i, g := range groups {
		if pos := g.FirstIncomplete(); pos >= 0 {
			fill(&p, g, i, pos)
			return p
		}
	}
	// Unreachable: counts said something was incomplete.
	p.Status = StatusWorkoutComplete
	return p
}

func fill(p *Progress, g Group, index, pos int) {
	set := g.Sets[pos]
	p.Status = StatusCurrentSet
	p.CurrentSet = &set
	p.GroupKey = g.Key
	p.GroupIndex = index
	p.ExerciseName = g.ExerciseName
	p.SetOrdinal = g.Ordinal(pos)
}
