// Package progression decides which set of a live workout comes next.
//
// Sets are grouped into exercises by GroupKey and ordered deterministically,
// so the same sets always produce the same exercise order. The selection is
// kept as a group key, never as a position, so it survives sets being added
// or removed between runs.
package progression

import (
	"bytes"
	"cmp"
	"slices"

	"github.com/claude/liftlog/internal/models"
)

// Group is one exercise of a session with its sets in set-index order.
type Group struct {
	Key          string
	ExerciseName string
	Sets         []models.WorkoutSet
}

// MinSetIndex is the lowest set index in the group.
func (g Group) MinSetIndex() int {
	if len(g.Sets) == 0 {
		return 0
	}
	return g.Sets[0].SetIndex
}

// IsComplete reports whether every set in the group is done.
func (g Group) IsComplete() bool {
	for _, s := range g.Sets {
		if !s.IsCompleted {
			return false
		}
	}
	return true
}

// FirstIncomplete returns the position of the first unfinished set, or -1.
func (g Group) FirstIncomplete() int {
	for i, s := range g.Sets {
		if !s.IsCompleted {
			return i
		}
	}
	return -1
}

// Ordinal is the 1-based position of the set at pos among sets of the same
// kind in the group, so warm-ups and working sets are numbered separately.
func (g Group) Ordinal(pos int) int {
	if pos < 0 || pos >= len(g.Sets) {
		return 0
	}
	kind := g.Sets[pos].Kind
	n := 0
	for _, s := range g.Sets[:pos+1] {
		if s.Kind == kind {
			n++
		}
	}
	return n
}

// GroupSets clusters sets by group key. Within a group sets are sorted by set
// index (ties by set ID); groups are sorted by their minimum set index, ties
// broken by group key. The input slice is not modified.
func GroupSets(sets []models.WorkoutSet) []Group {
	byKey := make(map[string]*Group)
	var order []string
	for _, s := range sets {
		g, ok := byKey[s.GroupKey]
		if !ok {
			g = &Group{Key: s.GroupKey}
			byKey[s.GroupKey] = g
			order = append(order, s.GroupKey)
		}
		g.Sets = append(g.Sets, s)
	}

	groups := make([]Group, 0, len(order))
	for _, key := range order {
		g := byKey[key]
		slices.SortFunc(g.Sets, compareSets)
		g.ExerciseName = g.Sets[0].ExerciseName
		groups = append(groups, *g)
	}

	slices.SortFunc(groups, func(a, b Group) int {
		if c := cmp.Compare(a.MinSetIndex(), b.MinSetIndex()); c != 0 {
			return c
		}
		return cmp.Compare(a.Key, b.Key)
	})
	return groups
}

// IndexOf returns the position of the group with the given key, or -1.
func IndexOf(groups []Group, key string) int {
	for i, g := range groups {
		if g.Key == key {
			return i
		}
	}
	return -1
}

func compareSets(a, b models.WorkoutSet) int {
	if c := cmp.Compare(a.SetIndex, b.SetIndex); c != 0 {
		return c
	}
	return bytes.Compare(a.ID[:], b.ID[:])
}
