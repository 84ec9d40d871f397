package cluster

import (
	"strconv"
	"strings"
)

// slot is one cluster in the arena. Members are sorted key indices and never change.
type slot struct {
	members  []int
	pairSum  float64
	cohesion float64
	alive    bool
}

// arena owns every cluster ever created. Slots are never reused; merging
// tombstones the two inputs so queue entries pointing at them become no-ops.
type arena struct {
	slots    []slot
	registry map[string]int
	live     int
}

func newArena(capacity int) *arena {
	return &arena{
		slots:    make([]slot, 0, capacity),
		registry: make(map[string]int, capacity),
	}
}

// membershipKey is the structural identity of a cluster: its sorted members joined by commas.
func membershipKey(members []int) string {
	var b strings.Builder
	for i, m := range members {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(m))
	}
	return b.String()
}

func (a *arena) registered(members []int) bool {
	_, ok := a.registry[membershipKey(members)]
	return ok
}

// register stores a new dead slot and returns its id. Callers revive it once
// its candidate distances have been queued.
func (a *arena) register(members []int, pairSum, cohesion float64) int {
	id := len(a.slots)
	a.slots = append(a.slots, slot{members: members, pairSum: pairSum, cohesion: cohesion})
	a.registry[membershipKey(members)] = id
	return id
}

func (a *arena) revive(id int) {
	if !a.slots[id].alive {
		a.slots[id].alive = true
		a.live++
	}
}

func (a *arena) kill(id int) {
	if a.slots[id].alive {
		a.slots[id].alive = false
		a.live--
	}
}

func (a *arena) alive(id int) bool { return a.slots[id].alive }

func (a *arena) get(id int) *slot { return &a.slots[id] }

// activeIDs lists live slots in slot order.
func (a *arena) activeIDs() []int {
	ids := make([]int, 0, a.live)
	for id := range a.slots {
		if a.slots[id].alive {
			ids = append(ids, id)
		}
	}
	return ids
}

// mergeMembers merges two sorted, disjoint member lists.
func mergeMembers(x, y []int) []int {
	out := make([]int, 0, len(x)+len(y))
	i, j := 0, 0
	for i < len(x) && j < len(y) {
		if x[i] < y[j] {
			out = append(out, x[i])
			i++
		} else {
			out = append(out, y[j])
			j++
		}
	}
	out = append(out, x[i:]...)
	return append(out, y[j:]...)
}
