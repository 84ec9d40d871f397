package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCandidateQueue_Order(t *testing.T) {
	q := newQueue(0)
	q.push(newCandidate(0.5, 3, 1))
	q.push(newCandidate(0.2, 4, 2))
	q.push(newCandidate(0.5, 0, 7))
	q.push(newCandidate(0.2, 2, 1))
	q.push(newCandidate(0.5, 0, 2))

	var got []candidate
	for q.len() > 0 {
		got = append(got, q.pop())
	}

	assert.Equal(t, []candidate{
		{distance: 0.2, lo: 1, hi: 2},
		{distance: 0.2, lo: 2, hi: 4},
		{distance: 0.5, lo: 0, hi: 2},
		{distance: 0.5, lo: 0, hi: 7},
		{distance: 0.5, lo: 1, hi: 3},
	}, got)
}

func TestMembershipKey(t *testing.T) {
	assert.Equal(t, "", membershipKey(nil))
	assert.Equal(t, "7", membershipKey([]int{7}))
	assert.Equal(t, "1,12,3", membershipKey([]int{1, 12, 3}))
	// 1,12 and 11,2 would collide under naive concatenation.
	assert.NotEqual(t, membershipKey([]int{1, 12}), membershipKey([]int{11, 2}))
}

func TestMergeMembers(t *testing.T) {
	assert.Equal(t, []int{0, 1, 2, 5, 9}, mergeMembers([]int{1, 5}, []int{0, 2, 9}))
	assert.Equal(t, []int{3}, mergeMembers(nil, []int{3}))
	// Set semantics: merge order does not change the identity.
	assert.Equal(t,
		membershipKey(mergeMembers(mergeMembers([]int{0}, []int{4}), []int{2})),
		membershipKey(mergeMembers([]int{2}, mergeMembers([]int{4}, []int{0}))),
	)
}

func TestArena_Lifecycle(t *testing.T) {
	a := newArena(4)
	x := a.register([]int{0}, 0, 0.5)
	y := a.register([]int{1}, 0, 0.5)
	assert.False(t, a.alive(x), "registered slots start dead")

	a.revive(x)
	a.revive(y)
	a.revive(y)
	assert.Equal(t, 2, a.live)
	assert.Equal(t, []int{x, y}, a.activeIDs())

	a.kill(x)
	a.kill(x)
	assert.Equal(t, 1, a.live)
	assert.Equal(t, []int{y}, a.activeIDs())

	merged := mergeMembers(a.get(x).members, a.get(y).members)
	require.False(t, a.registered(merged))
	z := a.register(merged, 0.3, 0.3)
	assert.True(t, a.registered([]int{0, 1}))
	assert.Equal(t, 2, z)
	assert.Equal(t, 0.3, a.get(z).cohesion)
}
