package queue

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

const nthreads uint64 = 8

// checkRing verifies that root's next and prev chains agree.
func checkRing(t *testing.T, tab *Table, root uint64) {
	t.Helper()
	fwd := tab.Members(root)
	var back []uint64
	for i := tab.Prev(root); i != root; i = tab.Prev(i) {
		back = append([]uint64{i}, back...)
	}
	assert.Equal(t, fwd, back, "prev chain is not the reverse of next chain")
}

func TestInitEmpty(t *testing.T) {
	assert := assert.New(t)
	tab := MkTable(nthreads)
	ready := tab.ReadyList()
	sleep := tab.SleepList()
	assert.Equal(nthreads, ready)
	assert.Equal(nthreads+1, sleep)
	assert.Equal(ready, tab.Next(ready), "ready root does not point to itself")
	assert.Equal(ready, tab.Prev(ready))
	assert.Equal(sleep, tab.Next(sleep))
	assert.True(tab.IsEmpty(ready))
	assert.Equal(tab.None(), tab.Head(ready))
}

func TestEnqueueSingle(t *testing.T) {
	assert := assert.New(t)
	tab := MkTable(nthreads)
	ready := tab.ReadyList()
	tab.Enqueue(ready, 3, 10)
	assert.Equal(uint64(3), tab.Next(ready))
	assert.Equal(uint64(3), tab.Prev(ready))
	assert.Equal(ready, tab.Next(3))
	assert.Equal(ready, tab.Prev(3))
	assert.Equal(int64(10), tab.Key(3))
}

func TestEnqueueFIFOAmongEqual(t *testing.T) {
	assert := assert.New(t)
	tab := MkTable(nthreads)
	ready := tab.ReadyList()
	tab.Enqueue(ready, 0, 10)
	tab.Enqueue(ready, 1, 10)
	tab.Enqueue(ready, 2, 10)
	assert.Equal([]uint64{0, 1, 2}, tab.Members(ready))
	assert.Equal(uint64(2), tab.Prev(ready))
	checkRing(t, tab, ready)
}

func TestEnqueuePriority(t *testing.T) {
	assert := assert.New(t)
	tab := MkTable(nthreads)
	ready := tab.ReadyList()
	// priorities [5, 1, 5]: both fives ahead of the one, in arrival order
	tab.Enqueue(ready, 0, 5)
	tab.Enqueue(ready, 1, 1)
	tab.Enqueue(ready, 2, 5)
	assert.Equal(uint64(0), tab.Dequeue(ready))
	assert.Equal(uint64(2), tab.Dequeue(ready))
	assert.Equal(uint64(1), tab.Dequeue(ready))
	assert.Equal(tab.None(), tab.Dequeue(ready))
}

func TestEnqueueTwiceIsNoop(t *testing.T) {
	assert := assert.New(t)
	tab := MkTable(nthreads)
	ready := tab.ReadyList()
	tab.Enqueue(ready, 0, 1)
	tab.Enqueue(ready, 1, 1)
	tab.Enqueue(ready, 0, 7)
	assert.Equal([]uint64{0, 1}, tab.Members(ready))
	assert.Equal(int64(1), tab.Key(0), "key changed on duplicate enqueue")
	checkRing(t, tab, ready)
}

func TestDequeueSingleAndEmpty(t *testing.T) {
	assert := assert.New(t)
	tab := MkTable(nthreads)
	ready := tab.ReadyList()
	assert.Equal(tab.None(), tab.Dequeue(ready), "empty dequeue must return the sentinel")
	tab.Enqueue(ready, 4, 0)
	assert.Equal(uint64(4), tab.Dequeue(ready))
	assert.True(tab.IsEmpty(ready))
	assert.Equal(ready, tab.Prev(ready))
	assert.False(tab.Linked(4))
}

func TestDequeueOrderProperty(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for round := 0; round < 50; round++ {
		tab := MkTable(nthreads)
		ready := tab.ReadyList()
		prios := make([]int64, nthreads)
		for i := range prios {
			prios[i] = int64(r.Intn(4))
			tab.Enqueue(ready, uint64(i), prios[i])
		}
		checkRing(t, tab, ready)
		expect := make([]uint64, nthreads)
		for i := range expect {
			expect[i] = uint64(i)
		}
		sort.SliceStable(expect, func(a, b int) bool {
			return prios[expect[a]] > prios[expect[b]]
		})
		var got []uint64
		for tid := tab.Dequeue(ready); tid != tab.None(); tid = tab.Dequeue(ready) {
			got = append(got, tid)
		}
		assert.Equal(t, expect, got, "round %d prios %v", round, prios)
	}
}

func TestSleepInsertDeltas(t *testing.T) {
	assert := assert.New(t)
	tab := MkTable(nthreads)
	sleep := tab.SleepList()

	tab.SleepInsert(sleep, 0, 120)
	assert.Equal([]uint64{0}, tab.Members(sleep))
	assert.Equal(int64(120), tab.Key(0))

	tab.SleepInsert(sleep, 1, 140)
	assert.Equal([]uint64{0, 1}, tab.Members(sleep))
	assert.Equal(int64(120), tab.Key(0), "preceding key adjusted")
	assert.Equal(int64(20), tab.Key(1))

	tab.SleepInsert(sleep, 2, 88)
	assert.Equal([]uint64{2, 0, 1}, tab.Members(sleep))
	assert.Equal(int64(88), tab.Key(2))
	assert.Equal(int64(32), tab.Key(0))
	assert.Equal(int64(20), tab.Key(1))

	tab.SleepInsert(sleep, 3, 100)
	assert.Equal([]uint64{2, 3, 0, 1}, tab.Members(sleep))
	assert.Equal(int64(88), tab.Key(2))
	assert.Equal(int64(12), tab.Key(3))
	assert.Equal(int64(20), tab.Key(0))
	checkRing(t, tab, sleep)
}

func TestSleepInsertEqualDelays(t *testing.T) {
	assert := assert.New(t)
	tab := MkTable(nthreads)
	sleep := tab.SleepList()
	tab.SleepInsert(sleep, 0, 1)
	tab.SleepInsert(sleep, 1, 1)
	assert.Equal([]uint64{0, 1}, tab.Members(sleep))
	assert.Equal(int64(1), tab.Key(0))
	assert.Equal(int64(0), tab.Key(1))
}

func TestRemoveDelta(t *testing.T) {
	assert := assert.New(t)
	tab := MkTable(nthreads)
	sleep := tab.SleepList()
	tab.SleepInsert(sleep, 0, 5)
	tab.SleepInsert(sleep, 1, 10)
	tab.SleepInsert(sleep, 2, 15)
	tab.SleepInsert(sleep, 3, 20)

	assert.True(tab.RemoveDelta(0))
	assert.Equal(uint64(1), tab.Head(sleep))
	assert.Equal(int64(10), tab.Key(1), "new head key is its absolute delay")

	assert.True(tab.RemoveDelta(2))
	assert.Equal([]uint64{1, 3}, tab.Members(sleep))
	assert.Equal(int64(10), tab.Key(1))
	assert.Equal(int64(10), tab.Key(3))

	assert.False(tab.RemoveDelta(2), "removing an unlinked entry")
	checkRing(t, tab, sleep)
}

// absolute sums the keys from root up to each member.
func absolute(tab *Table, root uint64) map[uint64]int64 {
	abs := make(map[uint64]int64)
	var sum int64
	for _, tid := range tab.Members(root) {
		sum += tab.Key(tid)
		abs[tid] = sum
	}
	return abs
}

func TestDeltaSumProperty(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for round := 0; round < 50; round++ {
		tab := MkTable(nthreads)
		sleep := tab.SleepList()
		want := make(map[uint64]int64)
		for i := uint64(0); i < nthreads; i++ {
			d := int64(1 + r.Intn(200))
			tab.SleepInsert(sleep, i, d)
			want[i] = d
			assert.Equal(t, want, absolute(tab, sleep), "after insert of %d", i)
		}
		for _, i := range r.Perm(int(nthreads))[:nthreads/2] {
			tab.RemoveDelta(uint64(i))
			delete(want, uint64(i))
			assert.Equal(t, want, absolute(tab, sleep), "after removal of %d", i)
		}
		checkRing(t, tab, sleep)
	}
}

func TestRemoveFromReady(t *testing.T) {
	assert := assert.New(t)
	tab := MkTable(nthreads)
	ready := tab.ReadyList()
	tab.Enqueue(ready, 0, 1)
	tab.Enqueue(ready, 1, 1)
	tab.Enqueue(ready, 2, 1)
	assert.True(tab.Remove(1))
	assert.Equal([]uint64{0, 2}, tab.Members(ready))
	assert.False(tab.Remove(1))
	assert.False(tab.Remove(ready), "roots cannot be removed")
	checkRing(t, tab, ready)
}
