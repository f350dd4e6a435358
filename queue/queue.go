// Package queue implements the kernel's thread queues.
//
// All queues live in one Table of n+2 entries: one entry per thread followed
// by two roots, the ready list (index n) and the sleep list (index n+1).
// Every queue is a circular doubly-linked list threaded through the entries
// by index; following next from a root visits each member once and returns
// to the root, and prev is the exact reverse. A thread entry that is not on
// any queue points to itself.
//
// The ready list is ordered by key, largest first, FIFO among equal keys.
// The sleep list is a delta list: each key is the number of ticks to wait
// beyond the entry in front of it, so the absolute delay of an entry is the
// sum of the keys from the root up to and including it.
package queue

import (
	"github.com/mit-pdos/go-bareos/util"
)

type entry struct {
	key  int64
	next uint64
	prev uint64
}

type Table struct {
	n uint64
	q []entry
}

// MkTable returns a table for n threads with both roots empty.
func MkTable(n uint64) *Table {
	t := &Table{
		n: n,
		q: make([]entry, n+2),
	}
	for i := range t.q {
		t.q[i].next = uint64(i)
		t.q[i].prev = uint64(i)
	}
	return t
}

// None is the sentinel returned by Dequeue on an empty list.
func (t *Table) None() uint64 {
	return t.n
}

func (t *Table) ReadyList() uint64 {
	return t.n
}

func (t *Table) SleepList() uint64 {
	return t.n + 1
}

func (t *Table) isRoot(i uint64) bool {
	return i >= t.n
}

func (t *Table) Key(i uint64) int64 {
	return t.q[i].key
}

func (t *Table) SetKey(i uint64, key int64) {
	t.q[i].key = key
}

func (t *Table) Next(i uint64) uint64 {
	return t.q[i].next
}

func (t *Table) Prev(i uint64) uint64 {
	return t.q[i].prev
}

func (t *Table) IsEmpty(root uint64) bool {
	return t.q[root].next == root
}

// Head returns the first thread on root, or None if the list is empty.
func (t *Table) Head(root uint64) uint64 {
	if t.IsEmpty(root) {
		return t.None()
	}
	return t.q[root].next
}

// Linked reports whether tid is on some list.
func (t *Table) Linked(tid uint64) bool {
	return t.q[tid].next != tid
}

// Contains walks root looking for tid.
func (t *Table) Contains(root uint64, tid uint64) bool {
	for i := t.q[root].next; i != root; i = t.q[i].next {
		if i == tid {
			return true
		}
	}
	return false
}

// Members returns the threads on root in list order.
func (t *Table) Members(root uint64) []uint64 {
	var ids []uint64
	for i := t.q[root].next; i != root; i = t.q[i].next {
		ids = append(ids, i)
	}
	return ids
}

// insertAfter links tid between prev and prev's successor.
func (t *Table) insertAfter(prev uint64, tid uint64) {
	next := t.q[prev].next
	t.q[tid].next = next
	t.q[tid].prev = prev
	t.q[next].prev = tid
	t.q[prev].next = tid
}

func (t *Table) unlink(tid uint64) {
	next := t.q[tid].next
	prev := t.q[tid].prev
	t.q[prev].next = next
	t.q[next].prev = prev
	t.q[tid].next = tid
	t.q[tid].prev = tid
}

// Enqueue inserts tid into root behind every entry whose key is at least
// key. It does nothing if tid is already on root.
func (t *Table) Enqueue(root uint64, tid uint64, key int64) {
	if t.Contains(root, tid) {
		util.DPrintf(5, "Enqueue: %d already on %d\n", tid, root)
		return
	}
	prev := root
	for next := t.q[root].next; next != root && t.q[next].key >= key; next = t.q[next].next {
		prev = next
	}
	t.q[tid].key = key
	t.insertAfter(prev, tid)
}

// SleepInsert inserts tid into the delta list root so that it wakes delay
// ticks from now. The inserted key becomes the delay remaining past its
// predecessor and the successor's key shrinks by the same amount. Entries
// with equal absolute delays stay in arrival order.
func (t *Table) SleepInsert(root uint64, tid uint64, delay int64) {
	if t.Contains(root, tid) {
		util.DPrintf(5, "SleepInsert: %d already on %d\n", tid, root)
		return
	}
	prev := root
	next := t.q[root].next
	for next != root && t.q[next].key <= delay {
		delay -= t.q[next].key
		prev = next
		next = t.q[next].next
	}
	t.q[tid].key = delay
	t.insertAfter(prev, tid)
	if next != root {
		t.q[next].key -= delay
	}
}

// Dequeue removes and returns the head of root, or None if root is empty.
func (t *Table) Dequeue(root uint64) uint64 {
	if t.IsEmpty(root) {
		return t.None()
	}
	tid := t.q[root].next
	t.unlink(tid)
	return tid
}

// Remove unlinks tid from whatever list it is on.
func (t *Table) Remove(tid uint64) bool {
	if t.isRoot(tid) || !t.Linked(tid) {
		return false
	}
	t.unlink(tid)
	return true
}

// RemoveDelta unlinks tid from a delta list, handing its remaining delay on
// to its successor so every other entry keeps its absolute delay.
func (t *Table) RemoveDelta(tid uint64) bool {
	if t.isRoot(tid) || !t.Linked(tid) {
		return false
	}
	next := t.q[tid].next
	if !t.isRoot(next) {
		t.q[next].key += t.q[tid].key
	}
	t.unlink(tid)
	return true
}
