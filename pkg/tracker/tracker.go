// Package tracker records which nodes changed since the last flush.
//
// A Tracker is owned by a single tree and has no internal locking: the owner
// serializes every call, including Drain.
package tracker

// Changes is the drained content of a Tracker, in marking order.
// An id present in both Dead and Dirty was replaced during the cycle; its
// tombstone must be applied before its new state.
type Changes[N any] struct {
	Dirty []N
	Dead  []string
}

// Empty reports whether there is nothing to announce.
func (c Changes[N]) Empty() bool {
	return len(c.Dirty) == 0 && len(c.Dead) == 0
}

// Tracker accumulates dirty and dead node identifiers between flushes.
type Tracker[N any] struct {
	dirty      map[string]N
	dirtyOrder []string

	dead      map[string]struct{}
	deadOrder []string

	// created holds ids that entered the tree during the current cycle.
	created map[string]struct{}
}

// New returns an empty tracker.
func New[N any]() *Tracker[N] {
	t := &Tracker[N]{}
	t.reset()
	return t
}

func (t *Tracker[N]) reset() {
	t.dirty = make(map[string]N)
	t.dirtyOrder = nil
	t.dead = make(map[string]struct{})
	t.deadOrder = nil
	t.created = make(map[string]struct{})
}

// MarkCreated records a node that entered the tree.
// If it is removed again before the next drain, it is not announced at all.
// Re-creating an identifier that is pending as dead keeps the tombstone: the
// drain then reports the id in both Dead and Dirty, meaning replace.
func (t *Tracker[N]) MarkCreated(id string, n N) {
	if _, wasDead := t.dead[id]; !wasDead {
		t.created[id] = struct{}{}
	}
	t.MarkDirty(id, n)
}

// MarkDirty records that the node's full attribute state must be re-sent.
func (t *Tracker[N]) MarkDirty(id string, n N) {
	if _, ok := t.dirty[id]; !ok {
		t.dirtyOrder = append(t.dirtyOrder, id)
	}
	t.dirty[id] = n
}

// MarkDead records that the node must be announced as removed.
func (t *Tracker[N]) MarkDead(id string) {
	delete(t.dirty, id)
	if _, fresh := t.created[id]; fresh {
		delete(t.created, id)
		return
	}
	if _, ok := t.dead[id]; !ok {
		t.deadOrder = append(t.deadOrder, id)
	}
	t.dead[id] = struct{}{}
}

// Pending reports whether a drain would return anything.
func (t *Tracker[N]) Pending() bool {
	return len(t.dirty) > 0 || len(t.dead) > 0
}

// Len returns the number of pending dirty and dead entries.
func (t *Tracker[N]) Len() (dirty, dead int) {
	return len(t.dirty), len(t.dead)
}

// Drain returns the pending changes and resets the tracker.
func (t *Tracker[N]) Drain() Changes[N] {
	var out Changes[N]

	seen := make(map[string]struct{}, len(t.dirty))
	for _, id := range t.dirtyOrder {
		n, ok := t.dirty[id]
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out.Dirty = append(out.Dirty, n)
	}

	seen = make(map[string]struct{}, len(t.dead))
	for _, id := range t.deadOrder {
		if _, ok := t.dead[id]; !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out.Dead = append(out.Dead, id)
	}

	t.reset()
	return out
}
