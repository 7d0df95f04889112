package domain

import "sort"

// Queue is the ordered sequence of queue items for one guild, plus
// the traversal policy (Indexer), repeat mode, and the advance-lock
// used by commands that are about to pick the next current track
// themselves.
type Queue struct {
	entries []QueueItem
	index   int

	indexer    Indexer
	repeatMode RepeatMode

	advanceLocked bool
}

// NewQueue returns an empty queue using the standard indexer and
// repeat mode off.
func NewQueue() *Queue {
	return &Queue{indexer: newStandardIndexer(), repeatMode: RepeatOff}
}

// Len returns the number of items currently queued.
func (q *Queue) Len() int { return len(q.entries) }

// IndexerKind reports the active traversal policy.
func (q *Queue) IndexerKind() IndexerKind { return q.indexer.Kind() }

// RepeatMode reports the active repeat mode.
func (q *Queue) RepeatMode() RepeatMode { return q.repeatMode }

// AdvanceLocked reports whether a command has suppressed automatic
// advance on the next track-end event.
func (q *Queue) AdvanceLocked() bool { return q.advanceLocked }

// LockAdvance sets the advance-lock; callers must ClearAdvanceLock
// once they have picked the next current track themselves.
func (q *Queue) LockAdvance() { q.advanceLocked = true }

// ClearAdvanceLock releases the advance-lock.
func (q *Queue) ClearAdvanceLock() { q.advanceLocked = false }

// Enqueue appends items in order (each carries its own requester), and
// notifies the active indexer of the newly-appended absolute indices.
// It is O(len(items)).
func (q *Queue) Enqueue(items []QueueItem) {
	if len(items) == 0 {
		return
	}
	start := len(q.entries)
	q.entries = append(q.entries, items...)
	newIndices := make([]int, len(items))
	for i := range items {
		newIndices[i] = start + i
	}
	q.indexer.OnEnqueued(q.entries, q.index, newIndices)
}

// Current returns the current item and true, or the zero value and
// false when index == len (no current track).
func (q *Queue) Current() (QueueItem, bool) {
	if q.index >= len(q.entries) {
		return QueueItem{}, false
	}
	return q.entries[q.index], true
}

// CurrentAndIndex is Current plus the absolute index, for callers
// that need to address the current slot (e.g. to replace it).
func (q *Queue) CurrentAndIndex() (QueueItem, int, bool) {
	item, ok := q.Current()
	if !ok {
		return QueueItem{}, 0, false
	}
	return item, q.index, true
}

// HasNext reports whether an Advance would move to a track, given the
// current repeat mode.
func (q *Queue) HasNext() bool {
	if q.repeatMode == RepeatTrack {
		return q.index < len(q.entries)
	}
	wrap := q.repeatMode == RepeatAll
	_, ok := q.indexer.Next(q.entries, q.index, wrap)
	return ok
}

// Position returns the 1-based current position. The second return
// value is false when there is no current track.
func (q *Queue) Position() (int, bool) {
	if q.index >= len(q.entries) {
		return 0, false
	}
	return q.index + 1, true
}

// Upcoming returns the items still to come, in indexer traversal
// order, excluding the current item.
func (q *Queue) Upcoming() []QueueItem {
	order := q.indexer.Order(q.entries, q.index)
	if len(order) <= 1 {
		return nil
	}
	out := make([]QueueItem, 0, len(order)-1)
	for _, idx := range order[1:] {
		out = append(out, q.entries[idx])
	}
	return out
}

// EntryAt returns the item at 1-based raw position, the same
// addressing Dequeue and Drain use, independent of indexer traversal
// order.
func (q *Queue) EntryAt(position int) (QueueItem, bool) {
	idx := position - 1
	if idx < 0 || idx >= len(q.entries) {
		return QueueItem{}, false
	}
	return q.entries[idx], true
}

// List returns the indexer's full traversal order (current included)
// as items, for rendering a /queue listing.
func (q *Queue) List() []QueueItem {
	order := q.indexer.Order(q.entries, q.index)
	out := make([]QueueItem, 0, len(order))
	for _, idx := range order {
		out = append(out, q.entries[idx])
	}
	return out
}

// Advance moves the cursor according to the repeat mode and indexer.
// It is a no-op when the advance-lock is held — callers that set the
// lock are expected to pick the next current track themselves. It
// returns whether the cursor landed on a track.
func (q *Queue) Advance() bool {
	if q.advanceLocked {
		_, ok := q.Current()
		return ok
	}

	switch q.repeatMode {
	case RepeatTrack:
		_, ok := q.Current()
		return ok
	case RepeatAll:
		next, ok := q.indexer.Next(q.entries, q.index, true)
		if !ok {
			q.index = len(q.entries)
			return false
		}
		q.index = next
		return true
	default: // RepeatOff
		next, ok := q.indexer.Next(q.entries, q.index, false)
		if !ok {
			q.index = len(q.entries)
			return false
		}
		q.index = next
		return true
	}
}

// SetRepeatMode changes the repeat mode. Per the downgrade rule,
// selecting all/track with fewer than two tracks remaining forces
// off.
func (q *Queue) SetRepeatMode(mode RepeatMode) {
	if mode != RepeatOff && len(q.entries) < 2 {
		mode = RepeatOff
	}
	q.repeatMode = mode
}

func (q *Queue) downgradeRepeatIfNeeded() {
	if q.repeatMode != RepeatOff && len(q.entries) < 2 {
		q.repeatMode = RepeatOff
	}
}

// SetIndexer switches the traversal policy, preserving the current
// position and reinitialising the new indexer's state from a live
// snapshot of the queue.
func (q *Queue) SetIndexer(kind IndexerKind) {
	if q.indexer.Kind() == kind {
		return
	}
	q.indexer = newIndexer(kind)
	q.indexer.Reset(q.entries, q.index)
}

// Dequeue removes the items at the given 1-based positions (sorted
// ascending or not — Dequeue sorts and dedupes them itself) and
// returns the removed items in the order they appeared in the queue.
// The cursor moves left by however many removed positions were
// strictly before it; positions at or after the cursor don't affect
// it numerically, only the contents there shift.
func (q *Queue) Dequeue(positions []int) []QueueItem {
	if len(positions) == 0 {
		return nil
	}

	sorted := append([]int(nil), positions...)
	sort.Ints(sorted)

	absolute := make([]int, 0, len(sorted))
	seen := make(map[int]bool, len(sorted))
	for _, pos := range sorted {
		idx := pos - 1
		if idx < 0 || idx >= len(q.entries) || seen[idx] {
			continue
		}
		seen[idx] = true
		absolute = append(absolute, idx)
	}
	if len(absolute) == 0 {
		return nil
	}

	removed := make([]QueueItem, len(absolute))
	for i, idx := range absolute {
		removed[i] = q.entries[idx]
	}

	removedBefore := 0
	for _, idx := range absolute {
		if idx < q.index {
			removedBefore++
		}
	}

	q.entries = removeIndices(q.entries, absolute)
	q.index -= removedBefore
	if q.index < 0 {
		q.index = 0
	}

	q.indexer.OnDequeued(absolute)
	q.downgradeRepeatIfNeeded()

	return removed
}

func removeIndices(entries []QueueItem, sortedAscendingAbsolute []int) []QueueItem {
	remove := make(map[int]bool, len(sortedAscendingAbsolute))
	for _, idx := range sortedAscendingAbsolute {
		remove[idx] = true
	}
	out := entries[:0:0]
	for i, e := range entries {
		if remove[i] {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Drain removes and returns the half-open range of 1-based positions
// [start, end).
func (q *Queue) Drain(start, end int) []QueueItem {
	if start < 1 {
		start = 1
	}
	if end > len(q.entries)+1 {
		end = len(q.entries) + 1
	}
	if start >= end {
		return nil
	}
	positions := make([]int, 0, end-start)
	for p := start; p < end; p++ {
		positions = append(positions, p)
	}
	return q.Dequeue(positions)
}

// DrainAll empties the queue entirely, resetting repeat mode to off
// and the indexer to standard.
func (q *Queue) DrainAll() []QueueItem {
	all := q.entries
	q.entries = nil
	q.index = 0
	q.repeatMode = RepeatOff
	q.indexer = newStandardIndexer()
	q.advanceLocked = false
	return all
}

// Clear is an alias for DrainAll kept for callers that don't need the
// removed items.
func (q *Queue) Clear() { q.DrainAll() }
