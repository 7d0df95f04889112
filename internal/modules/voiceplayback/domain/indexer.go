package domain

import (
	"fmt"
	"math/rand"
)

// IndexerKind names the three traversal policies a queue can use.
type IndexerKind int

const (
	IndexerStandard IndexerKind = iota
	IndexerFair
	IndexerShuffled
)

func (k IndexerKind) String() string {
	switch k {
	case IndexerStandard:
		return "standard"
	case IndexerFair:
		return "fair"
	case IndexerShuffled:
		return "shuffled"
	default:
		return fmt.Sprintf("IndexerKind(%d)", int(k))
	}
}

// Indexer decorates a queue's traversal order without reordering the
// underlying entries slice. Order reports, from the cursor onward,
// the absolute entry indices in the order they will become current;
// Order()[0] is always the cursor itself.
//
// OnEnqueued/OnDequeued/Reset let stateful indexers (shuffled) keep
// their internal bookkeeping in sync with mutations; stateless
// indexers (standard, fair) can leave them as no-ops because Order is
// recomputed from the live entries on every call.
type Indexer interface {
	Kind() IndexerKind
	Order(entries []QueueItem, cursor int) []int
	// Next consumes one traversal step past cursor, returning the next
	// absolute index. If the traversal is exhausted and wrap is true,
	// it wraps to the start of the whole queue; otherwise ok is false.
	Next(entries []QueueItem, cursor int, wrap bool) (nextIndex int, ok bool)
	OnEnqueued(entries []QueueItem, cursor int, newIndices []int)
	OnDequeued(removedAbsolute []int)
	Reset(entries []QueueItem, cursor int)
}

// standardIndexer is the identity traversal: current, current+1, ….
type standardIndexer struct{}

func newStandardIndexer() *standardIndexer { return &standardIndexer{} }

func (*standardIndexer) Kind() IndexerKind { return IndexerStandard }

func (*standardIndexer) Order(entries []QueueItem, cursor int) []int {
	if cursor >= len(entries) {
		return nil
	}
	order := make([]int, 0, len(entries)-cursor)
	for i := cursor; i < len(entries); i++ {
		order = append(order, i)
	}
	return order
}

func (*standardIndexer) Next(entries []QueueItem, cursor int, wrap bool) (int, bool) {
	if cursor+1 < len(entries) {
		return cursor + 1, true
	}
	if wrap && len(entries) > 0 {
		return 0, true
	}
	return len(entries), false
}

func (*standardIndexer) OnEnqueued([]QueueItem, int, []int) {}
func (*standardIndexer) OnDequeued([]int)                   {}
func (*standardIndexer) Reset([]QueueItem, int)             {}

// fairIndexer groups the entries from the cursor onward into one
// bucket per distinct requester (buckets ordered by each requester's
// first appearance, not by adjacency — see DESIGN.md for why this
// reading was chosen over a strictly-contiguous-run reading), and
// yields indices by round-robining one item per bucket per round.
// It is stateless: grouping depends only on the live entries, so
// recomputing on every call is equivalent to maintaining the buckets
// incrementally.
type fairIndexer struct{}

func newFairIndexer() *fairIndexer { return &fairIndexer{} }

func (*fairIndexer) Kind() IndexerKind { return IndexerFair }

func (*fairIndexer) Order(entries []QueueItem, cursor int) []int {
	if cursor >= len(entries) {
		return nil
	}

	type bucket struct {
		requester UserID
		indices   []int
	}
	var buckets []*bucket
	byRequester := make(map[UserID]*bucket)

	for i := cursor; i < len(entries); i++ {
		r := entries[i].RequesterID
		b, ok := byRequester[r]
		if !ok {
			b = &bucket{requester: r}
			byRequester[r] = b
			buckets = append(buckets, b)
		}
		b.indices = append(b.indices, i)
	}

	order := make([]int, 0, len(entries)-cursor)
	for round := 0; ; round++ {
		any := false
		for _, b := range buckets {
			if round < len(b.indices) {
				order = append(order, b.indices[round])
				any = true
			}
		}
		if !any {
			break
		}
	}
	return order
}

func (f *fairIndexer) Next(entries []QueueItem, cursor int, wrap bool) (int, bool) {
	order := f.Order(entries, cursor)
	if len(order) > 1 {
		return order[1], true
	}
	if wrap {
		full := f.Order(entries, 0)
		if len(full) > 0 {
			return full[0], true
		}
	}
	return len(entries), false
}

func (*fairIndexer) OnEnqueued([]QueueItem, int, []int) {}
func (*fairIndexer) OnDequeued([]int)                   {}
func (*fairIndexer) Reset([]QueueItem, int)             {}

// shuffledIndexer holds a persistent random permutation of the
// "upcoming" absolute indices (those strictly after the cursor at the
// time of the last Reset), so repeated Order calls return a stable
// order instead of reshuffling on every read.
type shuffledIndexer struct {
	rnd      *rand.Rand
	upcoming []int
}

func newShuffledIndexer(rnd *rand.Rand) *shuffledIndexer {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(1))
	}
	return &shuffledIndexer{rnd: rnd}
}

func (*shuffledIndexer) Kind() IndexerKind { return IndexerShuffled }

func (s *shuffledIndexer) Order(entries []QueueItem, cursor int) []int {
	if cursor >= len(entries) {
		return nil
	}
	order := make([]int, 0, 1+len(s.upcoming))
	order = append(order, cursor)
	order = append(order, s.upcoming...)
	return order
}

// Reset rebuilds the permutation from scratch: a Fisher-Yates shuffle
// of (cursor+1, len(entries)).
func (s *shuffledIndexer) Reset(entries []QueueItem, cursor int) {
	var upcoming []int
	for i := cursor + 1; i < len(entries); i++ {
		upcoming = append(upcoming, i)
	}
	s.rnd.Shuffle(len(upcoming), func(i, j int) {
		upcoming[i], upcoming[j] = upcoming[j], upcoming[i]
	})
	s.upcoming = upcoming
}

// OnEnqueued inserts each newly-appended absolute index at a uniformly
// random position among the current upcoming pool.
func (s *shuffledIndexer) OnEnqueued(_ []QueueItem, _ int, newIndices []int) {
	for _, idx := range newIndices {
		if len(s.upcoming) == 0 {
			s.upcoming = append(s.upcoming, idx)
			continue
		}
		pos := s.rnd.Intn(len(s.upcoming) + 1)
		s.upcoming = append(s.upcoming, 0)
		copy(s.upcoming[pos+1:], s.upcoming[pos:])
		s.upcoming[pos] = idx
	}
}

// OnDequeued removes the given absolute indices from the permutation
// (if present) and renumbers the survivors to account for the
// resulting compaction of the entries slice.
func (s *shuffledIndexer) OnDequeued(removedAbsolute []int) {
	removed := make(map[int]bool, len(removedAbsolute))
	for _, idx := range removedAbsolute {
		removed[idx] = true
	}

	shift := func(idx int) int {
		n := 0
		for _, r := range removedAbsolute {
			if r < idx {
				n++
			}
		}
		return idx - n
	}

	survivors := s.upcoming[:0:0]
	for _, idx := range s.upcoming {
		if removed[idx] {
			continue
		}
		survivors = append(survivors, shift(idx))
	}
	s.upcoming = survivors
}

// popNext removes and returns the first upcoming index, advancing the
// permutation's notion of "current". It is used by Next.
func (s *shuffledIndexer) popNext() (int, bool) {
	if len(s.upcoming) == 0 {
		return 0, false
	}
	next := s.upcoming[0]
	s.upcoming = s.upcoming[1:]
	return next, true
}

func (s *shuffledIndexer) Next(entries []QueueItem, cursor int, wrap bool) (int, bool) {
	if next, ok := s.popNext(); ok {
		return next, true
	}
	if wrap && len(entries) > 0 {
		s.Reset(entries, -1)
		if next, ok := s.popNext(); ok {
			return next, true
		}
	}
	return len(entries), false
}

func newIndexer(kind IndexerKind) Indexer {
	switch kind {
	case IndexerFair:
		return newFairIndexer()
	case IndexerShuffled:
		return newShuffledIndexer(nil)
	default:
		return newStandardIndexer()
	}
}
