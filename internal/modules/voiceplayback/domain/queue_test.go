package domain

import (
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(title string, requester snowflake.ID) QueueItem {
	return NewQueueItem(Track{Title: title}, requester, time.Unix(0, 0))
}

func TestQueue_StandardAdvance(t *testing.T) {
	userA := snowflake.ID(1)
	q := NewQueue()
	q.Enqueue([]QueueItem{item("T1", userA), item("T2", userA), item("T3", userA)})

	cur, ok := q.Current()
	require.True(t, ok)
	assert.Equal(t, "T1", cur.Track.Title)

	require.True(t, q.Advance())
	cur, _ = q.Current()
	assert.Equal(t, "T2", cur.Track.Title)

	require.True(t, q.Advance())
	cur, _ = q.Current()
	assert.Equal(t, "T3", cur.Track.Title)

	assert.False(t, q.Advance())
	_, ok = q.Current()
	assert.False(t, ok)
}

func TestQueue_FairInterleaving(t *testing.T) {
	userA, userB := snowflake.ID(1), snowflake.ID(2)
	q := NewQueue()
	q.Enqueue([]QueueItem{
		item("T1", userA),
		item("T2", userA),
		item("T3", userB),
		item("T4", userA),
		item("T5", userB),
	})
	q.SetIndexer(IndexerFair)

	list := q.List()
	titles := make([]string, len(list))
	for i, it := range list {
		titles[i] = it.Track.Title
	}
	assert.Equal(t, []string{"T1", "T3", "T2", "T5", "T4"}, titles)
}

func TestQueue_RepeatDowngradeOnDequeue(t *testing.T) {
	userA := snowflake.ID(1)
	q := NewQueue()
	q.Enqueue([]QueueItem{item("T1", userA), item("T2", userA)})
	q.SetRepeatMode(RepeatAll)
	require.Equal(t, RepeatAll, q.RepeatMode())

	q.Dequeue([]int{2})
	assert.Equal(t, RepeatOff, q.RepeatMode())
}

func TestQueue_RepeatDowngradeRefusesWithFewerThanTwo(t *testing.T) {
	userA := snowflake.ID(1)
	q := NewQueue()
	q.Enqueue([]QueueItem{item("T1", userA)})
	q.SetRepeatMode(RepeatAll)
	assert.Equal(t, RepeatOff, q.RepeatMode())
}

func TestQueue_DequeueShiftsCursor(t *testing.T) {
	userA := snowflake.ID(1)
	q := NewQueue()
	q.Enqueue([]QueueItem{item("T1", userA), item("T2", userA), item("T3", userA)})
	require.True(t, q.Advance()) // cursor now at T2 (index 1)

	removed := q.Dequeue([]int{1})
	require.Len(t, removed, 1)
	assert.Equal(t, "T1", removed[0].Track.Title)

	cur, ok := q.Current()
	require.True(t, ok)
	assert.Equal(t, "T2", cur.Track.Title, "cursor should still point at T2 after removing an earlier item")
	assert.Equal(t, 2, q.Len())
}

func TestQueue_DequeueInvariant_IndexNeverExceedsLen(t *testing.T) {
	userA := snowflake.ID(1)
	q := NewQueue()
	q.Enqueue([]QueueItem{item("T1", userA), item("T2", userA), item("T3", userA)})
	q.Dequeue([]int{1, 2, 3})
	assert.Equal(t, 0, q.Len())
	assert.LessOrEqual(t, q.index, q.Len())
}

func TestQueue_DrainAllResetsModeAndIndexer(t *testing.T) {
	userA := snowflake.ID(1)
	q := NewQueue()
	q.Enqueue([]QueueItem{item("T1", userA), item("T2", userA)})
	q.SetIndexer(IndexerShuffled)
	q.SetRepeatMode(RepeatAll)

	q.DrainAll()
	assert.Equal(t, 0, q.Len())
	assert.Equal(t, RepeatOff, q.RepeatMode())
	assert.Equal(t, IndexerStandard, q.IndexerKind())
}

func TestQueue_ShuffledOrderCoversEachIndexOnce(t *testing.T) {
	userA := snowflake.ID(1)
	q := NewQueue()
	items := []QueueItem{item("T1", userA), item("T2", userA), item("T3", userA), item("T4", userA)}
	q.Enqueue(items)
	q.SetIndexer(IndexerShuffled)

	order := q.indexer.Order(q.entries, q.index)
	require.Len(t, order, len(items))
	assert.Equal(t, q.index, order[0], "cursor's position must be the first yielded index")

	seen := make(map[int]bool)
	for _, idx := range order {
		assert.False(t, seen[idx], "index %d yielded twice", idx)
		seen[idx] = true
	}
	assert.Len(t, seen, len(items))
}

func TestQueue_Position(t *testing.T) {
	userA := snowflake.ID(1)
	q := NewQueue()
	_, ok := q.Position()
	assert.False(t, ok)

	q.Enqueue([]QueueItem{item("T1", userA)})
	pos, ok := q.Position()
	require.True(t, ok)
	assert.Equal(t, 1, pos)
}
