package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimelineAppendDedup(t *testing.T) {
	tl := NewTimeline()

	assert.True(t, tl.Append(Message{ID: 1, Content: "first"}))
	assert.True(t, tl.Append(Message{ID: 2, Content: "second"}))
	assert.False(t, tl.Append(Message{ID: 2, Content: "redelivered"}), "duplicate id must not append")

	msgs := tl.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "second", msgs[1].Content, "original entry survives redelivery")
}

func TestTimelineResetDropsBatchDuplicates(t *testing.T) {
	tl := NewTimeline()
	tl.Reset([]Message{
		{ID: 1, Content: "a"},
		{ID: 2, Content: "b"},
		{ID: 1, Content: "dup"},
	})
	require.Equal(t, 2, tl.Len())
	assert.Equal(t, "a", tl.Messages()[0].Content)
}

func TestTimelineMarkReadIdempotent(t *testing.T) {
	tl := NewTimeline()
	tl.Reset([]Message{{ID: 1}, {ID: 2}, {ID: 3}})

	assert.Equal(t, 2, tl.MarkRead([]int64{1, 2}))
	// second application changes nothing and must not fail
	assert.Equal(t, 0, tl.MarkRead([]int64{1, 2}))

	msgs := tl.Messages()
	assert.True(t, msgs[0].IsRead)
	assert.True(t, msgs[1].IsRead)
	assert.False(t, msgs[2].IsRead)
}

func TestTimelineMarkReadUnknownIDsIgnored(t *testing.T) {
	tl := NewTimeline()
	tl.Reset([]Message{{ID: 1}})
	assert.Equal(t, 1, tl.MarkRead([]int64{1, 99, 100}))
}

func TestTimelineEmojiToggle(t *testing.T) {
	tl := NewTimeline()
	tl.Reset([]Message{{ID: 7}})

	assert.True(t, tl.SetEmoji(7, "\U0001F44D", true))
	assert.Equal(t, "\U0001F44D", tl.Messages()[0].Emoji)

	assert.True(t, tl.SetEmoji(7, "\U0001F44D", false))
	assert.Empty(t, tl.Messages()[0].Emoji)

	assert.False(t, tl.SetEmoji(999, "x", true), "unknown id ignored")
}

func TestTimelineOrderIsArrivalOrder(t *testing.T) {
	tl := NewTimeline()
	tl.Reset([]Message{{ID: 5}, {ID: 3}})
	tl.Append(Message{ID: 9})
	tl.Append(Message{ID: 1})

	var ids []int64
	for _, m := range tl.Messages() {
		ids = append(ids, m.ID)
	}
	// history order, then live arrival order; never re-sorted by id or time
	assert.Equal(t, []int64{5, 3, 9, 1}, ids)
}

func TestTimelineMessagesReturnsCopy(t *testing.T) {
	tl := NewTimeline()
	tl.Reset([]Message{{ID: 1, Content: "original"}})

	got := tl.Messages()
	got[0].Content = "mutated"
	assert.Equal(t, "original", tl.Messages()[0].Content)
}
