package chat

import "sync"

// Timeline is the reconciled, ordered message list for one room. Order is
// insertion order: history first, then live arrivals. Read receipts and
// emoji events patch entries in place and never reorder. Entries are never
// removed during a session; discarding the whole Timeline is the only
// deletion.
type Timeline struct {
	mu    sync.Mutex
	msgs  []Message
	index map[int64]int // id -> position in msgs
}

func NewTimeline() *Timeline {
	return &Timeline{index: make(map[int64]int)}
}

// Reset replaces the list with a fetched history, dropping any duplicate ids
// within the batch (first occurrence wins).
func (t *Timeline) Reset(history []Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.msgs = t.msgs[:0]
	t.index = make(map[int64]int, len(history))
	for _, m := range history {
		if _, ok := t.index[m.ID]; ok {
			continue
		}
		t.index[m.ID] = len(t.msgs)
		t.msgs = append(t.msgs, m)
	}
}

// Append adds m unless an entry with its id already exists. Re-delivered
// frames and the echo of a locally sent message both land here, so the id
// check is what keeps the list duplicate-free.
func (t *Timeline) Append(m Message) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.index[m.ID]; ok {
		return false
	}
	t.index[m.ID] = len(t.msgs)
	t.msgs = append(t.msgs, m)
	return true
}

// MarkRead flips isRead on every listed id present in the list and reports
// how many entries changed. Unknown ids are ignored: a receipt may race
// ahead of its message, and the loss is accepted rather than buffered.
func (t *Timeline) MarkRead(ids []int64) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	changed := 0
	for _, id := range ids {
		pos, ok := t.index[id]
		if !ok {
			continue
		}
		if !t.msgs[pos].IsRead {
			t.msgs[pos].IsRead = true
			changed++
		}
	}
	return changed
}

// SetEmoji sets or clears the reaction code on one message. Unknown ids are
// ignored.
func (t *Timeline) SetEmoji(id int64, emoji string, add bool) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	pos, ok := t.index[id]
	if !ok {
		return false
	}
	if add {
		t.msgs[pos].Emoji = emoji
	} else {
		t.msgs[pos].Emoji = ""
	}
	return true
}

// Messages returns a copy of the current list.
func (t *Timeline) Messages() []Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Message, len(t.msgs))
	copy(out, t.msgs)
	return out
}

func (t *Timeline) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.msgs)
}
