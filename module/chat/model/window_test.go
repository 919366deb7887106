package model

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func msg(id string, ts int64) Message {
	return Message{
		MessageID:  id,
		SenderID:   "alice",
		ReceiverID: "bob",
		Content:    "hi " + id,
		Timestamp:  ts,
	}
}

func TestChatKeyUnordered(t *testing.T) {
	require.Equal(t, ChatKey("alice", "bob"), ChatKey("bob", "alice"))
	require.Equal(t, "alice:bob", ChatKey("bob", "alice"))

	a, b := SplitChatKey("alice:bob")
	require.Equal(t, "alice", a)
	require.Equal(t, "bob", b)
}

func TestWindowAppendKeepsInsertionOrder(t *testing.T) {
	var w ConversationWindow
	m1 := msg("m1", 100)
	m2 := msg("m2", 200)

	w = w.Append(m1, 2)
	w = w.Append(m2, 2)

	require.Len(t, w.Messages, 2)
	require.Equal(t, []Message{m1, m2}, w.Messages)
	require.Equal(t, "m1", w.StartIndex)
	require.Equal(t, "m2", w.EndIndex)
}

func TestWindowEvictsOldestFirst(t *testing.T) {
	var w ConversationWindow
	m1 := msg("m1", 100)
	m2 := msg("m2", 200)
	m3 := msg("m3", 300)

	w = w.Append(m1, 2)
	w = w.Append(m2, 2)
	w = w.Append(m3, 2)

	require.Len(t, w.Messages, 2)
	require.Equal(t, []Message{m2, m3}, w.Messages)
	require.Equal(t, "m2", w.StartIndex)
	require.Equal(t, "m3", w.EndIndex)
}

func TestWindowNeverExceedsMax(t *testing.T) {
	var w ConversationWindow
	for i := 0; i < 50; i++ {
		w = w.Append(msg(fmt.Sprintf("m%02d", i), int64(i)), 10)
		require.LessOrEqual(t, len(w.Messages), 10)
	}
	require.Equal(t, "m40", w.Messages[0].MessageID)
	require.Equal(t, "m49", w.Messages[len(w.Messages)-1].MessageID)
}

func TestWindowAppendIsPure(t *testing.T) {
	w1 := NewWindow([]Message{msg("m1", 100)}, 10)
	_ = w1.Append(msg("m2", 200), 10)

	require.Len(t, w1.Messages, 1)
	require.Equal(t, "m1", w1.EndIndex)
}

func TestNewWindowTruncatesHead(t *testing.T) {
	msgs := []Message{msg("m1", 1), msg("m2", 2), msg("m3", 3)}
	w := NewWindow(msgs, 2)

	require.Equal(t, []Message{msgs[1], msgs[2]}, w.Messages)
	require.Equal(t, "m2", w.StartIndex)
	require.Equal(t, "m3", w.EndIndex)
}

func TestSortMessagesTiesBrokenByID(t *testing.T) {
	a := msg("b-id", 100)
	b := msg("a-id", 100)
	c := msg("z-id", 50)
	msgs := []Message{a, b, c}

	SortMessages(msgs)

	require.Equal(t, []Message{c, b, a}, msgs)
}

func TestPeerOf(t *testing.T) {
	m := msg("m1", 1)
	require.Equal(t, "bob", PeerOf(m, "alice"))
	require.Equal(t, "alice", PeerOf(m, "bob"))
	require.Equal(t, "", PeerOf(m, "carol"))
}
