package archive

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"MProject/module/chat/model"
	"MProject/tools/errs"
)

// ---- in-memory fakes ----

type memMsgStore struct {
	mu      sync.Mutex
	msgs    map[string]model.Message
	failDel string // 删除该ID时报错，模拟删到一半崩溃
}

func newMemMsgStore() *memMsgStore {
	return &memMsgStore{msgs: map[string]model.Message{}}
}

func (s *memMsgStore) Put(_ context.Context, m model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.msgs[m.MessageID]; ok {
		return errs.ErrDuplicateKey.Wrap()
	}
	s.msgs[m.MessageID] = m
	return nil
}

func (s *memMsgStore) ListBySender(_ context.Context, senderID string) (map[string][]model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string][]model.Message{}
	for _, m := range s.msgs {
		if m.SenderID == senderID {
			out[m.ReceiverID] = append(out[m.ReceiverID], m)
		}
	}
	for k := range out {
		model.SortMessages(out[k])
	}
	return out, nil
}

func (s *memMsgStore) ListByConversation(_ context.Context, a, b string) ([]model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Message
	for _, m := range s.msgs {
		if (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a) {
			out = append(out, m)
		}
	}
	model.SortMessages(out)
	return out, nil
}

func (s *memMsgStore) Delete(_ context.Context, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failDel != "" && messageID == s.failDel {
		return errs.New("simulated delete failure")
	}
	delete(s.msgs, messageID)
	return nil
}

func (s *memMsgStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.msgs)
}

type memMetaStore struct {
	mu   sync.Mutex
	data map[string]model.ConversationMetadata
}

func newMemMetaStore() *memMetaStore {
	return &memMetaStore{data: map[string]model.ConversationMetadata{}}
}

func (s *memMetaStore) Get(_ context.Context, chatID string) (model.ConversationMetadata, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	md, ok := s.data[chatID]
	return md, ok, nil
}

func (s *memMetaStore) CreateOrUpdate(_ context.Context, chatID string, m model.Message) (model.ConversationMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	md, ok := s.data[chatID]
	if !ok {
		md = model.ConversationMetadata{ChatID: chatID, StartIndex: m.MessageID}
	}
	md.MessageCount++
	md.EndIndex = m.MessageID
	md.LatestTimestamp = m.Timestamp
	s.data[chatID] = md
	return md, nil
}

func (s *memMetaStore) Reset(_ context.Context, chatID, newStartIndex string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	md := s.data[chatID]
	md.ChatID = chatID
	md.MessageCount = 0
	md.StartIndex = newStartIndex
	s.data[chatID] = md
	return nil
}

type memBlob struct {
	mu      sync.Mutex
	objects map[string][]byte
	fail    bool
}

func newMemBlob() *memBlob {
	return &memBlob{objects: map[string][]byte{}}
}

func (b *memBlob) PutObject(_ context.Context, key string, body []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail {
		return errs.New("simulated cold storage outage")
	}
	b.objects[key] = append([]byte(nil), body...)
	return nil
}

// ---- tests ----

func fixedClock() time.Time {
	return time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)
}

func seed(t *testing.T, s *memMsgStore, msgs ...model.Message) {
	t.Helper()
	for _, m := range msgs {
		require.NoError(t, s.Put(context.Background(), m))
	}
}

func TestObjectKeyFormat(t *testing.T) {
	// 2024-03-05 是闰年第 65 天
	key := ObjectKey("alice", "bob", fixedClock())
	require.Equal(t, "alice/2024/65/14/bob.json", key)

	// 非 UTC 时间一律折算到 UTC
	loc := time.FixedZone("UTC+8", 8*3600)
	key = ObjectKey("alice", "bob", time.Date(2024, 3, 5, 22, 30, 0, 0, loc))
	require.Equal(t, "alice/2024/65/14/bob.json", key)
}

func TestRunArchivesAndPurges(t *testing.T) {
	msgs := newMemMsgStore()
	meta := newMemMetaStore()
	blob := newMemBlob()
	ctx := context.Background()

	m1 := model.Message{MessageID: "m1", SenderID: "alice", ReceiverID: "bob", Content: "a", Timestamp: 100}
	m2 := model.Message{MessageID: "m2", SenderID: "bob", ReceiverID: "alice", Content: "b", Timestamp: 200}
	m3 := model.Message{MessageID: "m3", SenderID: "alice", ReceiverID: "bob", Content: "c", Timestamp: 300}
	seed(t, msgs, m1, m2, m3)
	for _, m := range []model.Message{m1, m2, m3} {
		_, err := meta.CreateOrUpdate(ctx, model.ChatKey("alice", "bob"), m)
		require.NoError(t, err)
	}

	p := NewPipeline(msgs, meta, blob).WithClock(fixedClock)
	require.NoError(t, p.Run(ctx, Job{OwnerID: "alice", OtherID: "bob"}))

	require.Equal(t, 0, msgs.count())

	body, ok := blob.objects["alice/2024/65/14/bob.json"]
	require.True(t, ok)
	var archived []model.Message
	require.NoError(t, json.Unmarshal(body, &archived))
	require.Equal(t, []model.Message{m1, m2, m3}, archived)

	md, ok, err := meta.Get(ctx, model.ChatKey("alice", "bob"))
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 0, md.MessageCount)
	require.Equal(t, model.NoLiveMessages, md.StartIndex)
	require.EqualValues(t, 300, md.LatestTimestamp) // Reset 不碰 latest_timestamp
}

func TestRunWriteFailureLeavesMessagesLive(t *testing.T) {
	msgs := newMemMsgStore()
	meta := newMemMetaStore()
	blob := newMemBlob()
	blob.fail = true
	ctx := context.Background()

	seed(t, msgs,
		model.Message{MessageID: "m1", SenderID: "alice", ReceiverID: "bob", Timestamp: 1},
		model.Message{MessageID: "m2", SenderID: "alice", ReceiverID: "bob", Timestamp: 2},
	)

	p := NewPipeline(msgs, meta, blob).WithClock(fixedClock)
	err := p.Run(ctx, Job{OwnerID: "alice", OtherID: "bob"})
	require.Error(t, err)
	require.True(t, errs.IsCode(err, errs.CodeArchiveWrite))

	// 一条都不能删
	require.Equal(t, 2, msgs.count())
	require.Empty(t, blob.objects)
}

func TestRunEmptyConversationIsNoop(t *testing.T) {
	p := NewPipeline(newMemMsgStore(), newMemMetaStore(), newMemBlob()).WithClock(fixedClock)
	require.NoError(t, p.Run(context.Background(), Job{OwnerID: "alice", OtherID: "bob"}))
}

func TestRunRetryAfterPartialDeletion(t *testing.T) {
	msgs := newMemMsgStore()
	meta := newMemMetaStore()
	blob := newMemBlob()
	ctx := context.Background()

	m1 := model.Message{MessageID: "m1", SenderID: "alice", ReceiverID: "bob", Timestamp: 1}
	m2 := model.Message{MessageID: "m2", SenderID: "alice", ReceiverID: "bob", Timestamp: 2}
	seed(t, msgs, m1, m2)

	// 第一轮删到 m2 报错，模拟中途崩溃
	msgs.failDel = "m2"
	p := NewPipeline(msgs, meta, blob).WithClock(fixedClock)
	require.Error(t, p.Run(ctx, Job{OwnerID: "alice", OtherID: "bob"}))
	require.Equal(t, 1, msgs.count())

	// 重试：把剩下的再归档一遍。冷存储可能留重复副本，但绝不丢消息。
	msgs.failDel = ""
	require.NoError(t, p.Run(ctx, Job{OwnerID: "alice", OtherID: "bob"}))
	require.Equal(t, 0, msgs.count())

	var archived []model.Message
	require.NoError(t, json.Unmarshal(blob.objects["alice/2024/65/14/bob.json"], &archived))
	require.Equal(t, []model.Message{m2}, archived) // 第二轮对象只含剩余消息
}

func TestRunTwiceNeverLosesMessages(t *testing.T) {
	msgs := newMemMsgStore()
	meta := newMemMetaStore()
	blob := newMemBlob()
	ctx := context.Background()

	seed(t, msgs, model.Message{MessageID: "m1", SenderID: "alice", ReceiverID: "bob", Timestamp: 1})

	p := NewPipeline(msgs, meta, blob).WithClock(fixedClock)
	require.NoError(t, p.Run(ctx, Job{OwnerID: "alice", OtherID: "bob"}))
	require.NoError(t, p.Run(ctx, Job{OwnerID: "alice", OtherID: "bob"}))

	require.Equal(t, 0, msgs.count())
	require.Len(t, blob.objects, 1)
}
