package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"MProject/module/chat/model"
	"MProject/tools/errs"
)

const msgCollection = "message"

// MessageStore 在线消息主库。
type MessageStore interface {
	// Put 持久化新消息。消息ID已存在时返回 ErrDuplicateKey，绝不覆盖。
	Put(ctx context.Context, m model.Message) error
	// ListBySender 返回某用户发出的全部在线消息，按接收方分组，组内有序。
	ListBySender(ctx context.Context, senderID string) (map[string][]model.Message, error)
	// ListByConversation 返回两个用户之间（双向）的全部在线消息，
	// 按时间戳排序，同刻按消息ID字典序。
	ListByConversation(ctx context.Context, a, b string) ([]model.Message, error)
	// Delete 删除单条消息。删除不存在的ID不是错误（幂等）。
	Delete(ctx context.Context, messageID string) error
}

// MongoMessageStore 消息集合：_id 即消息ID，唯一性由主键保证。
type MongoMessageStore struct {
	coll *mongo.Collection
}

func NewMongoMessageStore(db *mongo.Database) *MongoMessageStore {
	return &MongoMessageStore{coll: db.Collection(msgCollection)}
}

// EnsureIndexes 建立查询所需的二级索引
func (s *MongoMessageStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "sender_id", Value: 1}, {Key: "timestamp", Value: 1}}},
		{Keys: bson.D{{Key: "receiver_id", Value: 1}, {Key: "timestamp", Value: 1}}},
	})
	return errs.WrapMsg(err, "create message indexes")
}

func (s *MongoMessageStore) Put(ctx context.Context, m model.Message) error {
	_, err := s.coll.InsertOne(ctx, m)
	if mongo.IsDuplicateKeyError(err) {
		return errs.ErrDuplicateKey.WrapMsg("insert message", "id", m.MessageID)
	}
	if err != nil {
		return errs.WrapMsg(err, "insert message", "id", m.MessageID)
	}
	return nil
}

func (s *MongoMessageStore) ListBySender(ctx context.Context, senderID string) (map[string][]model.Message, error) {
	cur, err := s.coll.Find(ctx,
		bson.M{"sender_id": senderID},
		options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}, {Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, errs.WrapMsg(err, "find by sender", "sender", senderID)
	}
	var msgs []model.Message
	if err := cur.All(ctx, &msgs); err != nil {
		return nil, errs.WrapMsg(err, "decode messages", "sender", senderID)
	}

	byReceiver := make(map[string][]model.Message)
	for _, m := range msgs {
		byReceiver[m.ReceiverID] = append(byReceiver[m.ReceiverID], m)
	}
	return byReceiver, nil
}

func (s *MongoMessageStore) ListByConversation(ctx context.Context, a, b string) ([]model.Message, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"sender_id": a, "receiver_id": b},
		bson.M{"sender_id": b, "receiver_id": a},
	}}
	cur, err := s.coll.Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}, {Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, errs.WrapMsg(err, "find by conversation", "chat", model.ChatKey(a, b))
	}
	var msgs []model.Message
	if err := cur.All(ctx, &msgs); err != nil {
		return nil, errs.WrapMsg(err, "decode messages", "chat", model.ChatKey(a, b))
	}
	return msgs, nil
}

func (s *MongoMessageStore) Delete(ctx context.Context, messageID string) error {
	// DeletedCount==0 不是错误：归档重试会重复删除
	_, err := s.coll.DeleteOne(ctx, bson.M{"_id": messageID})
	return errs.WrapMsg(err, "delete message", "id", messageID)
}
