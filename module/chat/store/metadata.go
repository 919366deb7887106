package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"MProject/module/chat/model"
	"MProject/tools/errs"
)

const metaCollection = "chat_metadata"

// MetadataStore 会话计数与指针。
type MetadataStore interface {
	Get(ctx context.Context, chatID string) (model.ConversationMetadata, bool, error)
	// CreateOrUpdate 按 chat_id 原子地记一条新消息：
	// 不存在则以 count=1、start=end=消息ID 创建；
	// 存在则 count+1、推进 end_index 与 latest_timestamp，start_index 不动。
	// 并发写同一 chat_id 不允许丢增量。实现方若基于条件更新（CAS），
	// 冲突时返回 ErrMetadataRace，由调用方带新读重试。
	CreateOrUpdate(ctx context.Context, chatID string, m model.Message) (model.ConversationMetadata, error)
	// Reset 归档后清零：count=0，start_index 指向哨兵，latest_timestamp 不变。
	Reset(ctx context.Context, chatID string, newStartIndex string) error
}

// MongoMetadataStore 单文档 findAndModify，天然按 chat_id 串行化，无丢更新。
type MongoMetadataStore struct {
	coll *mongo.Collection
}

func NewMongoMetadataStore(db *mongo.Database) *MongoMetadataStore {
	return &MongoMetadataStore{coll: db.Collection(metaCollection)}
}

func (s *MongoMetadataStore) Get(ctx context.Context, chatID string) (model.ConversationMetadata, bool, error) {
	var md model.ConversationMetadata
	err := s.coll.FindOne(ctx, bson.M{"_id": chatID}).Decode(&md)
	if err == mongo.ErrNoDocuments {
		return md, false, nil
	}
	if err != nil {
		return md, false, errs.WrapMsg(err, "find metadata", "chat", chatID)
	}
	return md, true, nil
}

func (s *MongoMetadataStore) CreateOrUpdate(ctx context.Context, chatID string, m model.Message) (model.ConversationMetadata, error) {
	update := bson.M{
		"$inc": bson.M{"message_count": 1},
		"$set": bson.M{
			"end_index":        m.MessageID,
			"latest_timestamp": m.Timestamp,
		},
		"$setOnInsert": bson.M{"start_index": m.MessageID},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var md model.ConversationMetadata
	if err := s.coll.FindOneAndUpdate(ctx, bson.M{"_id": chatID}, update, opts).Decode(&md); err != nil {
		return md, errs.WrapMsg(err, "upsert metadata", "chat", chatID)
	}
	return md, nil
}

func (s *MongoMetadataStore) Reset(ctx context.Context, chatID string, newStartIndex string) error {
	_, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": chatID},
		bson.M{"$set": bson.M{
			"message_count": int64(0),
			"start_index":   newStartIndex,
		}},
	)
	return errs.WrapMsg(err, "reset metadata", "chat", chatID)
}
