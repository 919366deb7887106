package user

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"MProject/module/user/model"
	"MProject/tools/errs"
	"MProject/tools/ids"
)

const (
	userCollection   = "user"
	blockCollection  = "block"
	groupCollection  = "group"
	memberCollection = "group_member"
)

// Directory 用户/黑名单/群组的 Mongo 实现。
// 同时充当 ingest 协调器的 UserDirectory、BlockList、GroupMembership 三个协作方。
type Directory struct {
	users   *mongo.Collection
	blocks  *mongo.Collection
	groups  *mongo.Collection
	members *mongo.Collection
	now     func() time.Time
}

func NewDirectory(db *mongo.Database) *Directory {
	return &Directory{
		users:   db.Collection(userCollection),
		blocks:  db.Collection(blockCollection),
		groups:  db.Collection(groupCollection),
		members: db.Collection(memberCollection),
		now:     time.Now,
	}
}

func (d *Directory) EnsureIndexes(ctx context.Context) error {
	_, err := d.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return errs.WrapMsg(err, "create user indexes")
	}
	_, err = d.blocks.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "blocker_id", Value: 1}, {Key: "blocked_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return errs.WrapMsg(err, "create block indexes")
	}
	_, err = d.members.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "group_id", Value: 1}, {Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return errs.WrapMsg(err, "create member indexes")
}

// CreateUser 注册。邮箱已占用时返回 ErrDuplicateKey。
func (d *Directory) CreateUser(ctx context.Context, email string) (model.User, error) {
	var zero model.User
	if email == "" {
		return zero, errs.ErrArgs.WrapMsg("email required")
	}
	u := model.User{
		UserID:    ids.NewUserID(),
		Email:     email,
		CreatedAt: d.now().UnixMilli(),
	}
	_, err := d.users.InsertOne(ctx, u)
	if mongo.IsDuplicateKeyError(err) {
		return zero, errs.ErrDuplicateKey.WrapMsg("email already registered", "email", email)
	}
	if err != nil {
		return zero, errs.WrapMsg(err, "insert user", "email", email)
	}
	return u, nil
}

// Exists 实现 ingest.UserDirectory
func (d *Directory) Exists(ctx context.Context, userID string) (bool, error) {
	err := d.users.FindOne(ctx, bson.M{"_id": userID}).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, errs.WrapMsg(err, "find user", "user", userID)
	}
	return true, nil
}

// CreateBlock blocker 拉黑 blocked；重复拉黑幂等。
func (d *Directory) CreateBlock(ctx context.Context, blockerID, blockedID string) (model.Block, error) {
	var zero model.Block
	if blockerID == "" || blockedID == "" || blockerID == blockedID {
		return zero, errs.ErrArgs.WrapMsg("blocker/blocked", "blocker", blockerID, "blocked", blockedID)
	}
	b := model.Block{
		BlockID:   ids.NewUserID(),
		BlockerID: blockerID,
		BlockedID: blockedID,
		CreatedAt: d.now().UnixMilli(),
	}
	_, err := d.blocks.InsertOne(ctx, b)
	if mongo.IsDuplicateKeyError(err) {
		return b, nil
	}
	if err != nil {
		return zero, errs.WrapMsg(err, "insert block")
	}
	return b, nil
}

// IsBlocked 实现 ingest.BlockList：接收方是否拉黑了发送方。
func (d *Directory) IsBlocked(ctx context.Context, senderID, receiverID string) (bool, error) {
	err := d.blocks.FindOne(ctx, bson.M{"blocker_id": receiverID, "blocked_id": senderID}).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, errs.WrapMsg(err, "find block", "sender", senderID, "receiver", receiverID)
	}
	return true, nil
}

func (d *Directory) CreateGroup(ctx context.Context, name string) (model.Group, error) {
	var zero model.Group
	if name == "" {
		return zero, errs.ErrArgs.WrapMsg("group name required")
	}
	g := model.Group{
		GroupID:   ids.NewGroupID(),
		Name:      name,
		CreatedAt: d.now().UnixMilli(),
	}
	if _, err := d.groups.InsertOne(ctx, g); err != nil {
		return zero, errs.WrapMsg(err, "insert group", "name", name)
	}
	return g, nil
}

// AddMember 入群；重复加入幂等。
func (d *Directory) AddMember(ctx context.Context, groupID, userID string) error {
	gm := model.GroupMember{
		GroupID:  groupID,
		UserID:   userID,
		JoinedAt: d.now().UnixMilli(),
	}
	_, err := d.members.InsertOne(ctx, gm)
	if mongo.IsDuplicateKeyError(err) {
		return nil
	}
	return errs.WrapMsg(err, "insert member", "group", groupID, "user", userID)
}

// RemoveMember 退群；不在群里也不是错误。
func (d *Directory) RemoveMember(ctx context.Context, groupID, userID string) error {
	_, err := d.members.DeleteOne(ctx, bson.M{"group_id": groupID, "user_id": userID})
	return errs.WrapMsg(err, "delete member", "group", groupID, "user", userID)
}

// MembersOf 实现 ingest.GroupMembership
func (d *Directory) MembersOf(ctx context.Context, groupID string) ([]string, error) {
	cur, err := d.members.Find(ctx, bson.M{"group_id": groupID})
	if err != nil {
		return nil, errs.WrapMsg(err, "find members", "group", groupID)
	}
	var rows []model.GroupMember
	if err := cur.All(ctx, &rows); err != nil {
		return nil, errs.WrapMsg(err, "decode members", "group", groupID)
	}
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.UserID)
	}
	return out, nil
}
