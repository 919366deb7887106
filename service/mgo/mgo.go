package mgo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"MProject/global"
	"MProject/tools/errs"
)

// Connect 连接 MongoDB，带有限次重试。返回业务库句柄。
func Connect(ctx context.Context, cfg global.MongoConfig) (*mongo.Database, error) {
	if cfg.URI == "" {
		return nil, errs.New("mongo uri is required")
	}

	opts := options.Client().ApplyURI(cfg.URI)
	opts.SetMaxPoolSize(uint64(cfg.MaxPoolSize))
	if cfg.Username != "" {
		opts.SetAuth(options.Credential{
			Username: cfg.Username,
			Password: cfg.Password,
		})
	}

	var (
		cli *mongo.Client
		err error
	)
	retry := cfg.MaxRetry
	if retry <= 0 {
		retry = 1
	}
	for i := 0; i < retry; i++ {
		cli, err = connect(ctx, opts)
		if err == nil {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Second / 2):
		}
	}
	if err != nil {
		return nil, errs.WrapMsg(err, "connect mongodb", "uri", cfg.URI)
	}
	return cli.Database(cfg.Database), nil
}

func connect(ctx context.Context, opts *options.ClientOptions) (*mongo.Client, error) {
	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cli, err := mongo.Connect(cctx, opts)
	if err != nil {
		return nil, err
	}
	if err := cli.Ping(cctx, readpref.Primary()); err != nil {
		_ = cli.Disconnect(context.Background())
		return nil, err
	}
	return cli, nil
}
