package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"MProject/api"
	"MProject/global"
	"MProject/logger"
	"MProject/module/chat/archive"
	"MProject/module/chat/cache"
	"MProject/module/chat/ingest"
	"MProject/module/chat/store"
	"MProject/module/user"
	"MProject/service/mgo"
	"MProject/service/natsx"
	redisSrv "MProject/service/storage/redis"
	s3Srv "MProject/service/storage/s3"
)

func main() {
	cfg, err := global.Load()
	if err != nil {
		panic(err)
	}
	logger.Init(cfg.LogLevel)

	ctx := context.Background()

	db, err := mgo.Connect(ctx, cfg.Mongo)
	if err != nil {
		logger.Error("mongodb connect failed", zap.Error(err))
		panic(err)
	}

	msgs := store.NewMongoMessageStore(db)
	meta := store.NewMongoMetadataStore(db)
	dir := user.NewDirectory(db)
	if err := msgs.EnsureIndexes(ctx); err != nil {
		logger.Warn("message indexes", zap.Error(err))
	}
	if err := dir.EnsureIndexes(ctx); err != nil {
		logger.Warn("directory indexes", zap.Error(err))
	}

	rdb := redisSrv.NewClient(cfg.Redis)
	ccache := cache.NewRedisCache(rdb)

	blob, err := s3Srv.NewBlobStore(ctx, cfg.S3)
	if err != nil {
		logger.Error("cold storage init failed", zap.Error(err))
		panic(err)
	}

	pipeline := archive.NewPipeline(msgs, meta, blob)

	// 归档触发：默认内联，ARCHIVE_ASYNC=true 时走 NATS 队列
	var archiver ingest.Archiver = ingest.InlineArchiver{Pipeline: pipeline}
	if cfg.ArchiveAsync {
		nc, err := natsx.Connect(cfg.Nats)
		if err != nil {
			logger.Error("nats connect failed", zap.Error(err))
			panic(err)
		}
		worker := natsx.NewArchiveWorker(nc, pipeline)
		if err := worker.Start(ctx); err != nil {
			logger.Error("archive worker start failed", zap.Error(err))
			panic(err)
		}
		defer worker.Stop()
		archiver = natsx.NewArchiveQueue(nc)
		logger.Info("archival mode: async via nats")
	} else {
		logger.Info("archival mode: inline")
	}

	coord := ingest.NewCoordinator(dir, dir, dir, ccache, msgs, meta, archiver, ingest.Options{
		WindowSize:       cfg.CacheLastXMessages,
		DBLimit:          cfg.DBMessageLimit,
		CacheTTL:         cfg.CacheTTL(),
		MetadataMaxRetry: cfg.MetadataMaxRetry,
	})

	r := api.NewRouter(api.NewHandler(coord, dir))
	addr := fmt.Sprintf(":%d", cfg.HTTPPort)
	logger.Info("listening", zap.String("addr", addr))
	if err := r.Run(addr); err != nil {
		logger.Error("http server exited", zap.Error(err))
	}
}
