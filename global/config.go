package global

import (
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"

	"MProject/tools/errs"
)

// Config 进程级配置，全部来自环境变量（本地开发可放 .env）。
// 显式构造一次，按依赖注入传递，不做进程级可变全局句柄。
type Config struct {
	HTTPPort int    `env:"HTTP_PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// 分层参数
	CacheLastXMessages int   `env:"CACHE_LAST_X_MESSAGES" envDefault:"100"`  // 窗口容量 X
	DBMessageLimit     int64 `env:"DB_MESSAGE_LIMIT" envDefault:"1000"`      // 单会话在线阈值，达到即归档
	CacheTTLSeconds    int   `env:"CACHE_TTL_SECONDS" envDefault:"3600"`     // 窗口过期
	S3RetentionDays    int   `env:"S3_RETENTION_DAYS" envDefault:"365"`      // 仅提示存储层，不在本服务执行
	ArchiveAsync       bool  `env:"ARCHIVE_ASYNC" envDefault:"false"`        // true 时归档走 NATS 队列
	MetadataMaxRetry   int   `env:"METADATA_MAX_RETRY" envDefault:"3"`       // 条件更新冲突的本地重试上限

	Redis RedisConfig
	Mongo MongoConfig
	S3    S3Config
	Nats  NatsConfig
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"127.0.0.1:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	PoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"20"`
}

type MongoConfig struct {
	URI         string `env:"MONGO_URI" envDefault:"mongodb://localhost:27017"`
	Database    string `env:"MONGO_DATABASE" envDefault:"tierchat"`
	Username    string `env:"MONGO_USERNAME"`
	Password    string `env:"MONGO_PASSWORD"`
	MaxPoolSize int    `env:"MONGO_MAX_POOL_SIZE" envDefault:"20"`
	MaxRetry    int    `env:"MONGO_MAX_RETRY" envDefault:"3"`
}

type S3Config struct {
	Bucket       string `env:"S3_BUCKET_NAME"`
	Region       string `env:"S3_REGION" envDefault:"us-west-2"`
	Endpoint     string `env:"S3_ENDPOINT_URL"`
	AccessKeyID  string `env:"S3_ACCESS_KEY_ID"`
	SecretKey    string `env:"S3_SECRET_ACCESS_KEY"`
	UsePathStyle bool   `env:"S3_USE_PATH_STYLE" envDefault:"false"`
}

type NatsConfig struct {
	Servers []string `env:"NATS_SERVERS" envSeparator:"," envDefault:"nats://127.0.0.1:4222"`
	Name    string   `env:"NATS_CLIENT_NAME" envDefault:"tierchat"`
}

// CacheTTL 窗口 TTL
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// Load 读取 .env（如有）并解析环境变量
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, errs.WrapMsg(err, "parse config from env")
	}
	if cfg.CacheLastXMessages <= 0 {
		return nil, errs.New("CACHE_LAST_X_MESSAGES must be positive")
	}
	if cfg.DBMessageLimit <= 0 {
		return nil, errs.New("DB_MESSAGE_LIMIT must be positive")
	}
	return cfg, nil
}
