package natsx

import (
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"MProject/global"
	"MProject/tools/errs"
)

// Connect 连接 NATS，断线自动重连。
func Connect(cfg global.NatsConfig) (*nats.Conn, error) {
	if len(cfg.Servers) == 0 {
		return nil, errs.New("nats servers missing")
	}
	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(500 * time.Millisecond),
		nats.ReconnectJitter(100*time.Millisecond, 500*time.Millisecond),
		nats.Timeout(3 * time.Second),
	}
	nc, err := nats.Connect(strings.Join(cfg.Servers, ","), opts...)
	if err != nil {
		return nil, errs.WrapMsg(err, "connect nats", "servers", strings.Join(cfg.Servers, ","))
	}
	return nc, nil
}
