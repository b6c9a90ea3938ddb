package component

import (
	"context"
	"encoding/json"
)

// Message 下发给参与方的消息
type Message struct {
	TXID string `json:"txID"`
	//拼在参与方地址后面的子路径, 可为空
	Subpath string          `json:"-"`
	Data    json.RawMessage `json:"data"`
}

// Participant 事务参与方, 只负责把消息推给对方, 结果由对方回调 confirm/abort
type Participant interface {
	ID() string
	Address() string
	Deliver(ctx context.Context, msg *Message) error
}
