package txmanager

import (
	"context"
)

// TXStore 事务存储. 事务ID按时间倒序排列, 越老的事务ID越大,
// 因此过期与淘汰都可以用从某个ID开始的区间操作完成.
type TXStore interface {
	//插入一条新事务, ID 已存在时返回 ErrDuplicateTXID
	Insert(ctx context.Context, tx *Transaction) error
	//获取事务状态, 不存在时 ok 为 false
	GetStatus(ctx context.Context, txID string) (status TXStatus, ok bool)
	//获取事务快照
	GetTX(ctx context.Context, txID string) (*Transaction, error)
	//更新一个参与方的状态, 并在同一把锁内重新聚合事务状态
	UpdateSubstate(ctx context.Context, txID string, service string, status SubStatus) error
	//删除所有ID >= horizon 的事务, 即早于淘汰水位的事务
	EvictOlderThan(ctx context.Context, horizonID string) int
	//把ID >= horizon 的 pending 事务置为 expired
	ExpireStale(ctx context.Context, horizonID string) int
	Len(ctx context.Context) int
}
