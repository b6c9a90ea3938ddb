package example

import (
	"context"
	"errors"
	"fmt"

	"github.com/xiaoxuxiansheng/redis_lock"
)

func BuildTXKey(componentID, txID string) string {
	return fmt.Sprintf("saga:%s:tx:%s", componentID, txID)
}

func BuildTXLockKey(componentID, txID string) string {
	return fmt.Sprintf("saga:%s:tx:lock:%s", componentID, txID)
}

func BuildTXDetailKey(componentID, txID string) string {
	return fmt.Sprintf("saga:%s:tx:detail:%s", componentID, txID)
}

func BuildDataKey(componentID, txID, bizID string) string {
	return fmt.Sprintf("saga:%s:data:%s:%s", componentID, txID, bizID)
}

// RedisStateStore 用 redis 记录事务状态, 同一 txID 的操作由分布式锁串行化
type RedisStateStore struct {
	id     string
	client *redis_lock.Client
}

func NewRedisStateStore(id string, client *redis_lock.Client) *RedisStateStore {
	return &RedisStateStore{
		id:     id,
		client: client,
	}
}

func (r *RedisStateStore) lock(ctx context.Context, txID string) (func(), error) {
	lock := redis_lock.NewRedisLock(BuildTXLockKey(r.id, txID), r.client)
	if err := lock.Lock(ctx); err != nil {
		return nil, err
	}
	return func() {
		_ = lock.Unlock(ctx)
	}, nil
}

func (r *RedisStateStore) Begin(ctx context.Context, txID, bizID string) (bool, error) {
	unlock, err := r.lock(ctx, txID)
	if err != nil {
		return false, err
	}
	defer unlock()

	state, err := r.client.Get(ctx, BuildTXKey(r.id, txID))
	if err != nil && !errors.Is(err, redis_lock.ErrNil) {
		return false, err
	}
	if state != "" {
		return false, nil
	}

	if _, err = r.client.Set(ctx, BuildTXDetailKey(r.id, txID), bizID); err != nil {
		return false, err
	}
	reply, err := r.client.SetNX(ctx, BuildDataKey(r.id, txID, bizID), DataFrozen.String())
	if err != nil {
		return false, err
	}
	if reply != 1 {
		// 数据已被其他事务冻结
		return false, nil
	}
	if _, err = r.client.Set(ctx, BuildTXKey(r.id, txID), TXReceived.String()); err != nil {
		return false, err
	}
	return true, nil
}

func (r *RedisStateStore) Finish(ctx context.Context, txID string, state TXState) error {
	unlock, err := r.lock(ctx, txID)
	if err != nil {
		return err
	}
	defer unlock()

	current, err := r.client.Get(ctx, BuildTXKey(r.id, txID))
	if err != nil {
		return err
	}
	if current == state.String() {
		return nil
	}
	if current != TXReceived.String() {
		return fmt.Errorf("%w: %s -> %s, txid: %s", ErrInvalidTransition, current, state, txID)
	}

	bizID, err := r.client.Get(ctx, BuildTXDetailKey(r.id, txID))
	if err != nil && !errors.Is(err, redis_lock.ErrNil) {
		return err
	}
	if bizID != "" {
		if state == TXConfirmed {
			_, err = r.client.Set(ctx, BuildDataKey(r.id, txID, bizID), DataSuccessful.String())
		} else {
			// 删除对应的 frozen 冻结记录
			err = r.client.Del(ctx, BuildDataKey(r.id, txID, bizID))
		}
		if err != nil {
			return err
		}
	}

	_, err = r.client.Set(ctx, BuildTXKey(r.id, txID), state.String())
	return err
}

func (r *RedisStateStore) Get(ctx context.Context, txID string) (TXState, error) {
	state, err := r.client.Get(ctx, BuildTXKey(r.id, txID))
	if errors.Is(err, redis_lock.ErrNil) {
		return "", nil
	}
	return TXState(state), err
}
