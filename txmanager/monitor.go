package txmanager

import (
	"context"
	"runtime/debug"
	"time"

	"golang_saga/log"
)

// run 后台过期扫描, 直到 Stop
func (t *TXManager) run() {
	defer close(t.done)
	for {
		select {
		case <-t.ctx.Done():
			return
		case <-t.opts.Clock.After(t.opts.MonitorTick):
			t.safeSweep()
		}
	}
}

func (t *TXManager) safeSweep() {
	defer func() {
		if r := recover(); r != nil {
			log.ErrorContextf(t.ctx, "sweep panic (recovered): %v %s", r, string(debug.Stack()))
		}
	}()
	t.sweep(t.ctx, t.opts.Clock.Now())
}

// sweep 先删除超过淘汰水位的事务, 再把超过过期水位仍 pending 的事务置为 expired
func (t *TXManager) sweep(ctx context.Context, now time.Time) (evicted, expired int) {
	evicted = t.evictDead(ctx, now)
	expired = t.txStore.ExpireStale(ctx, EncodeTXID(now.Add(-t.opts.Timeout)))
	live := t.txStore.Len(ctx)
	t.opts.Metrics.Swept(evicted, expired, live)
	log.DebugContextf(ctx, "sweep: live %d, evicted %d, expired %d", live, evicted, expired)
	return evicted, expired
}

func (t *TXManager) evictDead(ctx context.Context, now time.Time) int {
	return t.txStore.EvictOlderThan(ctx, EncodeTXID(now.Add(-t.opts.DeadTimeout)))
}
