package txmanager

import (
	"context"
	"sync"

	"github.com/ryszard/goskiplist/skiplist"

	"golang_saga/log"
)

// MemoryTXStore 进程内的事务存储, 重启即丢失.
// 一把互斥锁保护整个有序表, 每次只在单个操作期间持有.
type MemoryTXStore struct {
	mux  sync.Mutex
	txs  *skiplist.SkipList
	full bool
}

type MemoryStoreOption func(*MemoryTXStore)

// WithFullScan 过期扫描不在第一条已过期的事务处提前停止, 每次都扫完整个过期区间
func WithFullScan(full bool) MemoryStoreOption {
	return func(m *MemoryTXStore) {
		m.full = full
	}
}

func NewMemoryTXStore(opts ...MemoryStoreOption) *MemoryTXStore {
	m := &MemoryTXStore{
		txs: skiplist.NewStringMap(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MemoryTXStore) Insert(ctx context.Context, tx *Transaction) error {
	m.mux.Lock()
	defer m.mux.Unlock()
	if _, ok := m.txs.Get(tx.TXID); ok {
		return ErrDuplicateTXID
	}
	m.txs.Set(tx.TXID, tx)
	return nil
}

func (m *MemoryTXStore) get(txID string) (*Transaction, bool) {
	v, ok := m.txs.Get(txID)
	if !ok {
		return nil, false
	}
	return v.(*Transaction), true
}

func (m *MemoryTXStore) GetStatus(ctx context.Context, txID string) (TXStatus, bool) {
	m.mux.Lock()
	defer m.mux.Unlock()
	tx, ok := m.get(txID)
	if !ok {
		return "", false
	}
	return tx.Status, true
}

func (m *MemoryTXStore) GetTX(ctx context.Context, txID string) (*Transaction, error) {
	m.mux.Lock()
	defer m.mux.Unlock()
	tx, ok := m.get(txID)
	if !ok {
		return nil, ErrTXNotFound
	}
	return tx.clone(), nil
}

func (m *MemoryTXStore) UpdateSubstate(ctx context.Context, txID string, service string, status SubStatus) error {
	m.mux.Lock()
	defer m.mux.Unlock()
	tx, ok := m.get(txID)
	if !ok {
		return ErrTXNotFound
	}
	sub := tx.substate(service)
	if sub == nil {
		return ErrUnknownService
	}
	if tx.Status.Final() {
		return ErrTXFinalized
	}
	sub.SubStatus = status
	tx.Status = Aggregate(tx.Substates)
	log.DebugContextf(ctx, "transaction %s: %s -> %s, status %s", txID, service, status, tx.Status)
	return nil
}

func (m *MemoryTXStore) EvictOlderThan(ctx context.Context, horizonID string) int {
	m.mux.Lock()
	defer m.mux.Unlock()

	it := m.txs.Seek(horizonID)
	if it == nil {
		return 0
	}
	var dead []interface{}
	for ok := true; ok; ok = it.Next() {
		dead = append(dead, it.Key())
	}
	it.Close()

	for _, key := range dead {
		m.txs.Delete(key)
	}
	return len(dead)
}

func (m *MemoryTXStore) ExpireStale(ctx context.Context, horizonID string) int {
	m.mux.Lock()
	defer m.mux.Unlock()

	it := m.txs.Seek(horizonID)
	if it == nil {
		return 0
	}
	defer it.Close()

	var expired int
	for ok := true; ok; ok = it.Next() {
		tx := it.Value().(*Transaction)
		switch tx.Status {
		case TXExpired:
			//更老的事务在之前的扫描中已经处理过
			if !m.full {
				return expired
			}
		case TXPending:
			tx.Status = TXExpired
			expired++
		}
	}
	return expired
}

func (m *MemoryTXStore) Len(ctx context.Context) int {
	m.mux.Lock()
	defer m.mux.Unlock()
	return m.txs.Len()
}
