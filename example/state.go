package example

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// TXState 参与方本地记录的事务状态
type TXState string

func (t TXState) String() string {
	return string(t)
}

const (
	TXReceived  TXState = "received"
	TXConfirmed TXState = "confirmed"
	TXAborted   TXState = "aborted"
)

type DataStatus string

func (d DataStatus) String() string {
	return string(d)
}

const (
	DataFrozen     DataStatus = "frozen"     // 冻结态
	DataSuccessful DataStatus = "successful" // 成功态
)

var ErrInvalidTransition = errors.New("invalid tx state transition")

// StateStore 参与方的本地状态, 保证同一事务的消息只处理一次
type StateStore interface {
	// Begin 首次收到事务时冻结 bizID 并返回 true, 重复投递返回 false
	Begin(ctx context.Context, txID, bizID string) (bool, error)
	// Finish 记录协调者给出的结果
	Finish(ctx context.Context, txID string, state TXState) error
	Get(ctx context.Context, txID string) (TXState, error)
}

type memoryRecord struct {
	bizID string
	state TXState
	data  DataStatus
}

type MemoryStateStore struct {
	mux     sync.Mutex
	records map[string]*memoryRecord
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{records: make(map[string]*memoryRecord)}
}

func (m *MemoryStateStore) Begin(ctx context.Context, txID, bizID string) (bool, error) {
	m.mux.Lock()
	defer m.mux.Unlock()
	if _, ok := m.records[txID]; ok {
		return false, nil
	}
	m.records[txID] = &memoryRecord{bizID: bizID, state: TXReceived, data: DataFrozen}
	return true, nil
}

func (m *MemoryStateStore) Finish(ctx context.Context, txID string, state TXState) error {
	m.mux.Lock()
	defer m.mux.Unlock()
	r, ok := m.records[txID]
	if !ok {
		return fmt.Errorf("unknown txid: %s", txID)
	}
	if r.state == state {
		return nil
	}
	if r.state != TXReceived {
		return fmt.Errorf("%w: %s -> %s, txid: %s", ErrInvalidTransition, r.state, state, txID)
	}
	r.state = state
	if state == TXConfirmed {
		r.data = DataSuccessful
	} else {
		r.data = ""
	}
	return nil
}

func (m *MemoryStateStore) Get(ctx context.Context, txID string) (TXState, error) {
	m.mux.Lock()
	defer m.mux.Unlock()
	r, ok := m.records[txID]
	if !ok {
		return "", nil
	}
	return r.state, nil
}
