package txmanager

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"golang_saga/component"
	"golang_saga/log"
)

type TXManager struct {
	ctx            context.Context
	stop           context.CancelFunc
	done           chan struct{}
	stopMux        sync.Mutex
	stopped        bool
	dispatching    sync.WaitGroup
	opts           *Options
	txStore        TXStore
	registerCenter *registerCenter
}

func NewTXManager(txStore TXStore, opts ...Option) *TXManager {
	ctx, cancel := context.WithCancel(context.Background())
	txManager := TXManager{
		opts:           &Options{},
		txStore:        txStore,
		registerCenter: newRegisterCenter(),
		ctx:            ctx,
		stop:           cancel,
		done:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(txManager.opts)
	}
	repair(txManager.opts)
	go txManager.run()
	return &txManager
}

// Stop 停止后台扫描, 取消并等待还在进行的消息推送
func (t *TXManager) Stop() {
	t.stopMux.Lock()
	t.stopped = true
	t.stopMux.Unlock()
	t.stop()
	<-t.done
	t.dispatching.Wait()
}

func (t *TXManager) Register(participant component.Participant) error {
	return t.registerCenter.register(participant)
}

func (t *TXManager) Participants() []string {
	return t.registerCenter.names()
}

// Create 校验参与方, 创建 pending 事务并异步把消息推给每个参与方
func (t *TXManager) Create(ctx context.Context, req *TransactionRequest) (string, error) {
	names := req.ServiceNames()
	if len(names) == 0 {
		return "", validationErrorf("empty transaction")
	}
	if req.ExternalUUID != "" {
		if _, err := uuid.Parse(req.ExternalUUID); err != nil {
			return "", validationErrorf("invalid external_uuid: %s", req.ExternalUUID)
		}
	}
	participants, err := t.registerCenter.getParticipants(names...)
	if err != nil {
		return "", err
	}

	now := t.opts.Clock.Now()
	t.evictDead(ctx, now)

	tx := NewTransaction("", now, distinct(names))
	tx.ExternalUUID = req.ExternalUUID
	for {
		tx.TXID = EncodeTXID(now)
		err = t.txStore.Insert(ctx, tx)
		if !errors.Is(err, ErrDuplicateTXID) {
			break
		}
		//同一纳秒内创建了两笔事务
		now = now.Add(time.Nanosecond)
	}
	if err != nil {
		return "", err
	}
	t.opts.Metrics.Created()
	log.DebugContextf(ctx, "new transaction %s for %s", tx.TXID, strings.Join(names, ", "))

	i := 0
	for _, msg := range req.Messages {
		for _, svc := range msg.Services {
			t.dispatch(ctx, participants[i], &component.Message{
				TXID:    tx.TXID,
				Subpath: svc.Subpath,
				Data:    msg.Data,
			})
			i++
		}
	}
	return tx.TXID, nil
}

func (t *TXManager) dispatch(ctx context.Context, participant component.Participant, msg *component.Message) {
	dctx := log.WithRequestID(t.ctx, log.RequestID(ctx))
	//Stop 之后不再推送, 保证 Add 不会与 Stop 中的 Wait 并发
	t.stopMux.Lock()
	if t.stopped {
		t.stopMux.Unlock()
		log.WarnContextf(dctx, "manager stopped, message for %s to %s dropped", msg.TXID, participant.ID())
		return
	}
	t.dispatching.Add(1)
	t.stopMux.Unlock()
	go func() {
		defer t.dispatching.Done()
		log.DebugContextf(dctx, "sending message for %s to %s", msg.TXID, participant.ID())
		err := participant.Deliver(dctx, msg)
		t.opts.Metrics.Dispatched(participant.ID(), err)
		if err != nil {
			log.WarnContextf(dctx, "message for %s to %s failed: %v", msg.TXID, participant.ID(), err)
			return
		}
		log.DebugContextf(dctx, "message for %s sent to %s", msg.TXID, participant.ID())
	}()
}

// Confirm 标记参与方确认, 然后阻塞到整个事务进入终态或等待超时
func (t *TXManager) Confirm(ctx context.Context, txID, service string) (err error) {
	defer func() {
		t.opts.Metrics.Outcome("confirm", resultOf(err))
	}()

	status, ok := t.txStore.GetStatus(ctx, txID)
	if !ok {
		return ErrNotFound
	}
	if status != TXPending {
		return confirmStatusErr(status)
	}
	if err = t.txStore.UpdateSubstate(ctx, txID, service, SubConfirmed); err != nil {
		return t.updateErr(ctx, txID, service, err, confirmStatusErr)
	}
	return t.waitForConfirm(ctx, txID)
}

// Abort 标记参与方失败, 事务随即变为 aborted, 不等待
func (t *TXManager) Abort(ctx context.Context, txID, service string) (err error) {
	defer func() {
		t.opts.Metrics.Outcome("abort", resultOf(err))
	}()

	status, ok := t.txStore.GetStatus(ctx, txID)
	if !ok {
		return ErrNotFound
	}
	if status != TXPending {
		return abortStatusErr(status)
	}
	if err = t.txStore.UpdateSubstate(ctx, txID, service, SubAborted); err != nil {
		return t.updateErr(ctx, txID, service, err, abortStatusErr)
	}
	log.InfoContextf(ctx, "transaction %s aborted by %s", txID, service)
	return nil
}

// Status 返回事务快照, 创建时间以事务ID中编码的时间为准
func (t *TXManager) Status(ctx context.Context, txID string) (*Transaction, error) {
	tx, err := t.txStore.GetTX(ctx, txID)
	if errors.Is(err, ErrTXNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	createdAt, err := DecodeTXID(tx.TXID)
	if err != nil {
		return nil, err
	}
	tx.CreatedAt = createdAt
	return tx, nil
}

func (t *TXManager) updateErr(ctx context.Context, txID, service string, err error, statusErr func(TXStatus) error) error {
	switch {
	case errors.Is(err, ErrTXNotFound):
		return ErrNotFound
	case errors.Is(err, ErrUnknownService):
		return fmt.Errorf("%w: unknown service %s", ErrUnprocessable, service)
	case errors.Is(err, ErrTXFinalized):
		//读状态与更新之间事务被其他调用或扫描终结
		status, ok := t.txStore.GetStatus(ctx, txID)
		if !ok {
			return ErrNotFound
		}
		return statusErr(status)
	}
	return err
}

func confirmStatusErr(status TXStatus) error {
	switch status {
	case TXAborted:
		return ErrAborted
	case TXExpired:
		return ErrExpired
	case TXConfirmed:
		return ErrRepeated
	}
	return nil
}

func abortStatusErr(status TXStatus) error {
	switch status {
	case TXAborted:
		return ErrRepeated
	case TXExpired:
		return ErrExpired
	case TXConfirmed:
		return fmt.Errorf("%w: transaction processed", ErrBadParams)
	}
	return nil
}

// waitForConfirm 按固定间隔轮询事务状态, 最多 PollAttempts 次.
// 每次轮询都是一次独立的存储调用, 等待期间不持有锁.
func (t *TXManager) waitForConfirm(ctx context.Context, txID string) error {
	b := backoff.WithMaxRetries(backoff.NewConstantBackOff(t.opts.PollInterval), t.opts.PollAttempts-1)
	for i := 0; ; i++ {
		status, ok := t.txStore.GetStatus(ctx, txID)
		if !ok {
			return ErrNotFound
		}
		switch status {
		case TXConfirmed:
			return nil
		case TXAborted:
			return ErrAborted
		case TXExpired:
			return ErrExpired
		}

		next := b.NextBackOff()
		if next == backoff.Stop {
			log.WarnContextf(ctx, "transaction %s still pending after %d polls", txID, i+1)
			return ErrTimeout
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.opts.Clock.After(next):
		}
	}
}

// distinct 去重并保留首次出现的顺序
func distinct(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

func resultOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAborted):
		return "aborted"
	case errors.Is(err, ErrExpired):
		return "expired"
	case errors.Is(err, ErrRepeated):
		return "repeated"
	case errors.Is(err, ErrUnprocessable):
		return "unprocessable"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrBadParams):
		return "bad_params"
	}
	return "error"
}
