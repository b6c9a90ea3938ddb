package example

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"path"
	"sync"

	"github.com/demdxx/gocast"

	"golang_saga/api"
	"golang_saga/client"
	"golang_saga/log"
)

const (
	DecisionConfirm = "confirm"
	DecisionAbort   = "abort"
)

// Participant 演示用的参与方: 收到消息后冻结数据, 再按消息里的 decision 回调协调者确认或回滚
type Participant struct {
	id          string
	store       StateStore
	coordinator *client.Client
	ctx         context.Context
	cancel      context.CancelFunc
	callbacks   sync.WaitGroup
	mux         *http.ServeMux
}

func NewParticipant(id string, store StateStore, coordinator *client.Client) *Participant {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Participant{
		id:          id,
		store:       store,
		coordinator: coordinator,
		ctx:         ctx,
		cancel:      cancel,
		mux:         http.NewServeMux(),
	}
	p.mux.HandleFunc("POST /{path...}", p.handleMessage)
	return p
}

func (p *Participant) ID() string {
	return p.id
}

func (p *Participant) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	p.mux.ServeHTTP(rw, r)
}

// Close 取消并等待还没完成的回调
func (p *Participant) Close() {
	p.cancel()
	p.callbacks.Wait()
}

// 路径最后一段为 txID, 之前的部分是消息的 subpath
func (p *Participant) handleMessage(rw http.ResponseWriter, r *http.Request) {
	txID := path.Base(r.PathValue("path"))
	if txID == "" || txID == "." || txID == "/" {
		http.Error(rw, "missing txid", http.StatusBadRequest)
		return
	}

	data := map[string]interface{}{}
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		http.Error(rw, err.Error(), http.StatusBadRequest)
		return
	}

	ctx := log.WithRequestID(r.Context(), r.Header.Get(api.HeaderRequestID))
	fresh, err := p.store.Begin(ctx, txID, gocast.ToString(data["biz_id"]))
	if err != nil {
		log.ErrorContextf(ctx, "%s: begin %s failed: %v", p.id, txID, err)
		http.Error(rw, err.Error(), http.StatusServiceUnavailable)
		return
	}
	if !fresh {
		log.InfoContextf(ctx, "%s: duplicated message for %s", p.id, txID)
		rw.WriteHeader(http.StatusOK)
		return
	}

	decision := p.decision(data)
	cctx := log.WithRequestID(p.ctx, log.RequestID(ctx))
	p.callbacks.Add(1)
	go func() {
		defer p.callbacks.Done()
		p.callback(cctx, txID, decision)
	}()
	rw.WriteHeader(http.StatusAccepted)
}

// decision 可以是字符串, 也可以是按参与方 id 区分的对象
func (p *Participant) decision(data map[string]interface{}) string {
	v := data["decision"]
	if m, ok := v.(map[string]interface{}); ok {
		v = m[p.id]
	}
	if gocast.ToString(v) == DecisionAbort {
		return DecisionAbort
	}
	return DecisionConfirm
}

func (p *Participant) callback(ctx context.Context, txID, decision string) {
	state := TXConfirmed
	var err error
	if decision == DecisionAbort {
		state = TXAborted
		_, err = p.coordinator.Abort(ctx, txID, p.id)
	} else {
		_, err = p.coordinator.Confirm(ctx, txID, p.id)
	}

	var herr *client.HTTPError
	switch {
	case err == nil:
	case errors.As(err, &herr) && herr.Code == http.StatusFailedDependency:
		// 其他参与方回滚或事务过期
		state = TXAborted
	default:
		log.WarnContextf(ctx, "%s: %s %s failed: %v", p.id, decision, txID, err)
		return
	}

	if err = p.store.Finish(ctx, txID, state); err != nil {
		log.ErrorContextf(ctx, "%s: finish %s as %s failed: %v", p.id, txID, state, err)
		return
	}
	log.InfoContextf(ctx, "%s: transaction %s %s", p.id, txID, state)
}
