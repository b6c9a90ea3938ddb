package example

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xiaoxuxiansheng/redis_lock"

	"golang_saga/client"
	"golang_saga/component"
	"golang_saga/server"
	"golang_saga/txmanager"
)

type saga struct {
	coordinator *client.Client
	stores      map[string]StateStore
}

func newSaga(t *testing.T, newStore func(id string) StateStore, ids ...string) *saga {
	t.Helper()
	txManager := txmanager.NewTXManager(txmanager.NewMemoryTXStore(),
		txmanager.WithPolling(5*time.Millisecond, 400), txmanager.WithMonitorTick(time.Second))
	t.Cleanup(txManager.Stop)
	cs := httptest.NewServer(server.New(txManager, server.Options{}).Handler())
	t.Cleanup(cs.Close)

	s := &saga{
		coordinator: client.NewClient(cs.URL),
		stores:      map[string]StateStore{},
	}
	for _, id := range ids {
		store := newStore(id)
		p := NewParticipant(id, store, client.NewClient(cs.URL))
		ps := httptest.NewServer(p)
		t.Cleanup(ps.Close)
		t.Cleanup(p.Close)
		require.NoError(t, txManager.Register(component.NewHTTPParticipant(id, ps.URL+"/api")))
		s.stores[id] = store
	}
	return s
}

func (s *saga) create(t *testing.T, data string, ids ...string) string {
	t.Helper()
	services := make([]txmanager.ServiceEntity, 0, len(ids))
	for _, id := range ids {
		services = append(services, txmanager.ServiceEntity{Name: id, Subpath: "/reserve"})
	}
	id, err := s.coordinator.Create(context.Background(), &txmanager.TransactionRequest{
		Messages: []txmanager.MessageEntity{{Services: services, Data: json.RawMessage(data)}},
	})
	require.NoError(t, err)
	return id
}

func (s *saga) waitFor(t *testing.T, txID, status string) {
	t.Helper()
	assert.Eventually(t, func() bool {
		tx, err := s.coordinator.Status(context.Background(), txID)
		return err == nil && tx.Status == status
	}, 5*time.Second, 10*time.Millisecond)
}

func (s *saga) waitForState(t *testing.T, id, txID string, state TXState) {
	t.Helper()
	assert.Eventually(t, func() bool {
		got, err := s.stores[id].Get(context.Background(), txID)
		return err == nil && got == state
	}, 5*time.Second, 10*time.Millisecond)
}

func memoryStores(string) StateStore {
	return NewMemoryStateStore()
}

func TestSagaConfirmed(t *testing.T) {
	s := newSaga(t, memoryStores, "componentA", "componentB", "componentC")

	txID := s.create(t, `{"biz_id":"biz1"}`, "componentA", "componentB", "componentC")
	s.waitFor(t, txID, "confirmed")
	for _, id := range []string{"componentA", "componentB", "componentC"} {
		s.waitForState(t, id, txID, TXConfirmed)
	}
}

func TestSagaAborted(t *testing.T) {
	s := newSaga(t, memoryStores, "componentA", "componentB")

	txID := s.create(t, `{"biz_id":"biz2","decision":{"componentB":"abort"}}`, "componentA", "componentB")
	s.waitFor(t, txID, "aborted")
	s.waitForState(t, "componentA", txID, TXAborted)
	s.waitForState(t, "componentB", txID, TXAborted)
}

func TestParticipantIgnoresDuplicates(t *testing.T) {
	store := NewMemoryStateStore()
	p := NewParticipant("componentA", store, client.NewClient("http://127.0.0.1:0"))
	defer p.Close()

	ok, err := store.Begin(context.Background(), "tx1", "biz")
	require.NoError(t, err)
	require.True(t, ok)

	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/reserve/tx1", strings.NewReader(`{"biz_id":"biz"}`)))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	p.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reserve/tx1", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestParticipantDecision(t *testing.T) {
	p := NewParticipant("componentA", NewMemoryStateStore(), nil)
	defer p.Close()

	assert.Equal(t, DecisionConfirm, p.decision(nil))
	assert.Equal(t, DecisionAbort, p.decision(map[string]interface{}{"decision": "abort"}))
	assert.Equal(t, DecisionConfirm, p.decision(map[string]interface{}{
		"decision": map[string]interface{}{"componentB": "abort"},
	}))
	assert.Equal(t, DecisionAbort, p.decision(map[string]interface{}{
		"decision": map[string]interface{}{"componentA": "abort"},
	}))
}

func TestMemoryStateStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStateStore()

	state, err := store.Get(ctx, "tx1")
	require.NoError(t, err)
	assert.Empty(t, state)

	ok, err := store.Begin(ctx, "tx1", "biz")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = store.Begin(ctx, "tx1", "biz")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Finish(ctx, "tx1", TXConfirmed))
	require.NoError(t, store.Finish(ctx, "tx1", TXConfirmed))
	assert.ErrorIs(t, store.Finish(ctx, "tx1", TXAborted), ErrInvalidTransition)
	assert.Error(t, store.Finish(ctx, "tx2", TXAborted))

	state, err = store.Get(ctx, "tx1")
	require.NoError(t, err)
	assert.Equal(t, TXConfirmed, state)
}

// 需要本地 redis, 通过 SAGA_TEST_REDIS=host:port 开启
func TestSagaWithRedis(t *testing.T) {
	address := os.Getenv("SAGA_TEST_REDIS")
	if address == "" {
		t.Skip("SAGA_TEST_REDIS not set")
	}
	redisClient := redis_lock.NewClient("tcp", address, os.Getenv("SAGA_TEST_REDIS_PASSWORD"))
	s := newSaga(t, func(id string) StateStore {
		return NewRedisStateStore(id, redisClient)
	}, "componentA", "componentB")

	bizID := time.Now().Format(time.RFC3339Nano)
	txID := s.create(t, `{"biz_id":"`+bizID+`"}`, "componentA", "componentB")
	s.waitFor(t, txID, "confirmed")
	s.waitForState(t, "componentA", txID, TXConfirmed)
	s.waitForState(t, "componentB", txID, TXConfirmed)
}

// 需要本地 mysql, 通过 SAGA_TEST_MYSQL_DSN 开启, 例如 root:123456@tcp(127.0.0.1:3306)/saga?parseTime=true
func newGormStore(t *testing.T, id string) *GormStateStore {
	t.Helper()
	dsn := os.Getenv("SAGA_TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("SAGA_TEST_MYSQL_DSN not set")
	}
	db, err := NewDB(dsn)
	require.NoError(t, err)
	store := NewGormStateStore(id, db)
	require.NoError(t, store.AutoMigrate(context.Background()))
	return store
}

func TestGormStateStore(t *testing.T) {
	ctx := context.Background()
	store := newGormStore(t, "componentA")
	txID := "tx" + strconv.FormatInt(time.Now().UnixNano(), 36)

	state, err := store.Get(ctx, txID)
	require.NoError(t, err)
	assert.Empty(t, state)

	ok, err := store.Begin(ctx, txID, "biz")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = store.Begin(ctx, txID, "biz")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Finish(ctx, txID, TXAborted))
	require.NoError(t, store.Finish(ctx, txID, TXAborted))
	assert.ErrorIs(t, store.Finish(ctx, txID, TXConfirmed), ErrInvalidTransition)
	assert.Error(t, store.Finish(ctx, txID+"x", TXAborted))

	state, err = store.Get(ctx, txID)
	require.NoError(t, err)
	assert.Equal(t, TXAborted, state)
}

func TestSagaWithMySQL(t *testing.T) {
	if os.Getenv("SAGA_TEST_MYSQL_DSN") == "" {
		t.Skip("SAGA_TEST_MYSQL_DSN not set")
	}
	s := newSaga(t, func(id string) StateStore {
		return newGormStore(t, id)
	}, "componentA", "componentB")

	txID := s.create(t, `{"biz_id":"biz3","decision":"confirm"}`, "componentA", "componentB")
	s.waitFor(t, txID, "confirmed")
	s.waitForState(t, "componentA", txID, TXConfirmed)
	s.waitForState(t, "componentB", txID, TXConfirmed)
}
