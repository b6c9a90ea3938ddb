package txmanager

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func subs(statuses ...SubStatus) []*Substate {
	out := make([]*Substate, 0, len(statuses))
	for i, s := range statuses {
		out = append(out, &Substate{Service: string(rune('a' + i)), SubStatus: s})
	}
	return out
}

func TestAggregate(t *testing.T) {
	for _, c := range []struct {
		name string
		subs []*Substate
		want TXStatus
	}{
		{"all pending", subs(SubPending, SubPending), TXPending},
		{"partially confirmed", subs(SubConfirmed, SubPending), TXPending},
		{"all confirmed", subs(SubConfirmed, SubConfirmed), TXConfirmed},
		{"abort dominates pending", subs(SubPending, SubAborted), TXAborted},
		{"abort dominates confirmed", subs(SubConfirmed, SubAborted, SubConfirmed), TXAborted},
		{"empty", nil, TXPending},
	} {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, Aggregate(c.subs))
		})
	}
}

func TestTransactionRequestDecode(t *testing.T) {
	body := `{
		"messages": [
			{"services": [{"name": "orders", "subpath": "/reserve"}, {"name": "billing"}], "data": {"amount": 3}},
			{"services": [{"name": "orders"}], "data": "ship"}
		],
		"external_uuid": "0b6bd6d4-4a39-4c58-a1b2-2c1f9e8f0f5e"
	}`
	req := &TransactionRequest{}
	require.NoError(t, json.Unmarshal([]byte(body), req))
	assert.Equal(t, []string{"orders", "billing", "orders"}, req.ServiceNames())
	assert.Equal(t, "/reserve", req.Messages[0].Services[0].Subpath)
	assert.JSONEq(t, `{"amount": 3}`, string(req.Messages[0].Data))
	assert.Equal(t, "0b6bd6d4-4a39-4c58-a1b2-2c1f9e8f0f5e", req.ExternalUUID)
}

func TestNewTransactionAndClone(t *testing.T) {
	tx := NewTransaction("id", time.Unix(10, 0), []string{"a", "b"})
	assert.Equal(t, TXPending, tx.Status)
	require.Len(t, tx.Substates, 2)

	cp := tx.clone()
	cp.Substates[0].SubStatus = SubAborted
	assert.Equal(t, SubPending, tx.Substates[0].SubStatus)
	assert.Nil(t, tx.substate("c"))
	assert.Equal(t, "b", tx.substate("b").Service)
}
