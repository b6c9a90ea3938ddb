package txmanager

import (
	"encoding/json"
	"time"
)

// ServiceEntity 消息要投递的一个参与方
type ServiceEntity struct {
	Name string `json:"name"`
	//可选, 拼接在参与方地址之后
	Subpath string `json:"subpath,omitempty"`
}

// MessageEntity 一条消息, 同样的 data 扇出给 services 里的每个参与方
type MessageEntity struct {
	Services []ServiceEntity `json:"services"`
	Data     json.RawMessage `json:"data"`
}

// TransactionRequest 创建事务的原始请求
type TransactionRequest struct {
	Messages     []MessageEntity `json:"messages"`
	ExternalUUID string          `json:"external_uuid,omitempty"`
}

// ServiceNames 按声明顺序展开所有参与方名字, 保留重复
func (r *TransactionRequest) ServiceNames() []string {
	names := make([]string, 0, len(r.Messages))
	for _, msg := range r.Messages {
		for _, svc := range msg.Services {
			names = append(names, svc.Name)
		}
	}
	return names
}

//TX状态
type TXStatus string

const (
	TXPending   TXStatus = "pending"
	TXConfirmed TXStatus = "confirmed"
	TXAborted   TXStatus = "aborted"
	//只能由过期扫描设置
	TXExpired TXStatus = "expired"
)

func (t TXStatus) String() string {
	return string(t)
}

// Final 终态后不再变化
func (t TXStatus) Final() bool {
	return t != TXPending
}

//单个参与方的状态
type SubStatus string

const (
	SubPending   SubStatus = "pending"
	SubConfirmed SubStatus = "confirmed"
	SubAborted   SubStatus = "aborted"
)

func (s SubStatus) String() string {
	return string(s)
}

type Substate struct {
	Service   string    `json:"service"`
	SubStatus SubStatus `json:"substatus"`
}

//事务
type Transaction struct {
	TXID         string      `json:"txID"`
	ExternalUUID string      `json:"externalUUID,omitempty"`
	Status       TXStatus    `json:"status"`
	Substates    []*Substate `json:"substates"`
	CreatedAt    time.Time   `json:"createdAt"`
}

func NewTransaction(txID string, createdAt time.Time, services []string) *Transaction {
	substates := make([]*Substate, 0, len(services))
	for _, service := range services {
		substates = append(substates, &Substate{
			Service:   service,
			SubStatus: SubPending,
		})
	}
	return &Transaction{
		TXID:      txID,
		Status:    TXPending,
		Substates: substates,
		CreatedAt: createdAt,
	}
}

// substate 按名字找第一个匹配的参与方
func (t *Transaction) substate(service string) *Substate {
	for _, sub := range t.Substates {
		if sub.Service == service {
			return sub
		}
	}
	return nil
}

func (t *Transaction) clone() *Transaction {
	cp := *t
	cp.Substates = make([]*Substate, 0, len(t.Substates))
	for _, sub := range t.Substates {
		s := *sub
		cp.Substates = append(cp.Substates, &s)
	}
	return &cp
}

// Aggregate 由所有参与方状态推出事务状态: 任一 aborted 即 aborted,
// 全部 confirmed 才 confirmed, 否则 pending. 不会产生 expired.
func Aggregate(substates []*Substate) TXStatus {
	confirmed := len(substates) > 0
	for _, sub := range substates {
		switch sub.SubStatus {
		case SubAborted:
			return TXAborted
		case SubConfirmed:
		default:
			confirmed = false
		}
	}
	if confirmed {
		return TXConfirmed
	}
	return TXPending
}
