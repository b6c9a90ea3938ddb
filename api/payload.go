package api

import (
	"net/url"
	"time"
)

const CTJSON = "application/json"

const (
	HeaderRequestID = "X-Request-ID"

	StatusCreated   = "created"
	StatusConfirmed = "confirmed"
	StatusAborted   = "aborted"
	StatusRepeated  = "repeated"
	StatusFailure   = "failure"
)

// Response 创建/确认/回滚接口的统一返回体
type Response struct {
	Status  string `json:"status"`
	ID      string `json:"id,omitempty"`
	Message string `json:"message,omitempty"`
}

type Version struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type Substate struct {
	Service   string `json:"service"`
	SubStatus string `json:"substatus"`
}

type Transaction struct {
	ID           string     `json:"id"`
	ExternalUUID string     `json:"external_uuid,omitempty"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	Substates    []Substate `json:"substates"`
}

func TransactionPath(id string) string {
	return "/transactions/" + url.PathEscape(id)
}

func ConfirmPath(id, service string) string {
	return TransactionPath(id) + "/confirm/" + url.PathEscape(service)
}

func AbortPath(id, service string) string {
	return TransactionPath(id) + "/abort/" + url.PathEscape(service)
}
