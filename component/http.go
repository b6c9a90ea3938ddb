package component

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"golang_saga/log"
)

type HTTPOptions struct {
	Client *http.Client
	//单次推送超时
	Timeout time.Duration
	//失败后的重试次数, 0 表示只推一次
	Retries uint64
	//首次重试间隔
	RetryInterval time.Duration
}

type HTTPOption func(*HTTPOptions)

func WithHTTPClient(client *http.Client) HTTPOption {
	return func(o *HTTPOptions) {
		o.Client = client
	}
}

func WithDeliverTimeout(timeout time.Duration) HTTPOption {
	return func(o *HTTPOptions) {
		o.Timeout = timeout
	}
}

func WithRetries(retries uint64, interval time.Duration) HTTPOption {
	return func(o *HTTPOptions) {
		o.Retries = retries
		o.RetryInterval = interval
	}
}

func repairHTTP(o *HTTPOptions) {
	if o.Client == nil {
		o.Client = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	if o.Timeout <= 0 {
		o.Timeout = 5 * time.Second
	}
	if o.RetryInterval <= 0 {
		o.RetryInterval = 100 * time.Millisecond
	}
}

// HTTPParticipant 通过 HTTP POST 推送消息的参与方
type HTTPParticipant struct {
	id      string
	address string
	opts    HTTPOptions
}

func NewHTTPParticipant(id, address string, opts ...HTTPOption) *HTTPParticipant {
	p := &HTTPParticipant{
		id:      id,
		address: strings.TrimRight(address, "/"),
	}
	for _, opt := range opts {
		opt(&p.opts)
	}
	repairHTTP(&p.opts)
	return p
}

func (h *HTTPParticipant) ID() string {
	return h.id
}

func (h *HTTPParticipant) Address() string {
	return h.address
}

// URL 消息的目标地址: {address}{subpath}/{txID}
func (h *HTTPParticipant) URL(msg *Message) string {
	return h.address + msg.Subpath + "/" + msg.TXID
}

func (h *HTTPParticipant) Deliver(ctx context.Context, msg *Message) error {
	url := h.URL(msg)
	body := msg.Data
	if len(body) == 0 {
		body = []byte("null")
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = h.opts.RetryInterval
	b := backoff.WithContext(backoff.WithMaxRetries(eb, h.opts.Retries), ctx)

	return backoff.Retry(func() error {
		return h.post(ctx, url, body)
	}, b)
}

func (h *HTTPParticipant) post(ctx context.Context, url string, body []byte) error {
	rctx, cancel := context.WithTimeout(ctx, h.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(rctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if id := log.RequestID(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}

	resp, err := h.opts.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 500:
		return fmt.Errorf("participant %s: %s", h.id, resp.Status)
	case resp.StatusCode >= 400:
		return backoff.Permanent(fmt.Errorf("participant %s: %s", h.id, resp.Status))
	}
	return nil
}
