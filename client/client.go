package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"golang_saga/api"
	"golang_saga/log"
	"golang_saga/txmanager"
)

type ClientOption func(c *Client)

func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

func WithHeader(header http.Header) ClientOption {
	return func(c *Client) {
		c.header = header.Clone()
	}
}

// Client 协调者 HTTP 接口的客户端
type Client struct {
	client *http.Client
	// origin 为协调者的 scheme + host
	origin string
	header http.Header
}

func NewClient(origin string, opts ...ClientOption) *Client {
	c := &Client{
		client: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		origin: strings.TrimSuffix(origin, "/"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func parseJSONPayload(resp *http.Response, obj interface{}) error {
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, api.CTJSON) {
		return fmt.Errorf("unrecognized content type: %q", ct)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, obj)
}

func (c *Client) Request(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.origin+path, r)
	if err != nil {
		return nil, err
	}
	for k, sl := range c.header {
		for _, v := range sl {
			req.Header.Add(k, v)
		}
	}
	if body != nil {
		req.Header.Set("Content-Type", api.CTJSON)
	}
	if id := log.RequestID(ctx); id != "" {
		req.Header.Set(api.HeaderRequestID, id)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, readHTTPError(resp)
	}
	return resp, nil
}

func readHTTPError(resp *http.Response) error {
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return NewHTTPError(resp.StatusCode, err.Error())
	}
	res := &api.Response{}
	if err = json.Unmarshal(b, res); err == nil && res.Message != "" {
		return NewHTTPError(resp.StatusCode, res.Message)
	}
	return NewHTTPError(resp.StatusCode, string(b))
}

func (c *Client) Version(ctx context.Context) (*api.Version, error) {
	resp, err := c.Request(ctx, http.MethodGet, "/version", nil)
	if err != nil {
		return nil, err
	}
	v := &api.Version{}
	if err = parseJSONPayload(resp, v); err != nil {
		return nil, err
	}
	return v, nil
}

// Create 返回新事务的 id
func (c *Client) Create(ctx context.Context, req *txmanager.TransactionRequest) (string, error) {
	resp, err := c.Request(ctx, http.MethodPost, "/transactions", req)
	if err != nil {
		return "", err
	}
	res := &api.Response{}
	if err = parseJSONPayload(resp, res); err != nil {
		return "", err
	}
	return res.ID, nil
}

func (c *Client) Status(ctx context.Context, txID string) (*api.Transaction, error) {
	resp, err := c.Request(ctx, http.MethodGet, api.TransactionPath(txID), nil)
	if err != nil {
		return nil, err
	}
	tx := &api.Transaction{}
	if err = parseJSONPayload(resp, tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// Confirm 阻塞到事务进入终态, 重复确认时返回 status 为 repeated 的结果
func (c *Client) Confirm(ctx context.Context, txID, service string) (*api.Response, error) {
	return c.outcome(ctx, api.ConfirmPath(txID, service))
}

func (c *Client) Abort(ctx context.Context, txID, service string) (*api.Response, error) {
	return c.outcome(ctx, api.AbortPath(txID, service))
}

func (c *Client) outcome(ctx context.Context, path string) (*api.Response, error) {
	resp, err := c.Request(ctx, http.MethodPost, path, nil)
	if err != nil {
		return nil, err
	}
	res := &api.Response{}
	if err = parseJSONPayload(resp, res); err != nil {
		return nil, err
	}
	return res, nil
}
