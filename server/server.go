package server

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"golang_saga/log"
	"golang_saga/txmanager"
)

// Coordinator 传输层依赖的协调者能力, 由 *txmanager.TXManager 实现
type Coordinator interface {
	Create(ctx context.Context, req *txmanager.TransactionRequest) (string, error)
	Confirm(ctx context.Context, txID, service string) error
	Abort(ctx context.Context, txID, service string) error
	Status(ctx context.Context, txID string) (*txmanager.Transaction, error)
}

type Options struct {
	Version      string
	Gatherer     prometheus.Gatherer
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	//请求体大小上限
	MaxBodyBytes int64

	//Close 等待进行中请求的最长时间, 应不短于 confirm 的最长等待
	ShutdownTimeout time.Duration
}

type Server struct {
	coordinator Coordinator
	opts        Options
	handler     http.Handler
	srv         *http.Server
}

func New(coordinator Coordinator, opts Options) *Server {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	s := &Server{
		coordinator: coordinator,
		opts:        opts,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /version", s.handleVersion)
	mux.HandleFunc("POST /transactions", s.handleCreate)
	mux.HandleFunc("GET /transactions/{id}", s.handleStatus)
	mux.HandleFunc("POST /transactions/{id}/confirm/{service}", s.handleConfirm)
	mux.HandleFunc("POST /transactions/{id}/abort/{service}", s.handleAbort)
	if opts.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	s.handler = otelhttp.NewHandler(
		ApplyMiddlewares(mux, LoggingMiddleware, RecoveryMiddleware, RequestIDMiddleware),
		"coordinator",
	)
	return s
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start 阻塞直到 Close 或监听失败
func (s *Server) Start(addr string) error {
	s.srv = &http.Server{
		Addr:         addr,
		Handler:      s.handler,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
	}
	log.Infof("server started at %s", addr)
	if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Close() error {
	if s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
