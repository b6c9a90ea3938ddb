package txmanager

import (
	"time"

	"golang_saga/clock"
	"golang_saga/metrics"
)

type Options struct {
	//pending 事务超过该时长被置为 expired
	Timeout time.Duration
	//任意状态的事务超过该时长被删除
	DeadTimeout time.Duration
	//后台过期扫描间隔
	MonitorTick time.Duration

	//confirm 等待整体结果时的轮询间隔与次数
	PollInterval time.Duration
	PollAttempts uint64

	Clock   clock.Clock
	Metrics *metrics.Metrics
}

type Option func(*Options)

func WithTimeout(timeout time.Duration) Option {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return func(options *Options) {
		options.Timeout = timeout
	}
}

func WithDeadTimeout(timeout time.Duration) Option {
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	return func(options *Options) {
		options.DeadTimeout = timeout
	}
}

func WithMonitorTick(tick time.Duration) Option {
	if tick <= 0 {
		tick = 2 * time.Second
	}
	return func(options *Options) {
		options.MonitorTick = tick
	}
}

func WithPolling(interval time.Duration, attempts uint64) Option {
	return func(options *Options) {
		options.PollInterval = interval
		options.PollAttempts = attempts
	}
}

func WithClock(c clock.Clock) Option {
	return func(options *Options) {
		options.Clock = c
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(options *Options) {
		options.Metrics = m
	}
}

func repair(o *Options) {
	if o.Timeout <= 0 {
		o.Timeout = 60 * time.Second
	}
	if o.DeadTimeout <= 0 {
		o.DeadTimeout = 300 * time.Second
	}
	//淘汰水位必须落后于过期水位
	if o.DeadTimeout < o.Timeout {
		o.DeadTimeout = o.Timeout
	}
	if o.MonitorTick <= 0 {
		o.MonitorTick = 2 * time.Second
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 64 * time.Millisecond
	}
	if o.PollAttempts == 0 {
		o.PollAttempts = 250
	}
	if o.Clock == nil {
		o.Clock = clock.Real{}
	}
}
