package clock

import (
	"sync"
	"time"
)

// Clock 抽象时间, 便于测试中控制扫描与等待
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
	Sleep(d time.Duration)
}

type Real struct{}

// Now 统一返回 UTC 时间
func (Real) Now() time.Time {
	return time.Now().UTC()
}

func (Real) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

func (Real) Sleep(d time.Duration) {
	time.Sleep(d)
}

// Manual 手动推进的时钟
type Manual struct {
	mu      sync.Mutex
	now     time.Time
	waiters []waiter
}

type waiter struct {
	at time.Time
	ch chan time.Time
}

func NewManual(start time.Time) *Manual {
	return &Manual{now: start.UTC()}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) After(d time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if d <= 0 {
		ch <- m.now
		return ch
	}
	m.waiters = append(m.waiters, waiter{at: m.now.Add(d), ch: ch})
	return ch
}

// Sleep 阻塞到 Advance 推进过 d
func (m *Manual) Sleep(d time.Duration) {
	<-m.After(d)
}

// Advance 推进时间并触发到期的 After
func (m *Manual) Advance(d time.Duration) time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d > 0 {
		m.now = m.now.Add(d)
	}
	remaining := m.waiters[:0]
	for _, w := range m.waiters {
		if w.at.After(m.now) {
			remaining = append(remaining, w)
			continue
		}
		w.ch <- m.now
	}
	m.waiters = remaining
	return m.now
}

// Waiters 当前挂起的 After 数量
func (m *Manual) Waiters() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.waiters)
}
