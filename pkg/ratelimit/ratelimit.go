package ratelimit

import (
	"context"
	"sync"
	"time"
)

// RateLimiter 速率限制器接口
type RateLimiter interface {
	Wait(ctx context.Context) error
	Allow() bool
	GetRemaining() int
}

// TokenBucket 令牌桶速率限制器，令牌按时间连续补充
type TokenBucket struct {
	capacity   float64 // 桶容量
	tokens     float64 // 当前令牌数
	refillRate float64 // 每秒补充的令牌数
	lastRefill time.Time
	now        func() time.Time
	mu         sync.Mutex
}

// NewTokenBucket 创建新的令牌桶，初始为满。
func NewTokenBucket(capacity int, refillRate float64) *TokenBucket {
	return newTokenBucket(capacity, refillRate, time.Now)
}

func newTokenBucket(capacity int, refillRate float64, now func() time.Time) *TokenBucket {
	return &TokenBucket{
		capacity:   float64(capacity),
		tokens:     float64(capacity),
		refillRate: refillRate,
		lastRefill: now(),
		now:        now,
	}
}

// refill 补充令牌
func (tb *TokenBucket) refill() {
	now := tb.now()
	elapsed := now.Sub(tb.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}
	tb.tokens = min(tb.capacity, tb.tokens+elapsed*tb.refillRate)
	tb.lastRefill = now
}

// Allow 检查是否允许请求
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()
	if tb.tokens >= 1 {
		tb.tokens--
		return true
	}
	return false
}

// Wait 等待直到允许请求
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for {
		if tb.Allow() {
			return nil
		}

		// 距离下一个令牌还要多久
		tb.mu.Lock()
		waitTime := time.Second
		if tb.refillRate > 0 {
			waitTime = time.Duration((1 - tb.tokens) / tb.refillRate * float64(time.Second))
		}
		tb.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(waitTime):
		}
	}
}

// GetRemaining 获取剩余令牌数（向下取整）
func (tb *TokenBucket) GetRemaining() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.refill()
	return int(tb.tokens)
}

// Manager 按 key（例如客户端 IP）分别限流
type Manager struct {
	limiters map[string]*entry
	factory  func() RateLimiter
	idle     time.Duration
	now      func() time.Time
	mu       sync.Mutex
}

type entry struct {
	limiter  RateLimiter
	lastSeen time.Time
}

// NewManager 每个新 key 用 factory 创建限流器；超过 idle 没有请求的 key 会被回收。
func NewManager(factory func() RateLimiter, idle time.Duration) *Manager {
	return &Manager{
		limiters: make(map[string]*entry),
		factory:  factory,
		idle:     idle,
		now:      time.Now,
	}
}

// GetLimiter 获取 key 对应的限流器，不存在则创建
func (m *Manager) GetLimiter(key string) RateLimiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	e, ok := m.limiters[key]
	if !ok {
		m.evictLocked(now)
		e = &entry{limiter: m.factory()}
		m.limiters[key] = e
	}
	e.lastSeen = now
	return e.limiter
}

func (m *Manager) evictLocked(now time.Time) {
	if m.idle <= 0 {
		return
	}
	for k, e := range m.limiters {
		if now.Sub(e.lastSeen) > m.idle {
			delete(m.limiters, k)
		}
	}
}

// Allow 检查 key 是否允许请求
func (m *Manager) Allow(key string) bool {
	return m.GetLimiter(key).Allow()
}

// Wait 等待直到 key 允许请求
func (m *Manager) Wait(ctx context.Context, key string) error {
	return m.GetLimiter(key).Wait(ctx)
}

// Size 当前跟踪的 key 数量
func (m *Manager) Size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.limiters)
}
