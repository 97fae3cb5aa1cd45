// Package shutdown 优雅关闭：按名字注册回调，收到信号后并发执行，受 ctx 超时约束。
package shutdown

import (
	"context"
	"sync"

	"github.com/betbot/gausscdf/pkg/logger"
)

// Handler 关闭回调
type Handler func(ctx context.Context) error

type entry struct {
	name string
	fn   Handler
}

// Manager 优雅关闭管理器
type Manager struct {
	mu        sync.Mutex
	callbacks []entry
}

// NewManager 创建新的关闭管理器
func NewManager() *Manager {
	return &Manager{}
}

// OnShutdown 注册关闭回调
func (m *Manager) OnShutdown(name string, h Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, entry{name: name, fn: h})
}

// Shutdown 并发执行所有回调，返回出错的回调数。
// ctx 应该带超时；超时后不再等待剩余回调。
func (m *Manager) Shutdown(ctx context.Context) int {
	m.mu.Lock()
	callbacks := append([]entry(nil), m.callbacks...)
	m.mu.Unlock()

	if len(callbacks) == 0 {
		return 0
	}
	logger.Infof("开始优雅关闭，共 %d 个回调", len(callbacks))

	var (
		wg     sync.WaitGroup
		failMu sync.Mutex
		failed int
	)
	wg.Add(len(callbacks))
	for _, cb := range callbacks {
		go func(e entry) {
			defer wg.Done()
			if err := e.fn(ctx); err != nil {
				logger.WithField("callback", e.name).Errorf("关闭失败: %v", err)
				failMu.Lock()
				failed++
				failMu.Unlock()
			}
		}(cb)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Infof("所有关闭回调已完成")
	case <-ctx.Done():
		logger.Warnf("关闭超时: %v", ctx.Err())
		failMu.Lock()
		defer failMu.Unlock()
		return failed + 1
	}
	failMu.Lock()
	defer failMu.Unlock()
	return failed
}
