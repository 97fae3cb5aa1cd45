// Package syncgroup 包装 sync.WaitGroup，自动管理 Add/Done。
package syncgroup

import (
	"sync"
)

// SyncGroup 先 Add 注册函数，再 Run 一次性启动，Wait 等待全部结束。
// 零值可用。
type SyncGroup struct {
	wg sync.WaitGroup

	mu  sync.Mutex
	fns []func()
}

// Add 注册一个函数，nil 忽略。Run 之后注册的函数要等下一次 Run 才会启动。
func (g *SyncGroup) Add(fn func()) {
	if fn == nil {
		return
	}
	g.mu.Lock()
	g.fns = append(g.fns, fn)
	g.mu.Unlock()
}

// AddWorkers 注册 n 个 worker，每个拿到自己的编号 [0, n)。
func (g *SyncGroup) AddWorkers(n int, fn func(id int)) {
	for i := 0; i < n; i++ {
		id := i
		g.Add(func() { fn(id) })
	}
}

// Run 启动所有已注册的函数并清空注册列表
func (g *SyncGroup) Run() {
	g.mu.Lock()
	fns := g.fns
	g.fns = nil
	g.mu.Unlock()

	g.wg.Add(len(fns))
	for _, fn := range fns {
		go func(do func()) {
			defer g.wg.Done()
			do()
		}(fn)
	}
}

// Wait 等待所有已启动的 goroutine 完成
func (g *SyncGroup) Wait() {
	g.wg.Wait()
}
