// Package dashboard 在终端里实时显示一致性检查的进度。
package dashboard

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/betbot/gausscdf/internal/conformance"
)

var log = logrus.WithField("module", "dashboard")

// Snapshot 某一时刻的界面数据
type Snapshot struct {
	Title   string
	Source  string
	Done    int
	Total   int
	Failed  int
	Started time.Time

	// 以下字段只在结束时填写
	Finished bool
	Report   *conformance.Report
	Err      error
}

// Dashboard 把 worker 的进度回调转成 bubbletea 消息
type Dashboard struct {
	mu       sync.Mutex
	snapshot Snapshot

	updateCh    chan *Snapshot
	program     *tea.Program
	programDone chan struct{}
}

// New 创建 dashboard，Start 之前不会占用终端。
func New(title, source string) *Dashboard {
	return &Dashboard{
		snapshot: Snapshot{
			Title:   title,
			Source:  source,
			Started: time.Now(),
		},
		updateCh:    make(chan *Snapshot, 1),
		programDone: make(chan struct{}),
	}
}

// Progress 可作为 conformance.Options.Progress，多个 worker 并发调用。
// 回调到达顺序与完成顺序不一定一致，只保留最大的计数。
func (d *Dashboard) Progress(p conformance.Progress) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if p.Done > d.snapshot.Done {
		d.snapshot.Done = p.Done
	}
	if p.Failed > d.snapshot.Failed {
		d.snapshot.Failed = p.Failed
	}
	d.snapshot.Total = p.Total
	d.publishLocked()
}

// Finish 推送最终结果，界面渲染完后自行退出。
func (d *Dashboard) Finish(rep *conformance.Report, err error) {
	d.mu.Lock()
	d.snapshot.Finished = true
	d.snapshot.Report = rep
	d.snapshot.Err = err
	if rep != nil {
		d.snapshot.Done = rep.Total
		d.snapshot.Total = rep.Total
		d.snapshot.Failed = rep.Failed
	}
	d.publishLocked()
	d.mu.Unlock()
}

// publishLocked 非阻塞投递，通道满时用最新快照替换旧的
func (d *Dashboard) publishLocked() {
	snap := d.snapshot
	for {
		select {
		case d.updateCh <- &snap:
			return
		default:
		}
		select {
		case <-d.updateCh:
		default:
		}
	}
}

// Snapshot 返回当前数据的副本
func (d *Dashboard) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshot
}

// Start 在后台运行界面。opts 透传给 tea.NewProgram（测试时可指定输入输出）。
func (d *Dashboard) Start(opts ...tea.ProgramOption) {
	d.mu.Lock()
	initial := d.snapshot
	d.mu.Unlock()

	d.program = tea.NewProgram(newModel(&initial, d.updateCh, sendInterrupt), opts...)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Errorf("Dashboard UI panic: %v", r)
			}
			close(d.programDone)
		}()
		if _, err := d.program.Run(); err != nil {
			log.Errorf("Dashboard UI 退出: %v", err)
		}
	}()
}

// Wait 等待界面退出；最多等 timeout，超时后强制结束。
func (d *Dashboard) Wait(timeout time.Duration) {
	if d.program == nil {
		return
	}
	select {
	case <-d.programDone:
	case <-time.After(timeout):
		d.program.Kill()
		<-d.programDone
	}
}
