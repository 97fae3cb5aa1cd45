package dashboard

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	barWidth     = 40
	maxFailLines = 5
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	badStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("39")).
			Padding(0, 1)
)

type updateMsg struct {
	snapshot *Snapshot
}

type tickMsg time.Time

type model struct {
	snapshot  *Snapshot
	updateCh  <-chan *Snapshot
	interrupt func()
	width     int
	now       func() time.Time
}

func newModel(initial *Snapshot, updateCh <-chan *Snapshot, interrupt func()) model {
	return model{
		snapshot:  initial,
		updateCh:  updateCh,
		interrupt: interrupt,
		now:       time.Now,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.waitForUpdate(), m.tick())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			// bubbletea 会吞掉 Ctrl+C，转发一次 SIGINT 让主程序的 context 取消
			if m.interrupt != nil && (m.snapshot == nil || !m.snapshot.Finished) {
				m.interrupt()
			}
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case updateMsg:
		m.snapshot = msg.snapshot
		if m.snapshot != nil && m.snapshot.Finished {
			return m, tea.Quit
		}
		return m, m.waitForUpdate()
	case tickMsg:
		return m, m.tick()
	}
	return m, nil
}

func (m model) View() string {
	snap := m.snapshot
	if snap == nil {
		return "等待数据..."
	}

	title := snap.Title
	if strings.TrimSpace(title) == "" {
		title = "Conformance"
	}
	var lines []string
	lines = append(lines, titleStyle.Render(fmt.Sprintf("%s | %s", title, snap.Source)))
	lines = append(lines, renderBar(snap.Done, snap.Total, barWidth))

	elapsed := m.now().Sub(snap.Started)
	if snap.Report != nil {
		elapsed = snap.Report.Duration
	}
	lines = append(lines, fmt.Sprintf("Done:%d/%d Failed:%d Elapsed:%s",
		snap.Done, snap.Total, snap.Failed, elapsed.Round(100*time.Millisecond)))

	if snap.Finished {
		lines = append(lines, "")
		lines = append(lines, m.renderResult(snap)...)
	} else {
		lines = append(lines, dimStyle.Render("q / ctrl+c 中止"))
	}
	return boxStyle.Render(strings.Join(lines, "\n")) + "\n"
}

func (m model) renderResult(snap *Snapshot) []string {
	if snap.Err != nil {
		return []string{badStyle.Render(fmt.Sprintf("Error: %v", snap.Err))}
	}
	rep := snap.Report
	if rep == nil {
		return nil
	}
	lines := []string{
		fmt.Sprintf("Passed:%d Rejected:%d MaxError:%s wei (line %d) Tolerance:%s wei",
			rep.Passed, rep.Rejected, rep.MaxError, rep.MaxErrorLine, rep.Tolerance),
	}
	if rep.OK() {
		return append(lines, okStyle.Render("Status: PASS"))
	}
	lines = append(lines, badStyle.Render(fmt.Sprintf("Status: FAIL (%d)", rep.Failed)))
	for i, f := range rep.Failures {
		if i == maxFailLines {
			lines = append(lines, dimStyle.Render(fmt.Sprintf("... %d more", len(rep.Failures)-i)))
			break
		}
		lines = append(lines, badStyle.Render(f.String()))
	}
	return lines
}

func renderBar(done, total, width int) string {
	filled := 0
	pct := 0.0
	if total > 0 {
		if done > total {
			done = total
		}
		filled = done * width / total
		pct = float64(done) * 100 / float64(total)
	}
	return fmt.Sprintf("[%s%s] %5.1f%%",
		okStyle.Render(strings.Repeat("█", filled)),
		dimStyle.Render(strings.Repeat("░", width-filled)),
		pct)
}

func (m model) waitForUpdate() tea.Cmd {
	return func() tea.Msg {
		snap := <-m.updateCh
		for {
			select {
			case latest := <-m.updateCh:
				snap = latest
			default:
				return updateMsg{snapshot: snap}
			}
		}
	}
}

func (m model) tick() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
