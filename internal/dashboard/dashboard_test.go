package dashboard

import (
	"errors"
	"io"
	"math/big"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/betbot/gausscdf/internal/conformance"
	"github.com/betbot/gausscdf/pkg/vectors"
)

func recordWithExpected(v int64) vectors.Record {
	return vectors.Record{Line: 7, X: big.NewInt(0), Mu: big.NewInt(0), Sigma: big.NewInt(1), Expected: big.NewInt(v)}
}

func TestProgressKeepsLargestCounts(t *testing.T) {
	d := New("Conformance", "vectors.csv")
	d.Progress(conformance.Progress{Done: 5, Total: 10, Failed: 1})
	d.Progress(conformance.Progress{Done: 3, Total: 10, Failed: 0})

	snap := d.Snapshot()
	assert.Equal(t, 5, snap.Done)
	assert.Equal(t, 1, snap.Failed)
	assert.Equal(t, 10, snap.Total)

	// 通道只保留最新一份
	latest := <-d.updateCh
	assert.Equal(t, 5, latest.Done)
	select {
	case extra := <-d.updateCh:
		t.Fatalf("unexpected extra snapshot %+v", extra)
	default:
	}
}

func TestFinishFillsCounts(t *testing.T) {
	d := New("", "x")
	rep := &conformance.Report{Total: 7, Passed: 4, Failed: 1, Rejected: 2, MaxError: big.NewInt(3), Tolerance: big.NewInt(10)}
	d.Finish(rep, nil)

	snap := d.Snapshot()
	assert.True(t, snap.Finished)
	assert.Equal(t, 7, snap.Done)
	assert.Equal(t, 7, snap.Total)
	assert.Equal(t, 1, snap.Failed)
}

func TestUpdateQuitsWhenFinished(t *testing.T) {
	m := newModel(&Snapshot{}, make(chan *Snapshot), nil)

	next, cmd := m.Update(updateMsg{snapshot: &Snapshot{Done: 1, Total: 2}})
	require.NotNil(t, cmd)
	assert.Equal(t, 1, next.(model).snapshot.Done)

	_, cmd = next.Update(updateMsg{snapshot: &Snapshot{Finished: true}})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestCtrlCForwardsInterrupt(t *testing.T) {
	calls := 0
	m := newModel(&Snapshot{}, make(chan *Snapshot), func() { calls++ })

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
	assert.Equal(t, 1, calls)

	// 已结束时退出不再发信号
	m.snapshot = &Snapshot{Finished: true}
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	assert.Equal(t, 1, calls)
}

func TestWaitForUpdateTakesLatest(t *testing.T) {
	ch := make(chan *Snapshot, 3)
	ch <- &Snapshot{Done: 1}
	ch <- &Snapshot{Done: 2}
	ch <- &Snapshot{Done: 3}
	m := newModel(nil, ch, nil)

	msg := m.waitForUpdate()()
	upd, ok := msg.(updateMsg)
	require.True(t, ok)
	assert.Equal(t, 3, upd.snapshot.Done)
}

func TestViewRunning(t *testing.T) {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	m := newModel(&Snapshot{Title: "Conformance", Source: "oracle.csv", Done: 50, Total: 200, Failed: 2, Started: start}, nil, nil)
	m.now = func() time.Time { return start.Add(1500 * time.Millisecond) }

	view := m.View()
	assert.Contains(t, view, "oracle.csv")
	assert.Contains(t, view, "Done:50/200 Failed:2")
	assert.Contains(t, view, "25.0%")
	assert.Contains(t, view, "1.5s")
	assert.Contains(t, view, "中止")
}

func TestViewFinished(t *testing.T) {
	failing := &conformance.Report{
		Total: 3, Passed: 2, Failed: 1,
		MaxError: big.NewInt(42), MaxErrorLine: 7, Tolerance: big.NewInt(10),
		Failures: []conformance.Failure{{Line: 7, Got: big.NewInt(1), Diff: big.NewInt(42), Record: recordWithExpected(43)}},
	}
	m := newModel(&Snapshot{Source: "s", Finished: true, Report: failing, Done: 3, Total: 3, Failed: 1}, nil, nil)
	view := m.View()
	assert.Contains(t, view, "FAIL (1)")
	assert.Contains(t, view, "line 7")
	assert.Contains(t, view, "MaxError:42 wei")

	passing := &conformance.Report{Total: 1, Passed: 1, MaxError: big.NewInt(0), Tolerance: big.NewInt(10)}
	m.snapshot = &Snapshot{Source: "s", Finished: true, Report: passing}
	assert.Contains(t, m.View(), "PASS")

	m.snapshot = &Snapshot{Source: "s", Finished: true, Err: errors.New("boom")}
	assert.Contains(t, m.View(), "Error: boom")
}

func TestRenderBar(t *testing.T) {
	assert.Contains(t, renderBar(5, 10, 10), "50.0%")
	assert.Contains(t, renderBar(0, 0, 10), "0.0%")
	assert.Contains(t, renderBar(20, 10, 10), "100.0%")
}

func TestDashboardRunsUntilFinish(t *testing.T) {
	d := New("Conformance", "vectors.csv")
	d.Start(
		tea.WithInput(nil),
		tea.WithOutput(io.Discard),
		tea.WithoutSignalHandler(),
	)
	d.Progress(conformance.Progress{Done: 1, Total: 2})
	d.Finish(&conformance.Report{Total: 2, Passed: 2, MaxError: big.NewInt(0), Tolerance: big.NewInt(0)}, nil)
	d.Wait(5 * time.Second)

	select {
	case <-d.programDone:
	default:
		t.Fatal("program still running")
	}
}
