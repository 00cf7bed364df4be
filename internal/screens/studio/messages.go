package studio

import (
	"sync"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/coursecraft/internal/workflow"
)

// snapshotMsg carries the latest workflow state into the update loop.
type snapshotMsg workflow.Snapshot

// actionErrMsg reports a rejected workflow operation.
type actionErrMsg struct{ err error }

// savedMsg reports the outcome of persisting the finished course.
type savedMsg struct {
	id  string
	err error
}

// feed coalesces workflow notifications so the UI always renders the most
// recent snapshot and never blocks the workflow.
type feed struct {
	mu     sync.Mutex
	latest workflow.Snapshot
	signal chan struct{}
}

func newFeed() *feed {
	return &feed{signal: make(chan struct{}, 1)}
}

func (f *feed) publish(s workflow.Snapshot) {
	f.mu.Lock()
	f.latest = s
	f.mu.Unlock()
	select {
	case f.signal <- struct{}{}:
	default:
	}
}

// wait blocks until a new snapshot is published.
func (f *feed) wait() tea.Cmd {
	return func() tea.Msg {
		<-f.signal
		f.mu.Lock()
		defer f.mu.Unlock()
		return snapshotMsg(f.latest)
	}
}

func act(fn func() error) tea.Cmd {
	return func() tea.Msg {
		if err := fn(); err != nil {
			return actionErrMsg{err: err}
		}
		return nil
	}
}
