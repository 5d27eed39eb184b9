package main

import (
	"sync"

	"github.com/wadbctl/host/internal/status"
)

// ambientSurface stands in for a widget: it stays open until an explicit mode
// change closes it.
type ambientSurface struct {
	once   sync.Once
	closed chan struct{}
}

func newAmbientSurface() *ambientSurface {
	return &ambientSurface{closed: make(chan struct{})}
}

func (s *ambientSurface) Close() {
	s.once.Do(func() { close(s.closed) })
}

func (s *ambientSurface) Closed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

// Done is closed once the surface is.
func (s *ambientSurface) Done() <-chan struct{} {
	return s.closed
}

// collectingNotifier keeps the latest status and every failure code.
// onStatus and onSettled are optional.
type collectingNotifier struct {
	mu       sync.Mutex
	last     status.Snapshot
	failures []string

	onStatus  func(status.Snapshot)
	onFailed  func(code string)
	onSettled func(status.Snapshot)
}

func (n *collectingNotifier) OnStatusChanged(snap status.Snapshot) {
	n.mu.Lock()
	n.last = snap
	n.mu.Unlock()
	if n.onStatus != nil {
		n.onStatus(snap)
	}
}

func (n *collectingNotifier) OnModeChangeFailed(code string) {
	n.mu.Lock()
	n.failures = append(n.failures, code)
	n.mu.Unlock()
	if n.onFailed != nil {
		n.onFailed(code)
	}
}

func (n *collectingNotifier) OnModeChangeSettled() {
	if n.onSettled != nil {
		n.onSettled(n.latest())
	}
}

func (n *collectingNotifier) latest() status.Snapshot {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.last
}

func (n *collectingNotifier) failed() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.failures))
	copy(out, n.failures)
	return out
}
