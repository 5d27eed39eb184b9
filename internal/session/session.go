// Package session runs one monitoring session: it owns the auto-refresh
// scheduler and at most one in-flight mode change, forwards status changes
// to a Notifier, applies option changes and turns wireless mode off when the
// network goes away (USB auto-disable).
package session

import (
	"context"
	"log"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/wadbctl/host/internal/config"
	"github.com/wadbctl/host/internal/modechange"
	"github.com/wadbctl/host/internal/options"
	"github.com/wadbctl/host/internal/refresh"
	"github.com/wadbctl/host/internal/status"
)

// AutoDisableDelay is the pause between observing a lost network and
// starting the disabling mode change.
const AutoDisableDelay = 200 * time.Millisecond

// Notifier receives everything a surface renders.
type Notifier interface {
	OnStatusChanged(snap status.Snapshot)
	OnModeChangeFailed(reasonCode string)
	OnModeChangeSettled()
}

// OptionsSource loads the persisted options.
type OptionsSource interface {
	Load(env options.Env) (*options.Options, error)
	Path() string
}

// Deps are the collaborators of a Session.
type Deps struct {
	Config    *config.Config
	Options   OptionsSource
	Env       options.Env
	Props     status.PropertyReader
	Processes status.ProcessFinder
	Addresses status.AddressResolver
	Runner    modechange.BatchRunner
	Notifier  Notifier
	// Surface is set for ambient sessions.
	Surface modechange.Surface
}

// Session is safe for concurrent use.
type Session struct {
	deps      Deps
	scheduler *refresh.Scheduler
	orch      *modechange.Orchestrator
	limiter   *rate.Limiter

	// mu serializes lifecycle changes and the check-and-spawn of mode
	// changes. It is never taken from a scheduler tick.
	mu        sync.Mutex
	suspended bool
	watcher   *optionsWatcher

	// refreshMu serializes analyses so notifications follow read order.
	refreshMu sync.Mutex

	// stateMu guards the fields below. It is only held briefly.
	stateMu      sync.Mutex
	opts         options.Snapshot
	analyzer     *status.Analyzer
	notified     bool
	lastNotified status.Status
	closed       bool
	autoDisable  *time.Timer
}

// New creates a Session. Nothing runs until Open.
func New(deps Deps) *Session {
	s := &Session{
		deps:    deps,
		limiter: rate.NewLimiter(rate.Limit(deps.Config.RefreshRatePerSec), 1),
	}
	s.scheduler = refresh.New(s.refreshStatus)
	s.opts = options.DefaultSnapshot()
	s.analyzer = s.newAnalyzer(s.opts)
	s.orch = modechange.New(modechange.Config{
		PortProperty:     deps.Config.PortProperty,
		DaemonName:       deps.Config.DaemonName,
		PollAttempts:     deps.Config.PollAttempts,
		PollInterval:     deps.Config.PollInterval(),
		AmbientUpDelay:   deps.Config.AmbientUpDelay(),
		AmbientDownDelay: deps.Config.AmbientDownDelay(),
	}, s.opts, deps.Runner, deps.Processes, analyzerProxy{s}, orchestratorNotifier{s}, deps.Surface)
	return s
}

// Open loads the options, starts auto refresh when configured, delivers a
// forced first status and starts watching the option blob. The first status
// is analyzed before Open returns, even when the scheduler is running.
func (s *Session) Open() {
	s.ProcessOptions()
	if !s.isClosed() {
		s.refreshStatus(true)
	}

	if s.deps.Config.Watch() {
		w, err := watchOptions(s.deps.Options.Path(), s.ProcessOptions)
		if err != nil {
			log.Printf("session: not watching options: %v", err)
			return
		}
		s.mu.Lock()
		if s.isClosed() {
			s.mu.Unlock()
			w.Close()
			return
		}
		s.watcher = w
		s.mu.Unlock()
	}
}

// ProcessOptions reloads the options and restarts auto refresh so ticks
// start over. With USB auto-disable on, the status is checked right away.
func (s *Session) ProcessOptions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isClosed() {
		return
	}

	s.scheduler.Stop()

	loaded, err := s.deps.Options.Load(s.deps.Env)
	if err != nil {
		log.Printf("session: using default options: %v", err)
	}
	snap := loaded.Snapshot()

	s.stateMu.Lock()
	if snap.Interface != s.opts.Interface {
		s.analyzer = s.newAnalyzer(snap)
	}
	s.opts = snap
	s.stateMu.Unlock()
	s.orch.SetOptions(snap)

	if snap.AutoDisable {
		s.refreshStatus(false)
	}
	if !s.suspended {
		s.scheduler.Start(snap.RefreshInterval)
	}
}

// Options returns the snapshot currently in effect.
func (s *Session) Options() options.Snapshot {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.opts
}

// Refresh requests a status check. A running scheduler is woken to do it,
// otherwise it runs on the caller's goroutine. Non-forced requests are rate
// limited and dropped when over the limit.
func (s *Session) Refresh(force bool) {
	if s.isClosed() {
		return
	}
	if !force && !s.limiter.Allow() {
		if s.deps.Config.Verbose {
			log.Printf("session: refresh request dropped by rate limit")
		}
		return
	}
	if s.scheduler.Kick(force) {
		return
	}
	s.refreshStatus(force)
}

// refreshStatus analyzes and notifies when forced or when the status moved.
// It is also the scheduler tick.
func (s *Session) refreshStatus(force bool) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	snap := s.currentAnalyzer().Analyze(context.Background())
	s.publish(snap, force)

	s.stateMu.Lock()
	autoDisable := s.opts.AutoDisable
	s.stateMu.Unlock()
	if autoDisable && snap.Status == status.NoNetwork && snap.WirelessActive {
		s.scheduleAutoDisable()
	}
}

func (s *Session) publish(snap status.Snapshot, force bool) {
	s.stateMu.Lock()
	if s.closed {
		s.stateMu.Unlock()
		return
	}
	changed := !s.notified || snap.Status != s.lastNotified
	if force || changed {
		s.notified = true
		s.lastNotified = snap.Status
	}
	s.stateMu.Unlock()

	if force || changed {
		s.deps.Notifier.OnStatusChanged(snap)
	}
}

func (s *Session) scheduleAutoDisable() {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	if s.closed || s.autoDisable != nil {
		return
	}
	log.Printf("session: network lost with wireless mode on, disabling in %v", AutoDisableDelay)
	s.autoDisable = time.AfterFunc(AutoDisableDelay, func() {
		s.stateMu.Lock()
		s.autoDisable = nil
		s.stateMu.Unlock()
		s.StartModeChange(false, false)
	})
}

// StartModeChange spawns a mode change unless one is running or the session
// is closed.
func (s *Session) StartModeChange(enable, explicit bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isClosed() {
		return false
	}
	return s.orch.StartModeChange(enable, explicit)
}

// Toggle flips the mode based on the last status. It reports false when the
// status offers no toggle or a mode change is already running.
func (s *Session) Toggle(explicit bool) bool {
	enable, ok := ToggleTarget(s.Snapshot())
	if !ok {
		return false
	}
	return s.StartModeChange(enable, explicit)
}

// ApplyConnectionSettings re-enables wireless mode so new connection
// options take effect. It does nothing unless the daemon is Up.
func (s *Session) ApplyConnectionSettings() bool {
	snap := s.currentAnalyzer().Analyze(context.Background())
	if snap.Status != status.Up {
		return false
	}
	return s.StartModeChange(true, true)
}

// WaitModeChange blocks until the running mode change finishes.
func (s *Session) WaitModeChange() (modechange.Result, bool) {
	return s.orch.Wait()
}

// ModeChangeRunning reports whether a mode change is in flight.
func (s *Session) ModeChangeRunning() bool {
	return s.orch.Running()
}

// Snapshot returns the last analysis.
func (s *Session) Snapshot() status.Snapshot {
	return s.currentAnalyzer().Last()
}

// ConnectString renders the connect command for the last analysis.
func (s *Session) ConnectString() (string, bool) {
	return s.currentAnalyzer().ConnectString()
}

// Suspend stops auto refresh until Resume, as when the screen turns off.
func (s *Session) Suspend() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suspended = true
	s.scheduler.Stop()
}

// Resume refreshes and restarts auto refresh if configured.
func (s *Session) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isClosed() {
		return
	}
	s.suspended = false
	if !s.scheduler.Kick(false) {
		s.refreshStatus(false)
	}
	s.scheduler.Start(s.Options().RefreshInterval)
}

// AutoRefreshRunning reports whether the scheduler loop is active.
func (s *Session) AutoRefreshRunning() bool {
	return s.scheduler.Running()
}

// Close stops auto refresh, interrupts a running mode change and stops
// watching options. No notification is delivered after Close returns,
// except by a mode change that was already past its waits.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stateMu.Lock()
	if s.closed {
		s.stateMu.Unlock()
		return
	}
	s.closed = true
	if s.autoDisable != nil {
		s.autoDisable.Stop()
		s.autoDisable = nil
	}
	s.stateMu.Unlock()

	if s.watcher != nil {
		s.watcher.Close()
		s.watcher = nil
	}
	s.orch.Interrupt()
	s.scheduler.Stop()
}

func (s *Session) isClosed() bool {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.closed
}

func (s *Session) currentAnalyzer() *status.Analyzer {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.analyzer
}

func (s *Session) newAnalyzer(opts options.Snapshot) *status.Analyzer {
	return status.NewAnalyzer(status.Config{
		PortProperty: s.deps.Config.PortProperty,
		DaemonName:   s.deps.Config.DaemonName,
		ConnectVerb:  s.deps.Config.ConnectVerb,
		Interface:    opts.Interface,
	}, s.deps.Props, s.deps.Processes, s.deps.Addresses)
}

// ToggleTarget returns the mode a toggle should switch to. Up and a lost
// network with wireless mode still on offer disabling, Down offers
// enabling, anything else offers nothing.
func ToggleTarget(snap status.Snapshot) (enable bool, ok bool) {
	switch snap.Status {
	case status.Down:
		return true, true
	case status.Up:
		return false, true
	case status.NoNetwork:
		return false, snap.WirelessActive
	default:
		return false, false
	}
}

// analyzerProxy lets the orchestrator analyze with whichever analyzer is
// current when it asks.
type analyzerProxy struct{ s *Session }

func (p analyzerProxy) Analyze(ctx context.Context) status.Snapshot {
	p.s.refreshMu.Lock()
	defer p.s.refreshMu.Unlock()
	return p.s.currentAnalyzer().Analyze(ctx)
}

// orchestratorNotifier forwards mode change outcomes. The post-change
// status is always delivered and the scheduler is kicked so its next
// natural tick is a full interval away.
type orchestratorNotifier struct{ s *Session }

func (n orchestratorNotifier) OnStatusChanged(snap status.Snapshot) {
	n.s.publish(snap, true)
	n.s.scheduler.Kick(false)
}

func (n orchestratorNotifier) OnModeChangeFailed(code string) {
	if !n.s.isClosed() {
		n.s.deps.Notifier.OnModeChangeFailed(code)
	}
}

func (n orchestratorNotifier) OnModeChangeSettled() {
	if !n.s.isClosed() {
		n.s.deps.Notifier.OnModeChangeSettled()
	}
}
