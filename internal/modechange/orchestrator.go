// Package modechange flips the daemon between network and local-only mode.
//
// A mode change sets the port property, restarts the daemon through one
// privileged shell batch, waits briefly for the daemon to come back and
// reports the resulting status. At most one attempt runs at a time.
package modechange

import (
	"context"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	hostErrors "github.com/wadbctl/host/internal/errors"
	"github.com/wadbctl/host/internal/options"
	"github.com/wadbctl/host/internal/status"
)

// attempt is one in-flight mode change.
type attempt struct {
	id       string
	enable   bool
	explicit bool
	opts     options.Snapshot
	cancel   context.CancelFunc
	done     chan struct{}
	result   Result
}

// Orchestrator runs mode change attempts off the caller's goroutine.
type Orchestrator struct {
	cfg       Config
	runner    BatchRunner
	processes status.ProcessFinder
	analyzer  StatusSource
	notifier  Notifier
	surface   Surface // nil for interactive use

	mu   sync.Mutex
	opts options.Snapshot
	cur  *attempt
	last *attempt
}

// New creates an Orchestrator. surface may be nil.
func New(cfg Config, opts options.Snapshot, runner BatchRunner, processes status.ProcessFinder,
	analyzer StatusSource, notifier Notifier, surface Surface) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		opts:      opts,
		runner:    runner,
		processes: processes,
		analyzer:  analyzer,
		notifier:  notifier,
		surface:   surface,
	}
}

// SetOptions replaces the options used by later attempts. An attempt in
// flight keeps the snapshot it started with.
func (o *Orchestrator) SetOptions(opts options.Snapshot) {
	o.mu.Lock()
	o.opts = opts
	o.mu.Unlock()
}

// StartModeChange spawns an attempt and returns immediately. It reports
// false and does nothing while another attempt is running.
//
// explicit marks a user request. Only explicit attempts close the ambient
// surface afterwards.
func (o *Orchestrator) StartModeChange(enable, explicit bool) bool {
	o.mu.Lock()
	if o.cur != nil {
		o.mu.Unlock()
		log.Printf("modechange: request dropped, attempt %s still running", o.cur.id)
		return false
	}
	ctx, cancel := context.WithCancel(context.Background())
	a := &attempt{
		id:       uuid.New().String(),
		enable:   enable,
		explicit: explicit,
		opts:     o.opts,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	o.cur = a
	o.mu.Unlock()

	go o.run(ctx, a)
	return true
}

// Running reports whether an attempt is in flight.
func (o *Orchestrator) Running() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.cur != nil
}

// Interrupt aborts the waits of the running attempt. A shell batch that has
// already been issued is not rolled back.
func (o *Orchestrator) Interrupt() {
	o.mu.Lock()
	a := o.cur
	o.mu.Unlock()
	if a != nil {
		a.cancel()
	}
}

// Wait blocks until the running attempt finishes and returns its result.
// With nothing running it returns the last result; ok is false if no
// attempt ever ran.
func (o *Orchestrator) Wait() (Result, bool) {
	o.mu.Lock()
	a := o.cur
	if a == nil {
		a = o.last
	}
	o.mu.Unlock()
	if a == nil {
		return Result{}, false
	}
	<-a.done
	return a.result, true
}

func (o *Orchestrator) finish(a *attempt) {
	a.cancel()
	o.mu.Lock()
	o.cur = nil
	o.last = a
	o.mu.Unlock()
	close(a.done)
}

func (o *Orchestrator) run(ctx context.Context, a *attempt) {
	defer o.finish(a)

	port := status.DisabledPort
	if a.enable {
		port = a.opts.Port
	}
	a.result = Result{ID: a.id, Enable: a.enable, Port: port}

	if ctx.Err() != nil {
		a.result.Aborted = true
		log.Printf("modechange: attempt %s interrupted before start", a.id)
		return
	}

	statements := o.buildBatch(ctx, port, a.opts.ForceKill)
	log.Printf("modechange: attempt %s enable=%v port=%d shell=%s", a.id, a.enable, port, a.opts.ShellPath)

	if err := o.runner.RunBatch(a.opts.ShellPath, statements); err != nil {
		a.result.Err = err
		log.Printf("modechange: attempt %s could not execute: %v", a.id, err)
		o.notifier.OnModeChangeFailed(hostErrors.CodeModeChangeCouldNotExecute)
	}

	if port != status.DisabledPort && !o.awaitDaemon(ctx) {
		a.result.Aborted = true
		log.Printf("modechange: attempt %s interrupted while waiting for %s", a.id, o.cfg.DaemonName)
		return
	}

	// The status read is not a wait; an interrupt from here on only
	// skips the ambient delay.
	snap := o.analyzer.Analyze(context.WithoutCancel(ctx))
	a.result.Status = snap
	o.notifier.OnStatusChanged(snap)
	o.notifier.OnModeChangeSettled()
	log.Printf("modechange: attempt %s settled status=%s", a.id, snap.Status)

	if o.surface == nil || !a.explicit || o.surface.Closed() {
		return
	}
	delay := o.cfg.AmbientDownDelay
	if snap.Status == status.Up {
		delay = o.cfg.AmbientUpDelay
	}
	if delay > 0 && !sleep(ctx, delay) {
		a.result.Aborted = true
		return
	}
	if !o.surface.Closed() {
		o.surface.Close()
	}
}

// buildBatch returns the three statements: set the port property, stop the
// daemon, start it again. Forced restarts kill the daemon by pid when it is
// found and fall back to a graceful stop otherwise.
func (o *Orchestrator) buildBatch(ctx context.Context, port int, forceKill bool) []string {
	stop := "stop " + o.cfg.DaemonName
	if forceKill {
		if pid, ok := o.processes.FindProcess(ctx, o.cfg.DaemonName); ok && pid > 0 {
			stop = "kill -9 " + strconv.Itoa(pid)
		}
	}
	return []string{
		"setprop " + o.cfg.PortProperty + " " + strconv.Itoa(port),
		stop,
		"start " + o.cfg.DaemonName,
	}
}

// awaitDaemon polls for the daemon process. It returns false only when
// interrupted; running out of attempts is not a failure.
func (o *Orchestrator) awaitDaemon(ctx context.Context) bool {
	for i := 0; i < o.cfg.PollAttempts; i++ {
		if _, found := o.processes.FindProcess(ctx, o.cfg.DaemonName); found {
			return true
		}
		if !sleep(ctx, o.cfg.PollInterval) {
			return false
		}
	}
	return true
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
