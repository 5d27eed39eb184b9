package modechange

import (
	"context"
	"time"

	"github.com/wadbctl/host/internal/status"
)

// Notifier receives the outcome of mode change attempts.
type Notifier interface {
	OnStatusChanged(snap status.Snapshot)
	// OnModeChangeFailed is called at most once per attempt, with a stable
	// error code, when the shell batch did not complete.
	OnModeChangeFailed(reasonCode string)
	// OnModeChangeSettled is called after the post-change status has been
	// delivered. It is not called for interrupted attempts.
	OnModeChangeSettled()
}

// Surface is an ambient display that closes itself after a mode change.
type Surface interface {
	Close()
	Closed() bool
}

// BatchRunner executes a privileged statement batch.
type BatchRunner interface {
	RunBatch(shell string, statements []string) error
}

// StatusSource produces a fresh status snapshot.
type StatusSource interface {
	Analyze(ctx context.Context) status.Snapshot
}

// Config holds the host-side parameters of a mode change.
type Config struct {
	PortProperty string
	DaemonName   string

	// PollAttempts and PollInterval bound the liveness poll after enabling.
	PollAttempts int
	PollInterval time.Duration

	// AmbientUpDelay and AmbientDownDelay are how long an ambient surface
	// stays open once the resulting status is known, for Up and for any
	// other status.
	AmbientUpDelay   time.Duration
	AmbientDownDelay time.Duration
}

// Result describes a finished attempt.
type Result struct {
	ID      string          `json:"id"`
	Enable  bool            `json:"enable"`
	Port    int             `json:"port"`
	Status  status.Snapshot `json:"status"`
	Err     error           `json:"-"`
	Aborted bool            `json:"aborted"`
}
