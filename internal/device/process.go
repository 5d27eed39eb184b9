package device

import (
	"bufio"
	"bytes"
	"context"
	"log"
	"os/exec"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/process"
)

// ProcessInfo is the subset of a process table entry used for matching.
type ProcessInfo struct {
	Pid     int
	Name    string
	Cmdline string
}

// ProcessTable finds daemon processes. It reads the process table through
// gopsutil and falls back to parsing `ps <name>` when the table cannot be
// listed (restricted /proc).
type ProcessTable struct {
	listProcesses func(ctx context.Context) ([]ProcessInfo, error)
	execCommand   func(ctx context.Context, name string, arg ...string) *exec.Cmd
}

// NewProcessTable creates a ProcessTable over the live host.
func NewProcessTable() *ProcessTable {
	return &ProcessTable{
		listProcesses: listHostProcesses,
		execCommand:   exec.CommandContext,
	}
}

// FindProcess returns the pid of the first process named name, or whose
// command line runs a binary ending in "/name".
func (t *ProcessTable) FindProcess(ctx context.Context, name string) (int, bool) {
	procs, err := t.listProcesses(ctx)
	if err != nil {
		log.Printf("device: process table unavailable, falling back to ps: %v", err)
		return t.findWithPs(ctx, name)
	}

	suffix := "/" + name
	for _, p := range procs {
		if p.Pid <= 0 {
			continue
		}
		if p.Name == name {
			return p.Pid, true
		}
		if exe, _, _ := strings.Cut(p.Cmdline, " "); strings.HasSuffix(exe, suffix) {
			return p.Pid, true
		}
	}
	return 0, false
}

// findWithPs scans `ps name` output for a line mentioning "/name" and takes
// the second column as the pid.
func (t *ProcessTable) findWithPs(ctx context.Context, name string) (int, bool) {
	out, err := t.execCommand(ctx, "ps", name).Output()
	if err != nil {
		log.Printf("device: ps %s failed: %v", name, err)
		return 0, false
	}
	return parsePsOutput(out, name)
}

func parsePsOutput(out []byte, name string) (int, bool) {
	marker := "/" + name
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := sc.Text()
		if !strings.Contains(line, marker) {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		pid, err := strconv.Atoi(fields[1])
		if err != nil || pid <= 0 {
			return 0, false
		}
		return pid, true
	}
	return 0, false
}

func listHostProcesses(ctx context.Context) ([]ProcessInfo, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}

	infos := make([]ProcessInfo, 0, len(procs))
	for _, p := range procs {
		// Processes can exit between listing and inspection; skip them.
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		cmdline, _ := p.CmdlineWithContext(ctx)
		infos = append(infos, ProcessInfo{Pid: int(p.Pid), Name: name, Cmdline: cmdline})
	}
	return infos, nil
}
