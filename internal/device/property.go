package device

import (
	"bufio"
	"context"
	"log"
	"os/exec"
	"strings"
)

// Getprop reads system properties through the getprop binary.
type Getprop struct {
	// execCommand allows mocking exec.CommandContext in tests.
	execCommand func(ctx context.Context, name string, arg ...string) *exec.Cmd
}

// NewGetprop creates a Getprop using the real getprop binary.
func NewGetprop() *Getprop {
	return &Getprop{execCommand: exec.CommandContext}
}

// Property returns the first line of `getprop name`, up to any carriage
// return. An empty value or a failed command reports absence.
func (g *Getprop) Property(ctx context.Context, name string) (string, bool) {
	out, err := g.execCommand(ctx, "getprop", name).Output()
	if err != nil {
		log.Printf("device: getprop %s failed: %v", name, err)
		return "", false
	}

	sc := bufio.NewScanner(strings.NewReader(string(out)))
	if !sc.Scan() {
		return "", false
	}
	line, _, _ := strings.Cut(sc.Text(), "\r")
	if line == "" {
		return "", false
	}
	return line, true
}
