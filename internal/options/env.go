package options

import (
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// Env is the host knowledge option validators need.
type Env interface {
	// SearchPath lists the directories searched for relative executables.
	SearchPath() []string
	IsExecutable(path string) bool
	// InterfaceResolves reports whether an interface spec ("name[:4|:6]")
	// currently yields an address.
	InterfaceResolves(name string) bool
}

// HostEnv is the Env of the running host.
type HostEnv struct {
	// PathList overrides $PATH when non-empty.
	PathList string
	// Resolve backs InterfaceResolves. Nil rejects every interface.
	Resolve func(name string) bool
}

// SearchPath splits PATH on ':' and ';'.
func (e HostEnv) SearchPath() []string {
	list := e.PathList
	if list == "" {
		list = os.Getenv("PATH")
	}
	return strings.FieldsFunc(list, func(r rune) bool { return r == ':' || r == ';' })
}

// IsExecutable reports whether path exists, is not a directory and passes
// an X_OK access check for the current user.
func (e HostEnv) IsExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return unix.Access(path, unix.X_OK) == nil
}

func (e HostEnv) InterfaceResolves(name string) bool {
	if e.Resolve == nil {
		return false
	}
	return e.Resolve(name)
}

// ValidateExecPath applies the executable-search rule: an absolute path must
// be executable itself, a relative one must be executable inside one of the
// search path directories.
func ValidateExecPath(env Env, path string) bool {
	if path == "" {
		return false
	}
	if filepath.IsAbs(path) {
		return env.IsExecutable(path)
	}
	for _, dir := range env.SearchPath() {
		if env.IsExecutable(filepath.Join(dir, path)) {
			return true
		}
	}
	return false
}
