// Package store persists the option set as a small versioned, compressed blob.
//
// Load never fails the caller: a missing or empty blob silently yields
// defaults, and a structurally invalid one is logged and also yields defaults.
// Save rewrites the whole blob, preserving records for keys it does not know.
package store

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	hostErrors "github.com/wadbctl/host/internal/errors"
	"github.com/wadbctl/host/internal/options"
)

// Store reads and writes the option blob at one path.
type Store struct {
	path string

	// Seams for tests.
	readFile   func(string) ([]byte, error)
	createTemp func(dir, pattern string) (*os.File, error)
}

// New creates a Store for path.
func New(path string) *Store {
	return &Store{
		path:      path,
		readFile:   os.ReadFile,
		createTemp: os.CreateTemp,
	}
}

// Path returns the blob location.
func (s *Store) Path() string {
	return s.path
}

// Load returns the persisted options. The returned options are always
// usable. The error is non-nil only for an unreadable or invalid blob, in
// which case every option is at its default.
func (s *Store) Load(env options.Env) (*options.Options, error) {
	opts := options.New(env)

	records, err := s.readRecords()
	if err != nil {
		log.Printf("store: ignoring option blob %s: %v", s.path, err)
		return opts, err
	}

	for _, rec := range records {
		opt, err := opts.Lookup(rec.Key)
		if err != nil {
			continue
		}
		if err := opt.SetValue(rec.Value); err != nil {
			log.Printf("store: keeping default for %s: %v", rec.Key, err)
		}
	}
	return opts, nil
}

// readRecords returns nil records without error for a missing or empty file.
func (s *Store) readRecords() ([]Record, error) {
	data, err := s.readFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, hostErrors.Wrap(hostErrors.CodePersistReadFailed, "failed to read "+s.path, err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	return Decode(bytes.NewReader(data))
}

// Save rewrites the blob with the current option values. Records of keys
// the option set does not know are carried over from the existing blob. The
// new blob replaces the old one by rename, so a failed save leaves the
// previous blob intact.
func (s *Store) Save(opts *options.Options) error {
	values := opts.Values()

	var records []Record
	for _, opt := range opts.All() {
		records = append(records, Record{Key: opt.Key(), Value: values[opt.Key()]})
	}

	existing, err := s.readRecords()
	if err != nil {
		log.Printf("store: overwriting unreadable option blob %s: %v", s.path, err)
		existing = nil
	}
	var carried []Record
	for _, rec := range existing {
		if _, known := values[rec.Key]; !known {
			carried = append(carried, rec)
		}
	}
	sort.SliceStable(carried, func(i, j int) bool { return carried[i].Key < carried[j].Key })
	records = append(records, carried...)

	data, err := Encode(records)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return hostErrors.Wrap(hostErrors.CodePersistWriteFailed, "failed to create option directory", err)
	}
	if err := s.atomicWrite(data, 0600); err != nil {
		return hostErrors.Wrap(hostErrors.CodePersistWriteFailed, "failed to write "+s.path, err)
	}
	return nil
}

// atomicWrite writes data to a temp file next to the blob and renames it
// over the blob.
func (s *Store) atomicWrite(data []byte, perm os.FileMode) error {
	tmp, err := s.createTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+"-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if err := tmp.Chmod(perm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	success = true
	return nil
}
