// Package store persists the application state as YAML files, one per
// collection, with crash-consistent writes: content lands in a temp file
// that is validated and renamed over the original, so a write either
// succeeds fully or the prior file remains intact.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	yamlv3 "gopkg.in/yaml.v3"

	"applyflow/internal/history"
	"applyflow/internal/ledger"
	"applyflow/internal/profile"
	"applyflow/internal/queue"
	"applyflow/internal/schedule"
)

const (
	profileFile   = "profile.yaml"
	queueFile     = "queue.yaml"
	historyFile   = "history.yaml"
	ledgerFile    = "ledger.yaml"
	schedulerFile = "scheduler.yaml"
)

// PersistenceError reports a failed load or save. The on-disk state is left
// untouched by failed saves; malformed files are surfaced, never repaired.
type PersistenceError struct {
	Path string
	Op   string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Store owns the data directory holding all persisted collections.
type Store struct {
	dir string
}

func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &PersistenceError{Path: dir, Op: "create", Err: err}
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Dir() string { return s.dir }

// atomicWrite marshals data and renames a validated temp file over path.
func atomicWrite(path string, data any) error {
	content, err := yamlv3.Marshal(data)
	if err != nil {
		return &PersistenceError{Path: path, Op: "marshal", Err: err}
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".applyflow-tmp-*.yaml")
	if err != nil {
		return &PersistenceError{Path: path, Op: "save", Err: err}
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(content); err != nil {
		return &PersistenceError{Path: path, Op: "save", Err: err}
	}
	if err := tmp.Sync(); err != nil {
		return &PersistenceError{Path: path, Op: "save", Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &PersistenceError{Path: path, Op: "save", Err: err}
	}

	// Re-read and re-parse before the rename so a torn write can never
	// replace a good file.
	written, err := os.ReadFile(tmpName)
	if err != nil {
		return &PersistenceError{Path: path, Op: "save", Err: err}
	}
	var check any
	if err := yamlv3.Unmarshal(written, &check); err != nil {
		return &PersistenceError{Path: path, Op: "validate", Err: err}
	}

	if err := os.Rename(tmpName, path); err != nil {
		return &PersistenceError{Path: path, Op: "rename", Err: err}
	}
	return nil
}

// load unmarshals path into target. Returns false with no error when the
// file does not exist yet.
func load(path string, target any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, &PersistenceError{Path: path, Op: "load", Err: err}
	}
	if err := yamlv3.Unmarshal(data, target); err != nil {
		return false, &PersistenceError{Path: path, Op: "parse", Err: err}
	}
	return true, nil
}

func (s *Store) LoadProfile() (*profile.Profile, error) {
	p := &profile.Profile{}
	if _, err := load(filepath.Join(s.dir, profileFile), p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Store) SaveProfile(p *profile.Profile) error {
	return atomicWrite(filepath.Join(s.dir, profileFile), p)
}

func (s *Store) LoadQueue() (*queue.Queue, error) {
	q := queue.New()
	if _, err := load(filepath.Join(s.dir, queueFile), q); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *Store) SaveQueue(q *queue.Queue) error {
	return atomicWrite(filepath.Join(s.dir, queueFile), q)
}

func (s *Store) LoadHistory() (*history.History, error) {
	h := history.New()
	if _, err := load(filepath.Join(s.dir, historyFile), h); err != nil {
		return nil, err
	}
	return h, nil
}

func (s *Store) SaveHistory(h *history.History) error {
	return atomicWrite(filepath.Join(s.dir, historyFile), h)
}

func (s *Store) LoadLedger() (*ledger.Ledger, error) {
	l := ledger.New()
	if _, err := load(filepath.Join(s.dir, ledgerFile), l); err != nil {
		return nil, err
	}
	return l, nil
}

func (s *Store) SaveLedger(l *ledger.Ledger) error {
	return atomicWrite(filepath.Join(s.dir, ledgerFile), l)
}

func (s *Store) LoadSchedulerState() (schedule.State, error) {
	var st schedule.State
	if _, err := load(filepath.Join(s.dir, schedulerFile), &st); err != nil {
		return schedule.State{}, err
	}
	return st, nil
}

func (s *Store) SaveSchedulerState(st schedule.State) error {
	return atomicWrite(filepath.Join(s.dir, schedulerFile), st)
}
