// Package depdb implements the persistent target -> dependency-set map
// recorded in the ".remake" file: the union of each rule's static
// dependencies and whatever dynamic dependencies were discovered by
// nested remake invocations in previous runs.
package depdb

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"syscall"

	"github.com/mattjoyce/remake/internal/syntax"
)

// DB is a target -> set(dependency) map. It is not safe for concurrent
// use; the scheduler owns a single DB and mutates it synchronously.
type DB struct {
	deps map[string]map[string]struct{}
}

// New returns an empty dependency database.
func New() *DB {
	return &DB{deps: make(map[string]map[string]struct{})}
}

// Get returns the recorded dependencies of target, in sorted order for
// determinism. The returned slice is a copy.
func (db *DB) Get(target string) []string {
	set := db.deps[target]
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for d := range set {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// Insert records dep as a dependency of target.
func (db *DB) Insert(target, dep string) {
	set, ok := db.deps[target]
	if !ok {
		set = make(map[string]struct{})
		db.deps[target] = set
	}
	set[dep] = struct{}{}
}

// InsertAll records every dep in deps as a dependency of target.
func (db *DB) InsertAll(target string, deps []string) {
	for _, d := range deps {
		db.Insert(target, d)
	}
}

// Reset replaces target's dependency set outright, discarding whatever
// was previously recorded for it. Used when a job is about to rebuild a
// target: the target's dependency set is reset to the rule's static
// dependencies, and dynamic dependencies are re-learned as the job's
// script makes nested remake calls.
func (db *DB) Reset(target string, deps []string) {
	set := make(map[string]struct{}, len(deps))
	for _, d := range deps {
		set[d] = struct{}{}
	}
	db.deps[target] = set
}

// Targets returns all targets with a non-empty recorded dependency set.
func (db *DB) Targets() []string {
	out := make([]string, 0, len(db.deps))
	for t, set := range db.deps {
		if len(set) > 0 {
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}

// Load reads a dependency database from path. A missing file is not an
// error; Load then returns an empty database.
func Load(path string) (*DB, error) {
	db := New()
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return db, nil
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	for {
		target, err := syntax.ReadWord(r)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
		if target == "" {
			break
		}
		c, err := r.ReadByte()
		if err != nil || c != ':' {
			return nil, fmt.Errorf("load %s: malformed entry for target %q", path, target)
		}
		if err := syntax.SkipSpaces(r); err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
		for {
			dep, err := syntax.ReadWord(r)
			if err != nil {
				return nil, fmt.Errorf("load %s: %w", path, err)
			}
			if dep == "" {
				break
			}
			db.Insert(target, dep)
			if err := syntax.SkipSpaces(r); err != nil {
				return nil, fmt.Errorf("load %s: %w", path, err)
			}
		}
		if err := syntax.SkipEOL(r); err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}
	return db, nil
}

// Save writes the dependency database to path as plain text, one line per
// target with a non-empty dependency set. Targets and dependencies are
// escaped per syntax.EscapeWord. The write takes an exclusive flock on
// the destination file for the duration of the write so a concurrently
// running remake server in a sibling process cannot interleave a partial
// write with this one.
func (db *DB) Save(path string) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	if ferr := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); ferr != nil {
		return fmt.Errorf("lock %s: %w", path, ferr)
	}
	defer syscall.Flock(int(f.Fd()), syscall.LOCK_UN)

	if terr := f.Truncate(0); terr != nil {
		return fmt.Errorf("truncate %s: %w", path, terr)
	}
	if _, serr := f.Seek(0, 0); serr != nil {
		return fmt.Errorf("seek %s: %w", path, serr)
	}

	w := bufio.NewWriter(f)
	for _, target := range db.Targets() {
		deps := db.Get(target)
		if len(deps) == 0 {
			continue
		}
		if _, err := fmt.Fprintf(w, "%s: ", syntax.EscapeWord(target)); err != nil {
			return err
		}
		for _, d := range deps {
			if _, err := fmt.Fprintf(w, "%s ", syntax.EscapeWord(d)); err != nil {
				return err
			}
		}
		if _, err := w.WriteString("\n"); err != nil {
			return err
		}
	}
	return w.Flush()
}
