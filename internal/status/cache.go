// Package status computes and memoizes target freshness: the fixpoint
// over a target's recorded dependency graph that decides whether it
// needs to be rebuilt.
package status

import (
	"os"
	"time"

	"github.com/mattjoyce/remake/internal/depdb"
	"github.com/mattjoyce/remake/internal/log"
)

// State is a target's place in the build lifecycle.
type State int

const (
	// Uptodate means the target's file is at least as new as every
	// dependency, recursively.
	Uptodate State = iota
	// Todo means the target is missing, stale, or has a stale dependency.
	Todo
	// Running means a job is currently rebuilding the target.
	Running
	// Remade means a job rebuilt the target successfully.
	Remade
	// Failed means a job building the target exited with an error, or
	// no rule could build it.
	Failed
)

func (s State) String() string {
	switch s {
	case Uptodate:
		return "uptodate"
	case Todo:
		return "todo"
	case Running:
		return "running"
	case Remade:
		return "remade"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

type entry struct {
	state     State
	modTime   time.Time
	computing bool
}

// Cache memoizes target status against a dependency database. It is not
// safe for concurrent use.
type Cache struct {
	db      *depdb.DB
	entries map[string]*entry
}

// New returns a cache backed by db. db is consulted lazily as targets are
// evaluated, so later mutations to db (e.g. depdb.DB.Reset when a job
// starts) are picked up by subsequent Evaluate calls on targets not yet
// memoized.
func New(db *depdb.DB) *Cache {
	return &Cache{db: db, entries: make(map[string]*entry)}
}

// Evaluate returns target's memoized status, computing it on first access
// by statting the file and recursively evaluating every recorded
// dependency. A target with no file and no rule is Todo here; it is the
// scheduler's job to turn that into a hard error once it confirms there
// is no rule to build it.
//
// A dependency cycle (a target that is its own transitive dependency) is
// detected via the computing flag and reported as a warning; the cyclic
// edge is treated as satisfied so evaluation still terminates, rather
// than the undefined behavior of looping forever.
func (c *Cache) Evaluate(target string) State {
	if e, ok := c.entries[target]; ok {
		if e.computing {
			log.Warn("dependency cycle detected, breaking edge", "target", target)
			return Uptodate
		}
		return e.state
	}

	e := &entry{computing: true}
	c.entries[target] = e

	info, err := os.Stat(target)
	if err != nil {
		e.state = Todo
		e.computing = false
		return Todo
	}
	mtime := info.ModTime()

	upToDate := true
	for _, dep := range c.db.Get(target) {
		depState := c.Evaluate(dep)
		if depState != Uptodate || c.ModTime(dep).After(mtime) {
			upToDate = false
			break
		}
	}

	if upToDate {
		e.state = Uptodate
	} else {
		e.state = Todo
	}
	e.modTime = mtime
	e.computing = false
	return e.state
}

// ModTime returns the mtime recorded for target the last time it was
// evaluated (zero if it has never been evaluated or did not exist).
func (c *Cache) ModTime(target string) time.Time {
	if e, ok := c.entries[target]; ok {
		return e.modTime
	}
	return time.Time{}
}

// StateOf returns target's current memoized state without evaluating it;
// it is the caller's responsibility to have called Evaluate or one of the
// Mark* setters first.
func (c *Cache) StateOf(target string) (State, bool) {
	e, ok := c.entries[target]
	if !ok {
		return Uptodate, false
	}
	return e.state, true
}

// MarkRunning records that a job has started rebuilding target.
func (c *Cache) MarkRunning(target string) {
	c.set(target, Running)
}

// MarkRemade records that a job successfully rebuilt target.
func (c *Cache) MarkRemade(target string) {
	c.set(target, Remade)
}

// MarkFailed records that a job failed to build target.
func (c *Cache) MarkFailed(target string) {
	c.set(target, Failed)
}

func (c *Cache) set(target string, s State) {
	e, ok := c.entries[target]
	if !ok {
		e = &entry{}
		c.entries[target] = e
	}
	e.state = s
}
