package engine

import (
	"container/list"
	"log/slog"
	"net"
	"os"

	"github.com/mattjoyce/remake/internal/depdb"
	"github.com/mattjoyce/remake/internal/log"
	"github.com/mattjoyce/remake/internal/procsup"
	"github.com/mattjoyce/remake/internal/rules"
	"github.com/mattjoyce/remake/internal/status"
	"github.com/mattjoyce/remake/internal/wire"
)

// Scheduler owns the client queue, the job table, and the dependency
// status cache, and drives targets from Todo to Remade or Failed.
type Scheduler struct {
	db         *depdb.DB
	cache      *status.Cache
	store      *rules.Store
	jobs       *JobTable
	clients    *list.List // of *Client
	supervisor procsup.Supervisor
	socketPath string

	maxActiveJobs int
	runningJobs   int
	waitingJobs   int
	buildFailure  bool

	observer JobObserver
	logger   *slog.Logger
}

// New builds a Scheduler. maxActiveJobs <= 0 means unbounded parallelism.
func New(db *depdb.DB, store *rules.Store, sup procsup.Supervisor, socketPath string, maxActiveJobs int) *Scheduler {
	return &Scheduler{
		db:            db,
		cache:         status.New(db),
		store:         store,
		jobs:          NewJobTable(),
		clients:       list.New(),
		supervisor:    sup,
		socketPath:    socketPath,
		maxActiveJobs: maxActiveJobs,
		logger:        log.WithComponent("engine"),
	}
}

// BuildFailed reports whether any original (non-nested) request failed.
func (s *Scheduler) BuildFailed() bool { return s.buildFailure }

// RunningJobs reports the number of jobs currently spawned.
func (s *Scheduler) RunningJobs() int { return s.runningJobs }

// Idle reports whether there is no more work in flight: no live clients
// and no running jobs. The caller's event loop exits once this holds.
func (s *Scheduler) Idle() bool {
	return s.clients.Len() == 0 && s.runningJobs == 0
}

// Seed enqueues the top-level targets requested on the command line (or
// the default target), as a client with no reply destination.
func (s *Scheduler) Seed(targets []string) {
	c := newClient(ClientSeed, NoJob)
	c.Pending = append([]string(nil), targets...)
	s.clients.PushBack(c)
}

// AcceptReal enqueues a client backed by a live connection on the
// request endpoint. New connections go to the front of the queue, so
// nested remake calls are served depth-first ahead of older requests.
// jobID is the job that spawned the request (NoJob for a top-level CLI
// connection); if jobID is not NoJob, the owning job is marked waiting
// for the duration, since its process is blocked on the reply.
//
// A nested call's requested targets are recorded as dynamic dependencies
// of every target the spawning job is building: this is how dependencies
// discovered at build time (rather than declared in the rule file) enter
// the dependency database.
func (s *Scheduler) AcceptReal(conn net.Conn, jobID int, targets []string) {
	c := newClient(ClientReal, jobID)
	c.Conn = conn
	c.Pending = append([]string(nil), targets...)
	if jobID != NoJob {
		s.waitingJobs++
		if job, ok := s.jobs.Get(jobID); ok {
			for _, t := range job.Targets {
				s.db.InsertAll(t, targets)
			}
		}
	}
	s.clients.PushFront(c)
}

// replyReal writes the reply byte and closes the connection. A nested
// request (jobID != NoJob) releases its waiting-job slot, since the
// spawned process can now proceed.
func (s *Scheduler) replyReal(c *Client, success bool) {
	if err := wire.WriteReply(c.Conn, success); err != nil {
		s.logger.Error("write reply failed", "error", err)
	}
	_ = c.Conn.Close()
	if c.JobID != NoJob {
		s.waitingJobs--
	}
}

// hasFreeSlots reports whether another job may be started without
// exceeding maxActiveJobs.
func (s *Scheduler) hasFreeSlots() bool {
	if s.maxActiveJobs <= 0 {
		return true
	}
	return s.runningJobs-s.waitingJobs < s.maxActiveJobs
}

// JobComplete is called by the caller's event loop once a spawned
// process exits, reporting whether its script succeeded.
func (s *Scheduler) JobComplete(jobID int, success bool) {
	s.runningJobs--
	s.completeJob(jobID, success)
	s.UpdateClients()
}

// completeJob marks a job's targets Remade or Failed. A failed script's
// targets are removed: a partially written target must not look fresh
// on the next run.
func (s *Scheduler) completeJob(jobID int, success bool) {
	job, ok := s.jobs.Get(jobID)
	if !ok {
		return
	}
	if success {
		for _, t := range job.Targets {
			s.cache.MarkRemade(t)
		}
	} else {
		s.logger.Error("script failed", "job_id", jobID, "targets", job.Targets)
		for _, t := range job.Targets {
			log.WithTarget(t).Error("build failed")
			s.cache.MarkFailed(t)
			_ = os.Remove(t)
		}
	}
	s.jobs.Delete(jobID)
	if s.observer != nil {
		s.observer.JobFinished(jobID, success)
	}
}

// runScript spawns the job's script via the supervisor. A spawn failure
// completes the job as failed immediately, matching a fork failure, and
// is reported by returning false.
func (s *Scheduler) runScript(jobID int, rule rules.Rule) bool {
	if err := s.supervisor.Spawn(jobID, rule.Script, rule.Targets, s.socketPath); err != nil {
		s.logger.Error("spawn failed", "job_id", jobID, "error", err)
		s.completeJob(jobID, false)
		return false
	}
	s.runningJobs++
	return true
}

// start begins building target: find its rule, reset its recorded
// dependencies to the rule's static deps (dynamic deps accumulate fresh
// during this run via nested remake calls), and either run its script
// directly (no static deps) or insert a dependency client immediately
// before the requesting client to sequence them first.
//
// It returns the element to resume walking the client list from: either
// the new dependency client (the caller dives into it depth-first) or
// before, unchanged, when the script was run directly.
func (s *Scheduler) start(target string, before *list.Element) (*list.Element, bool) {
	rule, ok := s.store.FindRule(target)
	if !ok {
		log.WithTarget(target).Error("no rule to build target")
		s.cache.MarkFailed(target)
		return before, false
	}

	for _, t := range rule.Targets {
		s.cache.MarkRunning(t)
		s.db.Reset(t, rule.Deps)
	}
	job := s.jobs.New(rule.Targets)
	if s.observer != nil {
		s.observer.JobStarted(job.ID, rule.Targets)
	}

	if len(rule.Deps) == 0 {
		return before, s.runScript(job.ID, rule)
	}

	dep := newClient(ClientDependency, job.ID)
	dep.Pending = append([]string(nil), rule.Deps...)
	r := rule
	dep.Delayed = &r
	elem := s.clients.InsertBefore(dep, before)
	return elem, true
}

// completeRequest notifies a client that all of its targets have
// resolved. A dependency client runs its delayed rule's script on
// success, or propagates failure to its job. A real client gets its
// reply written and its connection closed. A build triggered by an
// original (non-nested) request that fails marks the overall run
// failed.
func (s *Scheduler) completeRequest(c *Client, success bool) {
	switch c.Kind {
	case ClientDependency:
		if success {
			s.runScript(c.JobID, *c.Delayed)
		} else {
			s.completeJob(c.JobID, false)
		}
	case ClientReal:
		s.replyReal(c, success)
	case ClientSeed:
	}
	if c.JobID == NoJob && !success {
		s.buildFailure = true
	}
}

// UpdateClients walks the client list from the front, advancing each
// client's pending targets and completing those whose targets have all
// resolved. It stops early once no more jobs may be started.
func (s *Scheduler) UpdateClients() {
	e := s.clients.Front()
	for e != nil && s.hasFreeSlots() {
		next, stop := s.processClient(e)
		if stop {
			return
		}
		e = next
	}
}

// processClient runs one client's body, diving depth-first into any
// dependency client it spawns, until the client either blocks on a
// running job, completes, or fails. It returns the element to resume
// the outer walk from.
func (s *Scheduler) processClient(e *list.Element) (next *list.Element, stop bool) {
	for {
		c := e.Value.(*Client)
		failed := false

		for t := range c.Running {
			st, _ := s.cache.StateOf(t)
			switch st {
			case status.Uptodate, status.Remade:
				delete(c.Running, t)
			case status.Failed:
				failed = true
			}
			if failed {
				break
			}
		}

		advanced := false
		if !failed {
			for len(c.Pending) > 0 {
				target := c.Pending[0]
				c.Pending = c.Pending[1:]

				switch st := s.cache.Evaluate(target); st {
				case status.Failed:
					failed = true
				case status.Running:
					c.Running[target] = struct{}{}
				case status.Uptodate, status.Remade:
				case status.Todo:
					newElem, ok := s.start(target, e)
					if !ok {
						failed = true
						break
					}
					c.Running[target] = struct{}{}
					if !s.hasFreeSlots() {
						return nil, true
					}
					if newElem != e {
						e = newElem
						advanced = true
					}
				}
				if failed || advanced {
					break
				}
			}
		}

		if advanced {
			continue
		}

		if failed {
			s.completeRequest(c, false)
			after := e.Next()
			s.clients.Remove(e)
			return after, false
		}
		if len(c.Running) == 0 {
			s.completeRequest(c, true)
			after := e.Next()
			s.clients.Remove(e)
			return after, false
		}
		return e.Next(), false
	}
}
