// Package engine implements the scheduler: the part of remake that turns
// a set of requested targets into running jobs, tracks which clients are
// waiting on which targets, and replies once their targets resolve.
package engine

import (
	"net"

	"github.com/mattjoyce/remake/internal/rules"
)

// ClientKind distinguishes the three origins a client can have.
type ClientKind int

const (
	// ClientSeed is the pseudo-client for the targets given on the
	// original command line (or the default target).
	ClientSeed ClientKind = iota
	// ClientReal is backed by a live connection on the request
	// endpoint: a CLI invocation or a nested remake call.
	ClientReal
	// ClientDependency is synthetic, created by the scheduler to
	// sequence a rule's static dependencies before running its script.
	ClientDependency
)

func (k ClientKind) String() string {
	switch k {
	case ClientSeed:
		return "seed"
	case ClientReal:
		return "real"
	case ClientDependency:
		return "dependency"
	default:
		return "unknown"
	}
}

// NoJob is the job id used for clients not spawned by any running job
// (the seed client, and top-level CLI connections).
const NoJob = -1

// Client is one waiter on a set of targets.
type Client struct {
	Kind    ClientKind
	JobID   int // job that spawned this client, or NoJob
	Conn    net.Conn
	Pending []string
	Running map[string]struct{}
	Delayed *rules.Rule // ClientDependency only: rule to run once resolved
}

func newClient(kind ClientKind, jobID int) *Client {
	return &Client{Kind: kind, JobID: jobID, Running: make(map[string]struct{})}
}

// Job is one running (or about to run) build job: a single rule
// invocation, building every target in its rule's target list at once.
type Job struct {
	ID      int
	Targets []string
}

// JobTable assigns monotonic job ids and tracks live jobs.
type JobTable struct {
	jobs map[int]*Job
	next int
}

// NewJobTable returns an empty job table, ids starting at 1.
func NewJobTable() *JobTable {
	return &JobTable{jobs: make(map[int]*Job), next: 1}
}

// New allocates a new job for targets.
func (t *JobTable) New(targets []string) *Job {
	j := &Job{ID: t.next, Targets: targets}
	t.jobs[j.ID] = j
	t.next++
	return j
}

// Get looks up a job by id.
func (t *JobTable) Get(id int) (*Job, bool) {
	j, ok := t.jobs[id]
	return j, ok
}

// Delete removes a job, once it has completed.
func (t *JobTable) Delete(id int) {
	delete(t.jobs, id)
}

// Len returns the number of live jobs, for tests and introspection.
func (t *JobTable) Len() int {
	return len(t.jobs)
}
