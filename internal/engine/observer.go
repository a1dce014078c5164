package engine

// JobObserver is notified of job lifecycle events as they happen on the
// scheduler's single owning goroutine. Implementations must not block;
// the scheduler will not proceed until a call returns.
type JobObserver interface {
	// JobStarted is called once a job's targets and script are known,
	// before its static dependencies (if any) have been driven to
	// completion.
	JobStarted(jobID int, targets []string)
	// JobFinished is called once a job's script has run (or failed to
	// spawn at all, or was never run because a static dependency
	// failed), reporting whether it succeeded.
	JobFinished(jobID int, success bool)
}

// SetObserver attaches o to receive job lifecycle notifications. Passing
// nil disables notifications, which is also the default.
func (s *Scheduler) SetObserver(o JobObserver) {
	s.observer = o
}
