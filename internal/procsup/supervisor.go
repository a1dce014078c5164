// Package procsup spawns and reaps the shell scripts that build targets.
package procsup

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/mattjoyce/remake/internal/log"
)

//go:generate mockgen -destination=mocks/mock_supervisor.go -package=mocks github.com/mattjoyce/remake/internal/procsup Supervisor

// Exit reports the outcome of one spawned job.
type Exit struct {
	JobID   int
	Success bool
}

// Supervisor spawns a rule's script as a job and reports its outcome
// asynchronously on the channel passed to New.
type Supervisor interface {
	// Spawn runs "/bin/sh -e -c script" with REMAKE_JOB_ID=jobID and
	// REMAKE_SOCKET=socketPath (if non-empty) in its environment, and
	// targets bound to the script's positional parameters $1, $2, ...
	// It returns immediately after the process starts; completion is
	// reported later on the Exit channel.
	Spawn(jobID int, script string, targets []string, socketPath string) error
}

// Exec is the real Supervisor, spawning actual /bin/sh processes.
type Exec struct {
	results chan<- Exit
}

// New returns a Supervisor that reports completions on results. results
// should be buffered or drained promptly; Spawn's goroutine blocks
// sending to it.
func New(results chan<- Exit) *Exec {
	return &Exec{results: results}
}

func (e *Exec) Spawn(jobID int, script string, targets []string, socketPath string) error {
	args := append([]string{"-e", "-c", script, "remake-shell"}, targets...)
	cmd := exec.Command("/bin/sh", args...)
	cmd.Env = append(os.Environ(), fmt.Sprintf("REMAKE_JOB_ID=%d", jobID))
	if socketPath != "" {
		cmd.Env = append(cmd.Env, "REMAKE_SOCKET="+socketPath)
	}
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	logger := log.WithJob(jobID)
	logger.Debug("spawning job", "targets", targets)

	if err := cmd.Start(); err != nil {
		logger.Error("failed to start job", "error", err)
		return err
	}

	go func() {
		err := cmd.Wait()
		success := err == nil
		if !success {
			logger.Warn("job exited with error", "error", err)
		}
		e.results <- Exit{JobID: jobID, Success: success}
	}()
	return nil
}
