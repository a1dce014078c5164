// Command remake is a hybrid build tool: rules are declared statically
// in a Remakefile, like make, but dependencies discovered dynamically by
// a running script (via a nested remake call) are recorded and reused
// on future runs, like redo.
//
// It behaves in two different ways:
//
//   - If the environment contains REMAKE_SOCKET, it is a nested
//     invocation: it connects to that socket, reports its targets as
//     dependencies of the job that spawned it, and exits once the
//     server replies.
//
//   - Otherwise it is the top-level invocation: it loads the Remakefile
//     and dependency database, opens a request endpoint for nested
//     calls, and builds the requested targets (or the Remakefile's
//     default target) to completion.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mattjoyce/remake/internal/depdb"
	"github.com/mattjoyce/remake/internal/doctor"
	"github.com/mattjoyce/remake/internal/endpoint"
	"github.com/mattjoyce/remake/internal/engine"
	"github.com/mattjoyce/remake/internal/introspect"
	"github.com/mattjoyce/remake/internal/journal"
	"github.com/mattjoyce/remake/internal/lock"
	"github.com/mattjoyce/remake/internal/log"
	"github.com/mattjoyce/remake/internal/procsup"
	"github.com/mattjoyce/remake/internal/rules"
	"github.com/mattjoyce/remake/internal/sockpath"
	"github.com/mattjoyce/remake/internal/status"
	"github.com/mattjoyce/remake/internal/toolconfig"
	"github.com/mattjoyce/remake/internal/tui/watch"
	"github.com/mattjoyce/remake/internal/wire"

	tea "github.com/charmbracelet/bubbletea"
)

const remakefileName = "Remakefile"
const depdbName = ".remake"
const historyDBName = ".remake.history.db"
const lockFileName = ".remake.lock"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	switch {
	case len(args) == 1 && args[0] == "doctor":
		return runDoctor()
	case len(args) >= 1 && args[0] == "history":
		return runHistory()
	case len(args) >= 1 && args[0] == "watch":
		return runWatch()
	}

	if sn := os.Getenv("REMAKE_SOCKET"); sn != "" {
		return clientMode(sn, args)
	}
	return serverMode(args)
}

// usage mirrors the original remake's option summary; it is printed to
// stderr and the process exits with exitStatus.
func usage(exitStatus int) int {
	fmt.Fprint(os.Stderr, "Usage: remake [options] [target] ...\n"+
		"       remake doctor\n"+
		"       remake history\n"+
		"       remake watch\n"+
		"Options\n"+
		"  -d                 Print lots of debugging information.\n"+
		"  -h, --help         Print this message and exit.\n"+
		"  -j[N], --jobs=[N]  Allow N jobs at once; infinite jobs with no arg.\n")
	return exitStatus
}

// parsedArgs is the result of parsing the command line the same way the
// original getopt-less loop does: single-character flags, long
// "--help"/"--jobs=" forms, any other argument starting with '-' (or an
// empty argument) a usage error, and everything else taken as a target
// name.
type parsedArgs struct {
	debug         bool
	maxActiveJobs int
	targets       []string
}

func parseArgs(args []string) (parsedArgs, int, bool) {
	var p parsedArgs
	for _, arg := range args {
		switch {
		case arg == "":
			return p, usage(1), false
		case arg == "-h" || arg == "--help":
			return p, usage(0), false
		case arg == "-d":
			p.debug = true
		case strings.HasPrefix(arg, "-j"):
			n, _ := strconv.Atoi(arg[2:])
			p.maxActiveJobs = n
		case strings.HasPrefix(arg, "--jobs="):
			n, _ := strconv.Atoi(strings.TrimPrefix(arg, "--jobs="))
			p.maxActiveJobs = n
		default:
			if strings.HasPrefix(arg, "-") {
				return p, usage(1), false
			}
			p.targets = append(p.targets, arg)
		}
	}
	return p, 0, true
}

// clientMode connects to an already-running server and reports this
// process's targets as dependencies of the job it was spawned by.
func clientMode(socketName string, args []string) int {
	parsed, exitCode, ok := parseArgs(args)
	if !ok {
		return exitCode
	}
	targets := parsed.targets
	if len(targets) == 0 {
		return 0
	}

	conn, err := net.Dial("unix", socketName)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to connect to server:", err)
		return 1
	}
	defer conn.Close()

	jobID := wire.NoJob
	if id := os.Getenv("REMAKE_JOB_ID"); id != "" {
		if n, err := strconv.Atoi(id); err == nil {
			jobID = n
		}
	}

	if err := wire.WriteRequest(conn, wire.Request{JobID: int32(jobID), Targets: targets}); err != nil {
		fmt.Fprintln(os.Stderr, "failed to send targets to server:", err)
		return 1
	}
	success, err := wire.ReadReply(conn)
	if err != nil {
		return 1
	}
	if success {
		return 0
	}
	return 1
}

// serverMode loads the rule file and dependency database, opens the
// request endpoint, and builds targets (or the Remakefile's default
// target) to completion. If the Remakefile itself is stale, it is
// rebuilt first and the rules reloaded before the requested targets are
// processed.
func serverMode(args []string) int {
	parsed, exitCode, ok := parseArgs(args)
	if !ok {
		return exitCode
	}

	cfg, err := toolconfig.Load(toolconfig.FileName)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load", toolconfig.FileName+":", err)
		return 1
	}

	level := log.ParseLevel(cfg.LogLevel)
	if cfg.LogLevel == "" && (parsed.debug || cfg.Debug) {
		level = slog.LevelDebug
	}
	log.SetupLevel(level)

	maxActiveJobs := parsed.maxActiveJobs
	jobsGiven := false
	for _, arg := range args {
		if strings.HasPrefix(arg, "-j") || strings.HasPrefix(arg, "--jobs=") {
			jobsGiven = true
		}
	}
	if !jobsGiven {
		maxActiveJobs = cfg.Jobs
	}

	pidLock, err := lock.AcquirePIDLock(lockFileName)
	if err != nil {
		fmt.Fprintln(os.Stderr, "another remake is already building in this directory:", err)
		return 1
	}
	defer pidLock.Release()

	store, db, err := loadRules()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	socketBase := cfg.SocketDir
	socketPath, err := sockpath.Resolve(socketBase, ".", time.Now())
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to prepare request endpoint:", err)
		return 1
	}
	defer sockpath.Cleanup(socketPath)
	if err := os.Setenv("REMAKE_SOCKET", socketPath); err != nil {
		fmt.Fprintln(os.Stderr, "failed to set REMAKE_SOCKET:", err)
		return 1
	}

	ln, err := endpoint.Listen(socketPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to create request endpoint:", err)
		return 1
	}
	defer ln.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ln.Serve(ctx)

	// If Remakefile itself is stale, rebuild it first with its own
	// run of the event loop, then reload rules before the real targets.
	if _, ok := store.FindRule(remakefileName); ok && status.New(db).Evaluate(remakefileName) == status.Todo {
		sched, exits := buildScheduler(store, db, socketPath, maxActiveJobs)
		sched.Seed([]string{remakefileName})
		if !runLoop(ctx, sched, ln, exits) {
			return 1
		}
		if err := db.Save(depdbName); err != nil {
			fmt.Fprintln(os.Stderr, "failed to save dependency database:", err)
		}
		store, db, err = loadRules()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	}

	targets := parsed.targets
	if len(targets) == 0 {
		if r, ok := defaultTarget(store); ok {
			targets = []string{r}
		}
	}

	var jrn *journal.Journal
	var run journal.Run
	if cfg.History {
		if j, err := journal.Open(ctx, historyDBName); err != nil {
			fmt.Fprintln(os.Stderr, "failed to open build history:", err)
		} else {
			jrn = j
			defer jrn.Close()
			if r, err := jrn.StartRun(ctx, targets); err == nil {
				run = r
				log.WithRun(run.ID).Info("run started", "targets", targets)
			}
		}
	}

	sched, exits := buildScheduler(store, db, socketPath, maxActiveJobs)
	if jrn != nil {
		sched.SetObserver(journalObserver{ctx: ctx, jrn: jrn, run: run})
	}
	if cfg.Introspect != "" {
		srv := introspect.New(cfg.Introspect, sched)
		go srv.Serve(ctx)
	}
	sched.Seed(targets)
	if !runLoop(ctx, sched, ln, exits) {
		return 1
	}

	if err := db.Save(depdbName); err != nil {
		fmt.Fprintln(os.Stderr, "failed to save dependency database:", err)
	}
	if jrn != nil {
		_ = jrn.FinishRun(ctx, run, sched.BuildFailed())
		log.WithRun(run.ID).Info("run finished", "failed", sched.BuildFailed())
	}
	if sched.BuildFailed() {
		return 1
	}
	return 0
}

// journalObserver records per-job lifecycle events to the build history
// journal as the scheduler reports them. Failures to write are logged
// and otherwise ignored: a missed history row must never fail a build.
type journalObserver struct {
	ctx context.Context
	jrn *journal.Journal
	run journal.Run
}

func (o journalObserver) JobStarted(jobID int, targets []string) {
	if err := o.jrn.StartJob(o.ctx, o.run, jobID, targets); err != nil {
		log.WithRun(o.run.ID).Warn("failed to record job start", "job_id", jobID, "error", err)
	}
}

func (o journalObserver) JobFinished(jobID int, success bool) {
	if err := o.jrn.FinishJob(o.ctx, o.run, jobID, success); err != nil {
		log.WithRun(o.run.ID).Warn("failed to record job finish", "job_id", jobID, "error", err)
	}
}

func runHistory() int {
	ctx := context.Background()
	j, err := journal.Open(ctx, historyDBName)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to open build history:", err)
		return 1
	}
	defer j.Close()

	runs, err := j.RecentRuns(ctx, 20)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to read build history:", err)
		return 1
	}
	for _, r := range runs {
		outcome := "ok"
		if r.Failed {
			outcome = "failed"
		}
		fmt.Printf("%s  %-6s  %-20s  %d jobs  %s\n", r.StartedAt.Format("2006-01-02 15:04:05"), outcome, r.Targets, r.JobCount, r.ID)
	}
	return 0
}

func runWatch() int {
	ctx := context.Background()
	j, err := journal.Open(ctx, historyDBName)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to open build history:", err)
		return 1
	}
	defer j.Close()

	if _, err := tea.NewProgram(watch.New(j)).Run(); err != nil {
		fmt.Fprintln(os.Stderr, "watch:", err)
		return 1
	}
	return 0
}

func buildScheduler(store *rules.Store, db *depdb.DB, socketPath string, maxActiveJobs int) (*engine.Scheduler, chan procsup.Exit) {
	exits := make(chan procsup.Exit)
	sup := procsup.New(exits)
	sched := engine.New(db, store, sup, socketPath, maxActiveJobs)
	return sched, exits
}

// runLoop drives the scheduler until it has no more work. It is the
// single goroutine that ever touches sched: job completions and nested
// client requests both arrive as channel events and are applied here,
// one at a time, rather than from whatever goroutine produced them.
func runLoop(ctx context.Context, sched *engine.Scheduler, ln *endpoint.Listener, exits chan procsup.Exit) bool {
	sched.UpdateClients()
	for !sched.Idle() {
		select {
		case req, ok := <-ln.Requests:
			if !ok {
				return false
			}
			sched.AcceptReal(req.Conn, req.JobID, req.Targets)
			sched.UpdateClients()
		case exit := <-exits:
			sched.JobComplete(exit.JobID, exit.Success)
		}
	}
	return true
}

// loadRules parses the Remakefile and merges it with the persisted
// dependency database: static dependencies declared in the rule file
// always take precedence over (and are additive to) whatever dynamic
// dependencies were recorded on a previous run.
func loadRules() (*rules.Store, *depdb.DB, error) {
	f, err := os.Open(remakefileName)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", remakefileName, err)
	}
	defer f.Close()

	ruleList, staticDeps, err := rules.Parse(f)
	if err != nil {
		return nil, nil, fmt.Errorf("parse %s: %w", remakefileName, err)
	}

	db, err := depdb.Load(depdbName)
	if err != nil {
		return nil, nil, fmt.Errorf("load %s: %w", depdbName, err)
	}
	for target, deps := range staticDeps {
		db.InsertAll(target, deps)
	}

	return rules.NewStore(ruleList), db, nil
}

// defaultTarget is the first non-generic rule's first target, matching
// a Makefile's implicit default goal.
func defaultTarget(store *rules.Store) (string, bool) {
	for _, r := range store.Rules() {
		if !r.Generic {
			return r.FirstTarget(), true
		}
	}
	return "", false
}

func runDoctor() int {
	store, db, err := loadRules()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	result := doctor.New(store, db).Validate()
	for _, e := range result.Errors {
		fmt.Fprintf(os.Stderr, "error: [%s] %s: %s\n", e.Category, e.Target, e.Message)
	}
	for _, w := range result.Warnings {
		fmt.Fprintf(os.Stderr, "warning: [%s] %s: %s\n", w.Category, w.Target, w.Message)
	}
	if !result.Valid {
		return 1
	}
	return 0
}
