// Package doctor validates a Remakefile and its dependency database
// without running any scripts: it catches broken rules, unreachable
// dependencies, and cycles before a real build hits them.
package doctor

import (
	"fmt"
	"os"

	"github.com/mattjoyce/remake/internal/depdb"
	"github.com/mattjoyce/remake/internal/rules"
)

// Result holds the outcome of a validation run.
type Result struct {
	Valid    bool
	Errors   []Issue
	Warnings []Issue
}

// Issue describes a single validation error or warning.
type Issue struct {
	Category string
	Target   string
	Message  string
}

// Doctor validates a parsed rule store and dependency database.
type Doctor struct {
	store *rules.Store
	db    *depdb.DB
}

// New creates a Doctor from an already-parsed rule store and loaded
// dependency database.
func New(store *rules.Store, db *depdb.DB) *Doctor {
	return &Doctor{store: store, db: db}
}

// Validate runs all checks and returns a result.
func (d *Doctor) Validate() *Result {
	r := &Result{Valid: true}

	d.validateRulesNotEmpty(r)
	d.validateDepsResolve(r)
	d.validateNoCycles(r)
	d.warnMissingScripts(r)
	d.warnUnreachableRecordedDeps(r)

	r.Valid = len(r.Errors) == 0
	return r
}

func (d *Doctor) addError(r *Result, category, target, msg string) {
	r.Errors = append(r.Errors, Issue{Category: category, Target: target, Message: msg})
}

func (d *Doctor) addWarning(r *Result, category, target, msg string) {
	r.Warnings = append(r.Warnings, Issue{Category: category, Target: target, Message: msg})
}

func (d *Doctor) validateRulesNotEmpty(r *Result) {
	if len(d.store.Rules()) == 0 {
		d.addWarning(r, "rules", "", "no rules declared")
	}
}

// validateDepsResolve checks that every static, non-generic dependency
// either exists on disk or has a rule to build it.
func (d *Doctor) validateDepsResolve(r *Result) {
	for _, rule := range d.store.Rules() {
		if rule.Generic {
			continue // stem not known until a target is matched
		}
		for _, dep := range rule.Deps {
			if _, err := os.Stat(dep); err == nil {
				continue
			}
			if _, ok := d.store.FindRule(dep); ok {
				continue
			}
			d.addError(r, "deps", rule.FirstTarget(), fmt.Sprintf("dependency %q is neither an existing file nor buildable by any rule", dep))
		}
	}
}

// validateNoCycles walks the static dependency graph declared by
// non-generic rules and recorded dynamic dependencies, reporting any
// cycle found. Generic rules are not checked here, since their
// dependencies depend on a stem only known at build time.
func (d *Doctor) validateNoCycles(r *Result) {
	const (
		white = iota
		gray
		black
	)
	color := make(map[string]int)

	var visit func(target string, path []string) bool
	visit = func(target string, path []string) bool {
		switch color[target] {
		case gray:
			d.addError(r, "cycle", target, fmt.Sprintf("dependency cycle: %v -> %s", path, target))
			return true
		case black:
			return false
		}
		color[target] = gray
		if rule, ok := d.store.FindRule(target); ok && !rule.Generic {
			for _, dep := range rule.Deps {
				if visit(dep, append(path, target)) {
					return true
				}
			}
		}
		for _, dep := range d.db.Get(target) {
			if visit(dep, append(path, target)) {
				return true
			}
		}
		color[target] = black
		return false
	}

	for _, rule := range d.store.Rules() {
		if rule.Generic {
			continue
		}
		for _, t := range rule.Targets {
			if color[t] == white {
				visit(t, nil)
			}
		}
	}
}

// warnMissingScripts flags rules with dependencies but no script: such
// a rule can never make its target newer than its deps.
func (d *Doctor) warnMissingScripts(r *Result) {
	for _, rule := range d.store.Rules() {
		if rule.Script == "" && len(rule.Deps) > 0 {
			d.addWarning(r, "script", rule.FirstTarget(), "rule has dependencies but no script")
		}
	}
}

// warnUnreachableRecordedDeps flags recorded dynamic dependencies that
// no longer correspond to an existing file or buildable rule, typically
// left behind by a renamed or removed source file.
func (d *Doctor) warnUnreachableRecordedDeps(r *Result) {
	for _, target := range d.db.Targets() {
		for _, dep := range d.db.Get(target) {
			if _, err := os.Stat(dep); err == nil {
				continue
			}
			if _, ok := d.store.FindRule(dep); ok {
				continue
			}
			d.addWarning(r, "depdb", target, fmt.Sprintf("recorded dependency %q no longer resolves", dep))
		}
	}
}
