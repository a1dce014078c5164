// Package rules parses a Remakefile into a set of build rules and matches
// targets against them.
package rules

import "strings"

// Rule is a single target-list : dependency-list rule with its shell
// script. Generic rules contain a '%' in every target word, and
// dependency words may contain one too; FindRule substitutes the matched
// stem for the first '%' of each word before returning a concrete,
// non-generic copy.
type Rule struct {
	Targets []string
	Deps    []string
	Script  string
	Generic bool
}

// FirstTarget returns the rule's first target, or "" if it has none.
func (r Rule) FirstTarget() string {
	if len(r.Targets) == 0 {
		return ""
	}
	return r.Targets[0]
}

// HasTarget reports whether name is one of the rule's literal targets.
func (r Rule) HasTarget(name string) bool {
	for _, t := range r.Targets {
		if t == name {
			return true
		}
	}
	return false
}

func isGenericWord(w string) bool {
	return strings.Contains(w, "%")
}
