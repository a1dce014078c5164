package rules

import "strings"

// Store holds parsed rules and answers FindRule queries against them.
type Store struct {
	rules []Rule
}

// NewStore wraps a parsed rule list for matching. Rule order is
// significant: among several generic rules that tie on stem length, the
// earliest in the slice wins.
func NewStore(rules []Rule) *Store {
	return &Store{rules: rules}
}

// Rules returns the underlying rule list in file order.
func (s *Store) Rules() []Rule {
	return s.rules
}

// FindRule looks up the rule that builds target.
//
// Non-generic rules are matched first by exact target equality. Failing
// that, among generic rules whose pattern matches target, the one with
// the shortest matched stem wins; ties are broken by earlier declaration
// order. The returned Rule has '%' already substituted by the matched
// stem in both its targets and dependencies. ok is false if no rule
// matches target at all.
func (s *Store) FindRule(target string) (rule Rule, ok bool) {
	bestStemLen := -1
	tlen := len(target)

	for _, r := range s.rules {
		for _, tgt := range r.Targets {
			if !r.Generic {
				if tgt == target {
					return r, true
				}
				continue
			}
			pos := strings.IndexByte(tgt, '%')
			if pos < 0 {
				continue
			}
			patLen := len(tgt)
			if tlen < patLen {
				continue
			}
			stemLen := tlen - (patLen - 1)
			if bestStemLen >= 0 && stemLen >= bestStemLen {
				continue
			}
			suffixLen := patLen - (pos + 1)
			if tgt[:pos] != target[:pos] {
				continue
			}
			if tgt[pos+1:] != target[tlen-suffixLen:] {
				continue
			}
			stem := target[pos:tlen-suffixLen]
			bestStemLen = stemLen
			rule = Rule{
				Script:  r.Script,
				Generic: false,
				Targets: substitutePattern(stem, r.Targets),
				Deps:    substitutePattern(stem, r.Deps),
			}
			ok = true
			break
		}
	}
	return rule, ok
}

// substitutePattern replaces the first '%' in each word of src with pat.
func substitutePattern(pat string, src []string) []string {
	if src == nil {
		return nil
	}
	dst := make([]string, len(src))
	for i, w := range src {
		if pos := strings.IndexByte(w, '%'); pos >= 0 {
			dst[i] = w[:pos] + pat + w[pos+1:]
		} else {
			dst[i] = w
		}
	}
	return dst
}
