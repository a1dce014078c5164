package rules

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/mattjoyce/remake/internal/syntax"
)

type parseState int

const (
	stateBOF parseState = iota
	stateTarget
	stateDep
	stateScript
)

// Parse reads a Remakefile from r and returns its rules in file order.
// For non-generic rules, the literal target -> dependency edges are also
// returned in staticDeps so a caller can seed the dependency database with
// them, matching the dependency map that load_rules/load_dependencies
// build together in the original implementation.
func Parse(r io.Reader) (ruleList []Rule, staticDeps map[string][]string, err error) {
	br := bufio.NewReader(r)
	staticDeps = make(map[string][]string)

	state := stateBOF
	var current Rule
	var script strings.Builder
	line := 1

	flush := func() {
		current.Script = script.String()
		ruleList = append(ruleList, current)
		script.Reset()
		current = Rule{}
	}

	for {
		c, rerr := br.ReadByte()
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return nil, nil, rerr
		}

		switch {
		case state == stateScript && c == '\t':
			rest, rerr := br.ReadString('\n')
			script.WriteString(rest)
			if rerr == nil {
				line++
			}
			if rerr == io.EOF {
				// rest has no trailing newline; fine at EOF.
			} else if rerr != nil {
				return nil, nil, rerr
			}

		case state == stateScript && (c == '\r' || c == '\n'):
			script.WriteByte(c)
			if c == '\n' {
				line++
			}

		case state == stateDep && c == '\n':
			line++
			state = stateScript

		case state == stateTarget && c == ':':
			state = stateDep
			if err := syntax.SkipSpaces(br); err != nil {
				return nil, nil, err
			}

		default:
			if state == stateScript {
				flush()
			}
			if err := br.UnreadByte(); err != nil {
				return nil, nil, err
			}
			word, werr := syntax.ReadWord(br)
			if werr != nil {
				return nil, nil, werr
			}
			if serr := syntax.SkipSpaces(br); serr != nil {
				return nil, nil, serr
			}
			if word == "" {
				return nil, nil, fmt.Errorf("syntax error at line %d", line)
			}
			generic := strings.Contains(word, "%")
			if generic {
				if (state == stateTarget || state == stateDep) && !current.Generic {
					return nil, nil, fmt.Errorf("syntax error at line %d: mixed generic and literal target", line)
				}
				current.Generic = true
			} else if state == stateTarget && current.Generic {
				return nil, nil, fmt.Errorf("syntax error at line %d: mixed generic and literal target", line)
			}
			if state != stateDep {
				current.Targets = append(current.Targets, word)
				state = stateTarget
				continue
			}
			current.Deps = append(current.Deps, word)
			if current.Generic {
				continue
			}
			for _, t := range current.Targets {
				staticDeps[t] = append(staticDeps[t], word)
			}
		}
	}

	if state != stateBOF {
		flush()
	}
	return ruleList, staticDeps, nil
}
