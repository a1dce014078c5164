package rules

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFindRuleExactMatch(t *testing.T) {
	rs := []Rule{
		{Targets: []string{"%.o"}, Deps: []string{"%.c"}, Generic: true},
		{Targets: []string{"main.o"}, Deps: []string{"main.c", "util.h"}},
	}
	s := NewStore(rs)
	r, ok := s.FindRule("main.o")
	require.True(t, ok)
	require.Equal(t, []string{"main.c", "util.h"}, r.Deps)
}

func TestFindRuleGenericSubstitution(t *testing.T) {
	rs := []Rule{
		{Targets: []string{"%.o"}, Deps: []string{"%.c"}, Generic: true},
	}
	s := NewStore(rs)
	r, ok := s.FindRule("util.o")
	require.True(t, ok)
	require.Equal(t, []string{"util.o"}, r.Targets)
	require.Equal(t, []string{"util.c"}, r.Deps)
}

func TestFindRuleShortestStemWins(t *testing.T) {
	rs := []Rule{
		{Targets: []string{"%.tab.o"}, Deps: []string{"%.y"}, Generic: true},
		{Targets: []string{"%.o"}, Deps: []string{"%.c"}, Generic: true},
	}
	s := NewStore(rs)
	r, ok := s.FindRule("foo.tab.o")
	require.True(t, ok)
	// "%.o" matches with stem "foo.tab", "%.tab.o" matches with stem "foo" (shorter) -> first rule should win.
	require.Equal(t, []string{"foo.y"}, r.Deps)
}

func TestFindRuleSourceOrderTieBreak(t *testing.T) {
	rs := []Rule{
		{Targets: []string{"%.o"}, Deps: []string{"first"}, Generic: true},
		{Targets: []string{"%.o"}, Deps: []string{"second"}, Generic: true},
	}
	s := NewStore(rs)
	r, ok := s.FindRule("main.o")
	require.True(t, ok)
	require.Equal(t, []string{"first"}, r.Deps)
}

func TestFindRuleNoMatch(t *testing.T) {
	s := NewStore(nil)
	_, ok := s.FindRule("nope")
	require.False(t, ok)
}

func TestFindRuleRequiresNonEmptyStem(t *testing.T) {
	rs := []Rule{{Targets: []string{"%.o"}, Generic: true}}
	s := NewStore(rs)
	_, ok := s.FindRule(".o")
	require.False(t, ok)
}
