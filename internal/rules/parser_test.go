package rules

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseSimpleRule(t *testing.T) {
	src := "all: main.o util.o\n\tgcc -o all main.o util.o\n"
	rs, static, err := Parse(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, rs, 1)
	require.Equal(t, []string{"all"}, rs[0].Targets)
	require.Equal(t, []string{"main.o", "util.o"}, rs[0].Deps)
	require.Equal(t, "gcc -o all main.o util.o\n", rs[0].Script)
	require.False(t, rs[0].Generic)
	require.Equal(t, []string{"main.o", "util.o"}, static["all"])
}

func TestParseMultipleRules(t *testing.T) {
	src := "a: b\n\techo a\nb:\n\techo b\n"
	rs, _, err := Parse(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, rs, 2)
	require.Equal(t, []string{"a"}, rs[0].Targets)
	require.Equal(t, []string{"b"}, rs[1].Targets)
	require.Empty(t, rs[1].Deps)
}

func TestParseGenericRule(t *testing.T) {
	src := "%.o : %.c\n\tgcc -c ${1%.o}.c\n"
	rs, static, err := Parse(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, rs, 1)
	require.True(t, rs[0].Generic)
	require.Equal(t, []string{"%.o"}, rs[0].Targets)
	require.Equal(t, []string{"%.c"}, rs[0].Deps)
	require.Empty(t, static)
}

func TestParseNoScript(t *testing.T) {
	src := "clean:\n"
	rs, _, err := Parse(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, rs, 1)
	require.Empty(t, rs[0].Script)
}

func TestParseQuotedWords(t *testing.T) {
	src := `"my target" : "a dep"` + "\n\techo hi\n"
	rs, _, err := Parse(strings.NewReader(src))
	require.NoError(t, err)
	require.Equal(t, []string{"my target"}, rs[0].Targets)
	require.Equal(t, []string{"a dep"}, rs[0].Deps)
}

func TestParseMultiTarget(t *testing.T) {
	src := "foo.h foo.c: foo.y\n\tbison foo.y\n"
	rs, static, err := Parse(strings.NewReader(src))
	require.NoError(t, err)
	require.Equal(t, []string{"foo.h", "foo.c"}, rs[0].Targets)
	require.Equal(t, []string{"foo.y"}, static["foo.h"])
	require.Equal(t, []string{"foo.y"}, static["foo.c"])
}

func TestParseMixedGenericError(t *testing.T) {
	src := "%.o foo.c : %.c\n\techo bad\n"
	_, _, err := Parse(strings.NewReader(src))
	require.Error(t, err)
}

func TestParseEmptyFile(t *testing.T) {
	rs, static, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	require.Empty(t, rs)
	require.Empty(t, static)
}
