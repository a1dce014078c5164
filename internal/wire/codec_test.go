package wire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRequestRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	req := Request{JobID: 42, Targets: []string{"foo.o", "bar.o"}}
	require.NoError(t, WriteRequest(&buf, req))

	got, err := ReadRequest(&buf)
	require.NoError(t, err)
	require.Equal(t, req, got)
}

func TestRequestRoundTripNoTargets(t *testing.T) {
	var buf bytes.Buffer
	req := Request{JobID: NoJob}
	require.NoError(t, WriteRequest(&buf, req))

	got, err := ReadRequest(&buf)
	require.NoError(t, err)
	require.Equal(t, int32(NoJob), got.JobID)
	require.Empty(t, got.Targets)
}

func TestReplyRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteReply(&buf, true))
	ok, err := ReadReply(&buf)
	require.NoError(t, err)
	require.True(t, ok)

	buf.Reset()
	require.NoError(t, WriteReply(&buf, false))
	ok, err = ReadReply(&buf)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestReadRequestTruncated(t *testing.T) {
	_, err := ReadRequest(bytes.NewReader([]byte{1, 2}))
	require.Error(t, err)
}
