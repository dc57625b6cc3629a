package queue

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	fragments := []string{
		"2018/01/03/23/54/0f1e2d3c4b5a69788796a5b4c3d2e1f0_0",
		"single",
		"a/b/c",
		"with-one-dash/x",
	}
	for _, fragment := range fragments {
		id, ok := EncodeID(fragment)
		require.True(t, ok)
		require.Contains(t, id, IDPrefix)
		require.NotContains(t, id, "/")

		decoded, ok := DecodeID(id)
		require.True(t, ok)
		require.Equal(t, fragment, decoded)
	}
}

func TestEncodeIDFormat(t *testing.T) {
	id, ok := EncodeID("2018/01/03/23/54/abc_7")
	require.True(t, ok)
	require.Equal(t, "distrq-2018--01--03--23--54--abc_7", id)
}

func TestEncodeDecodeAbsent(t *testing.T) {
	id, ok := EncodeID("")
	require.False(t, ok)
	require.Empty(t, id)

	for _, bad := range []string{"", "distrq-", "queue-2018--01", "2018/01/03"} {
		fragment, ok := DecodeID(bad)
		require.False(t, ok, bad)
		require.Empty(t, fragment)
	}
}

func TestDoubleDashIsNotRoundTripSafe(t *testing.T) {
	id, ok := EncodeID("a--b")
	require.True(t, ok)
	decoded, ok := DecodeID(id)
	require.True(t, ok)
	require.Equal(t, "a/b", decoded)
}

func TestPathIDHelpers(t *testing.T) {
	const root = "/var/distq/queues/q1"
	path, ok := pathFromID(root, "distrq-2018--01--x_0")
	require.True(t, ok)
	require.Equal(t, root+"/2018/01/x_0", path)
	require.Equal(t, "distrq-2018--01--x_0", idFromPath(root, path))

	_, ok = pathFromID(root, "nope")
	require.False(t, ok)
}

func TestIDFromPathPanicsOutsideRoot(t *testing.T) {
	require.Panics(t, func() { idFromPath("/var/q1", "/var/q2/2018") })
	require.Panics(t, func() { idFromPath("/var/q1", "/var/q1") })
}
