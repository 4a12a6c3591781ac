package uring

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// newTestRing creates a ring for the duration of a test, skipping the
// test on kernels/environments where io_uring is unavailable (containers
// without CAP_SYS_ADMIN-equivalent seccomp allowances, for instance).
func newTestRing(t *testing.T) Ring {
	t.Helper()
	ring, err := NewRing(Config{Entries: 32})
	if err != nil {
		t.Skipf("io_uring unavailable in this environment: %v", err)
	}
	t.Cleanup(func() { ring.Close() })
	return ring
}

func TestNewRingAndClose(t *testing.T) {
	ring := newTestRing(t)
	require.NotNil(t, ring)
}

func TestSQSpaceLeftDecreasesAfterPrepare(t *testing.T) {
	ring := newTestRing(t)
	before := ring.SQSpaceLeft()

	r, w, err := pipeFDs()
	require.NoError(t, err)
	defer closeFDs(r, w)

	require.NoError(t, ring.PrepareRead(r, make([]byte, 16), 0, 1))
	require.Less(t, ring.SQSpaceLeft(), before)
}

func TestPrepareClosePublishesAndCompletes(t *testing.T) {
	ring := newTestRing(t)

	r, w, err := pipeFDs()
	require.NoError(t, err)
	defer closeFDs(r, w)

	require.NoError(t, ring.PrepareClose(r, 42))
	_, err = ring.FlushSubmissions()
	require.NoError(t, err)

	res, err := ring.WaitForCompletion()
	require.NoError(t, err)
	require.Equal(t, uint64(42), res.UserData())
}

func TestPeekCompletionWithoutSubmissionReturnsFalse(t *testing.T) {
	ring := newTestRing(t)
	_, ok, err := ring.PeekCompletion()
	require.NoError(t, err)
	require.False(t, ok)
}
