package lock

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireWritesPID(t *testing.T) {
	t.Parallel()

	lockPath := filepath.Join(t.TempDir(), "run", "twilio-gw.pid")
	l, err := Acquire(lockPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Release() })

	pid, err := ReadPID(lockPath)
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)
	assert.Equal(t, lockPath, l.Path())
}

func TestAcquireTwiceFails(t *testing.T) {
	t.Parallel()

	lockPath := filepath.Join(t.TempDir(), "twilio-gw.pid")
	first, err := Acquire(lockPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = first.Release() })

	_, err = Acquire(lockPath)
	assert.ErrorIs(t, err, ErrLocked)
}

func TestReleaseRemovesFileAndAllowsReacquire(t *testing.T) {
	t.Parallel()

	lockPath := filepath.Join(t.TempDir(), "twilio-gw.pid")
	l, err := Acquire(lockPath)
	require.NoError(t, err)
	require.NoError(t, l.Release())
	require.NoError(t, l.Release())

	_, err = os.Stat(lockPath)
	assert.True(t, os.IsNotExist(err))

	again, err := Acquire(lockPath)
	require.NoError(t, err)
	assert.NoError(t, again.Release())
}

func TestAcquireEmptyPath(t *testing.T) {
	t.Parallel()

	_, err := Acquire("")
	assert.Error(t, err)
}
