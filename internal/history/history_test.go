package history

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "history.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestBeginComplete(t *testing.T) {
	l := openTestLedger(t)

	id, err := l.Begin("fade_in", map[string]any{"duration": 15 * time.Minute}, "fade_in@07:30/1787643000")
	require.NoError(t, err)
	require.NotEmpty(t, id)
	require.NoError(t, l.Complete(id))

	runs, err := l.Recent(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	run := runs[0]
	assert.Equal(t, "fade_in", run.Effect)
	assert.True(t, run.Completed())
	assert.False(t, run.Failed())
	assert.Equal(t, "15m0s", run.Args["duration"])
	assert.Equal(t, "fade_in@07:30/1787643000", run.OccurrenceKey)
}

func TestFail(t *testing.T) {
	l := openTestLedger(t)

	id, err := l.Begin("alarm", nil, "")
	require.NoError(t, err)
	require.NoError(t, l.Fail(id, errors.New("bulb not found during scan")))

	runs, err := l.Recent(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.True(t, runs[0].Failed())
	assert.Equal(t, "bulb not found during scan", runs[0].Error)
}

func TestHasCompleted(t *testing.T) {
	l := openTestLedger(t)

	key := "fade_out@22:00/1787695200"
	assert.False(t, l.HasCompleted(key))

	id, err := l.Begin("fade_out", nil, key)
	require.NoError(t, err)
	// Started but not completed does not deduplicate.
	assert.False(t, l.HasCompleted(key))

	require.NoError(t, l.Complete(id))
	assert.True(t, l.HasCompleted(key))

	// Empty keys never deduplicate.
	id2, err := l.Begin("fade_out", nil, "")
	require.NoError(t, err)
	require.NoError(t, l.Complete(id2))
	assert.False(t, l.HasCompleted(""))
}

func TestDuplicateCompletionIgnored(t *testing.T) {
	l := openTestLedger(t)

	key := "alarm@07:00/1787641200"
	id1, err := l.Begin("alarm", nil, key)
	require.NoError(t, err)
	require.NoError(t, l.Complete(id1))

	// A second run of the same occurrence can start (crash recovery), but
	// its completion is a no-op under the unique partial index.
	id2, err := l.Begin("alarm", nil, key)
	require.NoError(t, err)
	require.NoError(t, l.Complete(id2))

	runs, err := l.Recent(10)
	require.NoError(t, err)
	completed := 0
	for _, r := range runs {
		if r.Completed() {
			completed++
		}
	}
	assert.Equal(t, 1, completed)
}

func TestRecentOrderAndLimit(t *testing.T) {
	l := openTestLedger(t)

	for i := 0; i < 5; i++ {
		_, err := l.Begin("fade_in", nil, "")
		require.NoError(t, err)
	}

	runs, err := l.Recent(3)
	require.NoError(t, err)
	assert.Len(t, runs, 3)
}

func TestPrune(t *testing.T) {
	l := openTestLedger(t)

	_, err := l.Begin("fade_in", nil, "")
	require.NoError(t, err)

	// Nothing is older than a day yet.
	n, err := l.Prune(24 * time.Hour)
	require.NoError(t, err)
	assert.Zero(t, n)

	// Everything is older than "in the future".
	n, err = l.Prune(-time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}
