package auditlog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendRead_RoundTrip(t *testing.T) {
	dir := t.TempDir()

	e := Entry{
		Timestamp:  time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Model:      "gemini-2.5-flash",
		Batches:    3,
		Submitted:  60,
		Classified: 57,
		Failed:     3,
		Notes:      "one batch timed out",
	}
	require.NoError(t, Append(dir, []Entry{e}))

	entries, err := Read(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, e, entries[0])
}

func TestAppend_AccumulatesWithoutDuplicateHeader(t *testing.T) {
	dir := t.TempDir()
	e := Entry{Timestamp: time.Now().UTC().Truncate(time.Second), Model: "m"}

	require.NoError(t, Append(dir, []Entry{e}))
	require.NoError(t, Append(dir, []Entry{e, e}))

	entries, err := Read(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestRead_NoFile(t *testing.T) {
	entries, err := Read(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, entries)
}
