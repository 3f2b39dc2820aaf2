package journal

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJournal_RecordAndRecent(t *testing.T) {
	l := logrus.New()
	l.SetOutput(io.Discard)

	j, err := Open(filepath.Join(t.TempDir(), "journal.db"), logrus.NewEntry(l))
	require.NoError(t, err)
	defer j.Close()

	ctx := context.Background()
	j.Record(ctx, 1, "registered", "")
	j.Record(ctx, 1, "health", "healthy -> broken")
	j.Record(ctx, 2, "removed", "")

	entries, err := j.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "removed", entries[0].Event)
	assert.Equal(t, int64(2), entries[0].NodeID)

	all, err := j.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestJournal_NilIsSafe(t *testing.T) {
	var j *Journal
	j.Record(context.Background(), 1, "registered", "")
	require.NoError(t, j.Close())
}
