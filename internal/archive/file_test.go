package archive

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFile(t *testing.T) {
	a, err := NewFile(filepath.Join(t.TempDir(), "db.jsonl"))
	require.NoError(t, err)
	testArchive(t, a)
}

func TestFileOneRecordPerLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.jsonl")
	a, err := NewFile(path)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, a.Append(ctx, sampleRecord("one", time.Now(), nil)))
	require.NoError(t, a.Append(ctx, sampleRecord("two", time.Now(), nil)))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := 0
	for _, b := range raw {
		if b == '\n' {
			lines++
		}
	}
	assert.Equal(t, 2, lines)
	assert.Contains(t, string(raw), `"whiteUsername":"alice"`)
}

func TestFileCorruptLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{not json}\n"), 0o644))

	a, err := NewFile(path)
	require.NoError(t, err)
	_, err = a.Query(context.Background(), nil)
	assert.Error(t, err)
}
