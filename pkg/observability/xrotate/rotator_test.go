package xrotate

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLumberjack_Validation(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name     string
		filename string
		opts     []Option
		wantErr  error
	}{
		{"empty filename", "", nil, ErrEmptyFilename},
		{"zero size", "a.log", []Option{WithMaxSize(0)}, ErrInvalidMaxSize},
		{"huge size", "a.log", []Option{WithMaxSize(maxSizeMB + 1)}, ErrInvalidMaxSize},
		{"negative backups", "a.log", []Option{WithMaxBackups(-1)}, ErrInvalidMaxBackups},
		{"negative age", "a.log", []Option{WithMaxAge(-1)}, ErrInvalidMaxAge},
		{"no cleanup", "a.log", []Option{WithMaxBackups(0), WithMaxAge(0)}, ErrNoCleanupPolicy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name := tt.filename
			if name != "" {
				name = filepath.Join(dir, name)
			}
			_, err := NewLumberjack(name, tt.opts...)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLumberjack_WriteCreatesDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "logs", "xinstrument.log")
	r, err := NewLumberjack(path, nil, WithMaxSize(1), WithCompress(false))
	require.NoError(t, err)

	_, err = r.Write([]byte("instrumenting\n"))
	require.NoError(t, err)
	require.NoError(t, r.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "instrumenting\n", string(data))
}

func TestLumberjack_Rotate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "xinstrument.log")
	r, err := NewLumberjack(path, WithMaxBackups(2))
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Write([]byte("before\n"))
	require.NoError(t, err)
	require.NoError(t, r.Rotate())
	_, err = r.Write([]byte("after\n"))
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var backups int
	for _, e := range entries {
		if e.Name() != "xinstrument.log" && strings.HasPrefix(e.Name(), "xinstrument-") {
			backups++
		}
	}
	assert.Equal(t, 1, backups)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "after\n", string(data))
}

func TestLumberjack_Closed(t *testing.T) {
	r, err := NewLumberjack(filepath.Join(t.TempDir(), "closed.log"))
	require.NoError(t, err)
	require.NoError(t, r.Close())

	assert.ErrorIs(t, r.Close(), ErrClosed)
	assert.ErrorIs(t, r.Rotate(), ErrClosed)
	_, err = r.Write([]byte("late\n"))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestLumberjack_ConcurrentWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "concurrent.log")
	r, err := NewLumberjack(path)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 8 {
		wg.Go(func() {
			for range 50 {
				_, _ = r.Write([]byte("line\n"))
			}
		})
	}
	wg.Wait()
	require.NoError(t, r.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 400, strings.Count(string(data), "line\n"))
}
