package xlog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type closeRecorder struct {
	bytes.Buffer
	closed int
}

func (c *closeRecorder) Close() error {
	c.closed++
	return nil
}

func TestBuilder_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, cleanup, err := New().SetOutput(&buf).SetFormat("JSON").SetLevel(LevelDebug).Build()
	require.NoError(t, err)
	defer func() { _ = cleanup() }()

	logger.With(Component("xinstrument")).Debug(context.Background(), "instrumenting",
		Class("Pipeline"), Method("fit"), Count(2), Err(nil))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "DEBUG", rec["level"])
	assert.Equal(t, "instrumenting", rec["msg"])
	assert.Equal(t, "xinstrument", rec[KeyComponent])
	assert.Equal(t, "Pipeline", rec[KeyClass])
	assert.Equal(t, "fit", rec[KeyMethod])
	assert.InDelta(t, 2, rec[KeyCount], 0)
	assert.NotContains(t, rec, KeyError)
}

func TestBuilder_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := New().SetOutput(&buf).SetLevelString("warn").Build()
	require.NoError(t, err)

	logger.Info(context.Background(), "hidden")
	logger.Warn(context.Background(), "shown", Err(errors.New("boom")))
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "error=boom")

	logger.SetLevel(LevelDebug)
	assert.Equal(t, LevelDebug, logger.GetLevel())
	assert.True(t, logger.Enabled(nil, LevelDebug)) //nolint:staticcheck // nil ctx 兜底
}

func TestBuilder_Errors(t *testing.T) {
	_, _, err := New().SetOutput(nil).Build()
	assert.ErrorIs(t, err, ErrNilOutput)

	_, _, err = New().SetFormat("xml").Build()
	assert.ErrorIs(t, err, ErrUnknownFormat)

	// 首个错误优先
	_, _, err = New().SetLevelString("loud").SetFormat("xml").Build()
	assert.ErrorIs(t, err, ErrUnknownLevel)

	logger, _, err := New().SetOutput(&bytes.Buffer{}).SetLevelString("").Build()
	require.NoError(t, err)
	assert.Equal(t, LevelInfo, logger.GetLevel())
}

func TestBuilder_CleanupClosesOnce(t *testing.T) {
	w := &closeRecorder{}
	_, cleanup, err := New().SetOutput(w).Build()
	require.NoError(t, err)

	require.NoError(t, cleanup())
	require.NoError(t, cleanup())
	assert.Equal(t, 1, w.closed)
}

func TestLogger_WithGroup(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := New().SetOutput(&buf).SetFormat("json").Build()
	require.NoError(t, err)

	logger.WithGroup("walk").Info(context.Background(), "visit", Class("Pipeline"))
	assert.True(t, strings.Contains(buf.String(), `"walk":{"class":"Pipeline"}`), buf.String())
	assert.Same(t, logger, logger.WithGroup(""))
}

func TestDiscard(t *testing.T) {
	l := Discard()
	l.Error(context.Background(), "dropped")
	assert.Same(t, l, l.With())
}
