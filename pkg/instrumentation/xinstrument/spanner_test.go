package xinstrument_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/omeyang/xestimator/pkg/estimator/xestimator"
	"github.com/omeyang/xestimator/pkg/instrumentation/xinstrument"
	"github.com/omeyang/xestimator/pkg/observability/xspan"
)

type ctxKey struct{}

func TestNewSpanner_Metadata(t *testing.T) {
	ctrl := gomock.NewController(t)
	original := xestimator.NewFunc("fit", returns(nil))

	wrapper := xinstrument.NewSpanner(NewMockObserver(ctrl))(original, "Pipeline")

	require.NotNil(t, wrapper)
	assert.Equal(t, "fit", wrapper.Name())
	assert.Equal(t, xinstrument.SpanLabel, wrapper.Label())
	assert.Same(t, original, wrapper.Wrapped())
	assert.True(t, xinstrument.IsSpanWrapper(wrapper))
	assert.False(t, xinstrument.IsSpanWrapper(original))
}

func TestNewSpanner_OpensAndClosesSpan(t *testing.T) {
	ctrl := gomock.NewController(t)
	obs := NewMockObserver(ctrl)
	span := NewMockSpan(ctrl)
	attr := xspan.String(xinstrument.AttrInstrumentorID, "id-1")

	spanCtx := context.WithValue(context.Background(), ctxKey{}, "in-span")
	obs.EXPECT().
		Start(gomock.Any(), xspan.SpanOptions{
			Name:      "NearestCentroid.predict",
			Estimator: "NearestCentroid",
			Method:    "predict",
			Kind:      xspan.KindInternal,
			Attrs:     []xspan.Attr{attr},
		}).
		Return(spanCtx, span)
	span.EXPECT().End(xspan.Result{})

	original := xestimator.NewFunc("predict", func(ctx context.Context, _ xestimator.Estimator, args ...any) (any, error) {
		assert.Equal(t, "in-span", ctx.Value(ctxKey{}), "original runs inside the span context")
		return args[0], nil
	})
	wrapper := xinstrument.NewSpanner(obs, attr)(original, "NearestCentroid")

	out, err := wrapper.Invoke(context.Background(), nil, 42)
	require.NoError(t, err)
	assert.Equal(t, 42, out)
}

func TestNewSpanner_ClosesOnError(t *testing.T) {
	ctrl := gomock.NewController(t)
	obs := NewMockObserver(ctrl)
	span := NewMockSpan(ctrl)
	boom := errors.New("boom")

	obs.EXPECT().Start(gomock.Any(), gomock.Any()).Return(context.Background(), span)
	span.EXPECT().End(gomock.Any()).Do(func(r xspan.Result) {
		assert.ErrorIs(t, r.Err, boom)
		assert.False(t, r.Panicked)
	})

	original := xestimator.NewFunc("fit", func(context.Context, xestimator.Estimator, ...any) (any, error) {
		return nil, boom
	})
	_, err := xinstrument.NewSpanner(obs)(original, "LinearSVC").Invoke(context.Background(), nil)
	assert.ErrorIs(t, err, boom)
}

func TestNewSpanner_ClosesOnPanic(t *testing.T) {
	ctrl := gomock.NewController(t)
	obs := NewMockObserver(ctrl)
	span := NewMockSpan(ctrl)

	obs.EXPECT().Start(gomock.Any(), gomock.Any()).Return(context.Background(), span)
	span.EXPECT().End(gomock.Any()).Do(func(r xspan.Result) {
		assert.True(t, r.Panicked)
		assert.EqualError(t, r.Err, "panic: kaboom")
	})

	original := xestimator.NewFunc("fit", func(context.Context, xestimator.Estimator, ...any) (any, error) {
		panic("kaboom")
	})
	wrapper := xinstrument.NewSpanner(obs)(original, "StandardScaler")
	assert.PanicsWithValue(t, "kaboom", func() { _, _ = wrapper.Invoke(context.Background(), nil) })
}

func TestNewSpanner_NilObserverReturnsNoopSpan(t *testing.T) {
	original := xestimator.NewFunc("fit", returns("ok"))
	out, err := xinstrument.NewSpanner(nil)(original, "Model").Invoke(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
}
