package measure_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-cellflow/pkg/pipeline/measure"
	"github.com/askiada/go-cellflow/pkg/pipeline/model"
)

func TestDefaultMetric(t *testing.T) {
	t.Parallel()

	msr := measure.NewDefaultMeasure()
	mt := msr.AddMetric("evaluate", 2)

	mt.AddDuration(2 * time.Millisecond)
	mt.AddDuration(4 * time.Millisecond)
	mt.AddTransportDuration("triggers", 8*time.Millisecond)
	mt.AddTransportDuration("triggers", 4*time.Millisecond)

	assert.Equal(t, int64(2), mt.Count())
	assert.Equal(t, 3*time.Millisecond, mt.AVGDuration())

	// averaged per goroutine, and stable across calls
	for range 2 {
		avg := mt.AVGTransportDuration()
		require.Contains(t, avg, "triggers")
		assert.Equal(t, 3*time.Millisecond, avg["triggers"].Elapsed)
	}

	assert.Equal(t, 12*time.Millisecond, mt.AllTransports()["triggers"].Elapsed)
	assert.Same(t, mt, msr.AddMetric("evaluate", 1))
}

func TestPipelineMeasure(t *testing.T) {
	t.Parallel()

	msr := measure.NewDefaultMeasure()
	opt := measure.PipelineMeasure(msr)

	root := &model.StepInfo{Name: "edits", Concurrent: 1}
	sink := &model.StepInfo{Name: "publish", Concurrent: 1}

	require.NoError(t, opt.New())
	require.NoError(t, opt.PrepareStep(model.StartStep.Details, root))
	require.NoError(t, opt.PrepareSink(root, sink))
	require.NoError(t, opt.OnSinkOutput(root, sink, time.Millisecond, 2*time.Millisecond))
	require.NoError(t, opt.AfterSink(sink, time.Second))
	require.NoError(t, opt.Finish())

	all := msr.AllMetrics()
	assert.Len(t, all, 4)
	assert.Equal(t, int64(1), all["publish"].Count())
	assert.Equal(t, 2*time.Millisecond, all["publish"].AVGDuration())
	assert.Equal(t, time.Second, all["publish"].GetTotalDuration())
	assert.Equal(t, int64(0), all["edits"].Count())
}
