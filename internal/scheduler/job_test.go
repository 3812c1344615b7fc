package scheduler

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobHistory_TrimsToLastHundred(t *testing.T) {
	h := &JobHistory{}

	for i := 0; i < 150; i++ {
		h.AddResult(JobResult{
			JobName:   fmt.Sprintf("run-%d", i),
			StartTime: time.Now(),
			Success:   true,
		})
	}

	require.Len(t, h.Results, 100)
	assert.Equal(t, "run-50", h.Results[0].JobName)
	assert.Equal(t, "run-149", h.Results[99].JobName)
}

func TestJobHistory_SuccessRate(t *testing.T) {
	h := &JobHistory{}
	assert.Zero(t, h.SuccessRate())

	h.AddResult(JobResult{Success: true})
	h.AddResult(JobResult{Success: true})
	h.AddResult(JobResult{Success: false})
	h.AddResult(JobResult{Success: true})

	assert.InDelta(t, 0.75, h.SuccessRate(), 0.001)

	latest := h.Latest()
	require.NotNil(t, latest)
	assert.True(t, latest.Success)
}
