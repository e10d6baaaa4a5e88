// SPDX-License-Identifier: EPL-2.0

package fader

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	mtx   sync.Mutex
	calls [][]float32
	done  []bool
}

func (r *record) callback(_ JobID, values []float32, finished bool) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.calls = append(r.calls, values)
	r.done = append(r.done, finished)
}

func (r *record) count() int {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	return len(r.calls)
}

// manual returns a scheduler whose loop is never spawned so tests drive tick().
func manual() *Scheduler {
	s := New(DefaultInterval, nil)
	s.running = true
	return s
}

func TestMoveToTarget(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name             string
		start, end, rate float32
		want             float32
	}{
		{"step up", 0, 1, 0.25, 0.25},
		{"clamp up", 0.9, 1, 0.25, 1},
		{"step down", 1, 0, -0.25, 0.75},
		{"clamp down", 0.1, 0, -0.25, 0},
		{"zero rate snaps", 0.3, 0.6, 0, 0.6},
		{"wrong sign snaps", 0.3, 0.6, -0.1, 0.6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, moveToTarget(tt.start, tt.end, tt.rate))
		})
	}
}

func TestStartFade_ReachesTargetExactly(t *testing.T) {
	t.Parallel()

	s := manual()
	rec := &record{}

	// 0.1 s at 10 ms per tick is 10 ticks.
	id := s.StartFade([]float32{0}, []float32{1}, 0.1, rec.callback)
	require.NotZero(t, id)

	for i := range 10 {
		require.True(t, s.tick())
		if i < 9 {
			assert.False(t, rec.done[i], "tick %d finished early", i)
			assert.Less(t, rec.calls[i][0], float32(1))
		}
	}

	assert.Equal(t, float32(1), rec.calls[9][0])
	assert.True(t, rec.done[9])
	assert.Equal(t, 0, s.Active())
}

func TestStartFade_NoOvershoot(t *testing.T) {
	t.Parallel()

	s := manual()
	rec := &record{}
	s.StartFade([]float32{1, -1}, []float32{0.33, 0.77}, 0.07, rec.callback)

	for s.Active() > 0 {
		s.tick()
	}

	for _, v := range rec.calls {
		assert.GreaterOrEqual(t, v[0], float32(0.33))
		assert.LessOrEqual(t, v[1], float32(0.77))
	}
	last := rec.calls[len(rec.calls)-1]
	assert.Equal(t, []float32{0.33, 0.77}, last)
	assert.Equal(t, 1, countTrue(rec.done))
}

func TestStartFade_EqualValuesFinishOnFirstTick(t *testing.T) {
	t.Parallel()

	s := manual()
	rec := &record{}
	s.StartFade([]float32{0.5}, []float32{0.5}, 1, rec.callback)

	s.tick()
	s.tick()

	require.Equal(t, 1, rec.count())
	assert.True(t, rec.done[0])
	assert.Equal(t, float32(0.5), rec.calls[0][0])
}

func TestStartFade_InvalidInput(t *testing.T) {
	t.Parallel()

	s := manual()
	assert.Zero(t, s.StartFade(nil, nil, 1, func(JobID, []float32, bool) {}))
	assert.Zero(t, s.StartFade([]float32{0}, []float32{1}, 1, nil))
}

func TestStopFade(t *testing.T) {
	t.Parallel()

	s := manual()
	rec := &record{}
	id := s.StartFade([]float32{0}, []float32{1}, 1, rec.callback)

	s.tick()
	s.StopFade(id)
	s.StopFade(id)
	s.StopFade(0)
	s.StopFade(12345)
	s.tick()

	assert.Equal(t, 1, rec.count())
	assert.Equal(t, 0, s.Active())
}

func TestPauseResumeFade(t *testing.T) {
	t.Parallel()

	s := manual()
	rec := &record{}
	id := s.StartFade([]float32{0}, []float32{1}, 0.1, rec.callback)

	s.tick()
	s.PauseFade(id)
	s.PauseFade(id)
	s.tick()
	s.tick()
	require.Equal(t, 1, rec.count())
	assert.Equal(t, 1, s.Active())

	s.ResumeFade(id)
	s.ResumeFade(id)
	s.tick()
	require.Equal(t, 2, rec.count())
	assert.InDelta(t, 0.2, rec.calls[1][0], 1e-6)
}

func TestCallbackMayStopOtherJobs(t *testing.T) {
	t.Parallel()

	s := manual()
	var second JobID
	var secondCalls int

	s.StartFade([]float32{0}, []float32{1}, 1, func(JobID, []float32, bool) {
		s.StopFade(second)
	})
	second = s.StartFade([]float32{0}, []float32{1}, 1, func(JobID, []float32, bool) {
		secondCalls++
	})

	s.tick()
	assert.Zero(t, secondCalls)
	assert.Equal(t, 1, s.Active())
}

func TestLoopStopsWhenIdle(t *testing.T) {
	t.Parallel()

	s := New(time.Millisecond, nil)
	finished := make(chan struct{})
	s.StartFade([]float32{0}, []float32{1}, 0.005, func(_ JobID, _ []float32, done bool) {
		if done {
			close(finished)
		}
	})

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("fade never finished")
	}

	require.Eventually(t, func() bool { return !s.Running() }, 2*time.Second, time.Millisecond)
	s.Close()
	assert.Zero(t, s.StartFade([]float32{0}, []float32{1}, 1, func(JobID, []float32, bool) {}))
}

func countTrue(v []bool) int {
	n := 0
	for _, b := range v {
		if b {
			n++
		}
	}
	return n
}
