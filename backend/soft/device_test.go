// SPDX-License-Identifier: EPL-2.0

package soft

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/ik5/audvox/backend"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitFor = 2 * time.Second

type testPCM struct {
	channels int
	data     []float32
}

func (p *testPCM) Channels() int { return p.channels }
func (p *testPCM) Frames() int   { return len(p.data) / p.channels }

func (p *testPCM) ReadFrames(dst []float32, frame int) int {
	if frame >= p.Frames() {
		return 0
	}
	n := min(len(dst)/p.channels, p.Frames()-frame)
	copy(dst, p.data[frame*p.channels:(frame+n)*p.channels])
	return n
}

func ramp(n int) *testPCM {
	p := &testPCM{channels: 1, data: make([]float32, n)}
	for i := range p.data {
		p.data[i] = float32(i)
	}
	return p
}

func constant(n int, v float32) *testPCM {
	p := &testPCM{channels: 1, data: make([]float32, n)}
	for i := range p.data {
		p.data[i] = v
	}
	return p
}

type ends struct {
	mtx sync.Mutex
	n   int
}

func (e *ends) callback() {
	e.mtx.Lock()
	e.n++
	e.mtx.Unlock()
}

func (e *ends) count() int {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	return e.n
}

func newTestDevice(t *testing.T, channels int) *Device {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)

	d, err := New(&Config{SampleRate: 48000, Channels: channels, Logger: log})
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func newTestSource(t *testing.T, d *Device, dest backend.Voice, rate int, e *ends) *sourceVoice {
	t.Helper()

	var cb func()
	if e != nil {
		cb = e.callback
	}
	v, err := d.NewSourceVoice(dest, backend.VoiceOptions{
		Format:      backend.Format{Channels: 1, SampleRate: rate},
		Effects:     backend.DefaultEffectChain,
		OnBufferEnd: cb,
	})
	require.NoError(t, err)
	return v.(*sourceVoice)
}

// left returns channel 0 of a stereo render.
func left(buf []float32) []float32 {
	out := make([]float32, len(buf)/2)
	for i := range out {
		out[i] = buf[2*i]
	}
	return out
}

func TestNew_Config(t *testing.T) {
	_, err := New(&Config{SampleRate: 0, Channels: 2})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	d := newTestDevice(t, 6)
	assert.Equal(t, backend.Mask5Point1, d.ChannelMask())
	assert.Equal(t, 6, d.Master().InputChannels())

	assert.Equal(t, uint32(0), defaultMask(3))
	assert.Equal(t, backend.MaskMono, defaultMask(1))
}

func TestRender_DefaultRouting(t *testing.T) {
	d := newTestDevice(t, 2)
	s := newTestSource(t, d, d.Master(), 48000, nil)

	require.NoError(t, s.SubmitBuffer(backend.Buffer{PCM: constant(10, 0.5)}))

	buf := make([]float32, 8)
	d.Render(buf)
	assert.Equal(t, make([]float32, 8), buf, "not started")

	require.NoError(t, s.Start())
	d.Render(buf)
	assert.Equal(t, []float32{0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5}, buf)
	assert.Equal(t, uint64(4), s.SamplesPlayed())
}

func TestRender_MatrixAndVolumes(t *testing.T) {
	d := newTestDevice(t, 2)
	s := newTestSource(t, d, d.Master(), 48000, nil)

	require.NoError(t, s.SetOutputMatrix(1, 2, []float32{1, 0}))
	require.NoError(t, s.SetVolume(0.5))
	require.NoError(t, d.Master().SetVolume(0.5))
	require.NoError(t, s.SubmitBuffer(backend.Buffer{PCM: constant(10, 1)}))
	require.NoError(t, s.Start())

	buf := make([]float32, 4)
	d.Render(buf)
	assert.Equal(t, []float32{0.25, 0, 0.25, 0}, buf)

	assert.ErrorIs(t, s.SetOutputMatrix(2, 2, make([]float32, 4)), backend.ErrInvalidMatrix)
	assert.ErrorIs(t, d.Master().SetOutputMatrix(2, 2, make([]float32, 4)), backend.ErrInvalidMatrix)
}

func TestRender_Submix(t *testing.T) {
	d := newTestDevice(t, 2)
	bus, err := d.NewSubmixVoice(2, 48000, backend.DefaultEffectChain)
	require.NoError(t, err)
	require.NoError(t, bus.SetVolume(0.5))

	s := newTestSource(t, d, bus, 48000, nil)
	require.NoError(t, s.SubmitBuffer(backend.Buffer{PCM: constant(10, 1)}))
	require.NoError(t, s.Start())

	buf := make([]float32, 4)
	d.Render(buf)
	assert.Equal(t, []float32{0.5, 0.5, 0.5, 0.5}, buf)

	bus.Destroy()
	d.Render(buf)
	assert.Equal(t, make([]float32, 4), buf, "destroyed submix is silent")

	_, err = d.NewSubmixVoice(2, 44100, nil)
	assert.ErrorIs(t, err, backend.ErrInvalidFormat)
}

func TestRender_NaturalEnd(t *testing.T) {
	d := newTestDevice(t, 2)
	var e ends
	s := newTestSource(t, d, d.Master(), 48000, &e)

	require.NoError(t, s.SubmitBuffer(backend.Buffer{PCM: ramp(4), PlayBegin: 1}))
	require.NoError(t, s.Start())

	buf := make([]float32, 12)
	d.Render(buf)
	assert.Equal(t, []float32{1, 2, 3, 0, 0, 0}, left(buf))
	assert.Zero(t, s.SamplesPlayed(), "reset at end of stream")

	assert.Eventually(t, func() bool { return e.count() == 1 }, waitFor, time.Millisecond)
}

func TestRender_PlayLength(t *testing.T) {
	d := newTestDevice(t, 2)
	s := newTestSource(t, d, d.Master(), 48000, nil)

	require.NoError(t, s.SubmitBuffer(backend.Buffer{PCM: ramp(10), PlayBegin: 2, PlayLength: 3}))
	require.NoError(t, s.Start())

	buf := make([]float32, 10)
	d.Render(buf)
	assert.Equal(t, []float32{2, 3, 4, 0, 0}, left(buf))
}

func TestRender_Loops(t *testing.T) {
	tests := []struct {
		name  string
		count uint32
		want  []float32
	}{
		{"infinite", backend.LoopInfinite, []float32{0, 1, 2, 1, 2, 1, 2, 1}},
		{"once", 1, []float32{0, 1, 2, 1, 2, 3, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDevice(t, 2)
			s := newTestSource(t, d, d.Master(), 48000, nil)

			require.NoError(t, s.SubmitBuffer(backend.Buffer{
				PCM:        ramp(4),
				LoopBegin:  1,
				LoopLength: 2,
				LoopCount:  tt.count,
			}))
			require.NoError(t, s.Start())

			buf := make([]float32, 16)
			d.Render(buf)
			assert.Equal(t, tt.want, left(buf))
		})
	}
}

func TestRender_FrequencyRatio(t *testing.T) {
	d := newTestDevice(t, 2)
	s := newTestSource(t, d, d.Master(), 48000, nil)

	require.NoError(t, s.SetFrequencyRatio(2))
	require.NoError(t, s.SubmitBuffer(backend.Buffer{PCM: ramp(20)}))
	require.NoError(t, s.Start())

	buf := make([]float32, 6)
	d.Render(buf)
	assert.Equal(t, []float32{0, 2, 4}, left(buf))
	assert.Equal(t, uint64(6), s.SamplesPlayed())

	require.NoError(t, s.SetFrequencyRatio(1e6))
	assert.Equal(t, backend.MaxFrequencyRatio, s.FrequencyRatio())
}

func TestRender_SourceRateConversion(t *testing.T) {
	d := newTestDevice(t, 2)
	s := newTestSource(t, d, d.Master(), 24000, nil)

	require.NoError(t, s.SubmitBuffer(backend.Buffer{PCM: ramp(20)}))
	require.NoError(t, s.Start())

	buf := make([]float32, 8)
	d.Render(buf)

	got := left(buf)
	assert.Equal(t, float32(0), got[0])
	assert.Equal(t, float32(1), got[2])
	assert.InDelta(t, 1.5, got[3], 1e-4, "interpolated between frames")
	assert.Equal(t, uint64(2), s.SamplesPlayed())
}

func TestFlushBuffers_NotifiesPerBuffer(t *testing.T) {
	d := newTestDevice(t, 2)
	var e ends
	s := newTestSource(t, d, d.Master(), 48000, &e)

	require.NoError(t, s.SubmitBuffer(backend.Buffer{PCM: ramp(10)}))
	require.NoError(t, s.SubmitBuffer(backend.Buffer{PCM: ramp(10)}))
	require.NoError(t, s.FlushBuffers())

	assert.Eventually(t, func() bool { return e.count() == 2 }, waitFor, time.Millisecond)

	buf := make([]float32, 4)
	require.NoError(t, s.Start())
	d.Render(buf)
	assert.Equal(t, make([]float32, 4), buf)
}

func TestSubmitBuffer_Errors(t *testing.T) {
	d := newTestDevice(t, 2)
	s := newTestSource(t, d, d.Master(), 48000, nil)

	assert.ErrorIs(t, s.SubmitBuffer(backend.Buffer{}), backend.ErrNoBuffer)
	assert.ErrorIs(t, s.SubmitBuffer(backend.Buffer{PCM: &testPCM{channels: 2, data: make([]float32, 4)}}), backend.ErrInvalidFormat)
	assert.ErrorIs(t, s.SubmitBuffer(backend.Buffer{PCM: ramp(4), PlayBegin: 4}), backend.ErrInvalidRegion)

	s.Destroy()
	assert.ErrorIs(t, s.SubmitBuffer(backend.Buffer{PCM: ramp(4)}), backend.ErrVoiceDestroyed)
	assert.ErrorIs(t, s.Start(), backend.ErrVoiceDestroyed)
}

func TestNewSourceVoice_Errors(t *testing.T) {
	d := newTestDevice(t, 2)
	other := newTestDevice(t, 2)

	_, err := d.NewSourceVoice(other.Master(), backend.VoiceOptions{Format: backend.Format{Channels: 1, SampleRate: 48000}})
	assert.ErrorIs(t, err, ErrInvalidDestination)

	_, err = d.NewSourceVoice(d.Master(), backend.VoiceOptions{})
	assert.ErrorIs(t, err, backend.ErrInvalidFormat)

	require.NoError(t, d.Close())
	_, err = d.NewSourceVoice(d.Master(), backend.VoiceOptions{Format: backend.Format{Channels: 1, SampleRate: 48000}})
	assert.ErrorIs(t, err, ErrDeviceClosed)
}

func TestEffects_Stored(t *testing.T) {
	d := newTestDevice(t, 2)
	s := newTestSource(t, d, d.Master(), 48000, nil)

	require.NoError(t, s.EnableEffect(int(backend.EffectEcho)))
	require.NoError(t, s.SetEffectParameters(int(backend.EffectEcho), "params"))

	on, params := s.EffectState(int(backend.EffectEcho))
	assert.True(t, on)
	assert.Equal(t, "params", params)

	require.NoError(t, s.DisableEffect(int(backend.EffectEcho)))
	on, _ = s.EffectState(int(backend.EffectEcho))
	assert.False(t, on)

	assert.ErrorIs(t, s.EnableEffect(3), backend.ErrInvalidSlot)
	assert.ErrorIs(t, s.SetEffectParameters(-1, nil), backend.ErrInvalidSlot)
}

func TestMixInto(t *testing.T) {
	dst := make([]float32, 4)
	mixInto(dst, 2, []float32{1, 2, 3, 4}, 2, 2, 1, nil)
	assert.Equal(t, []float32{1, 2, 3, 4}, dst)

	mixInto(dst, 2, []float32{1, 1, 1, 1}, 2, 2, 2, []float32{0, 1, 1, 0})
	assert.Equal(t, []float32{3, 4, 5, 6}, dst)

	mono := make([]float32, 2)
	mixInto(mono, 1, []float32{1, 3, 5, 7}, 2, 2, 1, []float32{0.5, 0.5})
	assert.Equal(t, []float32{2, 6}, mono)
}
