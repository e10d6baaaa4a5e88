// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/ik5/audvox/audio"
	"github.com/ik5/audvox/internal/audiotest"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 2 * time.Second
	tick    = 2 * time.Millisecond
)

// mockDecoder produces a constant source. announced overrides the length
// the source reports.
type mockDecoder struct {
	frames    int
	announced int
	channels  int
	rate      int
}

type announcedSource struct {
	*audiotest.MockSource
	frames int
}

func (s announcedSource) Frames() int { return s.frames }

func (d mockDecoder) Decode(io.Reader) (audio.Source, error) {
	src := audiotest.NewConstantSource(d.rate, d.channels, d.frames, 0.5)
	if d.announced > 0 {
		return announcedSource{MockSource: src, frames: d.announced}, nil
	}
	return src, nil
}

// gatedDecoder blocks every read until the gate is closed.
type gatedDecoder struct {
	gate   chan struct{}
	frames int
}

type gatedSource struct {
	*audiotest.MockSource
	gate chan struct{}
}

func (s gatedSource) ReadSamples(dst []float32) (int, error) {
	<-s.gate
	return s.MockSource.ReadSamples(dst)
}

func (d gatedDecoder) Decode(io.Reader) (audio.Source, error) {
	return gatedSource{MockSource: audiotest.NewSilentSource(48000, 1, d.frames), gate: d.gate}, nil
}

// unsizedDecoder hides the length of its source.
type unsizedDecoder struct{}

type unsizedSource struct{ audio.Source }

func (unsizedDecoder) Decode(io.Reader) (audio.Source, error) {
	return unsizedSource{audiotest.NewSilentSource(48000, 1, 100)}, nil
}

type testEngine struct {
	*Engine
	dev  *audiotest.FakeDevice
	reg  *audio.Registry
	gate chan struct{}
	open func()
}

func newTestEngine(t *testing.T, tweak ...func(*Options)) *testEngine {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)

	opts := NewOptions()
	opts.Logger = log
	opts.FadeInterval = tick
	opts.PoolGrace = 0
	opts.DecodeWaitTimeout = time.Second
	for _, fn := range tweak {
		fn(opts)
	}

	gate := make(chan struct{})
	reg := audio.NewRegistry()
	reg.Register("wav", mockDecoder{frames: 1000, channels: 1, rate: 48000})
	reg.Register("stereo", mockDecoder{frames: 1000, channels: 2, rate: 44100})
	reg.Register("short", mockDecoder{frames: 600, announced: 1000, channels: 1, rate: 48000})
	reg.Register("gated", gatedDecoder{gate: gate, frames: 1000})
	reg.Register("unsized", unsizedDecoder{})

	dev := audiotest.NewFakeDevice()
	e, err := New(dev, reg, opts)
	require.NoError(t, err)
	t.Cleanup(e.Release)

	te := &testEngine{Engine: e, dev: dev, reg: reg, gate: gate}
	te.open = sync.OnceFunc(func() { close(gate) })
	t.Cleanup(te.open)
	return te
}

// addBank adds a fully decoded mono bank of 1000 frames.
func (te *testEngine) addBank(t *testing.T) BankID {
	t.Helper()

	id := te.BankAddWav([]byte{1})
	require.NotZero(t, id)
	return id
}

// addVoice creates a voice on the master bus and returns its fake source.
func (te *testEngine) addVoice(t *testing.T, bank BankID) (VoiceID, *audiotest.FakeSource) {
	t.Helper()

	id := te.CreateVoice(bank, MasterBus, false)
	require.NotZero(t, id)
	return id, te.dev.LastSource()
}

func (te *testEngine) bankByID(id BankID) *Bank {
	te.bankMtx.Lock()
	defer te.bankMtx.Unlock()

	return te.banks[id]
}
