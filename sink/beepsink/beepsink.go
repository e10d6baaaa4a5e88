// SPDX-License-Identifier: EPL-2.0

// Package beepsink plays the software device mix through the faiface/beep
// speaker.
package beepsink

import (
	"fmt"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
	"github.com/ik5/audvox/backend/soft"
)

// DefaultLatency is the speaker buffer length.
const DefaultLatency = 100 * time.Millisecond

// Sink feeds the speaker from a Renderer. The speaker is stereo, so mono
// mixes are duplicated and extra channels are dropped.
type Sink struct {
	mtx         sync.Mutex
	latency     time.Duration
	initialized bool
	playing     bool
}

// New creates a sink. A non positive latency selects DefaultLatency.
func New(latency time.Duration) *Sink {
	if latency <= 0 {
		latency = DefaultLatency
	}
	return &Sink{latency: latency}
}

func (s *Sink) Start(r soft.Renderer) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.playing {
		return nil
	}

	if !s.initialized {
		sr := beep.SampleRate(r.SampleRate())
		if err := speaker.Init(sr, sr.N(s.latency)); err != nil {
			return fmt.Errorf("initializing speaker: %w", err)
		}
		s.initialized = true
	}

	speaker.Play(Streamer(r))
	s.playing = true
	return nil
}

func (s *Sink) Stop() error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.playing {
		speaker.Clear()
		s.playing = false
	}
	return nil
}

func (s *Sink) Close() error {
	if err := s.Stop(); err != nil {
		return err
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.initialized {
		speaker.Close()
		s.initialized = false
	}
	return nil
}

// Streamer adapts r to a never ending beep.Streamer.
func Streamer(r soft.Renderer) beep.Streamer {
	channels := r.OutputChannels()
	var buf []float32

	return beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		size := len(samples) * channels
		if cap(buf) < size {
			buf = make([]float32, size)
		}
		buf = buf[:size]
		r.Render(buf)

		for i := range samples {
			frame := buf[i*channels : (i+1)*channels]
			left := float64(frame[0])
			right := left
			if channels > 1 {
				right = float64(frame[1])
			}
			samples[i] = [2]float64{left, right}
		}
		return len(samples), true
	})
}
