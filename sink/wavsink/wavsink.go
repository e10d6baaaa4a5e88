// SPDX-License-Identifier: EPL-2.0

// Package wavsink records the software device mix into a 16-bit WAV file.
package wavsink

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/ik5/audvox/backend/soft"
	"github.com/ik5/audvox/formats/wav"
)

// Sink renders in real time while the engine runs and appends every period
// to the file. The file is created on the first Start and finalized by
// Close.
type Sink struct {
	mtx    sync.Mutex
	path   string
	period time.Duration

	file  *os.File
	w     *wav.Writer
	clock *soft.Clock
}

// New creates a sink writing to path. A non positive period selects
// soft.DefaultPeriod.
func New(path string, period time.Duration) *Sink {
	return &Sink{path: path, period: period}
}

// open creates the file once. mtx must be held.
func (s *Sink) open(r soft.Renderer) error {
	if s.w != nil {
		return nil
	}

	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", s.path, err)
	}

	w, err := wav.NewWriter(f, r.SampleRate(), r.OutputChannels())
	if err != nil {
		_ = f.Close()
		return err
	}

	s.file, s.w = f, w
	return nil
}

func (s *Sink) write(samples []float32) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	return s.w.Write(samples)
}

func (s *Sink) Start(r soft.Renderer) error {
	s.mtx.Lock()
	if err := s.open(r); err != nil {
		s.mtx.Unlock()
		return err
	}
	if s.clock == nil {
		s.clock = soft.NewClock(s.period, s.write)
	}
	clock := s.clock
	s.mtx.Unlock()

	return clock.Start(r)
}

func (s *Sink) Stop() error {
	s.mtx.Lock()
	clock := s.clock
	s.mtx.Unlock()

	if clock == nil {
		return nil
	}
	return clock.Stop()
}

// Bounce renders d of audio from r as fast as possible, without waiting
// for real time. The engine does not need to be started.
func (s *Sink) Bounce(r soft.Renderer, d time.Duration) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if err := s.open(r); err != nil {
		return err
	}

	const chunk = 1024
	total := int(int64(r.SampleRate()) * int64(d) / int64(time.Second))
	buf := make([]float32, chunk*r.OutputChannels())

	for done := 0; done < total; done += chunk {
		frames := min(chunk, total-done)
		part := buf[:frames*r.OutputChannels()]
		r.Render(part)
		if err := s.w.Write(part); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sink) Close() error {
	stopErr := s.Stop()

	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.w == nil {
		return stopErr
	}

	err := s.w.Close()
	if cerr := s.file.Close(); err == nil {
		err = cerr
	}
	s.w, s.file = nil, nil

	if err != nil {
		return fmt.Errorf("closing %s: %w", s.path, err)
	}
	return stopErr
}
