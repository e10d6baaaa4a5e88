// SPDX-License-Identifier: EPL-2.0

// Package otosink plays the software device mix through ebitengine/oto.
package otosink

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/ik5/audvox/backend/soft"
	"github.com/sirupsen/logrus"
)

// DefaultBufferSize is the oto buffer length.
const DefaultBufferSize = 40 * time.Millisecond

// Sink owns the process wide oto context. Only one may be started per
// process.
type Sink struct {
	mtx        sync.Mutex
	bufferSize time.Duration
	log        *logrus.Entry

	ctx    *oto.Context
	player *oto.Player
}

// New creates a sink. A non positive bufferSize selects DefaultBufferSize.
func New(bufferSize time.Duration, logger *logrus.Logger) *Sink {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Sink{
		bufferSize: bufferSize,
		log:        logrus.NewEntry(logger).WithField("component", "otosink"),
	}
}

func (s *Sink) Start(r soft.Renderer) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.ctx == nil {
		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   r.SampleRate(),
			ChannelCount: r.OutputChannels(),
			Format:       oto.FormatFloat32LE,
			BufferSize:   s.bufferSize,
		})
		if err != nil {
			return fmt.Errorf("creating oto context: %w", err)
		}
		<-ready
		s.ctx = ctx

		s.log.WithFields(logrus.Fields{
			"function":    "Start",
			"sample_rate": r.SampleRate(),
			"channels":    r.OutputChannels(),
		}).Info("oto context ready")
	}

	if s.player == nil {
		s.player = s.ctx.NewPlayer(newReader(r))
	}
	s.player.Play()
	return nil
}

func (s *Sink) Stop() error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.player != nil {
		s.player.Pause()
	}
	return nil
}

func (s *Sink) Close() error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.player == nil {
		return nil
	}
	err := s.player.Close()
	s.player = nil
	if err != nil {
		return fmt.Errorf("closing oto player: %w", err)
	}
	return nil
}

// reader adapts a Renderer to the Float32LE byte stream oto pulls.
type reader struct {
	r        soft.Renderer
	channels int
	samples  []float32
	pending  []byte
	encoded  []byte
}

func newReader(r soft.Renderer) *reader {
	return &reader{r: r, channels: r.OutputChannels()}
}

func (rd *reader) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		if len(rd.pending) == 0 {
			rd.render(max(1, (len(p)-n)/(4*rd.channels)))
		}
		c := copy(p[n:], rd.pending)
		rd.pending = rd.pending[c:]
		n += c
	}
	return n, nil
}

func (rd *reader) render(frames int) {
	size := frames * rd.channels
	if cap(rd.samples) < size {
		rd.samples = make([]float32, size)
		rd.encoded = make([]byte, size*4)
	}
	rd.samples = rd.samples[:size]
	rd.r.Render(rd.samples)

	out := rd.encoded[:size*4]
	for i, v := range rd.samples {
		binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(v))
	}
	rd.pending = out
}
