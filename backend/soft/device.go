// SPDX-License-Identifier: EPL-2.0

package soft

import (
	"fmt"
	"sync"

	"github.com/ik5/audvox/backend"
	"github.com/sirupsen/logrus"
)

// Config describes the output of a Device.
type Config struct {
	SampleRate  int
	Channels    int
	ChannelMask uint32
	// Sink receives the mix once the engine is started. nil renders
	// nothing until Render is called by the caller.
	Sink   Sink
	Logger *logrus.Logger
}

// NewConfig returns a 48 kHz stereo configuration without a sink.
func NewConfig() *Config {
	return &Config{
		SampleRate:  48000,
		Channels:    2,
		ChannelMask: backend.MaskStereo,
		Logger:      logrus.StandardLogger(),
	}
}

// Device is a software backend.Device. Voices are mixed on demand by Render,
// normally pulled by the configured Sink.
type Device struct {
	mtx sync.Mutex

	sampleRate int
	channels   int
	mask       uint32
	sink       Sink
	log        *logrus.Entry

	master   *node
	submixes []*node
	sources  []*sourceVoice

	notify  *notifier
	running bool
	closed  bool
}

// New creates a device. A zero channel mask is derived from the channel
// count.
func New(cfg *Config) (*Device, error) {
	if cfg == nil {
		cfg = NewConfig()
	}
	if cfg.SampleRate <= 0 || cfg.Channels <= 0 {
		return nil, fmt.Errorf("%w: %d Hz, %d channels", ErrInvalidConfig, cfg.SampleRate, cfg.Channels)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	mask := cfg.ChannelMask
	if mask == 0 {
		mask = defaultMask(cfg.Channels)
	}

	d := &Device{
		sampleRate: cfg.SampleRate,
		channels:   cfg.Channels,
		mask:       mask,
		sink:       cfg.Sink,
		log:        logrus.NewEntry(logger).WithField("component", "soft"),
		notify:     newNotifier(),
	}
	d.master = newNode(d, cfg.Channels, nil, backend.DefaultEffectChain)
	return d, nil
}

func defaultMask(channels int) uint32 {
	switch channels {
	case 1:
		return backend.MaskMono
	case 2:
		return backend.MaskStereo
	case 4:
		return backend.MaskQuad
	case 6:
		return backend.Mask5Point1
	case 8:
		return backend.Mask7Point1Surround
	}
	return 0
}

func (d *Device) Master() backend.Voice { return d.master }
func (d *Device) ChannelMask() uint32   { return d.mask }
func (d *Device) OutputChannels() int   { return d.channels }
func (d *Device) SampleRate() int       { return d.sampleRate }

func (d *Device) NewSourceVoice(dest backend.Voice, opts backend.VoiceOptions) (backend.SourceVoice, error) {
	if opts.Format.Channels <= 0 || opts.Format.SampleRate <= 0 {
		return nil, backend.ErrInvalidFormat
	}

	target, ok := dest.(*node)
	if !ok || target.dev != d {
		return nil, ErrInvalidDestination
	}

	d.mtx.Lock()
	defer d.mtx.Unlock()

	if d.closed {
		return nil, ErrDeviceClosed
	}
	if target.destroyed {
		return nil, backend.ErrVoiceDestroyed
	}

	s := &sourceVoice{
		node:        newNode(d, opts.Format.Channels, target, opts.Effects),
		format:      opts.Format,
		onBufferEnd: opts.OnBufferEnd,
		ratio:       1,
	}
	d.sources = append(d.sources, s)
	return s, nil
}

// NewSubmixVoice creates a submix routed to the mastering voice. Submixes
// run at the device rate, sampleRate is accepted for interface
// compatibility.
func (d *Device) NewSubmixVoice(channels, sampleRate int, effects []backend.EffectKind) (backend.Voice, error) {
	if channels <= 0 || (sampleRate > 0 && sampleRate != d.sampleRate) {
		return nil, backend.ErrInvalidFormat
	}

	d.mtx.Lock()
	defer d.mtx.Unlock()

	if d.closed {
		return nil, ErrDeviceClosed
	}

	n := newNode(d, channels, d.master, effects)
	d.submixes = append(d.submixes, n)
	return n, nil
}

// forget drops a destroyed node from the mix graph.
func (d *Device) forget(n *node) {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	for i, s := range d.sources {
		if s.node == n {
			d.sources = append(d.sources[:i], d.sources[i+1:]...)
			return
		}
	}
	for i, sm := range d.submixes {
		if sm == n {
			d.submixes = append(d.submixes[:i], d.submixes[i+1:]...)
			return
		}
	}
}

// StartEngine starts the sink pulling the mix.
func (d *Device) StartEngine() error {
	d.mtx.Lock()
	if d.closed {
		d.mtx.Unlock()
		return ErrDeviceClosed
	}
	if d.running {
		d.mtx.Unlock()
		return nil
	}
	d.running = true
	sink := d.sink
	d.mtx.Unlock()

	if sink != nil {
		if err := sink.Start(d); err != nil {
			d.mtx.Lock()
			d.running = false
			d.mtx.Unlock()
			return fmt.Errorf("starting sink: %w", err)
		}
	}

	d.log.WithFields(logrus.Fields{
		"function":    "StartEngine",
		"sample_rate": d.sampleRate,
		"channels":    d.channels,
	}).Info("engine started")
	return nil
}

// StopEngine stops the sink. Voices keep their state.
func (d *Device) StopEngine() {
	d.mtx.Lock()
	if !d.running {
		d.mtx.Unlock()
		return
	}
	d.running = false
	sink := d.sink
	d.mtx.Unlock()

	if sink != nil {
		if err := sink.Stop(); err != nil {
			d.log.WithFields(logrus.Fields{
				"function": "StopEngine",
				"error":    err.Error(),
			}).Warn("sink stop failed")
		}
	}
	d.log.WithField("function", "StopEngine").Info("engine stopped")
}

// Close stops the engine, closes the sink and drops pending
// notifications.
func (d *Device) Close() error {
	d.StopEngine()

	d.mtx.Lock()
	if d.closed {
		d.mtx.Unlock()
		return nil
	}
	d.closed = true
	sink := d.sink
	d.mtx.Unlock()

	d.notify.close()

	if sink != nil {
		if err := sink.Close(); err != nil {
			return fmt.Errorf("closing sink: %w", err)
		}
	}
	return nil
}

// Render mixes the next len(dst)/OutputChannels frames into dst.
func (d *Device) Render(dst []float32) {
	frames := len(dst) / d.channels
	dst = dst[:frames*d.channels]

	d.mtx.Lock()
	clear(dst)

	for _, sm := range d.submixes {
		sm.prepare(frames)
	}

	var ended []func()
	for _, s := range d.sources {
		if !s.running || s.destroyed || s.dest.destroyed || len(s.buffers) == 0 {
			continue
		}

		for range s.render(frames, d.sampleRate) {
			ended = append(ended, s.onBufferEnd)
		}

		target := dst
		if s.dest != d.master {
			target = s.dest.mix
		}
		mixInto(target, s.dest.channels, s.out, s.channels, frames, s.volume, s.matrix)
	}

	for _, sm := range d.submixes {
		mixInto(dst, d.channels, sm.mix, sm.channels, frames, sm.volume, sm.matrix)
	}

	if v := d.master.volume; v != 1 {
		for i := range dst {
			dst[i] *= v
		}
	}
	d.mtx.Unlock()

	d.notify.post(ended...)
}
