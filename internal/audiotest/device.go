// SPDX-License-Identifier: EPL-2.0

package audiotest

import (
	"errors"
	"sync"

	"github.com/ik5/audvox/backend"
)

// ErrRefused is returned by a FakeDevice told to fail voice creation.
var ErrRefused = errors.New("audiotest: voice refused")

// FakeDevice is a backend.Device that renders nothing. End of buffer
// notifications are queued and only delivered by Deliver, which lets tests
// decide when the backend "calls back".
type FakeDevice struct {
	mtx sync.Mutex

	mask       uint32
	channels   int
	sampleRate int

	master   *FakeVoice
	sources  []*FakeSource
	submixes []*FakeVoice
	pending  []func()

	started bool
	closed  bool

	// RefuseSources and RefuseSubmixes make creation fail.
	RefuseSources  bool
	RefuseSubmixes bool
}

// NewFakeDevice creates a stereo 48 kHz device.
func NewFakeDevice() *FakeDevice {
	return NewFakeDeviceWithLayout(backend.MaskStereo, 2, 48000)
}

// NewFakeDeviceWithLayout creates a device with the given speaker layout.
func NewFakeDeviceWithLayout(mask uint32, channels, sampleRate int) *FakeDevice {
	d := &FakeDevice{mask: mask, channels: channels, sampleRate: sampleRate}
	d.master = newFakeVoice(d, channels, nil)
	return d
}

func (d *FakeDevice) Master() backend.Voice { return d.master }
func (d *FakeDevice) ChannelMask() uint32   { return d.mask }
func (d *FakeDevice) OutputChannels() int   { return d.channels }
func (d *FakeDevice) SampleRate() int       { return d.sampleRate }

// MasterVoice is Master with its concrete type.
func (d *FakeDevice) MasterVoice() *FakeVoice { return d.master }

func (d *FakeDevice) NewSourceVoice(dest backend.Voice, opts backend.VoiceOptions) (backend.SourceVoice, error) {
	if opts.Format.Channels <= 0 || opts.Format.SampleRate <= 0 {
		return nil, backend.ErrInvalidFormat
	}

	d.mtx.Lock()
	defer d.mtx.Unlock()

	if d.RefuseSources {
		return nil, ErrRefused
	}

	s := &FakeSource{
		FakeVoice:   newFakeVoice(d, opts.Format.Channels, opts.Effects),
		Dest:        dest,
		Format:      opts.Format,
		onBufferEnd: opts.OnBufferEnd,
		ratio:       1,
	}
	d.sources = append(d.sources, s)
	return s, nil
}

func (d *FakeDevice) NewSubmixVoice(channels, sampleRate int, effects []backend.EffectKind) (backend.Voice, error) {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	if d.RefuseSubmixes {
		return nil, ErrRefused
	}

	v := newFakeVoice(d, channels, effects)
	d.submixes = append(d.submixes, v)
	return v, nil
}

func (d *FakeDevice) StartEngine() error {
	d.mtx.Lock()
	d.started = true
	d.mtx.Unlock()
	return nil
}

func (d *FakeDevice) StopEngine() {
	d.mtx.Lock()
	d.started = false
	d.mtx.Unlock()
}

func (d *FakeDevice) Close() error {
	d.mtx.Lock()
	d.closed = true
	d.mtx.Unlock()
	return nil
}

// Started reports whether the engine is running.
func (d *FakeDevice) Started() bool {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	return d.started
}

// Closed reports whether Close was called.
func (d *FakeDevice) Closed() bool {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	return d.closed
}

// Sources returns every source voice created so far.
func (d *FakeDevice) Sources() []*FakeSource {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	return append([]*FakeSource(nil), d.sources...)
}

// LastSource returns the most recently created source voice.
func (d *FakeDevice) LastSource() *FakeSource {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	if len(d.sources) == 0 {
		return nil
	}
	return d.sources[len(d.sources)-1]
}

// Submixes returns every submix voice created so far.
func (d *FakeDevice) Submixes() []*FakeVoice {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	return append([]*FakeVoice(nil), d.submixes...)
}

// Pending is the number of queued end notifications.
func (d *FakeDevice) Pending() int {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	return len(d.pending)
}

// Deliver runs the queued end notifications in order, including those
// queued while delivering, and returns how many ran.
func (d *FakeDevice) Deliver() int {
	n := 0
	for {
		d.mtx.Lock()
		if len(d.pending) == 0 {
			d.mtx.Unlock()
			return n
		}
		fn := d.pending[0]
		d.pending = d.pending[1:]
		d.mtx.Unlock()

		if fn != nil {
			fn()
		}
		n++
	}
}

func (d *FakeDevice) queue(fn func()) {
	d.mtx.Lock()
	d.pending = append(d.pending, fn)
	d.mtx.Unlock()
}

// FakeVoice records the state set on a mix graph node.
type FakeVoice struct {
	dev *FakeDevice
	mtx sync.Mutex

	channels  int
	volume    float32
	matrix    []float32
	effects   []backend.EffectKind
	enabled   map[int]bool
	params    map[int]any
	destroyed bool
}

func newFakeVoice(d *FakeDevice, channels int, effects []backend.EffectKind) *FakeVoice {
	return &FakeVoice{
		dev:      d,
		channels: channels,
		volume:   1,
		effects:  effects,
		enabled:  make(map[int]bool),
		params:   make(map[int]any),
	}
}

func (v *FakeVoice) SetVolume(volume float32) error {
	v.mtx.Lock()
	defer v.mtx.Unlock()

	if v.destroyed {
		return backend.ErrVoiceDestroyed
	}
	v.volume = volume
	return nil
}

func (v *FakeVoice) Volume() float32 {
	v.mtx.Lock()
	defer v.mtx.Unlock()
	return v.volume
}

func (v *FakeVoice) SetOutputMatrix(srcChannels, dstChannels int, matrix []float32) error {
	if srcChannels != v.InputChannels() || len(matrix) != srcChannels*dstChannels {
		return backend.ErrInvalidMatrix
	}

	v.mtx.Lock()
	v.matrix = append([]float32(nil), matrix...)
	v.mtx.Unlock()
	return nil
}

// Matrix returns the last output matrix set.
func (v *FakeVoice) Matrix() []float32 {
	v.mtx.Lock()
	defer v.mtx.Unlock()
	return append([]float32(nil), v.matrix...)
}

func (v *FakeVoice) InputChannels() int { return v.channels }

func (v *FakeVoice) EnableEffect(slot int) error {
	return v.setEnabled(slot, true)
}

func (v *FakeVoice) DisableEffect(slot int) error {
	return v.setEnabled(slot, false)
}

func (v *FakeVoice) setEnabled(slot int, on bool) error {
	v.mtx.Lock()
	defer v.mtx.Unlock()

	if slot < 0 || slot >= len(v.effects) {
		return backend.ErrInvalidSlot
	}
	v.enabled[slot] = on
	return nil
}

func (v *FakeVoice) SetEffectParameters(slot int, params any) error {
	v.mtx.Lock()
	defer v.mtx.Unlock()

	if slot < 0 || slot >= len(v.effects) {
		return backend.ErrInvalidSlot
	}
	v.params[slot] = params
	return nil
}

// EffectEnabled reports whether slot is switched on.
func (v *FakeVoice) EffectEnabled(slot int) bool {
	v.mtx.Lock()
	defer v.mtx.Unlock()
	return v.enabled[slot]
}

// EffectParameters returns the last parameters set on slot.
func (v *FakeVoice) EffectParameters(slot int) any {
	v.mtx.Lock()
	defer v.mtx.Unlock()
	return v.params[slot]
}

func (v *FakeVoice) Destroy() {
	v.mtx.Lock()
	v.destroyed = true
	v.mtx.Unlock()
}

// Destroyed reports whether Destroy was called.
func (v *FakeVoice) Destroyed() bool {
	v.mtx.Lock()
	defer v.mtx.Unlock()
	return v.destroyed
}

// FakeSource is a source voice whose play head only moves when a test
// sets it.
type FakeSource struct {
	*FakeVoice

	Dest   backend.Voice
	Format backend.Format

	onBufferEnd func()

	buffers   []backend.Buffer
	submitted []backend.Buffer
	running   bool
	played    uint64
	ratio     float32
	starts    int
	stops     int
	flushes   int
}

func (s *FakeSource) SubmitBuffer(buf backend.Buffer) error {
	if buf.PCM == nil {
		return backend.ErrNoBuffer
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.destroyed {
		return backend.ErrVoiceDestroyed
	}
	s.buffers = append(s.buffers, buf)
	s.submitted = append(s.submitted, buf)
	return nil
}

func (s *FakeSource) Start() error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.destroyed {
		return backend.ErrVoiceDestroyed
	}
	s.running = true
	s.starts++
	return nil
}

func (s *FakeSource) Stop() error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.running = false
	s.stops++
	return nil
}

// FlushBuffers drops the queued buffers and queues one end notification
// for each of them.
func (s *FakeSource) FlushBuffers() error {
	s.mtx.Lock()
	n := len(s.buffers)
	s.buffers = nil
	s.flushes++
	s.mtx.Unlock()

	for range n {
		s.dev.queue(s.onBufferEnd)
	}
	return nil
}

func (s *FakeSource) SamplesPlayed() uint64 {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.played
}

// SetSamplesPlayed moves the play head.
func (s *FakeSource) SetSamplesPlayed(n uint64) {
	s.mtx.Lock()
	s.played = n
	s.mtx.Unlock()
}

// Finish plays the current buffer to its end: the buffer is dropped, the
// play head resets and one end notification is queued.
func (s *FakeSource) Finish() {
	s.mtx.Lock()
	if len(s.buffers) > 0 {
		s.buffers = s.buffers[1:]
	}
	s.played = 0
	s.mtx.Unlock()

	s.dev.queue(s.onBufferEnd)
}

func (s *FakeSource) SetFrequencyRatio(ratio float32) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.ratio = ratio
	return nil
}

func (s *FakeSource) FrequencyRatio() float32 {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.ratio
}

// Running reports whether the voice was started and not stopped since.
func (s *FakeSource) Running() bool {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.running
}

// Queued returns the buffers not played or flushed yet.
func (s *FakeSource) Queued() []backend.Buffer {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return append([]backend.Buffer(nil), s.buffers...)
}

// Submitted returns every buffer ever submitted.
func (s *FakeSource) Submitted() []backend.Buffer {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return append([]backend.Buffer(nil), s.submitted...)
}

// Calls returns how often Start, Stop and FlushBuffers were called.
func (s *FakeSource) Calls() (starts, stops, flushes int) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.starts, s.stops, s.flushes
}
