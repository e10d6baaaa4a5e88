// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ik5/audvox/audio"
	"github.com/ik5/audvox/backend"
	"github.com/ik5/audvox/internal/fader"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// BankID, VoiceID and BusID identify registry entries. Zero is never a
// valid bank or voice.
type (
	BankID  int32
	VoiceID int32
	BusID   int32
)

// DecodedFunc is called once when a bank finished decoding. data is the
// buffer the bank was created from.
type DecodedFunc func(id BankID, data []byte)

// FinishedFunc is called when a voice finished playing.
type FinishedFunc func(id VoiceID)

// Engine owns the banks, buses and voices of one output device.
//
// Lock order when more than one registry lock is needed: banks, buses,
// voices. A voice lock is never taken while a registry lock is held.
type Engine struct {
	dev      backend.Device
	registry *audio.Registry
	opts     Options
	log      *logrus.Entry
	fader    *fader.Scheduler

	ctx         context.Context
	cancel      context.CancelFunc
	tasks       errgroup.Group
	decodeSlots *semaphore.Weighted
	released    atomic.Bool

	bankMtx    sync.Mutex
	banks      map[BankID]*Bank
	lastBankID BankID

	busMtx    sync.Mutex
	buses     map[BusID]*Bus
	master    *Bus
	lastBusID BusID

	voiceMtx    sync.Mutex
	voices      map[VoiceID]*Voice
	pool        []*Voice
	lastVoiceID VoiceID

	finishedMtx sync.RWMutex
	onFinished  FinishedFunc
}

// New creates an engine on dev. Banks are decoded with the decoders of reg.
func New(dev backend.Device, reg *audio.Registry, opts *Options) (*Engine, error) {
	if dev == nil {
		return nil, errors.New("engine: nil device")
	}
	if reg == nil {
		reg = audio.NewRegistry()
	}

	o := opts.normalize()
	ctx, cancel := context.WithCancel(context.Background())
	log := logrus.NewEntry(o.Logger).WithField("component", "engine")

	e := &Engine{
		dev:         dev,
		registry:    reg,
		opts:        o,
		log:         log,
		fader:       fader.New(o.FadeInterval, log),
		ctx:         ctx,
		cancel:      cancel,
		decodeSlots: semaphore.NewWeighted(o.DecodeWorkers),
		banks:       make(map[BankID]*Bank),
		buses:       make(map[BusID]*Bus),
		voices:      make(map[VoiceID]*Voice),
		onFinished:  o.OnFinished,
	}
	e.master = &Bus{id: MasterBus, node: dev.Master(), volume: 1}

	log.WithFields(logrus.Fields{
		"function":        "New",
		"sample_rate":     dev.SampleRate(),
		"output_channels": dev.OutputChannels(),
		"channel_mask":    dev.ChannelMask(),
	}).Info("engine created")

	return e, nil
}

// Release stops every voice, waits for background work and closes the
// device. The engine cannot be used afterwards.
func (e *Engine) Release() {
	if e.released.Swap(true) {
		return
	}

	e.cancel()
	e.fader.Close()

	for _, v := range e.voicesWhere(nil) {
		e.destroyVoice(v)
	}

	e.bankMtx.Lock()
	banks := e.banks
	e.banks = make(map[BankID]*Bank)
	e.bankMtx.Unlock()
	for _, b := range banks {
		b.markRemoved()
	}

	_ = e.tasks.Wait()

	e.busMtx.Lock()
	buses := e.buses
	e.buses = make(map[BusID]*Bus)
	e.busMtx.Unlock()
	for _, b := range buses {
		b.node.Destroy()
	}

	if err := e.dev.Close(); err != nil {
		e.log.WithFields(logrus.Fields{
			"function": "Release",
			"error":    err.Error(),
		}).Warn("device close failed")
	}

	e.log.WithField("function", "Release").Info("engine released")
}

// StartEngine starts audio processing on the device.
func (e *Engine) StartEngine() bool {
	if e.released.Load() {
		return false
	}

	if err := e.dev.StartEngine(); err != nil {
		e.log.WithFields(logrus.Fields{
			"function": "StartEngine",
			"error":    err.Error(),
		}).Error("device start failed")
		return false
	}
	return true
}

// StopEngine suspends audio processing on the device.
func (e *Engine) StopEngine() {
	if e.released.Load() {
		return
	}
	e.dev.StopEngine()
}

// SetOnFinished replaces the finished voice notification.
func (e *Engine) SetOnFinished(fn FinishedFunc) {
	e.finishedMtx.Lock()
	e.onFinished = fn
	e.finishedMtx.Unlock()
}

// spawn runs fn as a tracked background task.
func (e *Engine) spawn(fn func()) {
	if e.released.Load() {
		return
	}
	e.tasks.Go(func() error {
		fn()
		return nil
	})
}

func (e *Engine) voice(id VoiceID) *Voice {
	e.voiceMtx.Lock()
	defer e.voiceMtx.Unlock()

	return e.voices[id]
}

// lockVoice returns the locked voice or nil when id no longer resolves.
func (e *Engine) lockVoice(id VoiceID) *Voice {
	v := e.voice(id)
	if v == nil {
		return nil
	}

	v.mtx.Lock()
	if v.id != id || v.source == nil {
		v.mtx.Unlock()
		return nil
	}
	return v
}

// voicesWhere snapshots the IDs of the voices matching keep.
func (e *Engine) voicesWhere(keep func(*Voice) bool) []VoiceID {
	e.voiceMtx.Lock()
	candidates := make([]*Voice, 0, len(e.voices))
	for _, v := range e.voices {
		candidates = append(candidates, v)
	}
	e.voiceMtx.Unlock()

	ids := make([]VoiceID, 0, len(candidates))
	for _, v := range candidates {
		v.mtx.Lock()
		if v.id != 0 && (keep == nil || keep(v)) {
			ids = append(ids, v.id)
		}
		v.mtx.Unlock()
	}
	return ids
}

// takePooled hands out a retired voice whose grace period elapsed, or a new
// one. voiceMtx must be held.
func (e *Engine) takePooled() *Voice {
	now := time.Now()
	for i, v := range e.pool {
		if now.Sub(v.retiredAt) >= e.opts.PoolGrace {
			e.pool = append(e.pool[:i], e.pool[i+1:]...)
			return v
		}
	}
	return &Voice{e: e, volume: 1, speed: 1}
}

// CreateVoice binds a new voice to a bank and routes it to a bus. It
// returns 0 when the bank or bus is unknown or the device refuses the voice.
func (e *Engine) CreateVoice(bankID BankID, busID BusID, paused bool) VoiceID {
	log := e.log.WithFields(logrus.Fields{
		"function": "CreateVoice",
		"bank_id":  bankID,
		"bus_id":   busID,
	})

	if e.released.Load() {
		return 0
	}

	e.bankMtx.Lock()
	bank := e.banks[bankID]
	if bank == nil || !bank.ready() {
		e.bankMtx.Unlock()
		log.Warn("bank unknown or not decoding")
		return 0
	}
	bank.attach()
	e.bankMtx.Unlock()

	bus := e.bus(busID)
	if bus == nil {
		e.detachBank(bank)
		log.Warn("unknown bus")
		return 0
	}

	e.voiceMtx.Lock()
	e.lastVoiceID++
	id := e.lastVoiceID
	v := e.takePooled()
	e.voiceMtx.Unlock()

	src, err := e.dev.NewSourceVoice(bus.node, backend.VoiceOptions{
		Format:      backend.Format{Channels: bank.Channels(), SampleRate: bank.SampleRate()},
		Effects:     backend.DefaultEffectChain,
		OnBufferEnd: func() { e.onBufferEnd(id) },
	})
	if err != nil {
		e.detachBank(bank)
		e.retire(v)
		log.WithField("error", err.Error()).Error("source voice creation failed")
		return 0
	}

	v.mtx.Lock()
	v.bind(id, bank, busID, bus.node, src)
	if paused {
		v.pause(0)
	}
	v.applyOutputMatrix()
	v.mtx.Unlock()

	e.voiceMtx.Lock()
	e.voices[id] = v
	e.voiceMtx.Unlock()

	log.WithFields(logrus.Fields{
		"voice_id": id,
		"paused":   paused,
	}).Debug("voice created")

	return id
}

// RemoveVoice tears a voice down. A playing voice is stopped and completes
// its removal on the backend end of buffer notification.
func (e *Engine) RemoveVoice(id VoiceID) bool {
	v := e.lockVoice(id)
	if v == nil {
		return false
	}

	if v.playing {
		v.playing = false
		v.looping = false
		v.tempFlush = 0
		_ = v.source.Stop()
		_ = v.source.FlushBuffers()
		v.mtx.Unlock()
		return true
	}
	v.mtx.Unlock()

	e.destroyVoice(id)
	return true
}

// destroyVoice releases the backend voice, pools the Voice and drops the
// bank reference.
func (e *Engine) destroyVoice(id VoiceID) {
	v := e.lockVoice(id)
	if v == nil {
		return
	}

	bank := v.bank
	v.stopFades()
	v.source.Destroy()
	v.reset()
	v.mtx.Unlock()

	e.voiceMtx.Lock()
	if e.voices[id] == v {
		delete(e.voices, id)
	}
	e.voiceMtx.Unlock()
	e.retire(v)

	e.log.WithFields(logrus.Fields{
		"function": "RemoveVoice",
		"bank_id":  bank.id,
		"voice_id": id,
	}).Debug("voice removed")

	e.detachBank(bank)
}

func (e *Engine) retire(v *Voice) {
	v.mtx.Lock()
	v.retiredAt = time.Now()
	v.mtx.Unlock()

	e.voiceMtx.Lock()
	e.pool = append(e.pool, v)
	e.voiceMtx.Unlock()
}

func (e *Engine) detachBank(b *Bank) {
	if b.detach() {
		e.BankRemove(b.id)
	}
}

// onBufferEnd handles the backend end of buffer notification of a voice.
func (e *Engine) onBufferEnd(id VoiceID) {
	v := e.lockVoice(id)
	if v == nil {
		return
	}

	if v.tempFlush > 0 {
		v.tempFlush--
		v.mtx.Unlock()
		return
	}
	v.playing = false
	v.mtx.Unlock()

	e.destroyVoice(id)
	e.notifyFinished(id)
}

func (e *Engine) notifyFinished(id VoiceID) {
	e.finishedMtx.RLock()
	fn := e.onFinished
	e.finishedMtx.RUnlock()

	if fn != nil {
		e.spawn(func() { fn(id) })
	}
}

// settle runs the work a voice operation deferred until its lock was
// released.
func (e *Engine) settle(id VoiceID, bank *Bank, out outcome) {
	switch {
	case out.remove:
		e.RemoveVoice(id)
	case out.wait:
		e.spawn(func() { e.waitForDecode(id, bank, out.waitAt) })
	}
}

// waitForDecode starts a voice once its bank decoded past frame. The voice
// is removed when the data does not show up in time.
func (e *Engine) waitForDecode(id VoiceID, bank *Bank, frame uint32) {
	ok := bank.waitDecoded(e.ctx, int(frame), e.opts.DecodeWaitTimeout)

	v := e.lockVoice(id)
	if v == nil {
		return
	}

	log := v.logger().WithFields(logrus.Fields{
		"function":  "WaitForDecode",
		"at_sample": frame,
	})

	if !ok {
		v.mtx.Unlock()
		log.WithField("error", ErrDecodeTimeout.Error()).Error("voice removed")
		e.RemoveVoice(id)
		return
	}

	if v.bank != bank || !v.playing || v.pauseStack > 0 {
		v.mtx.Unlock()
		return
	}

	if err := v.source.Start(); err != nil {
		v.mtx.Unlock()
		log.WithField("error", err.Error()).Error("backend start failed")
		e.RemoveVoice(id)
		return
	}
	v.tempFlush = 0
	v.mtx.Unlock()

	log.Debug("decoded data ready, playback started")
}
