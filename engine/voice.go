// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"sync"
	"time"

	"github.com/ik5/audvox/backend"
	"github.com/ik5/audvox/internal/fader"
	"github.com/sirupsen/logrus"
)

// State is the playback state of a voice.
type State int

const (
	StateIdle State = iota
	StateBound
	StatePlaying
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBound:
		return "bound"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	}
	return "unknown"
}

type fadeProperty int

const (
	propVolume fadeProperty = iota
	propPause
	propSpeed
	propPanning
)

// outcome is work a voice operation leaves for after the voice lock is
// released.
type outcome struct {
	remove bool
	wait   bool
	waitAt uint32
}

// Voice is one playback instance of a bank. Voices are pooled and reused;
// every field is guarded by mtx and only meaningful while id is non zero.
type Voice struct {
	mtx sync.Mutex
	e   *Engine

	id     VoiceID
	bank   *Bank
	busID  BusID
	dest   backend.Voice
	source backend.SourceVoice

	volume  float32
	speed   float32
	panning float32

	looping   bool
	loopStart uint32
	loopEnd   uint32

	playing        bool
	protected      bool
	pauseStack     uint32
	positionOffset int64
	begin          uint32
	tempFlush      int

	volumeFade  fader.JobID
	speedFade   fader.JobID
	panningFade fader.JobID
	pauseFade   fader.JobID

	effects effectChain

	retiredAt time.Time
}

func (v *Voice) bind(id VoiceID, bank *Bank, busID BusID, dest backend.Voice, src backend.SourceVoice) {
	v.id = id
	v.bank = bank
	v.busID = busID
	v.dest = dest
	v.source = src
	v.volume = 1
	v.speed = 1
	v.panning = 0
}

// reset returns the voice to its idle state. The caller holds mtx.
func (v *Voice) reset() {
	v.id = 0
	v.bank = nil
	v.busID = 0
	v.dest = nil
	v.source = nil
	v.volume, v.speed, v.panning = 1, 1, 0
	v.looping, v.loopStart, v.loopEnd = false, 0, 0
	v.playing = false
	v.protected = false
	v.pauseStack = 0
	v.positionOffset = 0
	v.begin = 0
	v.tempFlush = 0
	v.volumeFade, v.speedFade, v.panningFade, v.pauseFade = 0, 0, 0, 0
	v.effects = effectChain{}
}

func (v *Voice) logger() *logrus.Entry {
	var bankID BankID
	if v.bank != nil {
		bankID = v.bank.id
	}
	return v.e.log.WithFields(logrus.Fields{
		"bank_id":  bankID,
		"voice_id": v.id,
	})
}

func (v *Voice) state() State {
	switch {
	case v.source == nil:
		return StateIdle
	case v.pauseStack > 0:
		return StatePaused
	case v.playing:
		return StatePlaying
	}
	return StateBound
}

// start submits the bank from atSample. With flush set a voice already
// playing drops its queued buffer first.
func (v *Voice) start(atSample uint32, flush bool) (bool, outcome) {
	if v.source == nil || v.bank == nil {
		return false, outcome{}
	}

	log := v.logger().WithField("function", "Start")

	v.positionOffset = int64(atSample)
	if v.playing {
		if flush {
			v.tempFlush++
			_ = v.source.Stop()
			_ = v.source.FlushBuffers()
		}
		v.positionOffset -= int64(v.source.SamplesPlayed())
	}

	buf := backend.Buffer{PCM: v.bank, PlayBegin: atSample}
	if v.looping && atSample < v.loopEnd {
		buf.LoopBegin = v.loopStart
		buf.LoopLength = v.loopEnd - v.loopStart
		buf.LoopCount = backend.LoopInfinite
	} else {
		v.looping = false
	}

	if err := v.source.SubmitBuffer(buf); err != nil {
		log.WithField("error", err.Error()).Error("buffer submission failed")
		v.playing = false
		return false, outcome{remove: true}
	}
	v.playing = true
	v.begin = atSample

	log.WithFields(logrus.Fields{
		"at_sample": atSample,
		"looping":   v.looping,
		"paused":    v.pauseStack > 0,
	}).Debug("buffer submitted")

	if v.pauseStack > 0 {
		return true, outcome{}
	}

	if v.bank.Decoded() <= int(atSample) {
		return true, outcome{wait: true, waitAt: atSample}
	}

	if err := v.source.Start(); err != nil {
		log.WithField("error", err.Error()).Error("backend start failed")
		return false, outcome{remove: true}
	}
	return true, outcome{}
}

// stop ends playback, either at once or after fading the volume out.
func (v *Voice) stop(fade float32) bool {
	if v.source == nil || !v.playing {
		return false
	}

	v.playing = false
	v.looping = false

	f := v.e.fader
	f.StopFade(v.volumeFade)
	v.volumeFade = 0

	if fade > 0 {
		v.volumeFade = f.StartFade([]float32{v.source.Volume()}, []float32{0}, fade, v.e.voiceFade(v.id, propVolume))
		if v.pauseStack > 0 {
			f.PauseFade(v.volumeFade)
		}
	} else {
		v.tempFlush = 0
		_ = v.source.Stop()
		_ = v.source.FlushBuffers()
	}

	v.logger().WithFields(logrus.Fields{
		"function": "Stop",
		"fade":     fade,
	}).Debug("voice stopped")

	return true
}

func (v *Voice) pause(fade float32) uint32 {
	if v.source == nil {
		return 0
	}

	v.pauseStack++
	if v.pauseStack > 1 {
		return v.pauseStack
	}

	f := v.e.fader
	f.StopFade(v.pauseFade)
	v.pauseFade = 0
	f.PauseFade(v.volumeFade)
	f.PauseFade(v.speedFade)
	f.PauseFade(v.panningFade)

	if fade > 0 && v.volume > 0 && v.playing {
		v.pauseFade = f.StartFade([]float32{v.source.Volume()}, []float32{0}, fade, v.e.voiceFade(v.id, propPause))
	} else {
		_ = v.source.Stop()
	}

	return v.pauseStack
}

func (v *Voice) resume(fade float32) (uint32, outcome) {
	if v.source == nil || v.pauseStack == 0 {
		return 0, outcome{}
	}

	v.pauseStack--
	if v.pauseStack > 0 {
		return v.pauseStack, outcome{}
	}

	f := v.e.fader
	f.StopFade(v.pauseFade)
	v.pauseFade = 0

	var out outcome
	if v.playing && v.bank.Decoded() <= int(v.begin) {
		out = outcome{wait: true, waitAt: v.begin}
	} else if err := v.source.Start(); err != nil {
		v.logger().WithFields(logrus.Fields{
			"function": "Resume",
			"error":    err.Error(),
		}).Error("backend start failed")
		return 0, outcome{remove: true}
	}

	if fade > 0 && v.volume > 0 && v.playing {
		v.pauseFade = f.StartFade([]float32{v.source.Volume()}, []float32{v.volume}, fade, v.e.voiceFade(v.id, propPause))
	} else {
		_ = v.source.SetVolume(v.volume)
		v.resumeFades()
	}

	return 0, out
}

func (v *Voice) resumeFades() {
	f := v.e.fader
	f.ResumeFade(v.volumeFade)
	f.ResumeFade(v.speedFade)
	f.ResumeFade(v.panningFade)
}

// position is the logical play head, folded into the loop when looping.
func (v *Voice) position() int64 {
	pos := int64(v.source.SamplesPlayed()) + v.positionOffset
	if pos < 0 {
		pos = 0
	}

	start, end := int64(v.loopStart), int64(v.loopEnd)
	if v.looping && end > start && pos > start {
		pos = start + (pos-start)%(end-start)
	}
	return pos
}

// getPosition returns 0 when not playing and never 0 while playing.
func (v *Voice) getPosition() uint32 {
	if v.source == nil || !v.playing {
		return 0
	}

	pos := v.position()
	if pos == 0 {
		return 1
	}
	return uint32(pos)
}

// relocate applies change while keeping the play head where it is. A
// playing voice is stopped, flushed and resubmitted at its position.
func (v *Voice) relocate(change func()) (bool, outcome) {
	if !v.playing {
		change()
		return true, outcome{}
	}

	_ = v.source.Stop()
	pos := v.position()
	v.tempFlush++
	_ = v.source.FlushBuffers()

	change()

	return v.start(uint32(pos), false)
}

func (v *Voice) changeLoopPoints(start, end uint32) (bool, outcome) {
	if v.source == nil || v.bank == nil {
		return false, outcome{}
	}

	if end == 0 {
		if total := v.bank.Frames(); total > 0 {
			end = uint32(total - 1)
		}
	}
	if start > end {
		start, end = end, start
	}
	if start == end && end != 0 {
		start = end - 1
	}

	if start == v.loopStart && end == v.loopEnd {
		return true, outcome{}
	}

	v.logger().WithFields(logrus.Fields{
		"function":   "ChangeLoopPoints",
		"loop_start": start,
		"loop_end":   end,
		"playing":    v.playing,
	}).Debug("loop points changed")

	return v.relocate(func() {
		v.loopStart, v.loopEnd = start, end
	})
}

func (v *Voice) setLooping(looping bool) (bool, outcome) {
	if v.source == nil || v.bank == nil {
		return false, outcome{}
	}
	if v.looping == looping {
		return true, outcome{}
	}

	return v.relocate(func() {
		v.looping = looping
		if looping && v.loopEnd == 0 {
			if total := v.bank.Frames(); total > 0 {
				v.loopEnd = uint32(total - 1)
			}
		}
	})
}

func (v *Voice) setVolume(volume, fade float32) {
	if v.source == nil {
		return
	}

	volume = clamp(volume, 0, 1)
	if volume == v.volume {
		return
	}

	f := v.e.fader
	f.StopFade(v.volumeFade)
	v.volumeFade = 0

	if fade > 0 {
		v.volumeFade = f.StartFade([]float32{v.source.Volume()}, []float32{volume}, fade, v.e.voiceFade(v.id, propVolume))
		if v.pauseStack > 0 {
			f.PauseFade(v.volumeFade)
		}
	} else if err := v.source.SetVolume(volume); err != nil {
		v.logger().WithField("error", err.Error()).Warn("set volume failed")
	}
	v.volume = volume
}

func (v *Voice) setSpeed(speed, fade float32) {
	if v.source == nil || v.bank == nil {
		return
	}

	speed = clamp(speed, backend.MinFrequencyRatio, backend.MaxFrequencyRatio)
	if speed == v.speed {
		return
	}

	f := v.e.fader
	f.StopFade(v.speedFade)
	v.speedFade = 0

	if fade > 0 {
		v.speedFade = f.StartFade([]float32{v.speed}, []float32{speed}, fade, v.e.voiceFade(v.id, propSpeed))
		if v.pauseStack > 0 {
			f.PauseFade(v.speedFade)
		}
		return
	}

	v.speed = speed
	if err := v.source.SetFrequencyRatio(speed); err != nil {
		v.logger().WithField("error", err.Error()).Warn("set frequency ratio failed")
	}
}

func (v *Voice) setPanning(panning, fade float32) {
	if v.source == nil || v.bank == nil {
		return
	}

	panning = clamp(panning, -1, 1)
	if panning == v.panning {
		return
	}

	f := v.e.fader
	f.StopFade(v.panningFade)
	v.panningFade = 0

	if fade > 0 {
		v.panningFade = f.StartFade([]float32{v.panning}, []float32{panning}, fade, v.e.voiceFade(v.id, propPanning))
		if v.pauseStack > 0 {
			f.PauseFade(v.panningFade)
		}
		return
	}

	v.panning = panning
	v.applyOutputMatrix()
}

// onFade applies one tick of a property fade. Ticks of superseded jobs are
// ignored.
func (v *Voice) onFade(job fader.JobID, prop fadeProperty, value float32, finished bool) {
	if v.source == nil {
		return
	}

	switch prop {
	case propVolume, propPause:
		if (prop == propVolume && v.volumeFade != job) || (prop == propPause && v.pauseFade != job) {
			return
		}
		_ = v.source.SetVolume(value)
		if !finished {
			return
		}

		if prop == propPause {
			v.pauseFade = 0
			if v.pauseStack > 0 {
				_ = v.source.Stop()
				return
			}
			v.resumeFades()
		} else {
			v.volumeFade = 0
		}

		if !v.playing && value == 0 {
			v.tempFlush = 0
			_ = v.source.Stop()
			_ = v.source.FlushBuffers()
		}

	case propSpeed:
		if v.speedFade != job {
			return
		}
		v.speed = value
		_ = v.source.SetFrequencyRatio(value)
		if finished {
			v.speedFade = 0
		}

	case propPanning:
		if v.panningFade != job {
			return
		}
		v.panning = value
		v.applyOutputMatrix()
		if finished {
			v.panningFade = 0
		}
	}
}

// stopFades cancels every fade the voice owns.
func (v *Voice) stopFades() {
	f := v.e.fader
	for _, id := range []fader.JobID{v.volumeFade, v.speedFade, v.panningFade, v.pauseFade} {
		f.StopFade(id)
	}
	for i := range v.effects {
		f.StopFade(v.effects[i].fade)
	}
}

func (v *Voice) applyOutputMatrix() {
	if v.source == nil || v.dest == nil {
		return
	}

	src := v.source.InputChannels()
	dst := v.dest.InputChannels()
	matrix, ok := outputMatrix(src, dst, v.e.dev.ChannelMask(), v.panning)
	if !ok {
		return
	}

	if err := v.source.SetOutputMatrix(src, dst, matrix); err != nil {
		v.logger().WithFields(logrus.Fields{
			"function":             "SetOutputMatrix",
			"source_channels":      src,
			"destination_channels": dst,
			"error":                err.Error(),
		}).Warn("output matrix rejected")
	}
}

func clamp(v, lo, hi float32) float32 {
	return max(lo, min(v, hi))
}

// voiceFade routes fader ticks to the voice id, skipping them once the
// voice was removed or reused.
func (e *Engine) voiceFade(id VoiceID, prop fadeProperty) fader.Callback {
	return func(job fader.JobID, values []float32, finished bool) {
		v := e.lockVoice(id)
		if v == nil {
			return
		}
		defer v.mtx.Unlock()

		v.onFade(job, prop, values[0], finished)
	}
}
